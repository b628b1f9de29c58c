// Package providers contains dependency injection providers for the server.
package providers

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/refhq/refhq-server/internal/config"
	"github.com/refhq/refhq-server/internal/logger"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 30 * time.Second

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.Load()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("starting RefHQ server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"db_driver", cfg.Database.Driver,
	)

	return log, nil
}
