package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/refhq/refhq-server/internal/config"
	"github.com/refhq/refhq-server/internal/logger"
	"github.com/refhq/refhq-server/internal/store"
	"github.com/refhq/refhq-server/internal/store/postgres"
	"github.com/refhq/refhq-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the database store for the configured driver.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var (
		st  store.Store
		err error
	)
	switch cfg.Database.Driver {
	case "sqlite":
		st, err = sqlite.Open(cfg.Database.Path, log.Logger)
	case "postgres":
		st, err = postgres.Open(cfg.Database.DSN, log.Logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}

	log.Info("database initialized", "driver", cfg.Database.Driver)
	return &StoreHandle{Store: st}, nil
}
