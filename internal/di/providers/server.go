package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/refhq/refhq-server/internal/api"
	"github.com/refhq/refhq-server/internal/config"
	"github.com/refhq/refhq-server/internal/logger"
	"github.com/refhq/refhq-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server, started in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	limiterHandle := do.MustInvoke[*RateLimiterHandle](i)
	invitations := do.MustInvoke[*service.InvitationService](i)

	handler := api.NewServer(storeHandle.Store, invitations, limiterHandle.KeyedLimiter, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
