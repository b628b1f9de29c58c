// Package di provides dependency injection configuration for the server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/refhq/refhq-server/internal/config"
	"github.com/refhq/refhq-server/internal/di/providers"
	"github.com/refhq/refhq-server/internal/logger"
	"github.com/refhq/refhq-server/internal/mail"
	"github.com/refhq/refhq-server/internal/service"
	"github.com/refhq/refhq-server/internal/token"
	"github.com/refhq/refhq-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage
	do.Provide(injector, providers.ProvideStore)

	// Invitation machinery
	do.Provide(injector, providers.ProvideTokenIssuer)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideMailer)
	do.Provide(injector, providers.ProvideRateLimiter)

	// Business services
	do.Provide(injector, providers.ProvideInvitationService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap triggers lazy initialization of all services so startup
// failures surface immediately instead of on the first request.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*token.Issuer](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*validation.Validator](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[mail.Mailer](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.RateLimiterHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.InvitationService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	return nil
}
