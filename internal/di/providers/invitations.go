package providers

import (
	"github.com/samber/do/v2"

	"github.com/refhq/refhq-server/internal/config"
	"github.com/refhq/refhq-server/internal/logger"
	"github.com/refhq/refhq-server/internal/mail"
	"github.com/refhq/refhq-server/internal/ratelimit"
	"github.com/refhq/refhq-server/internal/service"
	"github.com/refhq/refhq-server/internal/token"
	"github.com/refhq/refhq-server/internal/validation"
)

// ProvideTokenIssuer provides the invitation token issuer.
func ProvideTokenIssuer(i do.Injector) (*token.Issuer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return token.NewIssuer(cfg.Invite.TokenBytes, cfg.Invite.TTL), nil
}

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return validation.New(cfg.Auth.PasswordMinLength), nil
}

// ProvideMailer provides the email sender. Without provider credentials
// delivery is disabled and invitations are created silently.
func ProvideMailer(i do.Injector) (mail.Mailer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Email.Endpoint == "" || cfg.Email.APIKey == "" {
		log.Warn("no email provider configured, invitation emails disabled")
		return mail.Noop{}, nil
	}

	return mail.NewHTTPMailer(cfg.Email.Endpoint, cfg.Email.APIKey, cfg.Email.From, log.Logger)
}

// RateLimiterHandle wraps the keyed limiter with Shutdownable.
type RateLimiterHandle struct {
	*ratelimit.KeyedLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideRateLimiter provides the public-endpoint rate limiter.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &RateLimiterHandle{
		KeyedLimiter: ratelimit.New(cfg.Invite.PublicRPS, cfg.Invite.PublicBurst),
	}, nil
}

// ProvideInvitationService provides the invitation service.
func ProvideInvitationService(i do.Injector) (*service.InvitationService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	issuer := do.MustInvoke[*token.Issuer](i)
	validator := do.MustInvoke[*validation.Validator](i)
	mailer := do.MustInvoke[mail.Mailer](i)

	return service.NewInvitationService(
		storeHandle.Store,
		mailer,
		issuer,
		validator,
		log.Logger,
		cfg.Invite.BaseURL,
	), nil
}
