package api

import (
	"context"
	"net"
	"net/http"

	"github.com/refhq/refhq-server/internal/auth"
	"github.com/refhq/refhq-server/internal/domain"
	domainerrors "github.com/refhq/refhq-server/internal/errors"
	"github.com/refhq/refhq-server/internal/http/response"
	"github.com/refhq/refhq-server/internal/normalize"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const contextKeyActor contextKey = "actor"

// requireAdmin authenticates the request with HTTP basic credentials and
// rejects non-admin users. The resolved actor lands in the request context.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="refhq"`)
			response.Unauthorized(w, "credentials required", s.logger)
			return
		}

		user, err := s.store.GetUserByEmail(r.Context(), normalize.Email(email))
		if err != nil {
			// Same response for unknown user and bad password.
			response.Unauthorized(w, "invalid credentials", s.logger)
			return
		}

		match, err := auth.VerifyPassword(user.PasswordHash, password)
		if err != nil || !match {
			response.Unauthorized(w, "invalid credentials", s.logger)
			return
		}

		actor := user.AsActor()
		if !actor.CanInvite() {
			response.HandleError(w, domainerrors.Forbidden("admin access required"), s.logger)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyActor, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// actorFrom extracts the authenticated actor from the request context.
func actorFrom(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(contextKeyActor).(domain.Actor)
	return actor, ok
}

// rateLimit throttles requests per client IP on the public endpoints.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow(clientIP(r)) {
			response.TooManyRequests(w, "too many requests, slow down", s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the request's client address without the port.
// middleware.RealIP has already resolved proxy headers by this point.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
