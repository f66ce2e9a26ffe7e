package httpserver

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"campusmarket/internal/domain"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Authenticator resolves a bearer token to the caller's identity.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (domain.Identity, error)
}

// WithIdentity returns a new context carrying the caller's identity.
func WithIdentity(ctx context.Context, who domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, who)
}

// CurrentIdentity extracts the caller from context. Anonymous requests get
// the zero Identity.
func CurrentIdentity(r *http.Request) domain.Identity {
	if who, ok := r.Context().Value(identityContextKey).(domain.Identity); ok {
		return who
	}
	return domain.Identity{}
}

// RequireAuth validates the Bearer token and attaches the identity to the
// context. Requests without a valid token are rejected with 401.
func RequireAuth(auth Authenticator, log *zap.Logger) func(http.Handler) http.Handler {
	return authMiddleware(auth, log, true)
}

// OptionalAuth attaches the identity when a token is presented and lets
// anonymous requests through. A presented but invalid token is still a 401.
func OptionalAuth(auth Authenticator, log *zap.Logger) func(http.Handler) http.Handler {
	return authMiddleware(auth, log, false)
}

func authMiddleware(auth Authenticator, log *zap.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" && !required {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
				writeError(w, r, log, domain.Errorf(domain.ErrUnauthorized, "missing or invalid Authorization header"))
				return
			}
			token := strings.TrimSpace(header[len("Bearer "):])

			who, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				log.Debug("authentication failed", zap.Error(err))
				writeError(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), who)))
		})
	}
}
