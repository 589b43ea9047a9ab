package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-client/identity"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyIdentity stores the authenticated user's identity
const ContextKeyIdentity ContextKey = "identity"

// IdentityFromContext returns the identity injected by RequireAuth, or
// nil when the request was not authenticated.
func IdentityFromContext(ctx context.Context) *identity.Identity {
	user, _ := ctx.Value(ContextKeyIdentity).(*identity.Identity)
	return user
}

// RequireAuth is middleware that validates a Bearer access token.
// A missing or malformed Authorization header fails with 401; a token
// the validator rejects fails with 403. Validation delegates entirely
// to the identity provider, so a revoked token is refused on its next
// use.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "access token required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
				writeJSONError(w, http.StatusUnauthorized, "access token required")
				return
			}

			user, err := s.validator.Validate(r.Context(), parts[1])
			if err != nil {
				writeJSONError(w, http.StatusForbidden, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyIdentity, user)
			next(w, r.WithContext(ctx))
		}
	}
}
