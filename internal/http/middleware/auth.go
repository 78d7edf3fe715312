package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/seoportal/sessionbind/internal/httputil"
	"github.com/seoportal/sessionbind/pkg/domain"
	"github.com/seoportal/sessionbind/pkg/identity"
)

type contextKey string

const (
	// IdentityKey is the context key for the authenticated identity.
	IdentityKey contextKey = "identity"
	// ClaimsKey is the context key for the token claims.
	ClaimsKey contextKey = "claims"
)

// Auth creates middleware that validates JWT access tokens.
// Checks Authorization header first, then falls back to cookie for web clients.
func Auth(tokens *identity.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string

			// Try Authorization header first (API clients)
			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
					tokenString = parts[1]
				}
			}

			// Fall back to cookie (web clients)
			if tokenString == "" {
				if token, ok := httputil.GetAccessTokenFromCookie(r); ok {
					tokenString = token
				}
			}

			if tokenString == "" {
				httputil.Error(w, http.StatusUnauthorized, "missing authorization")
				return
			}

			claims, err := tokens.ValidateAccessToken(tokenString)
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ident := &domain.Identity{ID: claims.Subject, Email: claims.Email}
			ctx := context.WithValue(r.Context(), IdentityKey, ident)
			ctx = context.WithValue(ctx, ClaimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity extracts the authenticated identity from the request context.
func GetIdentity(ctx context.Context) (*domain.Identity, bool) {
	ident, ok := ctx.Value(IdentityKey).(*domain.Identity)
	return ident, ok
}

// GetClaims extracts the token claims from the request context.
func GetClaims(ctx context.Context) (*identity.AccessTokenClaims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*identity.AccessTokenClaims)
	return claims, ok
}
