package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/halcyondata/recall/internal/api"
	"github.com/halcyondata/recall/internal/domain"
)

// AuthValidator resolves a bearer token to the caller's claims.
type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (*domain.Claims, error)
}

func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := validator.ValidateAPIKey(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "invalid api key")
				return
			}

			// Header mutation is visible to the access logger wrapping
			// this middleware; the context value is not.
			r.Header.Set("X-Tenant-ID", claims.TenantID)
			ctx := domain.WithClaims(r.Context(), *claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims returns the authenticated claims, if any, from the request context.
func GetClaims(ctx context.Context) (domain.Claims, bool) {
	return domain.ClaimsFromContext(ctx)
}
