package middleware

import (
	"context"
	"net/http"
	"strings"

	pkgAuth "github.com/Faith-Anthony/presently/pkg/auth"
	"github.com/Faith-Anthony/presently/pkg/config"
	"github.com/Faith-Anthony/presently/pkg/logger"
)

// OptionalAuth seeds viewer identity when the caller presents a valid bearer
// token. Guest endpoints never demand an account, so a missing or invalid
// token leaves the request anonymous instead of rejecting it. The identity is
// advisory on reads and lets write paths refuse owners acting on their own
// wishlists.
func OptionalAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				if logg != nil {
					logg.Warn(r.Context(), "optional auth token rejected, continuing anonymously")
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID.String())
			ctx = context.WithValue(ctx, ctxDisplayName, claims.DisplayName)
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
