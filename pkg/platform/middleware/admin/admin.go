// Package admin guards profile-management routes with a shared service token
// held by the hosting API.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"lifeline/pkg/requestcontext"
)

// Header carries the service token.
const Header = "X-Admin-Token"

// RequireAdminToken rejects requests whose token does not match. An empty
// expected token disables the check.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expectedToken == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(Header)
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				if logger != nil {
					logger.WarnContext(ctx, "admin token mismatch",
						"request_id", requestcontext.RequestID(ctx),
					)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
