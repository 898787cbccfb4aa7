// Package requestid tags each request with an identifier that flows into
// logs and audit events.
package requestid

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"lifeline/pkg/requestcontext"
)

// Header is read from callers and echoed on responses.
const Header = "X-Request-ID"

const maxLength = 64

// Middleware reuses a caller-supplied request ID when it is reasonable,
// otherwise generates one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(Header))
		if id == "" || len(id) > maxLength {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), id)))
	})
}
