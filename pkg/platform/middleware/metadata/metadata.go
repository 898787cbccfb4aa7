// Package metadata captures caller details for audit entries.
package metadata

import (
	"net/http"
	"strings"

	"lifeline/pkg/requestcontext"
)

// TerminalHeader carries the ER terminal identifier asserted by the host API.
const TerminalHeader = "X-Terminal-ID"

const maxTerminalIDLength = 128

// ClientMetadata extracts client IP, User-Agent, and terminal ID from the
// request and adds them to the context. Apply it early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		if terminal := strings.TrimSpace(r.Header.Get(TerminalHeader)); terminal != "" {
			if len(terminal) > maxTerminalIDLength {
				terminal = terminal[:maxTerminalIDLength]
			}
			ctx = requestcontext.WithTerminalID(ctx, terminal)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest extracts the client IP, honoring proxy headers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For may list client, proxy1, proxy2; the first is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is ip:port, or [::1]:port for IPv6.
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}

	return "unknown"
}
