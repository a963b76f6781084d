package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Faith-Anthony/presently/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// Inbound ids longer than this are replaced, not truncated; an id that was
// tampered with is worthless for tracing anyway.
const maxRequestIDLen = 64

// RequestID honors the caller's request id or mints a fresh one, echoes it on
// the response, and threads it through the request-scoped logger.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if reqID == "" || len(reqID) > maxRequestIDLen {
				reqID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
