package middleware

import (
	"net/http"
	"strings"

	"github.com/Faith-Anthony/presently/api/responses"
	pkgerrors "github.com/Faith-Anthony/presently/pkg/errors"
	"github.com/Faith-Anthony/presently/pkg/logger"
)

const deviceIDHeader = "X-Presently-Device"

const maxDeviceIDLen = 128

// DeviceContext copies the guest device identifier header into the context
// when present. The identifier is opaque; callers mint their own.
func DeviceContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID := strings.TrimSpace(r.Header.Get(deviceIDHeader))
			if deviceID != "" && len(deviceID) <= maxDeviceIDLen {
				r = r.WithContext(WithDeviceID(r.Context(), deviceID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireDevice rejects requests that did not supply a device identifier.
func RequireDevice(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if DeviceIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Presently-Device header required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
