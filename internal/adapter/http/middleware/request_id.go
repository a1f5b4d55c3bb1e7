package middleware

import (
	"net/http"

	wrap "github.com/Temutjin2k/ride-coordination/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

const requestIDHeader = "X-Request-Id"

// RequestID picks up the inbound request id or generates one, and makes it
// available to both the log context and the response headers.
func (h *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.MustNew().String()
		}

		w.Header().Set(requestIDHeader, requestID)

		ctx := wrap.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
