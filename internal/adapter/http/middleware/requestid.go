package middleware

import (
	"net/http"

	wrap "github.com/ridecore/dispatch/pkg/logger/wrapper"
	"github.com/ridecore/dispatch/pkg/uuid"
)

// RequestID stamps every request with an id (reusing the caller's
// X-Request-Id if present) and injects it into the log context so
// every log line for this request carries it.
func (a *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			generated, err := uuid.New()
			if err != nil {
				id = "unknown"
			} else {
				id = generated.String()
			}
		}

		w.Header().Set("X-Request-Id", id)
		ctx := wrap.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
