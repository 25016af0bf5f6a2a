// Package requesttime pins one "now" per request so the consent timestamps,
// the expiry comparison and the access log row of a request agree.
package requesttime

import (
	"net/http"
	"time"

	"consentledger/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
