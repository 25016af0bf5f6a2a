package testutil

import (
	"net/http"
	"time"

	"consentledger/pkg/requestcontext"
)

// WithApp binds an authenticated application to the request context.
// This simulates what the identity gate middleware does for a valid bearer.
func WithApp(req *http.Request, appID string) *http.Request {
	return req.WithContext(requestcontext.WithAppID(req.Context(), appID))
}

// WithRequestTime pins the request-scoped clock, so expiry checks are
// deterministic in handler tests.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithBearer sets the Authorization header the way a relying application does.
func WithBearer(req *http.Request, secret string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+secret)
	return req
}
