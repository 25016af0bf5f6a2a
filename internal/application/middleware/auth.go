// Package middleware binds the authenticated relying application to the
// request and throttles each application independently.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "consentledger/pkg/domain-errors"
	audit "consentledger/pkg/platform/audit"
	"consentledger/pkg/platform/httputil"
	"consentledger/pkg/requestcontext"
)

// Authenticator resolves a bearer secret to an app id.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (string, error)
}

// SecurityEmitter records security events without blocking the request.
type SecurityEmitter interface {
	Emit(ctx context.Context, event audit.SecurityEvent)
}

const bearerPrefix = "bearer "

// BearerToken extracts the token from an Authorization header. The scheme
// is matched case-insensitively.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// RequireApplication authenticates the bearer secret and binds the app id to
// the context. Failures answer 401 missing_credential or invalid_credential
// and are reported as auth_failed security events.
func RequireApplication(auth Authenticator, events SecurityEmitter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			appID, err := auth.Authenticate(ctx, BearerToken(r.Header.Get("Authorization")))
			if err != nil {
				code := dErrors.CodeOf(err)
				if code == dErrors.CodeMissingCredential || code == dErrors.CodeInvalidCredential {
					logger.WarnContext(ctx, "application authentication failed",
						"request_id", requestID,
						"reason", string(code),
					)
					if events != nil {
						events.Emit(ctx, audit.SecurityEvent{
							Timestamp: requestcontext.Now(ctx),
							Action:    audit.EventAuthFailed,
							Reason:    string(code),
							IP:        requestcontext.ClientIP(ctx),
							RequestID: requestID,
						})
					}
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="consentledger"`)
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithAppID(ctx, appID)))
		})
	}
}
