package access

import (
	"time"

	consentmodels "consentledger/internal/consent/models"
)

// Denial reasons surfaced to callers and written to the access trail.
const (
	ReasonNoValidConsent = "No valid consent"
	ReasonConsentExpired = "Consent expired"
)

// MessageAccessGranted is returned alongside an allowed decision.
const MessageAccessGranted = "Access granted"

// Decision is the outcome of one access check. Reason is empty when allowed.
type Decision struct {
	Allowed bool
	Reason  string
}

// Decide is the pure decision rule. consent is the most recent active grant
// for the tuple, or nil. A grant whose expiry is not after now is expired.
func Decide(consent *consentmodels.Consent, now time.Time) Decision {
	if consent == nil || !consent.IsActive() {
		return Decision{Reason: ReasonNoValidConsent}
	}
	if consent.ExpiredAt(now) {
		return Decision{Reason: ReasonConsentExpired}
	}
	return Decision{Allowed: true}
}
