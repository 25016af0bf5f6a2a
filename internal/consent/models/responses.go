package models

const (
	MessageConsentGranted = "Consent granted"
	MessageConsentRevoked = "Consent revoked successfully"
)

// MutationResponse answers grant and revoke.
type MutationResponse struct {
	Message string   `json:"message"`
	Consent *Consent `json:"consent"`
}

// ListResponse answers GET /consents/{user_id}.
type ListResponse struct {
	Consents []*Consent `json:"consents"`
}
