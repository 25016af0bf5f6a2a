package models

import (
	"time"

	id "consentledger/pkg/domain"
	dErrors "consentledger/pkg/domain-errors"
)

// GrantRequest is the body of POST /consent.
type GrantRequest struct {
	UserID    string     `json:"user_id"`
	AppID     string     `json:"app_id"`
	DataType  string     `json:"data_type"`
	Purpose   string     `json:"purpose"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Validate trims every field in place and rejects empty or oversized values.
func (r *GrantRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	fields := []struct {
		name string
		v    *string
	}{
		{"user_id", &r.UserID},
		{"app_id", &r.AppID},
		{"data_type", &r.DataType},
		{"purpose", &r.Purpose},
	}
	for _, f := range fields {
		v, err := id.ParseLabel(f.name, *f.v)
		if err != nil {
			return err
		}
		*f.v = v
	}
	return nil
}

// RevokeRequest is the body of POST /consent/revoke.
type RevokeRequest struct {
	ConsentID string `json:"consent_id"`
}

// Validate rejects a missing or malformed consent id.
func (r *RevokeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if _, err := id.ParseConsentID(r.ConsentID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	return nil
}
