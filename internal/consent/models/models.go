package models

import (
	"time"

	id "consentledger/pkg/domain"
	dErrors "consentledger/pkg/domain-errors"
)

// Status is the lifecycle state of a consent grant.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Consent is a user's grant allowing one application to use one data type
// for one purpose.
//
// Invariants:
//   - UserID, AppID, DataType and Purpose are non-empty
//   - Status moves active -> revoked only, never back
//   - RevokedAt is set exactly when Status is revoked and never changes after
//   - CreatedAt is immutable
type Consent struct {
	ID        id.ConsentID `json:"id"`
	UserID    string       `json:"user_id"`
	AppID     string       `json:"app_id"`
	DataType  string       `json:"data_type"`
	Purpose   string       `json:"purpose"`
	Status    Status       `json:"status"`
	ExpiresAt *time.Time   `json:"expires_at"`
	CreatedAt time.Time    `json:"created_at"`
	RevokedAt *time.Time   `json:"revoked_at,omitempty"`
}

// NewConsent builds an active consent. A past expiresAt is accepted; such a
// grant simply never authorizes access.
func NewConsent(consentID id.ConsentID, userID, appID, dataType, purpose string, expiresAt *time.Time, now time.Time) (*Consent, error) {
	switch {
	case userID == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user_id cannot be empty")
	case appID == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "app_id cannot be empty")
	case dataType == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "data_type cannot be empty")
	case purpose == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "purpose cannot be empty")
	}
	var exp *time.Time
	if expiresAt != nil {
		e := expiresAt.UTC()
		exp = &e
	}
	return &Consent{
		ID:        consentID,
		UserID:    userID,
		AppID:     appID,
		DataType:  dataType,
		Purpose:   purpose,
		Status:    StatusActive,
		ExpiresAt: exp,
		CreatedAt: now.UTC(),
	}, nil
}

func (c *Consent) IsActive() bool {
	return c.Status == StatusActive
}

// Revoke moves the consent to revoked. It reports false and leaves the
// consent untouched when it was already revoked.
func (c *Consent) Revoke(now time.Time) bool {
	if c.Status == StatusRevoked {
		return false
	}
	t := now.UTC()
	c.Status = StatusRevoked
	c.RevokedAt = &t
	return true
}

// ExpiredAt reports whether the grant has lapsed at now. A consent without an
// expiry never lapses; one expiring exactly at now has lapsed.
func (c *Consent) ExpiredAt(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}
