package models

import (
	"time"

	id "consentledger/pkg/domain"
	dErrors "consentledger/pkg/domain-errors"
)

// Status of a relying application.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Application is a relying party allowed to call /data-access.
//
// Invariants:
//   - AppID and Name are valid labels
//   - SecretDigest is a 32-byte keyed digest; the plaintext secret is never stored
//   - Status transitions: active → inactive only
type Application struct {
	AppID         string     `json:"app_id"`
	Name          string     `json:"name"`
	SecretDigest  []byte     `json:"-"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// DigestSize is the length of a credential digest.
const DigestSize = 32

func NewApplication(appID, name string, digest []byte, now time.Time) (*Application, error) {
	appID, err := id.ParseLabel("app_id", appID)
	if err != nil {
		return nil, err
	}
	name, err = id.ParseLabel("name", name)
	if err != nil {
		return nil, err
	}
	if len(digest) != DigestSize {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "secret digest must be 32 bytes")
	}
	return &Application{
		AppID:        appID,
		Name:         name,
		SecretDigest: append([]byte(nil), digest...),
		Status:       StatusActive,
		CreatedAt:    now.UTC(),
	}, nil
}

func (a *Application) IsActive() bool {
	return a != nil && a.Status == StatusActive
}

// Deactivate reports whether the status changed.
func (a *Application) Deactivate(now time.Time) bool {
	if a.Status != StatusActive {
		return false
	}
	t := now.UTC()
	a.Status = StatusInactive
	a.DeactivatedAt = &t
	return true
}

// RegisterResponse is printed once by the CLI; Secret is not recoverable later.
type RegisterResponse struct {
	Application *Application `json:"application"`
	Secret      string       `json:"secret"`
}
