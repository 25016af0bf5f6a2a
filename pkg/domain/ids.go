package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "consentledger/pkg/domain-errors"
)

// ConsentID identifies a consent grant. AccessLogID identifies one audit row.
// Distinct types keep the two from being swapped at call sites.
type (
	ConsentID   uuid.UUID
	AccessLogID uuid.UUID
)

// NewConsentID returns a fresh random consent identifier.
func NewConsentID() ConsentID { return ConsentID(uuid.New()) }

// NewAccessLogID returns a fresh random access log identifier.
func NewAccessLogID() AccessLogID { return AccessLogID(uuid.New()) }

func (id ConsentID) String() string   { return uuid.UUID(id).String() }
func (id ConsentID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id AccessLogID) String() string { return uuid.UUID(id).String() }
func (id AccessLogID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs serialize as plain UUID strings in JSON.
func (id ConsentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ConsentID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id AccessLogID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *AccessLogID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// ParseConsentID parses external input into a ConsentID.
//
// Errors: CodeInvalidInput when the value is empty, malformed or the nil UUID.
func ParseConsentID(s string) (ConsentID, error) {
	u, err := parseUUID(s, "consent_id")
	if err != nil {
		return ConsentID{}, err
	}
	return ConsentID(u), nil
}

// ParseAccessLogID parses external input into an AccessLogID.
func ParseAccessLogID(s string) (AccessLogID, error) {
	u, err := parseUUID(s, "access_log_id")
	if err != nil {
		return AccessLogID{}, err
	}
	return AccessLogID(u), nil
}

func parseUUID(s, field string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	// uuid.Parse also accepts urn and braced forms; those never come from our API.
	if len(s) != 36 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be the nil UUID")
	}
	return u, nil
}
