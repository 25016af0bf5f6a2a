package models

import (
	"time"

	id "consentledger/pkg/domain"
	dErrors "consentledger/pkg/domain-errors"
)

// Result is the outcome recorded for one access check.
type Result string

const (
	ResultAllowed Result = "allowed"
	ResultDenied  Result = "denied"
)

// AccessLogEntry is one immutable row of the access trail. Reason is nil
// exactly when Result is allowed.
type AccessLogEntry struct {
	ID        id.AccessLogID `json:"id"`
	UserID    string         `json:"user_id"`
	AppID     string         `json:"app_id"`
	DataType  string         `json:"data_type"`
	Purpose   string         `json:"purpose"`
	Result    Result         `json:"result"`
	Reason    *string        `json:"reason"`
	RequestID string         `json:"request_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Check enforces the allowed/reason pairing before a row is written.
func (e *AccessLogEntry) Check() error {
	if e == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "access log entry is required")
	}
	if e.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "access log id is required")
	}
	if e.UserID == "" || e.AppID == "" || e.DataType == "" || e.Purpose == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "access log tuple is incomplete")
	}
	switch e.Result {
	case ResultAllowed:
		if e.Reason != nil {
			return dErrors.New(dErrors.CodeInvariantViolation, "allowed entries carry no reason")
		}
	case ResultDenied:
		if e.Reason == nil || *e.Reason == "" {
			return dErrors.New(dErrors.CodeInvariantViolation, "denied entries require a reason")
		}
	default:
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown access result")
	}
	if e.CreatedAt.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "access log timestamp is required")
	}
	return nil
}

// ListResponse answers GET /logs/{user_id}.
type ListResponse struct {
	Logs []*AccessLogEntry `json:"logs"`
}
