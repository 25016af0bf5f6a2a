package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies lifecycle events by their primary purpose.
// This enables different retention policies and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These are written fail-closed: the business operation fails with them.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	// These are buffered and may be dropped under pressure.
	CategorySecurity EventCategory = "security"
)

type AuditEvent string

const (
	// Consent events
	EventConsentGranted AuditEvent = "consent_granted"
	EventConsentRevoked AuditEvent = "consent_revoked"

	// Application events
	EventApplicationRegistered  AuditEvent = "application_registered"
	EventApplicationDeactivated AuditEvent = "application_deactivated"

	// Gate events
	EventAuthFailed        AuditEvent = "auth_failed"
	EventRateLimitExceeded AuditEvent = "rate_limit_exceeded"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventConsentGranted:         CategoryCompliance,
	EventConsentRevoked:         CategoryCompliance,
	EventApplicationRegistered:  CategoryCompliance,
	EventApplicationDeactivated: CategoryCompliance,

	EventAuthFailed:        CategorySecurity,
	EventRateLimitExceeded: CategorySecurity,
}

// Category returns the EventCategory for this event.
// Unknown events default to CategorySecurity.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategorySecurity
}

// Event is the stored and published form of every lifecycle event. Keep it
// transport-agnostic so stores and the relay can fan out.
type Event struct {
	ID        uuid.UUID     `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    string        `json:"action"`
	UserID    string        `json:"user_id,omitempty"`
	AppID     string        `json:"app_id,omitempty"`
	ConsentID string        `json:"consent_id,omitempty"`
	DataType  string        `json:"data_type,omitempty"`
	Purpose   string        `json:"purpose,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	IP        string        `json:"ip,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	// ActorID records who performed the action when it was not the subject,
	// e.g. an operator deactivating an application from the CLI.
	ActorID string `json:"actor_id,omitempty"`
}

// AggregateKey groups related events: consent events by user, everything
// else by application. The relay uses it as the Kafka record key so events
// for one aggregate stay ordered within a partition.
func (e Event) AggregateKey() (aggregateType, aggregateID string) {
	if e.UserID != "" {
		return "user", e.UserID
	}
	if e.AppID != "" {
		return "application", e.AppID
	}
	return "audit", e.ID.String()
}

// ComplianceEvent captures regulatory-significant actions requiring guaranteed persistence.
type ComplianceEvent struct {
	Timestamp time.Time
	Action    AuditEvent
	UserID    string
	AppID     string
	ConsentID string
	DataType  string
	Purpose   string
	RequestID string
	ActorID   string
}

// ToEvent converts to the stored Event.
func (e ComplianceEvent) ToEvent() Event {
	return Event{
		ID:        uuid.New(),
		Category:  CategoryCompliance,
		Timestamp: e.Timestamp,
		Action:    string(e.Action),
		UserID:    e.UserID,
		AppID:     e.AppID,
		ConsentID: e.ConsentID,
		DataType:  e.DataType,
		Purpose:   e.Purpose,
		RequestID: e.RequestID,
		ActorID:   e.ActorID,
	}
}

// SecurityEvent captures security-relevant actions for monitoring and alerting.
type SecurityEvent struct {
	Timestamp time.Time
	Action    AuditEvent
	AppID     string // application involved, when it could be resolved
	Reason    string
	IP        string
	RequestID string
}

// ToEvent converts to the stored Event.
func (e SecurityEvent) ToEvent() Event {
	return Event{
		ID:        uuid.New(),
		Category:  CategorySecurity,
		Timestamp: e.Timestamp,
		Action:    string(e.Action),
		AppID:     e.AppID,
		Reason:    e.Reason,
		IP:        e.IP,
		RequestID: e.RequestID,
	}
}

// Store persists lifecycle events. Implementations honor a transaction bound
// to ctx (pkg/platform/tx) so events commit with the change they describe.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// OutboxEntry is one pending row of the transactional outbox.
type OutboxEntry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}
