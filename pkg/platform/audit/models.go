package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, sinks, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance, such as
	// disclosure of medical data to a responder.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to abuse monitoring: denials,
	// lockouts, and credential rotation.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Severity levels for routing to alerting pipelines.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AuditEvent names an action.
type AuditEvent string

const (
	// Emergency access decisions
	EventAccessGranted    AuditEvent = "access_granted"
	EventAccessDenied     AuditEvent = "access_denied"
	EventLockoutTriggered AuditEvent = "lockout_triggered"
	EventAccessTest       AuditEvent = "access_test"

	// Method lifecycle
	EventMethodRotated  AuditEvent = "access_method_rotated"
	EventMethodEnabled  AuditEvent = "access_method_enabled"
	EventMethodDisabled AuditEvent = "access_method_disabled"

	// Profile lifecycle
	EventProfileCreated     AuditEvent = "emergency_profile_created"
	EventProfileUpdated     AuditEvent = "emergency_profile_updated"
	EventProfileDeactivated AuditEvent = "emergency_profile_deactivated"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventAccessGranted:      CategoryCompliance,
	EventProfileCreated:     CategoryCompliance,
	EventProfileDeactivated: CategoryCompliance,

	EventAccessDenied:     CategorySecurity,
	EventLockoutTriggered: CategorySecurity,
	EventMethodRotated:    CategorySecurity,
	EventMethodDisabled:   CategorySecurity,

	EventAccessTest:     CategoryOperations,
	EventMethodEnabled:  CategoryOperations,
	EventProfileUpdated: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Category  EventCategory
	Timestamp time.Time
	// Subject is the profile the event concerns.
	Subject  string
	Action   AuditEvent
	Decision string
	Reason   string
	Severity Severity
	// AccessLevel is set for granted access.
	AccessLevel string
	// Method is the verification method involved, if any.
	Method    string
	RequestID string
	// ActorID identifies the terminal or user that caused the event.
	ActorID string
	// ClientIP is already anonymized by the emitter.
	ClientIP string
	// Recipients lists contact references the notification pipeline should reach.
	Recipients []string
	// Test marks events produced by alert previews.
	Test bool
}

// Normalize fills Category and Timestamp when unset.
func (e Event) Normalize(now time.Time) Event {
	if e.Category == "" {
		e.Category = e.Action.Category()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	return e
}

// Store persists or forwards audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
