package audit

import (
	"context"
	"time"

	id "roster/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryMembership covers changes to who holds a registry slot.
	// These are the durable record of the registry and are never sampled.
	CategoryMembership EventCategory = "membership"

	// CategoryOperations covers events useful for debugging and operational visibility.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Registry  string
	Account   id.AccountID
	Index     uint32
	Action    string
	// ActorID is the authenticated caller that triggered the change.
	ActorID   string
	RequestID string // Correlation ID from HTTP request context
}

type AuditEvent string

const (
	EventMemberAdded   AuditEvent = "member_added"
	EventMemberRemoved AuditEvent = "member_removed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventMemberAdded:   CategoryMembership,
	EventMemberRemoved: CategoryMembership,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAccount(ctx context.Context, account id.AccountID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
