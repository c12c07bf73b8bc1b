package adapters

import (
	"context"

	"roster/internal/registry/models"
	"roster/internal/registry/ports"
	audit "roster/pkg/platform/audit"
)

// AuditSink implements the registry event sink on top of an audit port.
type AuditSink struct {
	port ports.AuditPort
}

func NewAuditSink(port ports.AuditPort) *AuditSink {
	return &AuditSink{port: port}
}

func (s *AuditSink) Emit(ctx context.Context, event models.Event) error {
	return s.port.Emit(ctx, ToAuditEvent(event))
}

// ToAuditEvent maps a registry notification onto the audit model.
func ToAuditEvent(event models.Event) audit.Event {
	action := audit.EventMemberAdded
	if event.Kind == models.EventMemberRemoved {
		action = audit.EventMemberRemoved
	}
	return audit.Event{
		Category:  action.Category(),
		Timestamp: event.Timestamp,
		Registry:  string(event.Registry),
		Account:   event.Account,
		Index:     uint32(event.Index),
		Action:    string(action),
		ActorID:   event.Caller.String(),
		RequestID: event.RequestID,
	}
}
