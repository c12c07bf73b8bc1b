package ports

import (
	"context"

	audit "roster/pkg/platform/audit"
)

// AuditPort is where registry notifications end up. The in-process
// publisher and the Kafka publisher both satisfy it.
type AuditPort interface {
	Emit(ctx context.Context, event audit.Event) error
}
