package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "roster/pkg/domain"
	audit "roster/pkg/platform/audit"
	txcontext "roster/pkg/platform/tx"
)

//go:embed schema.sql
var schemaSQL string

// Store implements audit.Store on the registry_audit_events table. Appends
// join the transaction carried in ctx when there is one.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the audit table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	query := `
		INSERT INTO registry_audit_events (
			id, category, occurred_at, registry, account, idx, action, actor_id, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.New(),
		string(category),
		event.Timestamp,
		event.Registry,
		uuid.UUID(event.Account),
		int64(event.Index),
		event.Action,
		event.ActorID,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

const selectColumns = `SELECT category, occurred_at, registry, account, idx, action, actor_id, request_id
		FROM registry_audit_events`

// ListByAccount returns events for account, oldest first.
func (s *Store) ListByAccount(ctx context.Context, account id.AccountID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE account = $1 ORDER BY occurred_at ASC`,
		uuid.UUID(account),
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the limit most recent events, oldest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT * FROM (`+selectColumns+` ORDER BY occurred_at DESC LIMIT $1) recent
		ORDER BY occurred_at ASC`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			category string
			account  uuid.UUID
			idx      int64
			event    audit.Event
		)
		err := rows.Scan(
			&category,
			&event.Timestamp,
			&event.Registry,
			&account,
			&idx,
			&event.Action,
			&event.ActorID,
			&event.RequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		event.Account = id.AccountID(account)
		event.Index = uint32(idx)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
