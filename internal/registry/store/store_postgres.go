package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"roster/internal/registry/models"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/sentinel"
	txcontext "roster/pkg/platform/tx"
)

//go:embed schema.sql
var schemaSQL string

const (
	cursorCounter = "counter"
	cursorHead    = "head"
)

// PostgresStore keeps one registry namespace in PostgreSQL. Slots live in
// registry_members and the counter/head cursors in registry_cursors.
type PostgresStore struct {
	db        *sql.DB
	bound     txcontext.DBTX
	namespace string
}

// NewPostgresStore creates a PostgreSQL-backed store for namespace.
func NewPostgresStore(db *sql.DB, namespace string) *PostgresStore {
	return &PostgresStore{db: db, namespace: namespace}
}

// EnsureSchema creates the registry tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure registry schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) withTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: s.db, bound: tx, namespace: s.namespace}
}

// conn prefers the bound transaction, then one carried in ctx, then the pool.
func (s *PostgresStore) conn(ctx context.Context) txcontext.DBTX {
	if s.bound != nil {
		return s.bound
	}
	return txcontext.Conn(ctx, s.db)
}

func (s *PostgresStore) Exists(ctx context.Context, idx models.Index) (bool, error) {
	var exists bool
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registry_members WHERE namespace = $1 AND idx = $2)`,
		s.namespace, int64(idx),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slot %d: %w", idx, err)
	}
	return exists, nil
}

func (s *PostgresStore) Get(ctx context.Context, idx models.Index) (id.AccountID, error) {
	var raw string
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT account FROM registry_members WHERE namespace = $1 AND idx = $2`,
		s.namespace, int64(idx),
	).Scan(&raw)
	return scanAccount(idx, raw, err)
}

func (s *PostgresStore) Insert(ctx context.Context, idx models.Index, account id.AccountID) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO registry_members (namespace, idx, account)
		VALUES ($1, $2, $3)
		ON CONFLICT (namespace, idx) DO UPDATE SET account = EXCLUDED.account
	`, s.namespace, int64(idx), account.String())
	if err != nil {
		return fmt.Errorf("insert slot %d: %w", idx, err)
	}
	return nil
}

func (s *PostgresStore) Take(ctx context.Context, idx models.Index) (id.AccountID, error) {
	var raw string
	err := s.conn(ctx).QueryRowContext(ctx,
		`DELETE FROM registry_members WHERE namespace = $1 AND idx = $2 RETURNING account`,
		s.namespace, int64(idx),
	).Scan(&raw)
	return scanAccount(idx, raw, err)
}

func (s *PostgresStore) Counter(ctx context.Context) (models.Index, error) {
	v, ok, err := s.cursor(ctx, cursorCounter)
	if err != nil || !ok {
		return 0, err
	}
	return v, nil
}

func (s *PostgresStore) PutCounter(ctx context.Context, value models.Index) error {
	return s.putCursor(ctx, cursorCounter, value)
}

func (s *PostgresStore) Head(ctx context.Context) (models.Index, bool, error) {
	return s.cursor(ctx, cursorHead)
}

func (s *PostgresStore) PutHead(ctx context.Context, value models.Index) error {
	return s.putCursor(ctx, cursorHead, value)
}

func (s *PostgresStore) remove(ctx context.Context, idx models.Index) error {
	_, err := s.conn(ctx).ExecContext(ctx,
		`DELETE FROM registry_members WHERE namespace = $1 AND idx = $2`,
		s.namespace, int64(idx),
	)
	if err != nil {
		return fmt.Errorf("delete slot %d: %w", idx, err)
	}
	return nil
}

func (s *PostgresStore) cursor(ctx context.Context, name string) (models.Index, bool, error) {
	var v int64
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT value FROM registry_cursors WHERE namespace = $1 AND name = $2`,
		s.namespace, name,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get %s: %w", name, err)
	}
	if v < 0 || v > int64(models.MaxIndex) {
		return 0, false, fmt.Errorf("%s out of range (%d): %w", name, v, sentinel.ErrInvalidState)
	}
	return models.Index(v), true, nil
}

func (s *PostgresStore) putCursor(ctx context.Context, name string, value models.Index) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO registry_cursors (namespace, name, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (namespace, name) DO UPDATE SET value = EXCLUDED.value
	`, s.namespace, name, int64(value))
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

func scanAccount(idx models.Index, raw string, err error) (id.AccountID, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return id.AccountID{}, fmt.Errorf("slot %d: %w", idx, sentinel.ErrNotFound)
	}
	if err != nil {
		return id.AccountID{}, fmt.Errorf("read slot %d: %w", idx, err)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return id.AccountID{}, fmt.Errorf("decode slot %d: %w", idx, sentinel.ErrInvalidState)
	}
	return id.AccountID(parsed), nil
}

// PostgresTx runs each registry operation in one SERIALIZABLE transaction.
// Serialization failures and deadlocks surface as sentinel.ErrConflict.
type PostgresTx struct {
	db      *sql.DB
	store   *PostgresStore
	timeout time.Duration
}

// NewPostgresTx creates a transaction runner over store's namespace.
func NewPostgresTx(db *sql.DB, store *PostgresStore) *PostgresTx {
	return &PostgresTx{db: db, store: store, timeout: defaultTxTimeout}
}

// WithTimeout overrides the timeout applied when ctx has no deadline.
func (t *PostgresTx) WithTimeout(timeout time.Duration) *PostgresTx {
	if timeout > 0 {
		t.timeout = timeout
	}
	return t
}

func (t *PostgresTx) RunInTx(ctx context.Context, fn func(store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin registry tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(t.store.withTx(tx)); err != nil {
		return translatePgError(err)
	}
	if err := tx.Commit(); err != nil {
		return translatePgError(fmt.Errorf("commit registry tx: %w", err))
	}
	return nil
}

// translatePgError maps retryable PostgreSQL failures onto sentinel.ErrConflict.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%s: %w", pgErr.Message, sentinel.ErrConflict)
		}
	}
	return err
}
