package store

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"roster/internal/registry/models"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/sentinel"
)

// InMemoryStore keeps one registry namespace in process memory.
// Methods are safe for concurrent use; multi-step atomicity comes from InMemoryTx.
type InMemoryStore struct {
	mu      sync.RWMutex
	members map[models.Index]id.AccountID
	counter models.Index
	head    models.Index
	hasHead bool
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{members: make(map[models.Index]id.AccountID)}
}

func (s *InMemoryStore) Exists(_ context.Context, idx models.Index) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[idx]
	return ok, nil
}

func (s *InMemoryStore) Get(_ context.Context, idx models.Index) (id.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if account, ok := s.members[idx]; ok {
		return account, nil
	}
	return id.AccountID{}, fmt.Errorf("slot %d: %w", idx, sentinel.ErrNotFound)
}

func (s *InMemoryStore) Insert(_ context.Context, idx models.Index, account id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[idx] = account
	return nil
}

// Take removes and returns the record at idx.
func (s *InMemoryStore) Take(_ context.Context, idx models.Index) (id.AccountID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.members[idx]
	if !ok {
		return id.AccountID{}, fmt.Errorf("slot %d: %w", idx, sentinel.ErrNotFound)
	}
	delete(s.members, idx)
	return account, nil
}

func (s *InMemoryStore) Counter(_ context.Context) (models.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counter, nil
}

func (s *InMemoryStore) PutCounter(_ context.Context, value models.Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter = value
	return nil
}

func (s *InMemoryStore) Head(_ context.Context) (models.Index, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head, s.hasHead, nil
}

func (s *InMemoryStore) PutHead(_ context.Context, value models.Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = value
	s.hasHead = true
	return nil
}

// Snapshot returns a copy of every stored slot.
func (s *InMemoryStore) Snapshot() map[models.Index]id.AccountID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.members)
}

// Len returns the number of stored records.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

func (s *InMemoryStore) remove(_ context.Context, idx models.Index) error {
	delete(s.members, idx)
	return nil
}

// lockedWriter applies a commit while the caller already holds s.mu.
type lockedWriter struct {
	s *InMemoryStore
}

func (w lockedWriter) Insert(_ context.Context, idx models.Index, account id.AccountID) error {
	w.s.members[idx] = account
	return nil
}

func (w lockedWriter) PutCounter(_ context.Context, value models.Index) error {
	w.s.counter = value
	return nil
}

func (w lockedWriter) PutHead(_ context.Context, value models.Index) error {
	w.s.head = value
	w.s.hasHead = true
	return nil
}

func (w lockedWriter) remove(ctx context.Context, idx models.Index) error {
	return w.s.remove(ctx, idx)
}

// defaultTxTimeout is the maximum duration for a registry transaction.
const defaultTxTimeout = 5 * time.Second

// InMemoryTx serializes registry transactions over an InMemoryStore. Each
// transaction stages its writes and commits them under the store lock only when
// the callback succeeds, so a failed operation leaves the store untouched.
type InMemoryTx struct {
	mu      sync.Mutex
	store   *InMemoryStore
	timeout time.Duration
}

// InMemoryTxOption configures an InMemoryTx.
type InMemoryTxOption func(*InMemoryTx)

// WithInMemoryTimeout overrides the default transaction timeout.
func WithInMemoryTimeout(timeout time.Duration) InMemoryTxOption {
	return func(t *InMemoryTx) {
		if timeout > 0 {
			t.timeout = timeout
		}
	}
}

// NewInMemoryTx wraps store with a transactional boundary.
func NewInMemoryTx(store *InMemoryStore, opts ...InMemoryTxOption) *InMemoryTx {
	t := &InMemoryTx{store: store, timeout: defaultTxTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Store exposes the underlying store for read-only inspection.
func (t *InMemoryTx) Store() *InMemoryStore {
	return t.store
}

// RunInTx runs fn against a staged view of the store and commits on success.
func (t *InMemoryTx) RunInTx(ctx context.Context, fn func(store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	stage := newStaged(t.store)
	if err := fn(stage); err != nil {
		return err
	}
	if !stage.dirty() {
		return nil
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return stage.commit(ctx, lockedWriter{s: t.store})
}
