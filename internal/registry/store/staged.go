package store

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"roster/internal/registry/models"
	id "roster/pkg/domain"
	"roster/pkg/platform/sentinel"
)

// reader is the read side a staged overlay falls through to.
type reader interface {
	Exists(ctx context.Context, idx models.Index) (bool, error)
	Get(ctx context.Context, idx models.Index) (id.AccountID, error)
	Counter(ctx context.Context) (models.Index, error)
	Head(ctx context.Context) (models.Index, bool, error)
}

// writer receives the staged writes when a transaction commits.
type writer interface {
	Insert(ctx context.Context, idx models.Index, account id.AccountID) error
	PutCounter(ctx context.Context, value models.Index) error
	PutHead(ctx context.Context, value models.Index) error
	remove(ctx context.Context, idx models.Index) error
}

type slotWrite struct {
	account id.AccountID
	present bool
}

// staged buffers every write of one transaction on top of a reader. Reads see the
// buffered writes first. Nothing reaches the backend until commit.
type staged struct {
	base    reader
	slots   map[models.Index]slotWrite
	counter *models.Index
	head    *models.Index
}

func newStaged(base reader) *staged {
	return &staged{base: base, slots: make(map[models.Index]slotWrite)}
}

func (s *staged) Exists(ctx context.Context, idx models.Index) (bool, error) {
	if w, ok := s.slots[idx]; ok {
		return w.present, nil
	}
	return s.base.Exists(ctx, idx)
}

func (s *staged) Get(ctx context.Context, idx models.Index) (id.AccountID, error) {
	if w, ok := s.slots[idx]; ok {
		if !w.present {
			return id.AccountID{}, fmt.Errorf("slot %d: %w", idx, sentinel.ErrNotFound)
		}
		return w.account, nil
	}
	return s.base.Get(ctx, idx)
}

func (s *staged) Insert(_ context.Context, idx models.Index, account id.AccountID) error {
	s.slots[idx] = slotWrite{account: account, present: true}
	return nil
}

func (s *staged) Take(ctx context.Context, idx models.Index) (id.AccountID, error) {
	account, err := s.Get(ctx, idx)
	if err != nil {
		return id.AccountID{}, err
	}
	s.slots[idx] = slotWrite{}
	return account, nil
}

func (s *staged) Counter(ctx context.Context) (models.Index, error) {
	if s.counter != nil {
		return *s.counter, nil
	}
	return s.base.Counter(ctx)
}

func (s *staged) PutCounter(_ context.Context, value models.Index) error {
	s.counter = &value
	return nil
}

func (s *staged) Head(ctx context.Context) (models.Index, bool, error) {
	if s.head != nil {
		return *s.head, true, nil
	}
	return s.base.Head(ctx)
}

func (s *staged) PutHead(_ context.Context, value models.Index) error {
	s.head = &value
	return nil
}

// commit applies the buffered writes in ascending slot order, then the cursors.
func (s *staged) commit(ctx context.Context, w writer) error {
	for _, idx := range slices.Sorted(maps.Keys(s.slots)) {
		slot := s.slots[idx]
		var err error
		if slot.present {
			err = w.Insert(ctx, idx, slot.account)
		} else {
			err = w.remove(ctx, idx)
		}
		if err != nil {
			return fmt.Errorf("commit slot %d: %w", idx, err)
		}
	}
	if s.counter != nil {
		if err := w.PutCounter(ctx, *s.counter); err != nil {
			return fmt.Errorf("commit counter: %w", err)
		}
	}
	if s.head != nil {
		if err := w.PutHead(ctx, *s.head); err != nil {
			return fmt.Errorf("commit head: %w", err)
		}
	}
	return nil
}

// dirty reports whether the transaction staged any write.
func (s *staged) dirty() bool {
	return len(s.slots) > 0 || s.counter != nil || s.head != nil
}
