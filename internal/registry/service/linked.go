package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"roster/internal/registry/models"
	"roster/internal/registry/store"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/sentinel"
)

// LinkedRegistry appends after a tracked head and fills removed slots with the
// member at the head.
//
// The head is only ever written by Add. Removing the head member leaves the head
// pointing at an empty slot, and the next Add writes to head+1 whether or not that
// slot is occupied. Both are known hazards of this registry and are left as is.
type LinkedRegistry struct {
	*registry
}

// NewLinked constructs a LinkedRegistry over tx.
func NewLinked(tx StoreTx, opts ...Option) *LinkedRegistry {
	return &LinkedRegistry{registry: newRegistry(models.KindLinked, tx, opts...)}
}

// Add stores account at head+1 (1 when there is no head) and moves the head there.
func (r *LinkedRegistry) Add(ctx context.Context, account id.AccountID) (models.Index, error) {
	ctx, op, err := r.begin(ctx, "add")
	defer op.end()
	if err != nil {
		return 0, err
	}

	var next models.Index
	err = r.tx.RunInTx(ctx, func(st store.Store) error {
		head, hasHead, err := st.Head(ctx)
		if err != nil {
			return err
		}
		next = 1
		if hasHead {
			if head >= models.MaxIndex {
				return dErrors.New(dErrors.CodeOverflow, "value overflowed")
			}
			next = head + 1
		}
		if err := st.Insert(ctx, next, account); err != nil {
			return err
		}
		return st.PutHead(ctx, next)
	})
	if err != nil {
		return 0, op.fail(ctx, err)
	}

	op.span.SetAttributes(attribute.Int64("index", int64(next)))
	if r.metrics != nil {
		r.metrics.IncrementAdded(string(r.kind))
	}
	op.notify(ctx, models.MemberAdded(r.kind, account, next))
	return next, nil
}

// Remove deletes the member at index. When index is not the head, the member at
// the head (if the head slot is still occupied) moves into index.
func (r *LinkedRegistry) Remove(ctx context.Context, index models.Index) (id.AccountID, error) {
	ctx, op, err := r.begin(ctx, "remove", attribute.Int64("index", int64(index)))
	defer op.end()
	if err != nil {
		return id.AccountID{}, err
	}

	var (
		removed   id.AccountID
		relocated bool
	)
	err = r.tx.RunInTx(ctx, func(st store.Store) error {
		exists, err := st.Exists(ctx, index)
		if err != nil {
			return err
		}
		if !exists {
			return dErrors.New(dErrors.CodeNotFound, "a member does not exist at this index")
		}

		head, hasHead, err := st.Head(ctx)
		if err != nil {
			return err
		}
		if !hasHead {
			return dErrors.New(dErrors.CodePreconditionFailed, "registry has members but no head")
		}

		removed, err = st.Take(ctx, index)
		if err != nil {
			return err
		}
		if index == head {
			return nil
		}

		moved, err := st.Take(ctx, head)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			// dangling head: nothing to relocate
			return nil
		case err != nil:
			return err
		}
		relocated = true
		return st.Insert(ctx, index, moved)
	})
	if err != nil {
		return id.AccountID{}, op.fail(ctx, err)
	}

	if r.metrics != nil {
		r.metrics.IncrementRemoved(string(r.kind), relocated)
	}
	op.notify(ctx, models.MemberRemoved(r.kind, removed, index))
	return removed, nil
}
