package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"roster/internal/registry/models"
	"roster/internal/registry/store"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/sentinel"
)

// DenseRegistry stores members at indices [1, counter] with no gaps.
type DenseRegistry struct {
	*registry
}

// NewDense constructs a DenseRegistry over tx.
func NewDense(tx StoreTx, opts ...Option) *DenseRegistry {
	return &DenseRegistry{registry: newRegistry(models.KindDense, tx, opts...)}
}

// Add appends account at counter+1 and returns the new index.
func (r *DenseRegistry) Add(ctx context.Context, account id.AccountID) (models.Index, error) {
	ctx, op, err := r.begin(ctx, "add")
	defer op.end()
	if err != nil {
		return 0, err
	}

	var next models.Index
	err = r.tx.RunInTx(ctx, func(st store.Store) error {
		counter, err := st.Counter(ctx)
		if err != nil {
			return err
		}
		if counter >= models.MaxIndex {
			return dErrors.New(dErrors.CodeOverflow, "value overflowed")
		}
		next = counter + 1
		if err := st.Insert(ctx, next, account); err != nil {
			return err
		}
		return st.PutCounter(ctx, next)
	})
	if err != nil {
		return 0, op.fail(ctx, err)
	}

	op.span.SetAttributes(attribute.Int64("index", int64(next)))
	if r.metrics != nil {
		r.metrics.IncrementAdded(string(r.kind))
		r.metrics.SetSize(string(r.kind), uint32(next))
	}
	op.notify(ctx, models.MemberAdded(r.kind, account, next))
	return next, nil
}

// Remove deletes the member at index and moves the member at the highest index
// into the vacated slot, then shrinks the counter by one. The notification carries
// the requested index and the removed member.
func (r *DenseRegistry) Remove(ctx context.Context, index models.Index) (id.AccountID, error) {
	ctx, op, err := r.begin(ctx, "remove", attribute.Int64("index", int64(index)))
	defer op.end()
	if err != nil {
		return id.AccountID{}, err
	}

	var (
		removed   id.AccountID
		last      models.Index
		relocated bool
	)
	err = r.tx.RunInTx(ctx, func(st store.Store) error {
		exists, err := st.Exists(ctx, index)
		if err != nil {
			return err
		}
		if !exists {
			return dErrors.New(dErrors.CodeNotFound, "an element doesn't exist at this index")
		}

		last, err = st.Counter(ctx)
		if err != nil {
			return err
		}
		if last == 0 {
			return dErrors.New(dErrors.CodeInvariantViolation,
				fmt.Sprintf("counter underflow: slot %d is occupied but the registry counts no members", index))
		}
		if index > last {
			return dErrors.New(dErrors.CodeInvariantViolation,
				fmt.Sprintf("slot %d lies beyond the counter %d", index, last))
		}

		removed, err = st.Take(ctx, index)
		if err != nil {
			return err
		}

		if index != last {
			moved, err := st.Take(ctx, last)
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeInvariantViolation,
					fmt.Sprintf("no member at highest index %d", last))
			}
			if err != nil {
				return err
			}
			// slot last stays empty: Take removed it above
			if err := st.Insert(ctx, index, moved); err != nil {
				return err
			}
			relocated = true
		}

		return st.PutCounter(ctx, last-1)
	})
	if err != nil {
		return id.AccountID{}, op.fail(ctx, err)
	}

	if r.metrics != nil {
		r.metrics.IncrementRemoved(string(r.kind), relocated)
		r.metrics.SetSize(string(r.kind), uint32(last-1))
	}
	op.notify(ctx, models.MemberRemoved(r.kind, removed, index))
	return removed, nil
}
