// Package store holds the key-value backends the registries run against.
//
// Every backend owns one namespace: a set of index → account slots plus the two
// scalar cursors (counter and head). Multi-step operations go through the matching
// transaction runner (InMemoryTx, RedisTx, PostgresTx), which buffers or scopes
// writes so an operation applies completely or not at all.
package store

import (
	"context"

	"roster/internal/registry/models"
	id "roster/pkg/domain"
)

// Store is the slot and cursor surface of one registry namespace.
// Get and Take return sentinel.ErrNotFound (wrapped) for empty slots.
type Store interface {
	Exists(ctx context.Context, idx models.Index) (bool, error)
	Get(ctx context.Context, idx models.Index) (id.AccountID, error)
	Insert(ctx context.Context, idx models.Index, account id.AccountID) error
	Take(ctx context.Context, idx models.Index) (id.AccountID, error)
	Counter(ctx context.Context) (models.Index, error)
	PutCounter(ctx context.Context, value models.Index) error
	Head(ctx context.Context) (models.Index, bool, error)
	PutHead(ctx context.Context, value models.Index) error
}

var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*staged)(nil)
)
