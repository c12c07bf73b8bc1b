package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "roster/pkg/domain"
	audit "roster/pkg/platform/audit"
	"roster/pkg/platform/audit/store/memory"
)

func TestWorker_DrainsInboxUntilClosed(t *testing.T) {
	store := memory.NewInMemoryStore()
	inbox := make(chan audit.Event, 3)
	account := id.NewAccountID()
	for i := range 3 {
		inbox <- audit.Event{Account: account, Index: uint32(i + 1), Action: string(audit.EventMemberAdded)}
	}
	close(inbox)

	require.NoError(t, NewWorker(store, inbox).Run(context.Background()))

	events, err := store.ListByAccount(context.Background(), account)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, uint32(3), events[2].Index)
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewWorker(memory.NewInMemoryStore(), make(chan audit.Event)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_FeedsWorker(t *testing.T) {
	store := memory.NewInMemoryStore()
	queue := NewQueue(1)
	account := id.NewAccountID()

	require.NoError(t, queue.Emit(context.Background(), audit.Event{Account: account, Action: string(audit.EventMemberAdded)}))
	assert.ErrorIs(t, queue.Emit(context.Background(), audit.Event{Account: account}), ErrQueueFull)
	queue.Close()

	require.NoError(t, NewWorker(store, queue.Inbox()).Run(context.Background()))
	events, err := store.ListByAccount(context.Background(), account)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
