package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "roster/pkg/domain"
	audit "roster/pkg/platform/audit"
)

// fakeProducer completes every record synchronously with err.
type fakeProducer struct {
	mu      sync.Mutex
	err     error
	records []*kgo.Record
	flushed int
	closed  bool
}

func (f *fakeProducer) Produce(_ context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	f.mu.Lock()
	f.records = append(f.records, r)
	err := f.err
	f.mu.Unlock()
	promise(r, err)
}

func (f *fakeProducer) Flush(context.Context) error {
	f.flushed++
	return nil
}

func (f *fakeProducer) Close() { f.closed = true }

func TestPublisher_EmitEncodesRecord(t *testing.T) {
	producer := &fakeProducer{}
	metrics := NewMetrics(prometheus.NewRegistry())
	pub := newPublisher(producer, "roster.members", WithMetrics(metrics))

	account := id.NewAccountID()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	err := pub.Emit(context.Background(), audit.Event{
		Registry:  "dense",
		Account:   account,
		Index:     4,
		Action:    string(audit.EventMemberRemoved),
		ActorID:   "registry-admin",
		RequestID: "req-1",
		Timestamp: at,
	})
	require.NoError(t, err)

	require.Len(t, producer.records, 1)
	record := producer.records[0]
	assert.Equal(t, "roster.members", record.Topic)
	assert.Equal(t, []byte("dense"), record.Key)
	require.Len(t, record.Headers, 1)
	assert.Equal(t, "member_removed", string(record.Headers[0].Value))

	var got payload
	require.NoError(t, json.Unmarshal(record.Value, &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "membership", got.Category)
	assert.Equal(t, account.String(), got.Account)
	assert.Equal(t, uint32(4), got.Index)
	assert.Equal(t, "registry-admin", got.ActorID)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "2026-03-01T10:00:00Z", got.Timestamp)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Produced))
}

func TestPublisher_FailuresOpenCircuit(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker unavailable")}
	metrics := NewMetrics(prometheus.NewRegistry())
	pub := newPublisher(producer, "roster.members",
		WithMetrics(metrics),
		WithCircuitBreaker(NewCircuitBreaker(2, time.Hour)),
	)
	event := audit.Event{Registry: "linked", Account: id.NewAccountID(), Action: string(audit.EventMemberAdded)}

	require.NoError(t, pub.Emit(context.Background(), event))
	require.NoError(t, pub.Emit(context.Background(), event))

	err := pub.Emit(context.Background(), event)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Len(t, producer.records, 2, "no record is produced while open")
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ProduceFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Dropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CircuitState))
}

func TestPublisher_CloseFlushes(t *testing.T) {
	producer := &fakeProducer{}
	pub := newPublisher(producer, "roster.members")

	require.NoError(t, pub.Close(context.Background()))
	assert.Equal(t, 1, producer.flushed)
	assert.True(t, producer.closed)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "topic")
	assert.Error(t, err)

	_, err = New([]string{"localhost:9092"}, "")
	assert.Error(t, err)
}

func TestCircuitBreaker(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	assert.True(t, cb.Allow())
	assert.False(t, cb.RecordFailure())
	assert.True(t, cb.Allow(), "below threshold stays closed")

	assert.True(t, cb.RecordFailure())
	assert.True(t, cb.IsOpen())
	assert.False(t, cb.Allow())
	assert.False(t, cb.RecordFailure(), "already open")

	now = now.Add(time.Minute)
	assert.True(t, cb.Allow(), "cooldown elapsed")
	assert.False(t, cb.IsOpen())

	assert.False(t, cb.RecordFailure())
	cb.RecordSuccess()
	assert.False(t, cb.RecordFailure(), "success resets the failure count")
}
