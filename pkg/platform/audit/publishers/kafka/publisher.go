// Package kafka publishes audit events as JSON records to a Kafka topic.
//
// Produce is asynchronous. Emit only fails when the record cannot be encoded
// or the circuit is open; broker errors surface through the delivery callback
// where they are logged and counted.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "roster/pkg/platform/audit"
)

// ErrCircuitOpen is returned by Emit while delivery is suspended.
var ErrCircuitOpen = errors.New("audit publisher circuit open")

// producer is the subset of *kgo.Client the publisher uses.
type producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

type Publisher struct {
	client  producer
	topic   string
	logger  *slog.Logger
	metrics *Metrics
	breaker *CircuitBreaker
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(p *Publisher) {
		p.breaker = cb
	}
}

// New dials the seed brokers and returns a publisher producing to topic.
func New(brokers []string, topic string, opts ...Option) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, errors.New("kafka publisher requires a topic")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return newPublisher(client, topic, opts...), nil
}

func newPublisher(client producer, topic string, opts ...Option) *Publisher {
	p := &Publisher{
		client:  client,
		topic:   topic,
		logger:  slog.New(slog.DiscardHandler),
		breaker: NewCircuitBreaker(0, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// payload is the JSON document written as the record value.
type payload struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Action    string `json:"action"`
	Registry  string `json:"registry"`
	Account   string `json:"account"`
	Index     uint32 `json:"index"`
	ActorID   string `json:"actor_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

func encode(event audit.Event) ([]byte, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	return json.Marshal(payload{
		ID:        uuid.NewString(),
		Category:  string(category),
		Action:    event.Action,
		Registry:  event.Registry,
		Account:   event.Account.String(),
		Index:     event.Index,
		ActorID:   event.ActorID,
		RequestID: event.RequestID,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

// Emit enqueues event for delivery. Records are keyed by registry so each
// registry's history stays ordered within one partition.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if !p.breaker.Allow() {
		if p.metrics != nil {
			p.metrics.Dropped.Inc()
		}
		return ErrCircuitOpen
	}
	value, err := encode(event)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Registry),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
		},
	}
	// The record outlives the request, so delivery must not be cut short by ctx.
	p.client.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		p.delivered(r, event, err)
	})
	return nil
}

func (p *Publisher) delivered(r *kgo.Record, event audit.Event, err error) {
	if err == nil {
		p.breaker.RecordSuccess()
		if p.metrics != nil {
			p.metrics.Produced.Inc()
			p.metrics.setCircuit(false)
		}
		return
	}
	opened := p.breaker.RecordFailure()
	if p.metrics != nil {
		p.metrics.ProduceFailures.Inc()
		if opened {
			p.metrics.setCircuit(true)
		}
	}
	p.logger.Error("failed to produce audit record",
		"topic", r.Topic,
		"action", event.Action,
		"registry", event.Registry,
		"index", event.Index,
		"error", err,
	)
}

// Flush blocks until every buffered record has been acknowledged or ctx ends.
func (p *Publisher) Flush(ctx context.Context) error {
	return p.client.Flush(ctx)
}

// Close flushes outstanding records and releases the client.
func (p *Publisher) Close(ctx context.Context) error {
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}
