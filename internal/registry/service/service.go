// Package service implements the two member registries.
//
// DenseRegistry keeps indices contiguous in [1, counter] by moving the member at
// the highest index into every vacated slot. LinkedRegistry fills a vacated slot
// with the member at the tracked head and never recomputes the head on removal.
//
// Both run each operation inside one StoreTx transaction and notify the EventSink
// only after the transaction commits.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"roster/internal/registry/metrics"
	"roster/internal/registry/models"
	"roster/internal/registry/store"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/sentinel"
	"roster/pkg/requestcontext"
)

const tracerName = "roster/internal/registry/service"

// StoreTx provides the transactional boundary for registry mutations.
// Implementations may wrap a database transaction, a Redis MULTI/EXEC or, in-memory, a lock.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(store store.Store) error) error
}

// EventSink receives membership notifications. Delivery is fire-and-forget:
// registries log a failed Emit and still report success to the caller.
type EventSink interface {
	Emit(ctx context.Context, event models.Event) error
}

// Authenticator yields the caller identity for an operation.
type Authenticator func(ctx context.Context) (id.CallerID, error)

// ContextAuthenticator reads the caller placed in ctx by the auth middleware.
func ContextAuthenticator(ctx context.Context) (id.CallerID, error) {
	caller := requestcontext.CallerID(ctx)
	if caller.IsZero() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "caller is not authenticated")
	}
	return caller, nil
}

type Option func(r *registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *registry) {
		r.logger = logger
	}
}

func WithEventSink(sink EventSink) Option {
	return func(r *registry) {
		r.sink = sink
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *registry) {
		r.metrics = m
	}
}

func WithAuthenticator(auth Authenticator) Option {
	return func(r *registry) {
		if auth != nil {
			r.authenticate = auth
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *registry) {
		if tp != nil {
			r.tracer = tp.Tracer(tracerName)
		}
	}
}

// registry holds the collaborators shared by both strategies.
type registry struct {
	kind         models.Kind
	tx           StoreTx
	logger       *slog.Logger
	sink         EventSink
	metrics      *metrics.Metrics
	authenticate Authenticator
	tracer       trace.Tracer
}

func newRegistry(kind models.Kind, tx StoreTx, opts ...Option) *registry {
	r := &registry{
		kind:         kind,
		tx:           tx,
		authenticate: ContextAuthenticator,
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// operation is the per-call bookkeeping shared by Add and Remove.
type operation struct {
	r      *registry
	name   string
	start  time.Time
	span   trace.Span
	caller id.CallerID
}

func (r *registry) begin(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *operation, error) {
	ctx, span := r.tracer.Start(ctx, "registry."+name, trace.WithAttributes(
		append(attrs, attribute.String("registry", string(r.kind)))...,
	))
	op := &operation{r: r, name: name, start: time.Now(), span: span}

	caller, err := r.authenticate(ctx)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			err = dErrors.Wrap(err, dErrors.CodeUnauthorized, "caller authentication failed")
		}
		return ctx, op, op.fail(ctx, err)
	}
	op.caller = caller
	return ctx, op, nil
}

// fail records err on the span, metrics and log, and returns it translated.
func (op *operation) fail(ctx context.Context, err error) error {
	err = op.r.translate(err, op.name)
	code := dErrors.CodeOf(err)

	op.span.RecordError(err)
	op.span.SetStatus(codes.Error, string(code))
	if op.r.metrics != nil {
		op.r.metrics.IncrementFailure(string(op.r.kind), op.name, string(code))
	}

	level := slog.LevelWarn
	if code == dErrors.CodeInternal || code == dErrors.CodeInvariantViolation {
		level = slog.LevelError
	}
	op.r.logger.Log(ctx, level, "registry operation failed",
		"registry", op.r.kind,
		"operation", op.name,
		"code", code,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	return err
}

func (op *operation) end() {
	if op.r.metrics != nil {
		op.r.metrics.ObserveOperation(string(op.r.kind), op.name, op.start)
	}
	op.span.End()
}

// notify pushes event to the sink after commit. Sink failures never reach the caller.
func (op *operation) notify(ctx context.Context, event models.Event) {
	event.Caller = op.caller
	event.RequestID = requestcontext.RequestID(ctx)
	event.Timestamp = requestcontext.Now(ctx)

	op.r.logger.InfoContext(ctx, string(event.Kind),
		"registry", op.r.kind,
		"index", event.Index,
		"account", event.Account,
		"caller", op.caller,
		"request_id", event.RequestID,
	)

	if op.r.sink == nil {
		return
	}
	if err := op.r.sink.Emit(ctx, event); err != nil {
		op.r.logger.ErrorContext(ctx, "failed to emit registry event",
			"registry", op.r.kind,
			"event", event.Kind,
			"index", event.Index,
			"error", err,
		)
	}
}

// translate maps store sentinels to coded errors. Coded errors pass through.
func (r *registry) translate(err error, operation string) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "registry modified concurrently")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "registry storage holds invalid data")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "registry operation timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+operation+" member")
	}
}
