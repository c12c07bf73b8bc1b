package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"roster/internal/registry/store"
	id "roster/pkg/domain"
)

func setupTracing(t *testing.T) (Option, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = provider.Shutdown(t.Context()) })
	return WithTracerProvider(provider), exporter
}

func attributeValue(span tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_SpansCarryRegistryAndIndex(t *testing.T) {
	tracing, exporter := setupTracing(t)
	registry := NewDense(store.NewInMemoryTx(store.NewInMemoryStore()), tracing)
	ctx := authedContext()

	_, err := registry.Add(ctx, id.NewAccountID())
	require.NoError(t, err)
	_, err = registry.Remove(ctx, 5)
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	add := spans[0]
	assert.Equal(t, "registry.add", add.Name)
	reg, ok := attributeValue(add, "registry")
	require.True(t, ok)
	assert.Equal(t, "dense", reg.AsString())
	idx, ok := attributeValue(add, "index")
	require.True(t, ok)
	assert.Equal(t, int64(1), idx.AsInt64())
	assert.Equal(t, codes.Unset, add.Status.Code)

	remove := spans[1]
	assert.Equal(t, "registry.remove", remove.Name)
	assert.Equal(t, codes.Error, remove.Status.Code)
	assert.Equal(t, "not_found", remove.Status.Description)
	require.NotEmpty(t, remove.Events, "the error is recorded on the span")
}
