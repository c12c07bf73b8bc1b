package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementAdded("dense")
	m.IncrementAdded("dense")
	m.IncrementRemoved("dense", true)
	m.IncrementRemoved("linked", false)
	m.IncrementFailure("dense", "remove", "not_found")
	m.ObserveOperation("dense", "add", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MembersAdded.WithLabelValues("dense")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MembersRemoved.WithLabelValues("dense")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Relocations.WithLabelValues("dense")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Relocations.WithLabelValues("linked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Size.WithLabelValues("dense")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationFailures.WithLabelValues("dense", "remove", "not_found")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))

	m.SetSize("dense", 7)
	assert.Equal(t, 7.0, testutil.ToFloat64(m.Size.WithLabelValues("dense")))
}

func TestNewOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
