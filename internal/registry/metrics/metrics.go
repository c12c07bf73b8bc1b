package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
// All series carry a "registry" label (dense or linked).
type Metrics struct {
	MembersAdded      *prometheus.CounterVec
	MembersRemoved    *prometheus.CounterVec
	Relocations       *prometheus.CounterVec
	OperationFailures *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	Size              *prometheus.GaugeVec
}

// New registers the registry metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MembersAdded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_members_added_total",
			Help: "Total number of members added",
		}, []string{"registry"}),
		MembersRemoved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_members_removed_total",
			Help: "Total number of members removed",
		}, []string{"registry"}),
		Relocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_member_relocations_total",
			Help: "Total number of members moved into a vacated slot during removal",
		}, []string{"registry"}),
		OperationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_operation_failures_total",
			Help: "Total number of failed registry operations by error code",
		}, []string{"registry", "operation", "code"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roster_operation_duration_seconds",
			Help:    "Duration of registry add/remove operations",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"registry", "operation"}),
		Size: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "roster_registry_size",
			Help: "Number of members currently stored (dense: counter, linked: tracked adds minus removals)",
		}, []string{"registry"}),
	}
}

// IncrementAdded records a committed add.
func (m *Metrics) IncrementAdded(registry string) {
	m.MembersAdded.WithLabelValues(registry).Inc()
	m.Size.WithLabelValues(registry).Inc()
}

// IncrementRemoved records a committed removal.
func (m *Metrics) IncrementRemoved(registry string, relocated bool) {
	m.MembersRemoved.WithLabelValues(registry).Inc()
	m.Size.WithLabelValues(registry).Dec()
	if relocated {
		m.Relocations.WithLabelValues(registry).Inc()
	}
}

// SetSize overrides the size gauge, e.g. with the dense counter after a commit.
func (m *Metrics) SetSize(registry string, size uint32) {
	m.Size.WithLabelValues(registry).Set(float64(size))
}

// IncrementFailure records a failed operation.
func (m *Metrics) IncrementFailure(registry, operation, code string) {
	m.OperationFailures.WithLabelValues(registry, operation, code).Inc()
}

// ObserveOperation records the duration of an operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(registry, operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(registry, operation).Observe(time.Since(start).Seconds())
}
