package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the Kafka audit publisher.
type Metrics struct {
	Produced        prometheus.Counter
	ProduceFailures prometheus.Counter
	Dropped         prometheus.Counter
	CircuitState    prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Produced: factory.NewCounter(prometheus.CounterOpts{
			Name: "roster_audit_kafka_produced_total",
			Help: "Total number of audit records acknowledged by the brokers",
		}),
		ProduceFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "roster_audit_kafka_produce_failures_total",
			Help: "Total number of audit records the brokers rejected",
		}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "roster_audit_kafka_dropped_total",
			Help: "Total number of audit records dropped while the circuit was open",
		}),
		CircuitState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "roster_audit_kafka_circuit_open",
			Help: "Circuit breaker state (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) setCircuit(open bool) {
	if open {
		m.CircuitState.Set(1)
		return
	}
	m.CircuitState.Set(0)
}
