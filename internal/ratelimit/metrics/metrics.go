package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Allowed  prometheus.Counter
	Rejected prometheus.Counter
	Errors   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Allowed: factory.NewCounter(prometheus.CounterOpts{
			Name: "roster_ratelimit_allowed_total",
			Help: "Requests admitted by the per-caller rate limiter",
		}),
		Rejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "roster_ratelimit_rejected_total",
			Help: "Requests rejected with 429 by the per-caller rate limiter",
		}),
		Errors: factory.NewCounter(prometheus.CounterOpts{
			Name: "roster_ratelimit_errors_total",
			Help: "Limiter store failures; the request was let through",
		}),
	}
}

func (m *Metrics) IncrementAllowed() {
	if m == nil {
		return
	}
	m.Allowed.Inc()
}

func (m *Metrics) IncrementRejected() {
	if m == nil {
		return
	}
	m.Rejected.Inc()
}

func (m *Metrics) IncrementErrors() {
	if m == nil {
		return
	}
	m.Errors.Inc()
}
