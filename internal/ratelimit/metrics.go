package ratelimit

import "github.com/prometheus/client_golang/prometheus"

const (
	resultAllowed = "allowed"
	resultLimited = "limited"
)

// Metrics counts limiter decisions by result.
type Metrics struct {
	checks   *prometheus.CounterVec
	fallback prometheus.Counter
}

// NewMetrics registers the limiter collectors with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_rate_limit_checks_total",
			Help: "Contact rate limit decisions by result.",
		}, []string{"result"}),
		fallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contact_rate_limit_redis_fallback_total",
			Help: "Checks served by the in-memory limiter because Redis was unavailable.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.checks, m.fallback)
	}
	return m
}

func (m *Metrics) observe(result Result) {
	if m == nil {
		return
	}
	if result.Limited {
		m.checks.WithLabelValues(resultLimited).Inc()
		return
	}
	m.checks.WithLabelValues(resultAllowed).Inc()
}

func (m *Metrics) observeFallback() {
	if m == nil {
		return
	}
	m.fallback.Inc()
}
