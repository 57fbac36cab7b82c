package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records delivery attempts per channel.
type Metrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the dispatch collectors with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_dispatch_total",
			Help: "Contact notification attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contact_dispatch_duration_seconds",
			Help:    "Duration of contact notification calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"channel"}),
	}
	if reg != nil {
		reg.MustRegister(m.total, m.duration)
	}
	return m
}

func (m *Metrics) observe(result ChannelResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.total.WithLabelValues(string(result.Channel), string(result.Outcome)).Inc()
	m.duration.WithLabelValues(string(result.Channel)).Observe(elapsed.Seconds())
}
