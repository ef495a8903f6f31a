// Package metrics defines the relay's Prometheus instrumentation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the relay's collectors. A zero registry (NewNop) keeps the
// collectors functional but unexported, so the hub never branches on whether
// metrics are enabled.
type Metrics struct {
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsReaped  prometheus.Counter
	MessagesRelayed prometheus.Counter
	RelayErrors     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parley_sessions_active",
			Help: "Number of sessions currently in the registry",
		}),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parley_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		SessionsReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parley_sessions_reaped_total",
			Help: "Total number of sessions removed by the idle reaper",
		}),
		MessagesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parley_messages_relayed_total",
			Help: "Total number of translation messages forwarded",
		}),
		RelayErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_relay_errors_total",
			Help: "Total number of rejected frames by reason",
		}, []string{"reason"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.SessionsActive,
			m.SessionsCreated,
			m.SessionsReaped,
			m.MessagesRelayed,
			m.RelayErrors,
		)
	}
	return m
}

// NewNop returns unregistered collectors, for tests and embedders that do not
// scrape.
func NewNop() *Metrics {
	return New(nil)
}
