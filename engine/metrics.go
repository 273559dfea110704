package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the Prometheus metrics recorded by an engine.
// A nil *Metrics records nothing.
type Metrics struct {
	EventsTotal             *prometheus.CounterVec
	TransitionsTotal        *prometheus.CounterVec
	NoInputTotal            prometheus.Counter
	CapabilityFailuresTotal *prometheus.CounterVec
	GuardPanicsTotal        prometheus.Counter
}

// NewMetrics creates and registers engine metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voicequest_events_total",
				Help: "Total number of events received by type",
			},
			[]string{"event"},
		),
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voicequest_transitions_total",
				Help: "Total number of fired transitions by triggering event",
			},
			[]string{"event"},
		),
		NoInputTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicequest_noinput_total",
			Help: "Total number of listen phases that ended without input",
		}),
		CapabilityFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voicequest_capability_failures_total",
				Help: "Total number of failed speech operations by capability",
			},
			[]string{"capability"},
		),
		GuardPanicsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicequest_guard_panics_total",
			Help: "Total number of guard predicates that panicked",
		}),
	}

	reg.MustRegister(m.EventsTotal)
	reg.MustRegister(m.TransitionsTotal)
	reg.MustRegister(m.NoInputTotal)
	reg.MustRegister(m.CapabilityFailuresTotal)
	reg.MustRegister(m.GuardPanicsTotal)

	return m
}

func (m *Metrics) event(ev string) {
	if m != nil {
		m.EventsTotal.WithLabelValues(ev).Inc()
	}
}

func (m *Metrics) transition(ev string) {
	if m != nil {
		m.TransitionsTotal.WithLabelValues(ev).Inc()
	}
}

func (m *Metrics) noInput() {
	if m != nil {
		m.NoInputTotal.Inc()
	}
}

func (m *Metrics) failure(capability string) {
	if m != nil {
		m.CapabilityFailuresTotal.WithLabelValues(capability).Inc()
	}
}

func (m *Metrics) guardPanic() {
	if m != nil {
		m.GuardPanicsTotal.Inc()
	}
}
