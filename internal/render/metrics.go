package render

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts renderer lifecycle transitions. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	constructions prometheus.Counter
	teardowns     prometheus.Counter
	live          prometheus.Gauge
	errors        *prometheus.CounterVec
	stale         prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		constructions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "atlas",
			Subsystem: "renderer",
			Name:      "constructions_total",
			Help:      "Renderer instances constructed.",
		}),
		teardowns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "atlas",
			Subsystem: "renderer",
			Name:      "teardowns_total",
			Help:      "Renderer instances torn down.",
		}),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "atlas",
			Subsystem: "renderer",
			Name:      "live",
			Help:      "Renderer instances currently live across all views.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atlas",
			Subsystem: "renderer",
			Name:      "errors_total",
			Help:      "User-visible render errors by kind.",
		}, []string{"kind"}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "atlas",
			Subsystem: "renderer",
			Name:      "stale_acquisitions_total",
			Help:      "Backend acquisitions discarded because their cycle was disposed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.constructions, m.teardowns, m.live, m.errors, m.stale)
	}
	return m
}

func (m *Metrics) constructed() {
	if m == nil {
		return
	}
	m.constructions.Inc()
	m.live.Inc()
}

func (m *Metrics) tornDown() {
	if m == nil {
		return
	}
	m.teardowns.Inc()
	m.live.Dec()
}

func (m *Metrics) failed(kind ErrorKind) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) discarded() {
	if m == nil {
		return
	}
	m.stale.Inc()
}
