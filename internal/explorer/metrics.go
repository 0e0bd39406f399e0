package explorer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alfredjeanlab/atlasgraph/internal/normalize"
	"github.com/alfredjeanlab/atlasgraph/internal/render"
)

// Metrics groups the collectors shared by every view. A nil *Metrics records
// nothing.
type Metrics struct {
	Render   *render.Metrics
	payloads *prometheus.CounterVec
}

// NewMetrics creates the view and renderer collectors and registers them
// with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Render: render.NewMetrics(reg),
		payloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atlas",
			Subsystem: "views",
			Name:      "payloads_total",
			Help:      "Payloads loaded into views by detected shape.",
		}, []string{"shape"}),
	}
	if reg != nil {
		reg.MustRegister(m.payloads)
	}
	return m
}

func (m *Metrics) renderer() *render.Metrics {
	if m == nil {
		return nil
	}
	return m.Render
}

func (m *Metrics) payload(s normalize.Shape) {
	if m == nil {
		return
	}
	m.payloads.WithLabelValues(string(s)).Inc()
}
