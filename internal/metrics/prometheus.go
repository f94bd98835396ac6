package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Mirror exposes the store's latest values and counter totals on a
// private Prometheus registry. The registry is a one-way read mirror;
// the store works identically with no mirror attached.
type Mirror struct {
	registry *prometheus.Registry

	latestGauge   *prometheus.GaugeVec
	samplesTotal  *prometheus.CounterVec
	counterTotals *prometheus.GaugeVec
}

// NewMirror creates a mirror backed by its own registry
func NewMirror() *Mirror {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Mirror{
		registry: registry,
		latestGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pulsemon_metric_latest",
				Help: "Latest recorded value per metric name",
			},
			[]string{"name"},
		),
		samplesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsemon_metric_samples_total",
				Help: "Total observations recorded per metric name",
			},
			[]string{"name"},
		),
		counterTotals: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pulsemon_counter_total",
				Help: "Running counter totals per metric name",
			},
			[]string{"name"},
		),
	}
}

// GetRegistry returns the mirror's registry for promhttp exposure
func (m *Mirror) GetRegistry() *prometheus.Registry {
	return m.registry
}

// Observe mirrors one recorded value
func (m *Mirror) Observe(name string, value float64) {
	m.latestGauge.WithLabelValues(name).Set(value)
	m.samplesTotal.WithLabelValues(name).Inc()
}

// ObserveCounter mirrors one counter increment and its running total
func (m *Mirror) ObserveCounter(name string, delta, total float64) {
	m.latestGauge.WithLabelValues(name).Set(total)
	m.samplesTotal.WithLabelValues(name).Inc()
	m.counterTotals.WithLabelValues(name).Set(total)
}
