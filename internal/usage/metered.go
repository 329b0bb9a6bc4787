package usage

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "rag_chat"

// Metered counts generations and observes their latency before delegating.
type Metered struct {
	next        Recorder
	generations *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	failures    prometheus.Counter
}

func NewMetered(next Recorder, reg prometheus.Registerer) *Metered {
	f := promauto.With(reg)
	return &Metered{
		next: next,
		generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "generation",
			Name:      "total",
			Help:      "Completed generation calls by model key.",
		}, []string{"model"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "generation",
			Name:      "latency_seconds",
			Help:      "Generation backend latency by model key.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"model"}),
		failures: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "usage",
			Name:      "record_failures_total",
			Help:      "Usage records that could not be written.",
		}),
	}
}

func (m *Metered) Record(ctx context.Context, rec Record) error {
	m.generations.WithLabelValues(rec.ModelKey).Inc()
	m.latency.WithLabelValues(rec.ModelKey).Observe(float64(rec.LatencyMs) / 1000)
	if err := m.next.Record(ctx, rec); err != nil {
		m.failures.Inc()
		return err
	}
	return nil
}
