package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ArtifactsGenerated *prometheus.CounterVec
	GenerationFailures *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		ArtifactsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idhub_presentation_artifacts_total",
			Help: "Total number of presentation artifacts generated, by format",
		}, []string{"format"}),
		GenerationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idhub_presentation_failures_total",
			Help: "Total number of failed presentation requests, by error code",
		}, []string{"code"}),
		GenerationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idhub_presentation_duration_seconds",
			Help:    "End-to-end duration of presentation generation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementArtifact(format string) {
	m.ArtifactsGenerated.WithLabelValues(format).Inc()
}

func (m *Metrics) IncrementFailure(code string) {
	m.GenerationFailures.WithLabelValues(code).Inc()
}

func (m *Metrics) ObserveGeneration(start time.Time) {
	m.GenerationDuration.Observe(time.Since(start).Seconds())
}
