package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ParticipantsCreated prometheus.Counter
	ParticipantsDeleted prometheus.Counter
	TokensRegenerated   prometheus.Counter
	DeleteDuration      prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		ParticipantsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idhub_participants_created_total",
			Help: "Total number of participant contexts created",
		}),
		ParticipantsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idhub_participants_deleted_total",
			Help: "Total number of participant contexts fully deleted",
		}),
		TokensRegenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idhub_participant_tokens_regenerated_total",
			Help: "Total number of API token rotations",
		}),
		DeleteDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idhub_participant_delete_duration_seconds",
			Help:    "Duration of participant cleanup (credentials, keys, secrets, record)",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}

func (m *Metrics) IncrementCreated() { m.ParticipantsCreated.Inc() }
func (m *Metrics) IncrementDeleted() { m.ParticipantsDeleted.Inc() }
func (m *Metrics) IncrementTokenRegenerated() { m.TokensRegenerated.Inc() }

func (m *Metrics) ObserveDelete(start time.Time) {
	m.DeleteDuration.Observe(time.Since(start).Seconds())
}
