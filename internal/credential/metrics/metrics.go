package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CredentialsCreated prometheus.Counter
	StatusTransitions  *prometheus.CounterVec
	UpdateConflicts    prometheus.Counter
	CredentialsExpired prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		CredentialsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idhub_credentials_created_total",
			Help: "Total number of credential resources created",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idhub_credential_status_transitions_total",
			Help: "Total number of credential status transitions, by target status",
		}, []string{"to"}),
		UpdateConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idhub_credential_update_conflicts_total",
			Help: "Total number of lost optimistic-concurrency races on credential updates",
		}),
		CredentialsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idhub_credentials_expired_total",
			Help: "Total number of credentials expired by the watchdog",
		}),
	}
}

func (m *Metrics) IncrementCreated()             { m.CredentialsCreated.Inc() }
func (m *Metrics) IncrementTransition(to string) { m.StatusTransitions.WithLabelValues(to).Inc() }
func (m *Metrics) IncrementConflict()            { m.UpdateConflicts.Inc() }
func (m *Metrics) IncrementExpired()             { m.CredentialsExpired.Inc() }
