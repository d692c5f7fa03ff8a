// Package watchdog expires credentials whose expiry passed. It drives the
// same compare-and-swap update path as the API, so a race against a
// concurrent suspend or revoke resolves to exactly one winner.
package watchdog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"idhub/internal/credential/metrics"
	"idhub/internal/credential/models"
	"idhub/internal/credential/store"
	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
)

// StatusUpdater is the slice of the credential service the watchdog drives.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, credentialID id.CredentialID, target models.VcStatus) (models.VerifiableCredentialResource, error)
}

// Lister scans for expiry candidates.
type Lister interface {
	ListExpiring(ctx context.Context, cutoff time.Time, limit int) ([]models.VerifiableCredentialResource, error)
}

// Result summarizes one sweep.
type Result struct {
	Scanned int
	Expired int
	Lost    int
}

// Watchdog periodically sweeps expiring credentials.
type Watchdog struct {
	lister   Lister
	updater  StatusUpdater
	interval time.Duration
	batch    int
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Watchdog)

func WithInterval(interval time.Duration) Option {
	return func(w *Watchdog) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

func WithBatchSize(batch int) Option {
	return func(w *Watchdog) {
		if batch > 0 {
			w.batch = batch
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Watchdog) { w.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Watchdog) { w.metrics = m }
}

func New(lister Lister, updater StatusUpdater, opts ...Option) (*Watchdog, error) {
	if lister == nil || updater == nil {
		return nil, fmt.Errorf("lister and updater are required")
	}
	w := &Watchdog{
		lister:   lister,
		updater:  updater,
		interval: time.Minute,
		batch:    100,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start runs sweeps periodically until ctx is cancelled.
func (w *Watchdog) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "expiry sweep failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single sweep. Losing a status race to a concurrent
// suspend or revoke is expected and only counted, never retried within the
// sweep; the next tick re-evaluates whatever is still expiring.
func (w *Watchdog) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	now := time.Now().UTC()

	candidates, err := w.lister.ListExpiring(ctx, now, w.batch)
	if err != nil {
		return res, fmt.Errorf("list expiring credentials: %w", err)
	}
	res.Scanned = len(candidates)

	for _, candidate := range candidates {
		if _, err := w.updater.UpdateStatus(ctx, candidate.ID, models.StatusExpired); err != nil {
			if dErrors.IsRetryable(err) || dErrors.HasCode(err, dErrors.CodeStateTransition) || dErrors.HasCode(err, dErrors.CodeNotFound) {
				res.Lost++
				continue
			}
			return res, fmt.Errorf("expire credential %s: %w", candidate.ID, err)
		}
		res.Expired++
		if w.metrics != nil {
			w.metrics.IncrementExpired()
		}
	}

	if res.Scanned > 0 {
		w.logger.InfoContext(ctx, "expiry sweep finished",
			"scanned", res.Scanned,
			"expired", res.Expired,
			"lost_races", res.Lost,
		)
	}
	return res, nil
}

var _ Lister = (store.Store)(nil)
