// Package service is the credential lifecycle surface: creating resources,
// looking them up, and driving the status state machine from external signals
// (status lists, admin action, tenant termination).
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"idhub/internal/credential/metrics"
	"idhub/internal/credential/models"
	"idhub/internal/credential/store"
	"idhub/internal/events"
	participantmodels "idhub/internal/participant/models"
	participantstore "idhub/internal/participant/store"
	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
	"idhub/pkg/requestcontext"
)

// ParticipantDirectory is the slice of the participant registry consulted on
// credential creation: every credential must belong to a participant context
// that exists and has not been deleted.
type ParticipantDirectory interface {
	FindByID(ctx context.Context, participantID id.ParticipantID) (participantmodels.ParticipantContext, error)
}

// CreateCommand describes a credential being stored, typically on delivery
// from an issuance flow.
type CreateCommand struct {
	ParticipantID id.ParticipantID
	IssuerID      string
	HolderID      string
	Format        models.Format
	Status        models.VcStatus
	RawCredential string
	Claims        models.Claims
	ExpiresAt     time.Time
}

// Service orchestrates credential lifecycle operations.
type Service struct {
	store        store.Store
	participants ParticipantDirectory
	publisher    events.Publisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func NewService(credStore store.Store, participants ParticipantDirectory, opts ...Option) *Service {
	s := &Service{
		store:        credStore,
		participants: participants,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = events.NewLogPublisher(s.logger)
	}
	return s
}

// Create stores a new credential resource.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (models.VerifiableCredentialResource, error) {
	status := cmd.Status
	if status == "" {
		status = models.StatusInitial
	}
	res, err := models.NewWithStatus(cmd.ParticipantID, cmd.IssuerID, cmd.HolderID, cmd.Format, status, requestcontext.Now(ctx))
	if err != nil {
		return models.VerifiableCredentialResource{}, err
	}
	if _, err := s.participants.FindByID(ctx, cmd.ParticipantID); err != nil {
		if errors.Is(err, participantstore.ErrNotFound) {
			return models.VerifiableCredentialResource{}, dErrors.New(dErrors.CodeValidation,
				"unknown participant context "+cmd.ParticipantID.String())
		}
		return models.VerifiableCredentialResource{}, dErrors.Wrap(err, dErrors.CodeInternal, "verifying participant context")
	}
	res.RawCredential = cmd.RawCredential
	res.ExpiresAt = cmd.ExpiresAt
	for k, v := range cmd.Claims {
		res.StructuredCredential[k] = v
	}

	if err := s.store.Create(ctx, res); err != nil {
		return models.VerifiableCredentialResource{}, err
	}

	s.emit(ctx, events.EventCredentialCreated, res, nil)
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.logger.InfoContext(ctx, "credential created",
		"credential_id", res.ID,
		"participant_id", res.ParticipantContextID,
		"format", res.Format.String(),
		"status", string(res.Status),
	)
	return res, nil
}

// Get returns the credential or a not_found domain error.
func (s *Service) Get(ctx context.Context, credentialID id.CredentialID) (models.VerifiableCredentialResource, error) {
	res, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.VerifiableCredentialResource{}, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return models.VerifiableCredentialResource{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	return res, nil
}

// Query runs a management query. The filter's participant is mandatory; the
// store rejects unscoped queries.
func (s *Service) Query(ctx context.Context, filter store.Filter) ([]models.VerifiableCredentialResource, error) {
	return s.store.Query(ctx, filter)
}

// UpdateStatus moves a credential to the target status through the
// compare-and-swap path: read, transition in memory, write guarded by the
// observed version. A lost race or illegal transition leaves the stored
// resource untouched.
func (s *Service) UpdateStatus(ctx context.Context, credentialID id.CredentialID, target models.VcStatus) (models.VerifiableCredentialResource, error) {
	res, err := s.Get(ctx, credentialID)
	if err != nil {
		return models.VerifiableCredentialResource{}, err
	}
	lastSeen := res.TimeOfLastStatusUpdate
	previous := res.Status

	updated := res.Copy()
	if err := updated.TransitionTo(target, requestcontext.Now(ctx)); err != nil {
		return models.VerifiableCredentialResource{}, err
	}
	if err := s.store.Update(ctx, updated, lastSeen); err != nil {
		if s.metrics != nil && dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.IncrementConflict()
		}
		return models.VerifiableCredentialResource{}, err
	}

	s.emit(ctx, events.EventCredentialStatus, updated, map[string]string{
		"from": string(previous),
		"to":   string(target),
	})
	if s.metrics != nil {
		s.metrics.IncrementTransition(string(target))
	}
	s.logger.InfoContext(ctx, "credential status changed",
		"credential_id", credentialID,
		"from", string(previous),
		"to", string(target),
	)
	return updated, nil
}

// Suspend parks an ISSUED credential; it can come back via Reactivate.
func (s *Service) Suspend(ctx context.Context, credentialID id.CredentialID) (models.VerifiableCredentialResource, error) {
	return s.UpdateStatus(ctx, credentialID, models.StatusSuspended)
}

// Reactivate returns a SUSPENDED credential to ISSUED.
func (s *Service) Reactivate(ctx context.Context, credentialID id.CredentialID) (models.VerifiableCredentialResource, error) {
	return s.UpdateStatus(ctx, credentialID, models.StatusIssued)
}

// Revoke permanently invalidates a credential.
func (s *Service) Revoke(ctx context.Context, credentialID id.CredentialID) (models.VerifiableCredentialResource, error) {
	return s.UpdateStatus(ctx, credentialID, models.StatusRevoked)
}

// Terminate ends a credential as part of tenant shutdown.
func (s *Service) Terminate(ctx context.Context, credentialID id.CredentialID) (models.VerifiableCredentialResource, error) {
	return s.UpdateStatus(ctx, credentialID, models.StatusTerminated)
}

// Owner implements the authorization gate lookup for credential resources.
func (s *Service) Owner(ctx context.Context, resourceID string) (id.ParticipantID, error) {
	credentialID, err := id.ParseCredentialID(resourceID)
	if err != nil {
		return "", err
	}
	res, err := s.Get(ctx, credentialID)
	if err != nil {
		return "", err
	}
	return res.ParticipantContextID, nil
}

func (s *Service) emit(ctx context.Context, eventType events.EventType, res models.VerifiableCredentialResource, detail map[string]string) {
	err := s.publisher.Emit(ctx, events.Event{
		Type:          eventType,
		ParticipantID: res.ParticipantContextID,
		CredentialID:  res.ID,
		Detail:        detail,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit lifecycle event",
			"type", eventType, "credential_id", res.ID, "error", err)
	}
}
