// Package service orchestrates the participant registry: onboarding,
// lookup, token rotation and the ordered cleanup cascade on deletion.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"idhub/internal/events"
	"idhub/internal/keys"
	participantmetrics "idhub/internal/participant/metrics"
	"idhub/internal/participant/models"
	"idhub/internal/participant/store"
	"idhub/internal/secretstore"
	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
	"idhub/pkg/requestcontext"
	"idhub/pkg/secrets"
)

// CredentialCleaner is the slice of the credential store the registry needs
// for tenant cleanup.
type CredentialCleaner interface {
	DeleteByParticipant(ctx context.Context, participant id.ParticipantID) (int, error)
}

// KeyManager provisions and removes per-tenant signing keys.
type KeyManager interface {
	Provision(ctx context.Context, participant id.ParticipantID, holderDID string) (keys.SigningKey, error)
	Remove(ctx context.Context, participant id.ParticipantID) error
}

// Service is the participant registry.
type Service struct {
	participants store.Store
	credentials  CredentialCleaner
	keys         KeyManager
	secrets      secretstore.Store
	publisher    events.Publisher
	metrics      *participantmetrics.Metrics
	logger       *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *participantmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func NewService(participants store.Store, credentials CredentialCleaner, keyManager KeyManager, secretStore secretstore.Store, opts ...Option) *Service {
	s := &Service{
		participants: participants,
		credentials:  credentials,
		keys:         keyManager,
		secrets:      secretStore,
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

// Create onboards a participant from a manifest: API token first, then the
// default signing key, then the registry record. The cleartext token is
// returned exactly once and never stored outside the secret store.
func (s *Service) Create(ctx context.Context, manifest models.Manifest) (models.ParticipantContext, string, error) {
	if err := manifest.Validate(); err != nil {
		return models.ParticipantContext{}, "", dErrors.Wrap(err, dErrors.CodeValidation, "invalid participant manifest")
	}
	participantID := id.ParticipantID(manifest.ParticipantID)
	now := requestcontext.Now(ctx)

	token, err := secrets.Generate()
	if err != nil {
		return models.ParticipantContext{}, "", err
	}
	alias := id.NewSecretAlias(participantID)
	if err := s.secrets.Put(ctx, alias, token); err != nil {
		return models.ParticipantContext{}, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store API token")
	}
	if _, err := s.keys.Provision(ctx, participantID, manifest.DID); err != nil {
		s.rollbackCreate(ctx, participantID, alias)
		return models.ParticipantContext{}, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to provision signing key")
	}

	participant, err := models.New(manifest, alias, now)
	if err != nil {
		s.rollbackCreate(ctx, participantID, alias)
		return models.ParticipantContext{}, "", err
	}
	if manifest.Active {
		if err := participant.TransitionTo(models.StateActivated, now); err != nil {
			s.rollbackCreate(ctx, participantID, alias)
			return models.ParticipantContext{}, "", err
		}
	}

	if err := s.participants.Create(ctx, participant); err != nil {
		s.rollbackCreate(ctx, participantID, alias)
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return models.ParticipantContext{}, "", err
		}
		return models.ParticipantContext{}, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create participant")
	}

	s.emit(ctx, events.EventParticipantCreated, participantID, nil)
	if participant.State == models.StateActivated {
		s.emit(ctx, events.EventParticipantActivated, participantID, nil)
	}
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.logger.InfoContext(ctx, "participant created",
		"participant_id", participantID,
		"state", string(participant.State),
	)
	return participant, token, nil
}

// rollbackCreate undoes provisioning when onboarding fails partway. Errors
// here are logged, not returned; the caller already has the primary failure.
func (s *Service) rollbackCreate(ctx context.Context, participantID id.ParticipantID, alias id.SecretAlias) {
	if err := s.keys.Remove(ctx, participantID); err != nil {
		s.logger.WarnContext(ctx, "failed to remove key after aborted onboarding",
			"participant_id", participantID, "error", err)
	}
	if err := s.secrets.Delete(ctx, alias); err != nil {
		s.logger.WarnContext(ctx, "failed to remove secret after aborted onboarding",
			"participant_id", participantID, "error", err)
	}
}

// Get returns the participant context or a not_found domain error.
func (s *Service) Get(ctx context.Context, participantID id.ParticipantID) (models.ParticipantContext, error) {
	participant, err := s.participants.FindByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.ParticipantContext{}, dErrors.New(dErrors.CodeNotFound, "participant not found")
		}
		return models.ParticipantContext{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load participant")
	}
	return participant, nil
}

// List returns all participant contexts. Admin surface only.
func (s *Service) List(ctx context.Context) ([]models.ParticipantContext, error) {
	participants, err := s.participants.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list participants")
	}
	return participants, nil
}

// Delete runs the ordered cleanup cascade: deleting event, credentials,
// signing keys, API token secret, and the registry record strictly last. A
// crash mid-cascade leaves the record discoverable so a retry finishes the
// job; deleting an already-deleted participant succeeds.
func (s *Service) Delete(ctx context.Context, participantID id.ParticipantID) error {
	start := time.Now()

	participant, err := s.participants.FindByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load participant for deletion")
	}

	s.emit(ctx, events.EventParticipantDeleting, participantID, nil)

	deleted, err := s.credentials.DeleteByParticipant(ctx, participantID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete participant credentials")
	}
	if err := s.keys.Remove(ctx, participantID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete participant signing keys")
	}
	if err := s.secrets.Delete(ctx, participant.APITokenAlias); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete participant API token")
	}
	if err := s.participants.DeleteByID(ctx, participantID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete participant record")
	}

	s.emit(ctx, events.EventParticipantDeleted, participantID, map[string]string{
		"credentials_deleted": strconv.Itoa(deleted),
	})
	if s.metrics != nil {
		s.metrics.IncrementDeleted()
		s.metrics.ObserveDelete(start)
	}
	s.logger.InfoContext(ctx, "participant deleted",
		"participant_id", participantID,
		"credentials_deleted", deleted,
	)
	return nil
}

// RegenerateToken rotates the API token behind the participant's alias and
// returns the new cleartext token exactly once. The alias itself is stable.
func (s *Service) RegenerateToken(ctx context.Context, participantID id.ParticipantID) (string, error) {
	participant, err := s.Get(ctx, participantID)
	if err != nil {
		return "", err
	}

	token, err := secrets.Generate()
	if err != nil {
		return "", err
	}
	err = s.secrets.Rotate(ctx, participant.APITokenAlias, token)
	if errors.Is(err, secretstore.ErrNotFound) {
		// The alias can be empty after a crashed cleanup; re-seed it.
		err = s.secrets.Put(ctx, participant.APITokenAlias, token)
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to rotate API token")
	}

	s.emit(ctx, events.EventTokenRegenerated, participantID, nil)
	if s.metrics != nil {
		s.metrics.IncrementTokenRegenerated()
	}
	s.logger.InfoContext(ctx, "participant API token regenerated", "participant_id", participantID)
	return token, nil
}

// Owner implements the authorization gate lookup for participant resources.
func (s *Service) Owner(ctx context.Context, resourceID string) (id.ParticipantID, error) {
	participantID, err := id.ParseParticipantID(resourceID)
	if err != nil {
		return "", err
	}
	participant, err := s.Get(ctx, participantID)
	if err != nil {
		return "", err
	}
	return participant.ID, nil
}

func (s *Service) emit(ctx context.Context, eventType events.EventType, participantID id.ParticipantID, detail map[string]string) {
	err := s.publisher.Emit(ctx, events.Event{
		Type:          eventType,
		ParticipantID: participantID,
		Detail:        detail,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit lifecycle event",
			"type", eventType, "participant_id", participantID, "error", err)
	}
}
