package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"idhub/internal/credential/models"
	id "idhub/pkg/domain"
	pkgerrors "idhub/pkg/domain-errors"
	"idhub/pkg/platform/sentinel"
)

// InMemoryStore is an in-memory implementation of Store for tests or local use.
// It is safe for concurrent access but does not persist across process restarts.
type InMemoryStore struct {
	mu          sync.RWMutex
	credentials map[string]models.VerifiableCredentialResource
}

// NewInMemoryStore constructs an empty in-memory credential store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{credentials: make(map[string]models.VerifiableCredentialResource)}
}

func (s *InMemoryStore) Create(_ context.Context, res models.VerifiableCredentialResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := res.ID.String()
	if _, exists := s.credentials[key]; exists {
		return pkgerrors.Wrap(
			fmt.Errorf("credential %s: %w", key, sentinel.ErrAlreadyUsed),
			pkgerrors.CodeConflict, "credential ID already exists")
	}
	s.credentials[key] = res.Copy()
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, res models.VerifiableCredentialResource, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.credentials[res.ID.String()]
	if !ok {
		return ErrNotFound
	}
	if !stored.TimeOfLastStatusUpdate.Equal(lastSeen) {
		return pkgerrors.Wrap(sentinel.ErrConflict, pkgerrors.CodeConflict,
			"credential changed since read; re-read and retry")
	}
	if stored.Status != res.Status && !stored.Status.CanTransition(res.Status) {
		return pkgerrors.New(pkgerrors.CodeStateTransition,
			"illegal status transition "+string(stored.Status)+" -> "+string(res.Status))
	}
	// Ownership is fixed at creation.
	if stored.ParticipantContextID != res.ParticipantContextID {
		return pkgerrors.New(pkgerrors.CodeInvariantViolation, "participant context of a credential is immutable")
	}
	s.credentials[res.ID.String()] = res.Copy()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, credentialID id.CredentialID) (models.VerifiableCredentialResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if res, ok := s.credentials[credentialID.String()]; ok {
		return res.Copy(), nil
	}
	return models.VerifiableCredentialResource{}, ErrNotFound
}

func (s *InMemoryStore) Query(_ context.Context, filter Filter) ([]models.VerifiableCredentialResource, error) {
	if filter.Participant.IsNil() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "query requires a participant context")
	}
	for _, p := range filter.Predicates {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.VerifiableCredentialResource{}
	for _, res := range s.credentials {
		if res.ParticipantContextID != filter.Participant {
			continue
		}
		if matchesAll(res, filter.Predicates) {
			out = append(out, res.Copy())
		}
	}
	// Stable order for reproducible responses.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) DeleteByID(_ context.Context, credentialID id.CredentialID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[credentialID.String()]; !ok {
		return ErrNotFound
	}
	delete(s.credentials, credentialID.String())
	return nil
}

func (s *InMemoryStore) DeleteByParticipant(_ context.Context, participant id.ParticipantID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, res := range s.credentials {
		if res.ParticipantContextID == participant {
			delete(s.credentials, key)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemoryStore) ListExpiring(_ context.Context, cutoff time.Time, limit int) ([]models.VerifiableCredentialResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.VerifiableCredentialResource{}
	for _, res := range s.credentials {
		if res.Status.IsTerminal() || res.ExpiresAt.IsZero() {
			continue
		}
		if !res.ExpiresAt.After(cutoff) {
			out = append(out, res.Copy())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
