package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"idhub/internal/participant/models"
	id "idhub/pkg/domain"
	pkgerrors "idhub/pkg/domain-errors"
	"idhub/pkg/platform/sentinel"
)

// InMemoryStore is an in-memory implementation of Store for tests or local use.
type InMemoryStore struct {
	mu           sync.RWMutex
	participants map[id.ParticipantID]models.ParticipantContext
}

// NewInMemoryStore constructs an empty in-memory participant store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{participants: make(map[id.ParticipantID]models.ParticipantContext)}
}

func (s *InMemoryStore) Create(_ context.Context, p models.ParticipantContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.participants[p.ID]; exists {
		return pkgerrors.Wrap(
			fmt.Errorf("participant %s: %w", p.ID, sentinel.ErrAlreadyUsed),
			pkgerrors.CodeConflict, "participant ID already exists")
	}
	s.participants[p.ID] = p.Copy()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, participantID id.ParticipantID) (models.ParticipantContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.participants[participantID]; ok {
		return p.Copy(), nil
	}
	return models.ParticipantContext{}, ErrNotFound
}

func (s *InMemoryStore) Update(_ context.Context, p models.ParticipantContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[p.ID]; !ok {
		return ErrNotFound
	}
	s.participants[p.ID] = p.Copy()
	return nil
}

func (s *InMemoryStore) DeleteByID(_ context.Context, participantID id.ParticipantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.participants, participantID)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]models.ParticipantContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ParticipantContext, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, p.Copy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
