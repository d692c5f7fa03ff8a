package secretstore

import (
	"context"
	"sync"

	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
)

// InMemoryStore keeps secrets in process memory. Suitable for tests and
// single-node development; production wiring uses the Redis store. It honors
// context expiry the same way the networked store does so callers see one
// timeout shape regardless of backend.
type InMemoryStore struct {
	mu      sync.RWMutex
	secrets map[id.SecretAlias]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{secrets: map[id.SecretAlias]string{}}
}

func (s *InMemoryStore) Get(ctx context.Context, alias id.SecretAlias) (string, error) {
	if err := ctxErr(ctx); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.secrets[alias]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *InMemoryStore) Put(ctx context.Context, alias id.SecretAlias, value string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[alias] = value
	return nil
}

func (s *InMemoryStore) Rotate(ctx context.Context, alias id.SecretAlias, value string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.secrets[alias]; !ok {
		return ErrNotFound
	}
	s.secrets[alias] = value
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, alias id.SecretAlias) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, alias)
	return nil
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return dErrors.WrapExternal(err, "secret store unavailable")
	}
	return nil
}
