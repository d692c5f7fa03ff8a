package secretstore

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"idhub/internal/platform/redis"
	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
)

const keyPrefix = "idhub:secret:"

// RedisStore persists secrets in Redis so every service replica sees the same
// aliases. Values are stored without TTL; lifecycle is explicit via Delete.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, alias id.SecretAlias) (string, error) {
	value, err := s.client.Get(ctx, keyPrefix+alias.String()).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", dErrors.WrapExternal(err, "reading secret")
	}
	return value, nil
}

func (s *RedisStore) Put(ctx context.Context, alias id.SecretAlias, value string) error {
	if err := s.client.Set(ctx, keyPrefix+alias.String(), value, 0).Err(); err != nil {
		return dErrors.WrapExternal(err, "storing secret")
	}
	return nil
}

func (s *RedisStore) Rotate(ctx context.Context, alias id.SecretAlias, value string) error {
	// SET XX only succeeds when the key already exists, which keeps rotation
	// from resurrecting deleted aliases.
	ok, err := s.client.SetXX(ctx, keyPrefix+alias.String(), value, 0).Result()
	if err != nil {
		return dErrors.WrapExternal(err, "rotating secret")
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, alias id.SecretAlias) error {
	if err := s.client.Del(ctx, keyPrefix+alias.String()).Err(); err != nil {
		return dErrors.WrapExternal(err, "deleting secret")
	}
	return nil
}
