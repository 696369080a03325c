package redis

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"

	"voicecoder/internal/domain/ports/repository"
)

var _ repository.KeyValueStore = (*KVStore)(nil)

// KVStore persists ledger snapshots, selections and secrets as plain Redis
// strings without expiry.
type KVStore struct {
	client RedisClient
}

func NewKVStore(client RedisClient) *KVStore {
	return &KVStore{client: client}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0)
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key)
}
