package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"trivia-quiz-service/internal/domain"
)

// KVStore keeps results, history and high scores in Redis string keys:
//
//	SET trivia:{key} {json or integer text}
type KVStore struct {
	client *redis.Client
	prefix string
}

func NewKVStore(client *redis.Client) *KVStore {
	return &KVStore{client: client, prefix: "trivia:"}
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrKeyNotFound
	}
	return value, err
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
