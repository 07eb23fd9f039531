package wallet

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"hashpay/pkg/apperr"
)

const (
	KeyConnected = "wallet_connected"
	KeyAddress   = "wallet_address"
	KeyType      = "wallet_type"
)

// Store is the durable key/value backend of the connection state. The SQL
// preferences repository satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetMany(ctx context.Context, values map[string]string) error
}

const redisHashKey = "hashpay:wallet"

// RedisStore keeps the three wallet keys in one Redis hash so a write is a
// single HSET.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, key: redisHashKey}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.Persistence(err, "read wallet state from redis")
	}
	return value, true, nil
}

func (s *RedisStore) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(values))
	for k, v := range values {
		fields[k] = v
	}
	if err := s.client.HSet(ctx, s.key, fields).Err(); err != nil {
		return apperr.Persistence(err, "write wallet state to redis")
	}
	return nil
}
