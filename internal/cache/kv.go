// internal/cache/kv.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss means the key is not stored.
var ErrCacheMiss = errors.New("cache miss")

// KVStore is the persistent backing of the resolution cache. A zero ttl
// stores the value without expiry.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RedisKVStore keeps resolution entries in Redis under a namespace, so one
// Redis can serve several deployments.
type RedisKVStore struct {
	client    *redis.Client
	namespace string
}

func NewRedisKVStore(client *redis.Client, namespace string) *RedisKVStore {
	return &RedisKVStore{client: client, namespace: namespace}
}

func (r *RedisKVStore) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", ErrCacheMiss
	case err != nil:
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Timeout bounds dialing and each command; zero keeps the client defaults.
	Timeout time.Duration
}

// NewRedisClient opens a client and pings it so a bad address fails at startup.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
