package convstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chatea-chevere/orderbot/internal/models"
)

// DefaultKeyPrefix namespaces conversation keys in Redis.
const DefaultKeyPrefix = "convo:"

// RedisStore implements Store on a Redis backend with per-key TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int, opts ...RedisOption) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	slog.Debug("RedisStore connected", "addr", addr, "db", db)
	return NewRedisStoreFromClient(client, opts...), nil
}

// NewRedisStoreFromClient wraps an existing Redis client.
func NewRedisStoreFromClient(client *redis.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying Redis client so collaborators (the admin
// session store) can share the connection.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + key
}

// Get fetches and decodes a conversation, returning (nil, nil) on a miss.
func (s *RedisStore) Get(ctx context.Context, key string) (*models.Conversation, error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		slog.Error("RedisStore Get failed", "error", err, "key", key)
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var convo models.Conversation
	if err := json.Unmarshal(data, &convo); err != nil {
		slog.Error("RedisStore Get decode failed", "error", err, "key", key)
		return nil, fmt.Errorf("decode conversation %s: %w", key, err)
	}
	return &convo, nil
}

// Set encodes and writes a conversation with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key string, convo *models.Conversation, ttl time.Duration) error {
	data, err := json.Marshal(convo)
	if err != nil {
		return fmt.Errorf("encode conversation %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.redisKey(key), data, ttl).Err(); err != nil {
		slog.Error("RedisStore Set failed", "error", err, "key", key)
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a conversation. Deleting a missing key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		slog.Error("RedisStore Delete failed", "error", err, "key", key)
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
