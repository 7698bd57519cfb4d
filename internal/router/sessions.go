// Package router is the shared sandbox entry point: it maps an inbound
// message to the tenant that should handle it (active conversation first,
// trigger words second), and owns the system commands (restart, help, admin
// dashboard links) that work across tenants.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSessionKeyPrefix namespaces admin session keys in Redis.
const DefaultSessionKeyPrefix = "admin_session:"

// AdminSession is a tokenized grant of dashboard access for one tenant.
type AdminSession struct {
	Token       string    `json:"token"`
	PhoneNumber string    `json:"phone_number"`
	TenantID    string    `json:"tenant_id"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SessionStore persists admin sessions with a TTL. Get returns nil when the
// token is unknown or expired.
type SessionStore interface {
	Create(ctx context.Context, session AdminSession, ttl time.Duration) error
	Get(ctx context.Context, token string) (*AdminSession, error)
}

// RedisSessionStore keeps admin sessions in Redis, expiry delegated to the
// key TTL.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore creates a session store over an existing client.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: DefaultSessionKeyPrefix}
}

func (s *RedisSessionStore) key(token string) string {
	return s.prefix + token
}

// Create stores the session under its token.
func (s *RedisSessionStore) Create(ctx context.Context, session AdminSession, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding admin session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("storing admin session: %w", err)
	}
	return nil
}

// Get fetches the session for a token.
func (s *RedisSessionStore) Get(ctx context.Context, token string) (*AdminSession, error) {
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching admin session: %w", err)
	}
	var session AdminSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decoding admin session: %w", err)
	}
	return &session, nil
}

// InMemorySessionStore is a SessionStore for tests and single-process runs.
type InMemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]inMemorySession
	now      func() time.Time
}

type inMemorySession struct {
	session   AdminSession
	expiresAt time.Time
}

// NewInMemorySessionStore creates an empty in-memory session store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]inMemorySession), now: time.Now}
}

// Create stores the session under its token.
func (s *InMemorySessionStore) Create(_ context.Context, session AdminSession, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = inMemorySession{session: session, expiresAt: s.now().Add(ttl)}
	return nil
}

// Get fetches the session for a token, dropping it when expired.
func (s *InMemorySessionStore) Get(_ context.Context, token string) (*AdminSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[token]
	if !ok {
		return nil, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.sessions, token)
		return nil, nil
	}
	session := entry.session
	return &session, nil
}
