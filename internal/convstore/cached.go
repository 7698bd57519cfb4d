package convstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chatea-chevere/orderbot/internal/models"
)

// DefaultLocalTTL bounds local-tier entries when no tenant-specific TTL is
// available at construction. Matches the default conversation timeout.
const DefaultLocalTTL = 15 * time.Minute

type cacheEntry struct {
	convo     *models.Conversation
	expiresAt time.Time
}

// CachedStore layers a fast in-process cache over a durable Store. Reads
// consult the local tier first and repopulate it from the durable tier on a
// miss; writes go through both tiers with the same TTL. Set stamps
// LastInteraction as a side effect, so callers must not assume the
// conversation they pass in is unmodified afterward.
//
// One instance is constructed per process at startup and never torn down
// mid-process; Clear exists for tests.
type CachedStore struct {
	durable  Store
	localTTL time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCachedStore wraps durable with a local cache tier whose entries expire
// after localTTL (normally the tenant's conversation timeout).
func NewCachedStore(durable Store, localTTL time.Duration) *CachedStore {
	return &CachedStore{
		durable:  durable,
		localTTL: localTTL,
		entries:  make(map[string]cacheEntry),
		now:      time.Now,
	}
}

// Get returns the conversation from the local tier when fresh, otherwise
// reads through to the durable tier and repopulates the local cache on a hit.
// Durable-tier errors propagate uncaught.
func (s *CachedStore) Get(ctx context.Context, key string) (*models.Conversation, error) {
	s.mu.Lock()
	entry, ok := s.entries[key]
	if ok && s.now().Before(entry.expiresAt) {
		s.mu.Unlock()
		slog.Debug("CachedStore local hit", "key", key)
		return entry.convo, nil
	}
	if ok {
		delete(s.entries, key)
	}
	s.mu.Unlock()

	convo, err := s.durable.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if convo != nil {
		slog.Debug("CachedStore durable hit, caching locally", "key", key)
		s.mu.Lock()
		s.entries[key] = cacheEntry{convo: convo, expiresAt: s.now().Add(s.localTTL)}
		s.mu.Unlock()
	}
	return convo, nil
}

// Set stamps LastInteraction and writes through both tiers with the same TTL.
func (s *CachedStore) Set(ctx context.Context, key string, convo *models.Conversation, ttl time.Duration) error {
	convo.Touch(s.now())

	if err := s.durable.Set(ctx, key, convo, ttl); err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[key] = cacheEntry{convo: convo, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Delete removes the conversation from both tiers.
func (s *CachedStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return s.durable.Delete(ctx, key)
}

// Clear empties the local tier. Test use only.
func (s *CachedStore) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]cacheEntry)
	s.mu.Unlock()
}
