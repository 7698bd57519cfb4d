package convstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chatea-chevere/orderbot/internal/models"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// InMemoryStore is a Store backed by a process-local map, used in tests.
// Values are stored serialized so callers get the same copy semantics as the
// Redis backend.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the stored conversation, honoring TTL expiry lazily.
func (s *InMemoryStore) Get(ctx context.Context, key string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, nil
	}

	var convo models.Conversation
	if err := json.Unmarshal(entry.data, &convo); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", key, err)
	}
	return &convo, nil
}

// Set stores a serialized copy of the conversation with the given TTL.
func (s *InMemoryStore) Set(ctx context.Context, key string, convo *models.Conversation, ttl time.Duration) error {
	data, err := json.Marshal(convo)
	if err != nil {
		return fmt.Errorf("encode conversation %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{data: data, expiresAt: s.now().Add(ttl)}
	return nil
}

// Delete removes a conversation.
func (s *InMemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len reports the number of live entries, for tests.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
