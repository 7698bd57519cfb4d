// Package convstore provides storage backends for conversation state.
//
// Conversations are keyed by "{tenantID}-{phoneNumber}" and carry a TTL
// derived from the tenant's idle timeout. A fast in-process cache tier
// (CachedStore) layers over a durable tier (RedisStore); the in-memory
// backend exists for tests.
package convstore

import (
	"context"
	"time"

	"github.com/chatea-chevere/orderbot/internal/models"
)

// Store is the conversation persistence contract. Get returns (nil, nil)
// when no conversation exists for the key. Backend errors propagate to the
// caller uncaught: fabricating a fresh conversation on a failed read would
// silently lose a user's cart.
type Store interface {
	Get(ctx context.Context, key string) (*models.Conversation, error)
	Set(ctx context.Context, key string, convo *models.Conversation, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key builds the store key for a tenant/phone pair.
func Key(tenantID, phoneNumber string) string {
	return tenantID + "-" + phoneNumber
}
