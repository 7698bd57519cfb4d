package convstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/chatea-chevere/orderbot/internal/models"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStoreFromClient(client), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()
	key := Key("la-pizzeria", "573001112233")

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get on empty store failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing key, got %+v", got)
	}

	convo := &models.Conversation{
		Key:              key,
		Step:             models.StepItemSelection,
		SelectedCategory: "pizzas",
		Cart:             []models.CartItem{{Name: "Gaseosa", Quantity: 1, Price: 4000, Category: "bebidas"}},
	}
	if err := store.Set(ctx, key, convo, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err = store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected conversation, got nil")
	}
	if got.Step != models.StepItemSelection || got.SelectedCategory != "pizzas" {
		t.Errorf("conversation not preserved: %+v", got)
	}
	if len(got.Cart) != 1 || got.Cart[0].Price != 4000 {
		t.Errorf("cart not preserved: %+v", got.Cart)
	}
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()
	key := Key("t", "p")

	if err := store.Set(ctx, key, &models.Conversation{Key: key}, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !mr.Exists(DefaultKeyPrefix + key) {
		t.Errorf("expected redis key %q to exist", DefaultKeyPrefix+key)
	}
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()
	key := Key("t", "p")

	if err := store.Set(ctx, key, &models.Conversation{Key: key}, 10*time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	mr.FastForward(11 * time.Minute)

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected expired conversation to be gone, got %+v", got)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()
	key := Key("t", "p")

	if err := store.Set(ctx, key, &models.Conversation{Key: key}, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}
	if err := store.Delete(ctx, "absent"); err != nil {
		t.Errorf("Delete of missing key failed: %v", err)
	}
}
