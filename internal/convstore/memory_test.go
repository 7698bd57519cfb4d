package convstore

import (
	"context"
	"testing"
	"time"

	"github.com/chatea-chevere/orderbot/internal/models"
)

func TestInMemoryStoreRoundTrip(t *testing.T) {
	store := NewInMemoryStore()
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
		Key:  key,
		Step: models.StepCategorySelection,
		Cart: []models.CartItem{{Name: "Limonada", Quantity: 2, Price: 5000, Category: "bebidas"}},
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
	if got.Step != models.StepCategorySelection {
		t.Errorf("step = %s, want %s", got.Step, models.StepCategorySelection)
	}
	if len(got.Cart) != 1 || got.Cart[0].Name != "Limonada" {
		t.Errorf("cart not preserved: %+v", got.Cart)
	}
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	key := Key("t", "p")

	convo := &models.Conversation{Key: key, Step: models.StepCategoryWelcome}
	if err := store.Set(ctx, key, convo, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	first, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	first.Step = models.StepCheckout

	second, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if second.Step != models.StepCategoryWelcome {
		t.Errorf("mutation of one copy leaked into the store: step = %s", second.Step)
	}
}

func TestInMemoryStoreTTLExpiry(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	key := Key("t", "p")

	current := time.Now()
	store.now = func() time.Time { return current }

	convo := &models.Conversation{Key: key, Step: models.StepCartActions}
	if err := store.Set(ctx, key, convo, 10*time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	current = current.Add(11 * time.Minute)
	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected expired entry to be gone, got %+v", got)
	}
	if store.Len() != 0 {
		t.Errorf("expired entry should be evicted, Len = %d", store.Len())
	}
}

func TestInMemoryStoreDelete(t *testing.T) {
	store := NewInMemoryStore()
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

	// Deleting a missing key is not an error.
	if err := store.Delete(ctx, "absent"); err != nil {
		t.Errorf("Delete of missing key failed: %v", err)
	}
}

func TestKey(t *testing.T) {
	if got := Key("la-pizzeria", "573001112233"); got != "la-pizzeria-573001112233" {
		t.Errorf("Key = %q", got)
	}
}
