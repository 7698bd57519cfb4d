package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chatea-chevere/orderbot/internal/convstore"
	"github.com/chatea-chevere/orderbot/internal/models"
)

const testWelcome = "¡Hola! Bienvenido."

func welcomeFn() string { return testWelcome }

func newTestManager(t *testing.T) (*Manager, *convstore.InMemoryStore) {
	t.Helper()
	store := convstore.NewInMemoryStore()
	return NewManager("la-pizzeria", models.StepCategoryWelcome, 15, store), store
}

func TestGetOrCreateStartsAtInitialStep(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	convo, err := m.GetOrCreate(ctx, "573001112233", models.StepCategoryWelcome)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if convo.Step != models.StepCategoryWelcome {
		t.Errorf("step = %s, want %s", convo.Step, models.StepCategoryWelcome)
	}
	if convo.Key != "la-pizzeria-573001112233" {
		t.Errorf("key = %s", convo.Key)
	}
	if convo.Cart == nil || len(convo.Cart) != 0 {
		t.Errorf("fresh conversation should have an empty cart, got %+v", convo.Cart)
	}
	if convo.LastInteraction == 0 {
		t.Error("fresh conversation should be stamped")
	}
}

func TestProcessMessageDispatchesToStepHandler(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	var gotMessage string
	m.RegisterHandler(models.StepCategoryWelcome, func(ctx context.Context, sc StepContext) (string, error) {
		gotMessage = sc.Message
		return "reply", nil
	})

	reply, err := m.ProcessMessage(ctx, "573001112233", "hola", welcomeFn)
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if reply != "reply" {
		t.Errorf("reply = %q", reply)
	}
	if gotMessage != "hola" {
		t.Errorf("handler got message %q", gotMessage)
	}
}

func TestProcessMessageUnknownStepRestarts(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	// Persist a conversation in a step no handler is registered for.
	key := m.Key("573001112233")
	convo := &models.Conversation{Key: key, Step: models.ConversationStep("bogus_step")}
	convo.Touch(time.Now())
	if err := store.Set(ctx, key, convo, time.Hour); err != nil {
		t.Fatalf("seed Set failed: %v", err)
	}

	reply, err := m.ProcessMessage(ctx, "573001112233", "1", welcomeFn)
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if reply != testWelcome {
		t.Errorf("expected welcome reply, got %q", reply)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("conversation should be cleared after unknown step, got %+v", got)
	}
}

func TestHasActiveExpiresIdleConversation(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	key := m.Key("573001112233")
	convo := &models.Conversation{Key: key, Step: models.StepCartActions}
	convo.LastInteraction = time.Now().Add(-16 * time.Minute).UnixMilli()
	if err := store.Set(ctx, key, convo, time.Hour); err != nil {
		t.Fatalf("seed Set failed: %v", err)
	}

	active, err := m.HasActive(ctx, "573001112233")
	if err != nil {
		t.Fatalf("HasActive failed: %v", err)
	}
	if active {
		t.Error("idle conversation should be inactive")
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("idle conversation should be deleted, got %+v", got)
	}
}

func TestHasActiveFreshConversation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	active, err := m.HasActive(ctx, "573001112233")
	if err != nil {
		t.Fatalf("HasActive failed: %v", err)
	}
	if active {
		t.Error("missing conversation should be inactive")
	}

	if _, err := m.GetOrCreate(ctx, "573001112233", models.StepCategoryWelcome); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	active, err = m.HasActive(ctx, "573001112233")
	if err != nil {
		t.Fatalf("HasActive failed: %v", err)
	}
	if !active {
		t.Error("fresh conversation should be active")
	}
}

func TestUpdateRequiresExistingConversation(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	called := false
	if err := m.Update(ctx, "573001112233", func(c *models.Conversation) { called = true }); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if called {
		t.Error("mutate should not run when no conversation exists")
	}

	if _, err := m.GetOrCreate(ctx, "573001112233", models.StepCategoryWelcome); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if err := m.Update(ctx, "573001112233", func(c *models.Conversation) {
		c.Step = models.StepItemSelection
		c.SelectedCategory = "pizzas"
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.Get(ctx, m.Key("573001112233"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Step != models.StepItemSelection || got.SelectedCategory != "pizzas" {
		t.Errorf("update not persisted: %+v", got)
	}
}

func TestClear(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	if _, err := m.GetOrCreate(ctx, "573001112233", models.StepCategoryWelcome); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if err := m.Clear(ctx, "573001112233"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	got, err := store.Get(ctx, m.Key("573001112233"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("conversation should be gone, got %+v", got)
	}
}

// failingStore returns an error from every operation.
type failingStore struct{ err error }

func (f failingStore) Get(ctx context.Context, key string) (*models.Conversation, error) {
	return nil, f.err
}
func (f failingStore) Set(ctx context.Context, key string, convo *models.Conversation, ttl time.Duration) error {
	return f.err
}
func (f failingStore) Delete(ctx context.Context, key string) error { return f.err }

func TestProcessMessagePropagatesStoreErrors(t *testing.T) {
	storeErr := errors.New("backend down")
	m := NewManager("t", models.StepCategoryWelcome, 15, failingStore{err: storeErr})

	_, err := m.ProcessMessage(context.Background(), "573001112233", "hola", welcomeFn)
	if !errors.Is(err, storeErr) {
		t.Errorf("expected store error to propagate, got %v", err)
	}
}
