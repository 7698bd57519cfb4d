package tenant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestResolveFromFallback(t *testing.T) {
	src := testSource("la-pizzeria")
	src.Fallback = []byte(rawCategoryConfig)
	r := NewResolver([]Source{src})

	cfg, err := r.Resolve(context.Background(), "la-pizzeria")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.TenantID != "la-pizzeria" || len(cfg.Categories) != 3 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestResolveUnknownTenant(t *testing.T) {
	r := NewResolver(nil)
	if _, err := r.Resolve(context.Background(), "nope"); !errors.Is(err, ErrUnknownTenant) {
		t.Errorf("expected ErrUnknownTenant, got %v", err)
	}
}

func TestResolveFetchesRemote(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(rawSequentialConfig))
	}))
	defer ts.Close()

	src := testSource("almuerzos")
	src.FetchURL = ts.URL
	r := NewResolver([]Source{src})

	cfg, err := r.Resolve(context.Background(), "almuerzos")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(cfg.Steps) != 2 {
		t.Errorf("expected remote sequential config, got %+v", cfg)
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 fetch, got %d", hits.Load())
	}

	// Second resolve inside the TTL is served from cache.
	if _, err := r.Resolve(context.Background(), "almuerzos"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected cached resolve, fetches = %d", hits.Load())
	}
}

func TestResolveFallsBackOnFetchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	src := testSource("la-pizzeria")
	src.FetchURL = ts.URL
	src.Fallback = []byte(rawCategoryConfig)
	r := NewResolver([]Source{src})

	cfg, err := r.Resolve(context.Background(), "la-pizzeria")
	if err != nil {
		t.Fatalf("Resolve should degrade to fallback: %v", err)
	}
	if len(cfg.Categories) != 3 {
		t.Errorf("expected fallback config, got %+v", cfg)
	}
}

func TestResolveNoFallbackErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	src := testSource("t")
	src.FetchURL = ts.URL
	r := NewResolver([]Source{src})

	if _, err := r.Resolve(context.Background(), "t"); !errors.Is(err, ErrNoFallbackConfig) {
		t.Errorf("expected ErrNoFallbackConfig, got %v", err)
	}
}

func TestResolveServesStaleOnLoadFailure(t *testing.T) {
	healthy := atomic.Bool{}
	healthy.Store(true)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(rawCategoryConfig))
	}))
	defer ts.Close()

	src := testSource("la-pizzeria")
	src.FetchURL = ts.URL
	r := NewResolver([]Source{src}, WithCacheTTL(time.Minute))

	current := time.Now()
	r.now = func() time.Time { return current }

	if _, err := r.Resolve(context.Background(), "la-pizzeria"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// TTL lapses and the source goes down: the stale config is served.
	healthy.Store(false)
	current = current.Add(2 * time.Minute)

	cfg, err := r.Resolve(context.Background(), "la-pizzeria")
	if err != nil {
		t.Fatalf("Resolve should serve stale config: %v", err)
	}
	if len(cfg.Categories) != 3 {
		t.Errorf("unexpected stale config: %+v", cfg)
	}
}

func TestInvalidateCacheForcesReload(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(rawCategoryConfig))
	}))
	defer ts.Close()

	src := testSource("la-pizzeria")
	src.FetchURL = ts.URL
	r := NewResolver([]Source{src})

	if _, err := r.Resolve(context.Background(), "la-pizzeria"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	r.InvalidateCache("la-pizzeria")
	if _, err := r.Resolve(context.Background(), "la-pizzeria"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("expected reload after invalidation, fetches = %d", hits.Load())
	}
}

func TestSourcesKeepRegistrationOrder(t *testing.T) {
	r := NewResolver([]Source{testSource("c"), testSource("a"), testSource("b")})
	got := r.Sources()
	if len(got) != 3 || got[0].TenantID != "c" || got[1].TenantID != "a" || got[2].TenantID != "b" {
		t.Errorf("registration order lost: %+v", got)
	}
}

func TestSourceByPhoneNumberID(t *testing.T) {
	src := testSource("la-pizzeria")
	src.PhoneNumberID = "phone-123"
	r := NewResolver([]Source{src})

	got, ok := r.SourceByPhoneNumberID("phone-123")
	if !ok || got.TenantID != "la-pizzeria" {
		t.Errorf("SourceByPhoneNumberID = %+v, %v", got, ok)
	}
	if _, ok := r.SourceByPhoneNumberID("phone-999"); ok {
		t.Error("unregistered phone number id should not match")
	}
}
