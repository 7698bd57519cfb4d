package tenant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/chatea-chevere/orderbot/internal/models"
)

// DefaultCacheTTL is how long a resolved config is served before the source
// is consulted again.
const DefaultCacheTTL = 5 * time.Minute

// maxConfigBytes caps a fetched config document.
const maxConfigBytes = 1 << 20

// ErrUnknownTenant is returned when no source is registered for a tenant id.
var ErrUnknownTenant = errors.New("unknown tenant")

// Source is the static setup for one tenant: where its menu config lives and
// the operational fields the raw config document does not carry.
type Source struct {
	TenantID    string
	DisplayName string
	// FetchURL, when set, is polled for the raw Spanish config document.
	// Fallback is used when FetchURL is empty or the fetch fails.
	FetchURL string
	Fallback []byte
	// PhoneNumberID identifies the tenant on inbound webhook payloads.
	PhoneNumberID  string
	TimeoutMinutes int
	TriggerWords   []string
	AdminPhones    []string
}

type cachedConfig struct {
	cfg      *models.TenantConfig
	cachedAt time.Time
}

// Resolver maps tenant ids to validated configs. Remote configs are fetched
// lazily, fall back to the embedded per-tenant data on any failure, and are
// cached for the TTL. Safe for concurrent use.
type Resolver struct {
	sources  map[string]Source
	order    []string
	client   *http.Client
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]cachedConfig

	now func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithHTTPClient sets the client used for config fetches.
func WithHTTPClient(client *http.Client) ResolverOption {
	return func(r *Resolver) { r.client = client }
}

// WithCacheTTL overrides the config cache TTL.
func WithCacheTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) { r.cacheTTL = ttl }
}

// NewResolver creates a resolver over the given tenant sources.
func NewResolver(sources []Source, opts ...ResolverOption) *Resolver {
	byID := make(map[string]Source, len(sources))
	order := make([]string, 0, len(sources))
	for _, src := range sources {
		if _, dup := byID[src.TenantID]; !dup {
			order = append(order, src.TenantID)
		}
		byID[src.TenantID] = src
	}
	r := &Resolver{
		sources:  byID,
		order:    order,
		client:   &http.Client{Timeout: 10 * time.Second},
		cacheTTL: DefaultCacheTTL,
		cache:    make(map[string]cachedConfig),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sources returns the registered tenant setups in registration order, which
// is also the precedence order for active-conversation and trigger-word
// resolution.
func (r *Resolver) Sources() []Source {
	out := make([]Source, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sources[id])
	}
	return out
}

// Source returns the setup for a tenant id.
func (r *Resolver) Source(tenantID string) (Source, bool) {
	src, ok := r.sources[tenantID]
	return src, ok
}

// SourceByPhoneNumberID returns the tenant setup owning a webhook
// phone-number id.
func (r *Resolver) SourceByPhoneNumberID(phoneNumberID string) (Source, bool) {
	for _, src := range r.sources {
		if src.PhoneNumberID == phoneNumberID {
			return src, true
		}
	}
	return Source{}, false
}

// Resolve returns the validated config for a tenant, from cache when fresh.
// A failing remote fetch degrades to the fallback data; only an unusable
// fallback is an error.
func (r *Resolver) Resolve(ctx context.Context, tenantID string) (*models.TenantConfig, error) {
	src, ok := r.sources[tenantID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTenant, tenantID)
	}

	r.mu.RLock()
	cached, hit := r.cache[tenantID]
	r.mu.RUnlock()
	if hit && r.now().Sub(cached.cachedAt) < r.cacheTTL {
		slog.Debug("Resolver cache hit", "tenantID", tenantID)
		return cached.cfg, nil
	}

	cfg, err := r.load(ctx, src)
	if err != nil {
		// A stale cached config beats failing the message.
		if hit {
			slog.Error("Resolver load failed, serving stale config", "tenantID", tenantID, "error", err)
			return cached.cfg, nil
		}
		return nil, err
	}

	r.mu.Lock()
	r.cache[tenantID] = cachedConfig{cfg: cfg, cachedAt: r.now()}
	r.mu.Unlock()
	return cfg, nil
}

func (r *Resolver) load(ctx context.Context, src Source) (*models.TenantConfig, error) {
	if src.FetchURL != "" {
		cfg, err := r.fetchRemote(ctx, src)
		if err == nil {
			slog.Info("Resolver loaded remote config", "tenantID", src.TenantID, "flowType", cfg.FlowType)
			return cfg, nil
		}
		slog.Warn("Resolver remote config unusable, using fallback", "tenantID", src.TenantID, "error", err)
	}

	if len(src.Fallback) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoFallbackConfig, src.TenantID)
	}
	raw, err := ParseSpanishConfig(src.Fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback config for %q: %w", src.TenantID, err)
	}
	return MapSpanishConfig(raw, src)
}

func (r *Resolver) fetchRemote(ctx context.Context, src Source) (*models.TenantConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.FetchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building config request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching config: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxConfigBytes))
	if err != nil {
		return nil, fmt.Errorf("reading config body: %w", err)
	}

	raw, err := ParseSpanishConfig(body)
	if err != nil {
		return nil, err
	}
	return MapSpanishConfig(raw, src)
}

// InvalidateCache drops a tenant's cached config so the next Resolve reloads.
func (r *Resolver) InvalidateCache(tenantID string) {
	r.mu.Lock()
	delete(r.cache, tenantID)
	r.mu.Unlock()
}
