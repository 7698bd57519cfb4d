package tenant

import (
	"context"
	"log/slog"
	"strings"

	"github.com/chatea-chevere/orderbot/internal/conversation"
	"github.com/chatea-chevere/orderbot/internal/convstore"
	"github.com/chatea-chevere/orderbot/internal/flow"
	"github.com/chatea-chevere/orderbot/internal/models"
	"github.com/chatea-chevere/orderbot/internal/orders"
)

// systemErrorNotice prefixes the welcome reply after an unrecoverable
// handler failure.
const systemErrorNotice = "❌ Ocurrió un error. Reiniciando..."

// Runtime is one tenant's assembled conversation engine: the manager with
// the flow handlers for the configured flow type registered, plus the
// catch-all error recovery around message processing.
type Runtime struct {
	cfg     *models.TenantConfig
	manager *conversation.Manager
	msgs    flow.Messages
}

// RuntimeDeps are the shared collaborators a runtime is assembled from.
type RuntimeDeps struct {
	Store   convstore.Store
	Factory *orders.Factory
	Repo    orders.Repository
	// OrderBaseURL, when set, is the public order-confirmation link base
	// embedded in final messages.
	OrderBaseURL string
}

// NewRuntime assembles the engine for one resolved tenant config.
func NewRuntime(cfg *models.TenantConfig, displayName string, deps RuntimeDeps) *Runtime {
	msgs := flow.DefaultMessages(cfg, displayName, deps.OrderBaseURL)

	initialStep := models.StepCategoryWelcome
	if cfg.FlowType == models.FlowSequential {
		initialStep = models.StepSequentialWelcome
	}
	manager := conversation.NewManager(cfg.TenantID, initialStep, cfg.TimeoutMinutes, deps.Store)

	switch cfg.FlowType {
	case models.FlowSequential:
		flow.NewSequentialHandlers(cfg, msgs).Register(manager)
	default:
		flow.NewCategoryHandlers(cfg, msgs).Register(manager)
	}
	flow.NewCartHandlers(cfg, msgs, deps.Factory, deps.Repo).Register(manager)

	return &Runtime{cfg: cfg, manager: manager, msgs: msgs}
}

// TenantID returns the tenant's id.
func (r *Runtime) TenantID() string {
	return r.cfg.TenantID
}

// Config returns the resolved config the runtime was built from.
func (r *Runtime) Config() *models.TenantConfig {
	return r.cfg
}

// HandleMessage runs one inbound message through the engine. Handler and
// store failures never escape: the conversation is dropped and the user gets
// a fresh welcome with an error notice.
func (r *Runtime) HandleMessage(ctx context.Context, phoneNumber, text string) string {
	reply, err := r.manager.ProcessMessage(ctx, phoneNumber, strings.TrimSpace(text), func() string {
		return r.msgs.Welcome("")
	})
	if err != nil {
		slog.Error("Runtime message processing failed, restarting conversation", "tenantID", r.cfg.TenantID, "error", err)
		if clearErr := r.manager.Clear(ctx, phoneNumber); clearErr != nil {
			slog.Error("Runtime failed to clear conversation", "tenantID", r.cfg.TenantID, "error", clearErr)
		}
		return r.msgs.Welcome(systemErrorNotice)
	}
	return reply
}

// HasActive reports whether the user has a live conversation with this
// tenant.
func (r *Runtime) HasActive(ctx context.Context, phoneNumber string) (bool, error) {
	return r.manager.HasActive(ctx, phoneNumber)
}

// Clear drops the user's conversation with this tenant.
func (r *Runtime) Clear(ctx context.Context, phoneNumber string) error {
	return r.manager.Clear(ctx, phoneNumber)
}
