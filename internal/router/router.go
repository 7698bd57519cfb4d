package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/chatea-chevere/orderbot/internal/tenant"
)

// System keyword sets. Matching is lowercase substring, so "quiero reiniciar"
// restarts too.
var (
	restartKeywords = []string{"reiniciar", "reset", "empezar"}
	helpKeywords    = []string{"ayuda", "help", "opciones"}
)

// adminKeyword must match the whole trimmed message, not a substring.
const adminKeyword = "admin"

const (
	emptyInputMsg  = "Error: Datos incompletos. Intenta nuevamente."
	restartedMsg   = "✅ *Conversaciones reiniciadas*\n\n"
	systemErrorMsg = "❌ *Error del sistema*\n\nOcurrió un problema inesperado. Las conversaciones han sido reiniciadas.\n\n"
)

// Router dispatches sandbox messages across tenants. A user talks to one
// tenant at a time: an active conversation pins them to its tenant, trigger
// words open a new one, and everything else gets the sandbox menu.
type Router struct {
	resolver    *tenant.Resolver
	deps        tenant.RuntimeDeps
	admin       *AdminManager
	sandboxName string
}

// New creates a router. admin may be nil, which disables the admin command.
func New(resolver *tenant.Resolver, deps tenant.RuntimeDeps, admin *AdminManager, sandboxName string) *Router {
	return &Router{resolver: resolver, deps: deps, admin: admin, sandboxName: sandboxName}
}

// HandleMessage routes one inbound sandbox message and returns the reply.
// Failures never escape as errors: the user's conversations are dropped and
// the reply is the system-error variant of the sandbox menu.
func (r *Router) HandleMessage(ctx context.Context, phoneNumber, message string) string {
	if phoneNumber == "" || strings.TrimSpace(message) == "" {
		slog.Error("Router received empty phone number or message")
		return emptyInputMsg
	}

	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)
	slog.Debug("Router handling message", "phoneNumber", phoneNumber)

	if containsAny(lower, restartKeywords) {
		r.clearAll(ctx, phoneNumber)
		return restartedMsg + r.WelcomeMessage()
	}
	if containsAny(lower, helpKeywords) {
		return r.HelpMessage()
	}
	if lower == adminKeyword && r.admin != nil {
		reply, err := r.admin.HandleCommand(ctx, phoneNumber)
		if err != nil {
			slog.Error("Router admin command failed", "phoneNumber", phoneNumber, "error", err)
			return r.recover(ctx, phoneNumber)
		}
		return reply
	}

	if src, ok := r.activeTenant(ctx, phoneNumber); ok {
		slog.Debug("Router continuing active conversation", "tenantID", src.TenantID)
		return r.dispatch(ctx, src, phoneNumber, trimmed)
	}

	if src, ok := r.detectTenant(lower); ok {
		slog.Info("Router starting conversation", "tenantID", src.TenantID, "phoneNumber", phoneNumber)
		return r.dispatch(ctx, src, phoneNumber, trimmed)
	}

	slog.Debug("Router message unmatched, showing sandbox menu", "phoneNumber", phoneNumber)
	return r.WelcomeMessage()
}

// HandleTenantMessage runs a message directly against one tenant, bypassing
// sandbox keyword detection. Dedicated tenant numbers route here.
func (r *Router) HandleTenantMessage(ctx context.Context, tenantID, phoneNumber, message string) string {
	if phoneNumber == "" || strings.TrimSpace(message) == "" {
		slog.Error("Router received empty phone number or message", "tenantID", tenantID)
		return emptyInputMsg
	}

	src, ok := r.resolver.Source(tenantID)
	if !ok {
		slog.Error("Router unknown tenant", "tenantID", tenantID)
		return r.recover(ctx, phoneNumber)
	}
	return r.dispatch(ctx, src, phoneNumber, strings.TrimSpace(message))
}

// dispatch builds the tenant's runtime and runs the message through it.
func (r *Router) dispatch(ctx context.Context, src tenant.Source, phoneNumber, message string) string {
	rt, err := r.runtimeFor(ctx, src)
	if err != nil {
		slog.Error("Router failed to build tenant runtime", "tenantID", src.TenantID, "error", err)
		return r.recover(ctx, phoneNumber)
	}
	return rt.HandleMessage(ctx, phoneNumber, message)
}

func (r *Router) runtimeFor(ctx context.Context, src tenant.Source) (*tenant.Runtime, error) {
	cfg, err := r.resolver.Resolve(ctx, src.TenantID)
	if err != nil {
		return nil, fmt.Errorf("resolving tenant %q: %w", src.TenantID, err)
	}
	return tenant.NewRuntime(cfg, src.DisplayName, r.deps), nil
}

// activeTenant finds the tenant holding a live conversation with the user.
// Tenants are checked in parallel; ties resolve in registration order.
func (r *Router) activeTenant(ctx context.Context, phoneNumber string) (tenant.Source, bool) {
	sources := r.resolver.Sources()
	active := make([]bool, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src tenant.Source) {
			defer wg.Done()
			rt, err := r.runtimeFor(ctx, src)
			if err != nil {
				slog.Error("Router active check skipped tenant", "tenantID", src.TenantID, "error", err)
				return
			}
			has, err := rt.HasActive(ctx, phoneNumber)
			if err != nil {
				slog.Error("Router active check failed", "tenantID", src.TenantID, "error", err)
				return
			}
			active[i] = has
		}(i, src)
	}
	wg.Wait()

	for i, has := range active {
		if has {
			return sources[i], true
		}
	}
	return tenant.Source{}, false
}

// detectTenant matches the message against each tenant's trigger words.
func (r *Router) detectTenant(lowerMessage string) (tenant.Source, bool) {
	for _, src := range r.resolver.Sources() {
		if containsAny(lowerMessage, src.TriggerWords) {
			return src, true
		}
	}
	return tenant.Source{}, false
}

// clearAll drops the user's conversations with every tenant.
func (r *Router) clearAll(ctx context.Context, phoneNumber string) {
	var wg sync.WaitGroup
	for _, src := range r.resolver.Sources() {
		wg.Add(1)
		go func(src tenant.Source) {
			defer wg.Done()
			rt, err := r.runtimeFor(ctx, src)
			if err != nil {
				slog.Error("Router clear skipped tenant", "tenantID", src.TenantID, "error", err)
				return
			}
			if err := rt.Clear(ctx, phoneNumber); err != nil {
				slog.Error("Router failed to clear conversation", "tenantID", src.TenantID, "error", err)
			}
		}(src)
	}
	wg.Wait()
	slog.Info("Router cleared conversations", "phoneNumber", phoneNumber)
}

// recover is the catch-all path: wipe the user's conversations and answer
// with the system-error menu.
func (r *Router) recover(ctx context.Context, phoneNumber string) string {
	r.clearAll(ctx, phoneNumber)
	return systemErrorMsg + r.WelcomeMessage()
}

// WelcomeMessage is the sandbox menu listing each tenant's trigger word.
func (r *Router) WelcomeMessage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "🤖 *Bienvenido a %s* 👋🏼\n\n", r.sandboxName)
	b.WriteString("Puedes iniciar diferentes flujos de conversación con estas palabras:\n\n")
	for _, src := range r.resolver.Sources() {
		if len(src.TriggerWords) == 0 {
			continue
		}
		fmt.Fprintf(&b, "▪️ *\"%s\"* - %s\n", src.TriggerWords[0], src.DisplayName)
	}
	b.WriteString("\n💡 *Comandos especiales:*\n")
	b.WriteString("   • \"reiniciar\" - Reinicia todas las conversaciones\n")
	b.WriteString("   • \"ayuda\" - Muestra este menú\n\n")
	b.WriteString("*Responde con una de las palabras para comenzar* ⬇️")
	return b.String()
}

// HelpMessage answers the help keywords.
func (r *Router) HelpMessage() string {
	var b strings.Builder
	b.WriteString("ℹ️ *Ayuda - Opciones Disponibles*\n\n")
	b.WriteString("🎯 *Para iniciar un flujo:*\n")
	for _, src := range r.resolver.Sources() {
		if len(src.TriggerWords) == 0 {
			continue
		}
		fmt.Fprintf(&b, "   • Escribe \"%s\" para %s\n", src.TriggerWords[0], src.DisplayName)
	}
	b.WriteString("\n🔄 *Para reiniciar:*\n")
	b.WriteString("   • Escribe \"reiniciar\" para limpiar conversaciones\n\n")
	b.WriteString("❓ *Para ver ayuda:*\n")
	b.WriteString("   • Escribe \"ayuda\" para mostrar este menú\n\n")
	b.WriteString("*¿Con qué flujo quieres comenzar?*")
	return b.String()
}

func containsAny(lowerMessage string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lowerMessage, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
