package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chatea-chevere/orderbot/internal/tenant"
	"github.com/chatea-chevere/orderbot/internal/util"
)

// SessionTTL is how long an issued dashboard link stays valid.
const SessionTTL = 24 * time.Hour

const (
	adminAccessHeader = "🔐 *Acceso Autorizado*\nHaz clic en el enlace para acceder al panel de administración:\n\n"
	adminDeniedMsg    = "❌ No tienes permisos de administrador. Contáctanos directamente si crees que esto es un error."
	adminExpiryNote   = "\n⚠️ Por seguridad, todo enlace expira en 24 horas"
)

// AdminManager issues tokenized dashboard links to phone numbers listed as
// admins of one or more tenants.
type AdminManager struct {
	resolver *tenant.Resolver
	sessions SessionStore
	baseURL  string
	now      func() time.Time
}

// NewAdminManager creates an admin manager. baseURL is the dashboard origin
// links are built on.
func NewAdminManager(resolver *tenant.Resolver, sessions SessionStore, baseURL string) *AdminManager {
	return &AdminManager{
		resolver: resolver,
		sessions: sessions,
		baseURL:  strings.TrimRight(baseURL, "/"),
		now:      time.Now,
	}
}

// HandleCommand answers the admin keyword: one direct link when the caller
// administers a single tenant, a link per tenant otherwise, and a denial when
// they administer none.
func (m *AdminManager) HandleCommand(ctx context.Context, phoneNumber string) (string, error) {
	allowed := m.allowedTenants(phoneNumber)
	if len(allowed) == 0 {
		slog.Info("AdminManager denied dashboard access", "phoneNumber", phoneNumber)
		return adminDeniedMsg, nil
	}

	var b strings.Builder
	b.WriteString(adminAccessHeader)

	if len(allowed) == 1 {
		token, err := m.createSession(ctx, phoneNumber, allowed[0])
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%s\n", m.dashboardLink(allowed[0], token))
		return b.String(), nil
	}

	for _, tenantID := range allowed {
		token, err := m.createSession(ctx, phoneNumber, tenantID)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "• *%s*: %s\n", strings.ToUpper(tenantID), m.dashboardLink(tenantID, token))
	}
	b.WriteString(adminExpiryNote)
	return b.String(), nil
}

// ValidateToken reports whether a token grants access to the tenant's
// dashboard.
func (m *AdminManager) ValidateToken(ctx context.Context, token, tenantID string) (bool, error) {
	if token == "" {
		return false, nil
	}
	session, err := m.sessions.Get(ctx, token)
	if err != nil {
		return false, err
	}
	if session == nil || session.TenantID != tenantID {
		return false, nil
	}
	return m.now().Before(session.ExpiresAt), nil
}

func (m *AdminManager) allowedTenants(phoneNumber string) []string {
	var allowed []string
	for _, src := range m.resolver.Sources() {
		for _, admin := range src.AdminPhones {
			if admin == phoneNumber {
				allowed = append(allowed, src.TenantID)
				break
			}
		}
	}
	return allowed
}

func (m *AdminManager) createSession(ctx context.Context, phoneNumber, tenantID string) (string, error) {
	now := m.now()
	session := AdminSession{
		Token:       util.GenerateSessionToken(),
		PhoneNumber: phoneNumber,
		TenantID:    tenantID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(SessionTTL),
	}
	if err := m.sessions.Create(ctx, session, SessionTTL); err != nil {
		return "", fmt.Errorf("creating admin session: %w", err)
	}
	slog.Info("AdminManager issued dashboard link", "tenantID", tenantID, "phoneNumber", phoneNumber)
	return session.Token, nil
}

func (m *AdminManager) dashboardLink(tenantID, token string) string {
	return fmt.Sprintf("%s/admin/%s?token=%s", m.baseURL, tenantID, token)
}
