// Package conversation implements the per-user conversation state machine
// dispatcher. A Manager owns the step-handler registry for one tenant,
// enforces idle-timeout expiry and routes each incoming message to the
// handler registered for the conversation's current step.
package conversation

import (
	"context"
	"log/slog"
	"time"

	"github.com/chatea-chevere/orderbot/internal/convstore"
	"github.com/chatea-chevere/orderbot/internal/models"
)

// StepContext carries one inbound message into a step handler.
type StepContext struct {
	PhoneNumber  string
	Message      string
	Conversation *models.Conversation
}

// StepHandler processes a message for one conversation step and returns the
// reply text. User-input errors are handled inside the reply; a returned
// error means the step could not run at all (store failure or flow-integrity
// breach) and is recovered by the tenant runtime.
type StepHandler func(ctx context.Context, sc StepContext) (string, error)

// Manager is the FSM dispatcher for one tenant's conversations.
type Manager struct {
	tenantID    string
	initialStep models.ConversationStep
	timeout     time.Duration
	store       convstore.Store
	handlers    map[models.ConversationStep]StepHandler
	now         func() time.Time
}

// NewManager creates a Manager for a tenant. initialStep is the step a fresh
// conversation starts in; timeout is the idle expiry window, which also
// becomes the store TTL.
func NewManager(tenantID string, initialStep models.ConversationStep, timeoutMinutes int, store convstore.Store) *Manager {
	slog.Debug("Creating conversation Manager", "tenantID", tenantID, "initialStep", initialStep, "timeoutMinutes", timeoutMinutes)
	return &Manager{
		tenantID:    tenantID,
		initialStep: initialStep,
		timeout:     time.Duration(timeoutMinutes) * time.Minute,
		store:       store,
		handlers:    make(map[models.ConversationStep]StepHandler),
		now:         time.Now,
	}
}

// RegisterHandler registers the handler for a step. One handler per step;
// flows register only the steps they use.
func (m *Manager) RegisterHandler(step models.ConversationStep, handler StepHandler) {
	m.handlers[step] = handler
}

// Key returns the store key for a phone number.
func (m *Manager) Key(phoneNumber string) string {
	return convstore.Key(m.tenantID, phoneNumber)
}

// TenantID returns the owning tenant's id.
func (m *Manager) TenantID() string {
	return m.tenantID
}

// GetOrCreate fetches the conversation, creating and persisting a fresh one
// at initialStep when absent. The conversation is always re-persisted so the
// idle window restarts with each inbound message.
func (m *Manager) GetOrCreate(ctx context.Context, phoneNumber string, initialStep models.ConversationStep) (*models.Conversation, error) {
	key := m.Key(phoneNumber)
	convo, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if convo == nil {
		convo = &models.Conversation{
			Key:  key,
			Step: initialStep,
			Cart: []models.CartItem{},
		}
		convo.Touch(m.now())
		slog.Info("Manager creating conversation", "key", key, "step", initialStep)
	} else {
		slog.Debug("Manager refreshing conversation", "key", key, "step", convo.Step)
	}

	if err := m.store.Set(ctx, key, convo, m.timeout); err != nil {
		return nil, err
	}
	return convo, nil
}

// Update applies mutate to the existing conversation and re-persists it.
// No-op when no conversation exists: the update target must already exist,
// Update never creates one.
func (m *Manager) Update(ctx context.Context, phoneNumber string, mutate func(*models.Conversation)) error {
	key := m.Key(phoneNumber)
	convo, err := m.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if convo == nil {
		slog.Debug("Manager Update skipped, no conversation", "key", key)
		return nil
	}

	mutate(convo)
	slog.Debug("Manager updated conversation", "key", key, "step", convo.Step)
	return m.store.Set(ctx, key, convo, m.timeout)
}

// HasActive reports whether a live conversation exists. An idle-expired
// conversation is deleted as a side effect and reported inactive.
func (m *Manager) HasActive(ctx context.Context, phoneNumber string) (bool, error) {
	convo, err := m.store.Get(ctx, m.Key(phoneNumber))
	if err != nil {
		return false, err
	}
	if convo == nil {
		return false, nil
	}

	if convo.Expired(m.now(), m.timeout) {
		slog.Info("Manager expiring idle conversation", "key", convo.Key)
		if err := m.Clear(ctx, phoneNumber); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// Clear unconditionally deletes the conversation from the store.
func (m *Manager) Clear(ctx context.Context, phoneNumber string) error {
	slog.Debug("Manager clearing conversation", "key", m.Key(phoneNumber))
	return m.store.Delete(ctx, m.Key(phoneNumber))
}

// ProcessMessage resolves the conversation for phoneNumber and dispatches
// text to the handler registered for its current step, returning the
// handler's reply verbatim.
//
// An inactive conversation is cleared and answered with the welcome message
// without processing the inbound text. An active conversation whose step has
// no registered handler is the corruption-recovery path: log, clear, and
// start over with the welcome message; never surface an error to the user
// for this case. Store errors propagate.
func (m *Manager) ProcessMessage(ctx context.Context, phoneNumber, text string, welcomeFn func() string) (string, error) {
	slog.Debug("Manager processing message", "tenantID", m.tenantID, "phoneNumber", phoneNumber)

	convo, err := m.GetOrCreate(ctx, phoneNumber, m.initialStep)
	if err != nil {
		return "", err
	}

	active, err := m.HasActive(ctx, phoneNumber)
	if err != nil {
		return "", err
	}
	if !active {
		if err := m.Clear(ctx, phoneNumber); err != nil {
			return "", err
		}
		return welcomeFn(), nil
	}

	handler, ok := m.handlers[convo.Step]
	if !ok {
		slog.Error("Manager no handler for step, restarting conversation", "tenantID", m.tenantID, "step", convo.Step)
		if err := m.Clear(ctx, phoneNumber); err != nil {
			return "", err
		}
		return welcomeFn(), nil
	}

	return handler(ctx, StepContext{PhoneNumber: phoneNumber, Message: text, Conversation: convo})
}
