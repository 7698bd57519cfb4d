package flow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/chatea-chevere/orderbot/internal/conversation"
	"github.com/chatea-chevere/orderbot/internal/models"
)

// SequentialHandlers implements the sequential ordering flow: the customer
// walks every configured step in Order sequence and the selections compose
// into a single cart item. Steps are sorted once at construction.
type SequentialHandlers struct {
	cfg     *models.TenantConfig
	steps   []models.SequentialStep
	msgs    Messages
	manager *conversation.Manager
}

// NewSequentialHandlers builds the sequential flow for a tenant.
func NewSequentialHandlers(cfg *models.TenantConfig, msgs Messages) *SequentialHandlers {
	return &SequentialHandlers{cfg: cfg, steps: SortedSteps(cfg.Steps), msgs: msgs}
}

// Register wires the flow's steps into the manager.
func (h *SequentialHandlers) Register(m *conversation.Manager) {
	h.manager = m
	m.RegisterHandler(models.StepSequentialWelcome, h.welcome)
	m.RegisterHandler(models.StepSequentialSelection, h.stepSelection)
}

// welcome waits for an explicit "1" before opening the composition: the first
// inbound message of a conversation lands here too. Anything else re-shows
// the welcome copy, or the add-more prompt when the cart already has items.
func (h *SequentialHandlers) welcome(ctx context.Context, sc conversation.StepContext) (string, error) {
	if n, ok := parseOption(sc.Message); !ok || n != 1 {
		if len(sc.Conversation.Cart) > 0 {
			return h.msgs.RepeatFlow(), nil
		}
		return h.msgs.Welcome(""), nil
	}

	first := h.steps[0]
	err := h.manager.Update(ctx, sc.PhoneNumber, func(c *models.Conversation) {
		c.SequentialFlow = &models.SequentialFlowState{
			CurrentStep: first.Order,
			Selections:  make(map[string]models.SequentialSelection),
		}
		c.Step = models.StepSequentialSelection
	})
	if err != nil {
		return "", err
	}
	slog.Debug("Flow sequential composition started", "tenantID", h.manager.TenantID(), "step", first.Name)
	return sequentialStepMessage(&first), nil
}

func (h *SequentialHandlers) stepSelection(ctx context.Context, sc conversation.StepContext) (string, error) {
	state := sc.Conversation.SequentialFlow
	if state == nil {
		return h.restart(ctx, sc.PhoneNumber)
	}
	idx := h.stepIndexByOrder(state.CurrentStep)
	if idx < 0 {
		return h.restart(ctx, sc.PhoneNumber)
	}
	step := h.steps[idx]

	n, ok := parseOption(sc.Message)
	if !ok || n < 1 || n > len(step.Items) {
		return invalidOptionNotice + "\n\n" + sequentialStepMessage(&step), nil
	}
	item := step.Items[n-1]
	selection := models.SequentialSelection{
		StepName:     step.Name,
		SelectedItem: models.ItemRef{Name: item.Name, Price: item.Price, Description: item.Description},
	}

	if idx+1 < len(h.steps) {
		next := h.steps[idx+1]
		err := h.manager.Update(ctx, sc.PhoneNumber, func(c *models.Conversation) {
			if c.SequentialFlow == nil {
				return
			}
			c.SequentialFlow.Selections[step.Name] = selection
			c.SequentialFlow.CurrentStep = next.Order
		})
		if err != nil {
			return "", err
		}
		return sequentialStepMessage(&next), nil
	}

	state.Selections[step.Name] = selection
	return h.completeComposition(ctx, sc.PhoneNumber, state)
}

// completeComposition joins the per-step selections, in step order, into one
// composed item whose price is the sum of the selection prices.
func (h *SequentialHandlers) completeComposition(ctx context.Context, phoneNumber string, state *models.SequentialFlowState) (string, error) {
	names := make([]string, 0, len(h.steps))
	price := 0
	for _, step := range h.steps {
		sel, ok := state.Selections[step.Name]
		if !ok {
			return h.restart(ctx, phoneNumber)
		}
		names = append(names, sel.SelectedItem.Name)
		price += sel.SelectedItem.Price
	}

	composed := models.ItemRef{Name: strings.Join(names, " + "), Price: price}
	err := h.manager.Update(ctx, phoneNumber, func(c *models.Conversation) {
		if c.SequentialFlow == nil {
			return
		}
		c.SequentialFlow.CustomizedItem = &composed
		c.SequentialFlow.CurrentStep = 0
		c.Step = models.StepQuantitySelection
	})
	if err != nil {
		return "", err
	}
	slog.Debug("Flow sequential composition completed", "tenantID", h.manager.TenantID(), "item", composed.Name, "price", composed.Price)
	return quantityMessage(composed), nil
}

func (h *SequentialHandlers) restart(ctx context.Context, phoneNumber string) (string, error) {
	slog.Error("Flow state inconsistent, restarting conversation", "tenantID", h.manager.TenantID())
	if err := h.manager.Clear(ctx, phoneNumber); err != nil {
		return "", err
	}
	return h.msgs.Welcome(flowErrorNotice), nil
}

func (h *SequentialHandlers) stepIndexByOrder(order int) int {
	for i := range h.steps {
		if h.steps[i].Order == order {
			return i
		}
	}
	return -1
}
