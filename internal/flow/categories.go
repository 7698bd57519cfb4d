package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/chatea-chevere/orderbot/internal/conversation"
	"github.com/chatea-chevere/orderbot/internal/models"
)

// Shared validation copy.
const (
	invalidOptionNotice          = "❌ Opción no válida."
	customizeInvalidOptionNotice = "⚠ Opción no válida."
	flowErrorNotice              = "❌ Error en el flujo. Reiniciando..."
	customizeErrorNotice         = "⚠ Error en flujo de personalización. Reiniciando!"
	invalidQuantityNotice        = "❌ Cantidad no válida. Por favor ingresa un número entre 1 y 10."
)

// CategoryHandlers implements the category-driven ordering flow:
// welcome, category selection, item selection and the optional
// item-customization sub-flow. Quantity selection onward is shared with
// CartHandlers.
type CategoryHandlers struct {
	cfg     *models.TenantConfig
	msgs    Messages
	manager *conversation.Manager
}

// NewCategoryHandlers builds the category flow for a tenant.
func NewCategoryHandlers(cfg *models.TenantConfig, msgs Messages) *CategoryHandlers {
	return &CategoryHandlers{cfg: cfg, msgs: msgs}
}

// Register wires the flow's steps into the manager.
func (h *CategoryHandlers) Register(m *conversation.Manager) {
	h.manager = m
	m.RegisterHandler(models.StepCategoryWelcome, h.welcome)
	m.RegisterHandler(models.StepCategorySelection, h.categorySelection)
	m.RegisterHandler(models.StepItemSelection, h.itemSelection)
	m.RegisterHandler(models.StepItemCustomization, h.itemCustomization)
}

// welcome consumes the conversation-opening message. The inbound text is
// ignored; the reply is the category list and the conversation advances to
// category selection.
func (h *CategoryHandlers) welcome(ctx context.Context, sc conversation.StepContext) (string, error) {
	err := h.manager.Update(ctx, sc.PhoneNumber, func(c *models.Conversation) {
		c.Step = models.StepCategorySelection
	})
	if err != nil {
		return "", err
	}
	return h.msgs.Welcome(""), nil
}

func (h *CategoryHandlers) categorySelection(ctx context.Context, sc conversation.StepContext) (string, error) {
	n, ok := parseOption(sc.Message)
	if !ok || n < 1 || n > len(h.cfg.Categories) {
		// With items already in the cart the add-more prompt repeats,
		// otherwise the full welcome does.
		if len(sc.Conversation.Cart) > 0 {
			return h.msgs.RepeatFlow(), nil
		}
		return h.msgs.Welcome(""), nil
	}

	cat := &h.cfg.Categories[n-1]
	err := h.manager.Update(ctx, sc.PhoneNumber, func(c *models.Conversation) {
		c.SelectedCategory = cat.Key
		c.Step = models.StepItemSelection
	})
	if err != nil {
		return "", err
	}
	slog.Debug("Flow category selected", "tenantID", h.manager.TenantID(), "category", cat.Key)
	return itemsSelectionMessage(cat), nil
}

func (h *CategoryHandlers) itemSelection(ctx context.Context, sc conversation.StepContext) (string, error) {
	cat := h.cfg.CategoryByKey(sc.Conversation.SelectedCategory)
	if cat == nil {
		return h.restart(ctx, sc.PhoneNumber, flowErrorNotice)
	}

	n, ok := parseOption(sc.Message)
	if !ok || n < 1 || n > len(cat.Items) {
		return invalidOptionNotice + "\n\n" + itemsSelectionMessage(cat), nil
	}

	item := cat.Items[n-1]
	if len(item.CustomizationSteps) > 0 {
		return h.startCustomization(ctx, sc.PhoneNumber, item)
	}

	selected := models.ItemRef{Name: item.Name, Price: item.Price, Description: item.Description}
	err := h.manager.Update(ctx, sc.PhoneNumber, func(c *models.Conversation) {
		c.SelectedItem = &selected
		c.Step = models.StepQuantitySelection
	})
	if err != nil {
		return "", err
	}
	return quantityMessage(selected), nil
}

// startCustomization opens the customization sub-flow at the item's
// lowest-ordered step.
func (h *CategoryHandlers) startCustomization(ctx context.Context, phoneNumber string, item models.MenuItem) (string, error) {
	steps := sortedCustomizationSteps(item.CustomizationSteps)
	base := models.ItemRef{Name: item.Name, Price: item.Price, Description: item.Description}

	err := h.manager.Update(ctx, phoneNumber, func(c *models.Conversation) {
		c.CustomizationFlow = &models.CustomizationState{
			CurrentStep: steps[0].Order,
			Selections:  make(map[string]models.ItemRef),
			BaseItem:    base,
		}
		c.Step = models.StepItemCustomization
	})
	if err != nil {
		return "", err
	}
	return customizationStepMessage(&steps[0], base), nil
}

func (h *CategoryHandlers) itemCustomization(ctx context.Context, sc conversation.StepContext) (string, error) {
	state := sc.Conversation.CustomizationFlow
	item := h.customizedItem(sc.Conversation)
	if state == nil || item == nil {
		return h.restart(ctx, sc.PhoneNumber, customizeErrorNotice)
	}

	steps := sortedCustomizationSteps(item.CustomizationSteps)
	idx := stepIndexByOrder(steps, state.CurrentStep)
	if idx < 0 {
		return h.restart(ctx, sc.PhoneNumber, customizeErrorNotice)
	}
	step := steps[idx]

	n, ok := parseOption(sc.Message)
	if !ok || n < 1 || n > len(step.Options) {
		return customizeInvalidOptionNotice + "\n\n" + customizationStepMessage(&step, state.BaseItem), nil
	}
	opt := step.Options[n-1]
	chosen := models.ItemRef{Name: opt.Name, Price: opt.Price, Description: opt.Description}

	if idx+1 < len(steps) {
		next := steps[idx+1]
		err := h.manager.Update(ctx, sc.PhoneNumber, func(c *models.Conversation) {
			if c.CustomizationFlow == nil {
				return
			}
			c.CustomizationFlow.Selections[step.Name] = chosen
			c.CustomizationFlow.CurrentStep = next.Order
		})
		if err != nil {
			return "", err
		}
		return customizationStepMessage(&next, state.BaseItem), nil
	}

	state.Selections[step.Name] = chosen
	return h.completeCustomization(ctx, sc.PhoneNumber, state, steps)
}

// completeCustomization composes the final item: the base name annotated with
// the per-step choices in step order, priced as base plus option deltas.
func (h *CategoryHandlers) completeCustomization(ctx context.Context, phoneNumber string, state *models.CustomizationState, steps []models.CustomizationStep) (string, error) {
	names := make([]string, 0, len(steps))
	price := state.BaseItem.Price
	for _, step := range steps {
		sel, ok := state.Selections[step.Name]
		if !ok {
			return h.restart(ctx, phoneNumber, customizeErrorNotice)
		}
		names = append(names, sel.Name)
		price += sel.Price
	}

	composed := models.ItemRef{
		Name:        fmt.Sprintf("%s (%s)", state.BaseItem.Name, strings.Join(names, ", ")),
		Price:       price,
		Description: state.BaseItem.Description,
	}
	err := h.manager.Update(ctx, phoneNumber, func(c *models.Conversation) {
		c.SelectedItem = &composed
		c.CustomizationFlow = nil
		c.Step = models.StepQuantitySelection
	})
	if err != nil {
		return "", err
	}
	slog.Debug("Flow customization completed", "tenantID", h.manager.TenantID(), "item", composed.Name, "price", composed.Price)
	return quantityMessage(composed), nil
}

// customizedItem resolves the menu item being customized from the
// conversation's selected category and base item name.
func (h *CategoryHandlers) customizedItem(c *models.Conversation) *models.MenuItem {
	cat := h.cfg.CategoryByKey(c.SelectedCategory)
	if cat == nil || c.CustomizationFlow == nil {
		return nil
	}
	for i := range cat.Items {
		if cat.Items[i].Name == c.CustomizationFlow.BaseItem.Name && len(cat.Items[i].CustomizationSteps) > 0 {
			return &cat.Items[i]
		}
	}
	return nil
}

// restart is the flow-integrity recovery path: drop the conversation and
// answer with the notice plus a fresh welcome.
func (h *CategoryHandlers) restart(ctx context.Context, phoneNumber, notice string) (string, error) {
	slog.Error("Flow state inconsistent, restarting conversation", "tenantID", h.manager.TenantID(), "notice", notice)
	if err := h.manager.Clear(ctx, phoneNumber); err != nil {
		return "", err
	}
	return h.msgs.Welcome(notice), nil
}

func sortedCustomizationSteps(steps []models.CustomizationStep) []models.CustomizationStep {
	sorted := make([]models.CustomizationStep, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	return sorted
}

func stepIndexByOrder(steps []models.CustomizationStep, order int) int {
	for i := range steps {
		if steps[i].Order == order {
			return i
		}
	}
	return -1
}
