package flow

import (
	"context"
	"log/slog"

	"github.com/chatea-chevere/orderbot/internal/conversation"
	"github.com/chatea-chevere/orderbot/internal/models"
	"github.com/chatea-chevere/orderbot/internal/orders"
)

// CartHandlers implements the steps both flows share: quantity selection,
// cart actions and checkout. repeatStep is where "agregar más productos"
// returns to, so it differs per flow shape.
type CartHandlers struct {
	cfg        *models.TenantConfig
	msgs       Messages
	repeatStep models.ConversationStep
	factory    *orders.Factory
	repo       orders.Repository
	manager    *conversation.Manager
}

// NewCartHandlers builds the shared cart steps for a tenant.
func NewCartHandlers(cfg *models.TenantConfig, msgs Messages, factory *orders.Factory, repo orders.Repository) *CartHandlers {
	repeatStep := models.StepCategorySelection
	if cfg.FlowType == models.FlowSequential {
		repeatStep = models.StepSequentialWelcome
	}
	return &CartHandlers{cfg: cfg, msgs: msgs, repeatStep: repeatStep, factory: factory, repo: repo}
}

// Register wires the shared steps into the manager.
func (h *CartHandlers) Register(m *conversation.Manager) {
	h.manager = m
	m.RegisterHandler(models.StepQuantitySelection, h.quantitySelection)
	m.RegisterHandler(models.StepCartActions, h.cartActions)
	m.RegisterHandler(models.StepCheckout, h.checkout)
}

// Notices for a quantity reply arriving without a complete pending item.
const (
	noPendingItemNotice        = "❌ No hay item seleccionado."
	incompleteItemNotice       = "❌ Datos del item incompletos."
	incompleteCustomItemNotice = "❌ Datos del item customizado incompletos."
)

// pendingItem resolves the item awaiting a quantity from either flow's
// scratch state, with the category the cart line will carry. The notice is
// the user-facing reason when no complete item is pending.
func pendingItem(c *models.Conversation) (models.ItemRef, string, string) {
	if c.SelectedItem != nil && c.SelectedCategory != "" {
		if c.SelectedItem.Name == "" {
			return models.ItemRef{}, "", incompleteItemNotice
		}
		return *c.SelectedItem, c.SelectedCategory, ""
	}
	if c.SequentialFlow != nil && c.SequentialFlow.CustomizedItem != nil {
		if c.SequentialFlow.CustomizedItem.Name == "" {
			return models.ItemRef{}, "", incompleteCustomItemNotice
		}
		return *c.SequentialFlow.CustomizedItem, models.CustomizedItemCategory, ""
	}
	return models.ItemRef{}, "", noPendingItemNotice
}

func (h *CartHandlers) quantitySelection(ctx context.Context, sc conversation.StepContext) (string, error) {
	qty, parsed := parseOption(sc.Message)
	if !parsed || qty < models.MinCartQuantity || qty > models.MaxCartQuantity {
		return invalidQuantityNotice, nil
	}

	item, category, notice := pendingItem(sc.Conversation)
	if notice != "" {
		slog.Warn("Flow quantity without pending item", "tenantID", h.manager.TenantID(), "notice", notice)
		return h.msgs.Welcome(notice), nil
	}

	line := models.CartItem{Name: item.Name, Quantity: qty, Price: item.Price, Category: category}
	err := h.manager.Update(ctx, sc.PhoneNumber, func(c *models.Conversation) {
		c.Cart = append(c.Cart, line)
		c.ClearScratch()
		c.Step = models.StepCartActions
	})
	if err != nil {
		return "", err
	}
	slog.Debug("Flow item added to cart", "tenantID", h.manager.TenantID(), "item", line.Name, "quantity", qty)
	return cartActionsMessage(append(sc.Conversation.Cart, line), h.cfg.DeliveryCost), nil
}

func (h *CartHandlers) cartActions(ctx context.Context, sc conversation.StepContext) (string, error) {
	cart := sc.Conversation.Cart

	switch n, ok := parseOption(sc.Message); {
	case ok && n == 1:
		if err := h.backToFlow(ctx, sc.PhoneNumber); err != nil {
			return "", err
		}
		return h.msgs.RepeatFlow(), nil

	case ok && n == 2:
		if len(cart) == 0 {
			// No step change, the user stays at the cart actions.
			return h.msgs.Welcome("❌ Tu carrito está vacío!"), nil
		}
		err := h.manager.Update(ctx, sc.PhoneNumber, func(c *models.Conversation) {
			c.Step = models.StepCheckout
		})
		if err != nil {
			return "", err
		}
		return checkoutMessage(cart, h.cfg.DeliveryCost, h.cfg.TransfersPhoneNumber), nil

	case ok && n == 3:
		err := h.manager.Update(ctx, sc.PhoneNumber, func(c *models.Conversation) {
			c.Cart = []models.CartItem{}
			c.ClearScratch()
			c.Step = h.repeatStep
		})
		if err != nil {
			return "", err
		}
		return h.msgs.Welcome("🗑️ Carrito vaciado!"), nil

	default:
		return invalidOptionNotice + "\n\n" + cartActionsMessage(cart, h.cfg.DeliveryCost), nil
	}
}

func (h *CartHandlers) checkout(ctx context.Context, sc conversation.StepContext) (string, error) {
	cart := sc.Conversation.Cart

	switch n, ok := parseOption(sc.Message); {
	case ok && n == 1:
		if len(cart) == 0 {
			return h.restart(ctx, sc.PhoneNumber)
		}
		return h.confirmOrder(ctx, sc.PhoneNumber, cart)

	case ok && n == 2:
		if err := h.backToFlow(ctx, sc.PhoneNumber); err != nil {
			return "", err
		}
		return h.msgs.RepeatFlow(), nil

	case ok && n == 3:
		err := h.manager.Update(ctx, sc.PhoneNumber, func(c *models.Conversation) {
			c.Cart = []models.CartItem{}
			c.ClearScratch()
			c.Step = h.repeatStep
		})
		if err != nil {
			return "", err
		}
		slog.Info("Flow order cancelled", "tenantID", h.manager.TenantID(), "phoneNumber", sc.PhoneNumber)
		return h.msgs.Welcome("❌ Pedido cancelado!"), nil

	default:
		return invalidOptionNotice + "\n\n" + checkoutMessage(cart, h.cfg.DeliveryCost, h.cfg.TransfersPhoneNumber), nil
	}
}

// confirmOrder assembles and persists the order, clears the conversation and
// answers with the final instructions.
func (h *CartHandlers) confirmOrder(ctx context.Context, phoneNumber string, cart []models.CartItem) (string, error) {
	order := h.factory.CreateOrder(h.cfg.Info(), phoneNumber, cart)
	id, err := h.repo.StoreOrder(ctx, order)
	if err != nil {
		slog.Error("Flow failed to store order", "tenantID", h.manager.TenantID(), "orderNumber", order.OrderNumber, "error", err)
		return "", err
	}
	order.ID = id

	if err := h.manager.Clear(ctx, phoneNumber); err != nil {
		return "", err
	}
	slog.Info("Flow order confirmed", "tenantID", h.manager.TenantID(), "orderID", id, "orderNumber", order.OrderNumber, "total", order.Total, "isTest", order.IsTest)
	return h.msgs.Final(id, order), nil
}

// backToFlow rewinds the conversation to the flow's item-adding entry point,
// keeping the cart.
func (h *CartHandlers) backToFlow(ctx context.Context, phoneNumber string) error {
	return h.manager.Update(ctx, phoneNumber, func(c *models.Conversation) {
		c.ClearScratch()
		c.Step = h.repeatStep
	})
}

func (h *CartHandlers) restart(ctx context.Context, phoneNumber string) (string, error) {
	slog.Error("Flow state inconsistent, restarting conversation", "tenantID", h.manager.TenantID())
	if err := h.manager.Clear(ctx, phoneNumber); err != nil {
		return "", err
	}
	return h.msgs.Welcome(flowErrorNotice), nil
}
