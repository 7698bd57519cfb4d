// Package flow implements the two configurable ordering flows
// (category-driven and sequential/composed-item) plus the cart and checkout
// handlers both flows share. Handlers are dependency-injected structs
// constructed once per tenant and registered on that tenant's
// conversation.Manager.
package flow

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/chatea-chevere/orderbot/internal/models"
	"github.com/chatea-chevere/orderbot/internal/orders"
	"github.com/chatea-chevere/orderbot/internal/util"
)

// Messages bundles the tenant-specific copy the handlers weave replies from.
// Welcome takes an optional prefix line (validation notices, cancellation
// confirmations) prepended to the welcome body.
type Messages struct {
	Welcome    func(prefix string) string
	RepeatFlow func() string
	Final      func(orderID string, order models.OrderData) string
}

// DefaultMessages builds the stock Spanish copy for a tenant from its
// config. displayName is the customer-facing brand line ("Bienvenido a ...");
// orderBaseURL, when set, is embedded in the final message as the order
// detail link.
func DefaultMessages(cfg *models.TenantConfig, displayName, orderBaseURL string) Messages {
	switch cfg.FlowType {
	case models.FlowSequential:
		return sequentialMessages(cfg, displayName, orderBaseURL)
	default:
		return categoryMessages(cfg, displayName, orderBaseURL)
	}
}

func categoryMessages(cfg *models.TenantConfig, displayName, orderBaseURL string) Messages {
	var list strings.Builder
	for i, cat := range cfg.Categories {
		if i > 0 {
			list.WriteByte('\n')
		}
		fmt.Fprintf(&list, "%s %s", util.NumberToEmoji(i+1), cat.Name)
	}
	categoriesList := list.String()
	count := len(cfg.Categories)

	return Messages{
		Welcome: func(prefix string) string {
			var b strings.Builder
			if prefix != "" {
				b.WriteString(prefix)
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "Bienvenido a %s, ¿qué deseas pedir?\n\n", displayName)
			b.WriteString(categoriesList)
			fmt.Fprintf(&b, "\n\n*Elige un número (1-%d)*", count)
			return b.String()
		},
		RepeatFlow: func() string {
			var b strings.Builder
			b.WriteString("¿Qué deseas añadir a tu pedido?\n\n")
			b.WriteString(categoriesList)
			fmt.Fprintf(&b, "\n\n*Elige un número (1-%d)*", count)
			return b.String()
		},
		Final: func(orderID string, order models.OrderData) string {
			return finalMessage(orderID, order, displayName, orderBaseURL)
		},
	}
}

func sequentialMessages(cfg *models.TenantConfig, displayName, orderBaseURL string) Messages {
	sorted := SortedSteps(cfg.Steps)
	names := make([]string, len(sorted))
	for i, step := range sorted {
		names[i] = step.Name
	}
	stepsList := strings.Join(names, " - ")

	return Messages{
		Welcome: func(prefix string) string {
			var b strings.Builder
			if prefix != "" {
				b.WriteString(prefix)
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "Bienvenido a %s. %s\n\n", displayName, cfg.InitialMessage)
			b.WriteString(stepsList)
			b.WriteByte('\n')
			if cfg.FooterInfo != "" {
				fmt.Fprintf(&b, "\n%s\n", cfg.FooterInfo)
			}
			b.WriteString("\n*Responde 1 para continuar*")
			return b.String()
		},
		RepeatFlow: func() string {
			var b strings.Builder
			b.WriteString("¿Qué deseas añadir a tu pedido? Recuerda que la selección se hace en este orden\n\n")
			b.WriteString(stepsList)
			b.WriteString("\n\n*Responde 1 para continuar*")
			return b.String()
		},
		Final: func(orderID string, order models.OrderData) string {
			return finalMessage(orderID, order, displayName, orderBaseURL)
		},
	}
}

func finalMessage(orderID string, order models.OrderData, displayName, orderBaseURL string) string {
	var b strings.Builder
	b.WriteString("*FINALIZACIÓN DE PEDIDO*\n\n")
	fmt.Fprintf(&b, "📝 *Número de pedido:* #%s\n", order.OrderNumber)
	fmt.Fprintf(&b, "💰 *Total:* %s\n\n", util.FormatPrice(order.Total))

	b.WriteString("▶️▶️ *CONFIRMAR PEDIDO* ◀️◀️\n")
	if orderBaseURL != "" {
		b.WriteString("Para finalizar tu pedido y enviar el comprobante de pago, haz clic en este enlace:\n\n")
		fmt.Fprintf(&b, "%s/%s\n\n", strings.TrimRight(orderBaseURL, "/"), orderID)
	} else {
		b.WriteString("Para marchar tu pedido, favor enviar el comprobante de pago al siguiente número:\n")
		fmt.Fprintf(&b, "%s\n\n", order.TransfersPhoneNumber)
	}

	b.WriteString("📋 *Recuerda incluir:*\n")
	b.WriteString("• Comprobante de pago\n")
	b.WriteString("• Dirección completa\n")
	b.WriteString("• Nombre y teléfono de contacto\n\n")
	fmt.Fprintf(&b, "¡Gracias por elegir %s!", displayName)
	return b.String()
}

// SortedSteps returns the sequential steps ordered by their Order field.
// Traversal order depends only on Order, never on declaration order.
func SortedSteps(steps []models.SequentialStep) []models.SequentialStep {
	sorted := make([]models.SequentialStep, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	return sorted
}

// parseOption parses a menu selection strictly: the trimmed message must be
// a pure base-10 integer, so "3abc" is rejected rather than read as 3.
func parseOption(message string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(message))
	if err != nil {
		return 0, false
	}
	return n, true
}

// itemsSelectionMessage renders a category's numbered item list.
func itemsSelectionMessage(cat *models.Category) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n\n", cat.Emoji, cat.Name)
	for i, item := range cat.Items {
		fmt.Fprintf(&b, "%s %s - %s\n", util.NumberToEmoji(i+1), item.Name, util.FormatPrice(item.Price))
	}
	if cat.FooterInfo != "" {
		fmt.Fprintf(&b, "\n%s\n", cat.FooterInfo)
	}
	b.WriteString("\n*Elige un número*")
	return b.String()
}

// customizationStepMessage renders one customization sub-step's options.
// Option prices are deltas, shown only when positive.
func customizationStepMessage(step *models.CustomizationStep, base models.ItemRef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n", step.Emoji, step.Name)
	fmt.Fprintf(&b, "_%s_\n\n", base.Description)
	for i, opt := range step.Options {
		priceText := ""
		if opt.Price > 0 {
			priceText = fmt.Sprintf(" (+%s)", util.FormatPrice(opt.Price))
		}
		fmt.Fprintf(&b, "%s %s%s\n", util.NumberToEmoji(i+1), opt.Name, priceText)
	}
	if step.FooterInfo != "" {
		fmt.Fprintf(&b, "\n%s\n", step.FooterInfo)
	}
	b.WriteString("\n*Elige un número*")
	return b.String()
}

// sequentialStepMessage renders one sequential step's numbered item list.
// Zero prices (no-cost options) are omitted.
func sequentialStepMessage(step *models.SequentialStep) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n\n", step.Emoji, step.Name)
	for i, item := range step.Items {
		priceText := ""
		if item.Price > 0 {
			priceText = " - " + util.FormatPrice(item.Price)
		}
		fmt.Fprintf(&b, "%s %s%s\n", util.NumberToEmoji(i+1), item.Name, priceText)
	}
	if step.FooterInfo != "" {
		fmt.Fprintf(&b, "\n%s\n", step.FooterInfo)
	}
	b.WriteString("\n*Elige un número*")
	return b.String()
}

// quantityMessage prompts for the unit count of the pending item.
func quantityMessage(item models.ItemRef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 *%s*\n", item.Name)
	if item.Description != "" {
		fmt.Fprintf(&b, "%s\n", item.Description)
	}
	fmt.Fprintf(&b, "Precio: %s\n\n", util.FormatPrice(item.Price))
	fmt.Fprintf(&b, "¿Cuántas unidades deseas?\n\n*Responde con un número (%d-%d)*",
		models.MinCartQuantity, models.MaxCartQuantity)
	return b.String()
}

// cartActionsMessage renders the cart view with totals and the three
// cart actions.
func cartActionsMessage(cart []models.CartItem, deliveryCost int) string {
	var b strings.Builder
	b.WriteString("🛒 *TU CARRITO*\n\n")
	writeCartLines(&b, cart)

	subtotal := orders.CartSubtotal(cart)
	deliveryTotal := orders.DeliveryTotal(cart, deliveryCost)
	total := subtotal + deliveryTotal

	b.WriteString("💰 *RESUMEN*\n")
	if deliveryTotal > 0 {
		fmt.Fprintf(&b, "Subtotal: %s\n", util.FormatPrice(subtotal))
		fmt.Fprintf(&b, "Domicilio: %s\n", util.FormatPrice(deliveryTotal))
	}
	fmt.Fprintf(&b, "*Total: %s*\n\n", util.FormatPrice(total))

	b.WriteString("¿Qué deseas hacer?\n\n")
	b.WriteString("1️⃣ Agregar más productos\n")
	b.WriteString("2️⃣ Proceder al pago\n")
	b.WriteString("3️⃣ Vaciar carrito\n\n")
	b.WriteString("*Elige un número (1-3)*")
	return b.String()
}

// checkoutMessage renders the itemized order confirmation with transfer
// instructions.
func checkoutMessage(cart []models.CartItem, deliveryCost int, transfersPhoneNumber string) string {
	var b strings.Builder
	b.WriteString("📋 *CONFIRMACIÓN DE PEDIDO*\n\n")
	writeCartLines(&b, cart)

	subtotal := orders.CartSubtotal(cart)
	deliveryTotal := orders.DeliveryTotal(cart, deliveryCost)
	total := subtotal + deliveryTotal

	fmt.Fprintf(&b, "Subtotal: %s\n", util.FormatPrice(subtotal))
	fmt.Fprintf(&b, "Domicilio: %s\n", util.FormatPrice(deliveryTotal))
	fmt.Fprintf(&b, "💰 *TOTAL: %s*\n\n", util.FormatPrice(total))

	b.WriteString("Para confirmar tu pedido, por favor:\n\n")
	fmt.Fprintf(&b, "💸 *Realiza transferencia al Nequi %s*\n\n", transfersPhoneNumber)
	b.WriteString("🧾 (Guarda el comprobante de pago, te lo pediremos en un rato)\n\n")

	b.WriteString("Responde con:\n")
	b.WriteString("1️⃣ Confirmar transferencia realizada\n")
	b.WriteString("2️⃣ Agregar más productos\n")
	b.WriteString("3️⃣ Cancelar pedido\n\n")
	b.WriteString("*Elige un número (1-3)*")
	return b.String()
}

func writeCartLines(b *strings.Builder, cart []models.CartItem) {
	for _, item := range cart {
		itemTotal := item.Price * item.Quantity
		fmt.Fprintf(b, "👉🏼 %s\n", item.Name)
		fmt.Fprintf(b, "%d x %s = %s\n\n", item.Quantity, util.FormatPrice(item.Price), util.FormatPrice(itemTotal))
	}
}
