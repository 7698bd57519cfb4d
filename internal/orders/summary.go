package orders

import (
	"fmt"
	"strings"

	"github.com/chatea-chevere/orderbot/internal/models"
	"github.com/chatea-chevere/orderbot/internal/util"
)

// Summary renders the order as the message a customer forwards to the
// tenant's transfers number.
func Summary(order models.OrderData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*NUEVO PEDIDO #%s*\n", order.OrderNumber)
	fmt.Fprintf(&b, "%s\n\n", order.CreatedAt.Format("02/01/2006, 3:04 p. m."))

	b.WriteString("*DETALLE DEL PEDIDO:*\n")
	for _, item := range order.Cart {
		itemTotal := item.Price * item.Quantity
		fmt.Fprintf(&b, "- %s\n", item.Name)
		fmt.Fprintf(&b, "%d x %s = %s\n\n", item.Quantity, util.FormatPrice(item.Price), util.FormatPrice(itemTotal))
	}

	b.WriteString("*RESUMEN DE PAGO:*\n")
	fmt.Fprintf(&b, "Subtotal: %s\n", util.FormatPrice(order.Subtotal))
	fmt.Fprintf(&b, "Domicilio: %s\n", util.FormatPrice(order.DeliveryTotal))
	fmt.Fprintf(&b, "*TOTAL: %s*\n\n", util.FormatPrice(order.Total))

	b.WriteString("Por favor envia este mensaje (sin modificar)\n")
	b.WriteString("Seguidamente, envía tu nombre, teléfono, dirección y adjunta imagen de transferencia")

	return b.String()
}
