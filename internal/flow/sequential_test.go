package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/chatea-chevere/orderbot/internal/models"
)

// sequentialConfig declares its steps out of Order on purpose: traversal must
// follow the Order field, not declaration order.
func sequentialConfig() *models.TenantConfig {
	return &models.TenantConfig{
		TenantID:             "almuerzos-dona-rosa",
		FlowType:             models.FlowSequential,
		TransfersPhoneNumber: "3007654321",
		DeliveryCost:         2000,
		TimeoutMinutes:       15,
		InitialMessage:       "Arma tu almuerzo paso a paso.",
		Steps: []models.SequentialStep{
			{
				Order: 2,
				Name:  "Acompañamiento",
				Items: []models.MenuItem{
					{Name: "Arroz", Price: 3000},
					{Name: "Papas", Price: 4000},
				},
			},
			{
				Order: 1,
				Name:  "Proteína",
				Items: []models.MenuItem{
					{Name: "Pollo", Price: 12000},
					{Name: "Carne", Price: 14000},
				},
			},
		},
	}
}

func newSequentialEnv(t *testing.T) *flowEnv {
	t.Helper()
	return newFlowEnv(t, sequentialConfig())
}

func TestSequentialWelcomeRequiresOne(t *testing.T) {
	env := newSequentialEnv(t)

	reply := env.send(t, "hola")
	mustContain(t, reply, "Bienvenido a La Pizzería. Arma tu almuerzo paso a paso.",
		"Proteína - Acompañamiento", "*Responde 1 para continuar*")

	// Anything but "1" re-shows the welcome.
	reply = env.send(t, "2")
	mustContain(t, reply, "*Responde 1 para continuar*")
	reply = env.send(t, "si")
	mustContain(t, reply, "*Responde 1 para continuar*")

	reply = env.send(t, "1")
	mustContain(t, reply, "*Proteína*", "Pollo - $12.000", "Carne - $14.000")
}

func TestSequentialWelcomeWithCartRepeatsPrompt(t *testing.T) {
	env := newSequentialEnv(t)
	env.send(t, "hola")
	env.send(t, "1")
	env.send(t, "1") // Pollo
	env.send(t, "1") // Arroz
	env.send(t, "1") // quantity
	env.send(t, "1") // agregar más, back at the sequential welcome

	// With items in the cart a non-"1" message gets the add-more prompt,
	// not the first-contact welcome.
	reply := env.send(t, "si")
	if !strings.HasPrefix(reply, "¿Qué deseas añadir a tu pedido?") {
		t.Errorf("expected the add-more prompt, got:\n%s", reply)
	}

	reply = env.send(t, "1")
	mustContain(t, reply, "*Proteína*")
}

func TestSequentialCompositionFollowsOrderField(t *testing.T) {
	env := newSequentialEnv(t)
	env.send(t, "hola")
	env.send(t, "1")

	// First step is Proteína (Order 1) despite being declared second.
	reply := env.send(t, "2")
	mustContain(t, reply, "*Acompañamiento*", "Arroz - $3.000")

	reply = env.send(t, "1")
	// Composed item: names joined in step order, prices summed.
	mustContain(t, reply, "📦 *Carne + Arroz*", "Precio: $17.000")

	reply = env.send(t, "2")
	mustContain(t, reply, "🛒 *TU CARRITO*", "👉🏼 Carne + Arroz",
		"2 x $17.000 = $34.000", "Domicilio: $4.000", "*Total: $38.000*")
}

func TestSequentialInvalidStepOption(t *testing.T) {
	env := newSequentialEnv(t)
	env.send(t, "hola")
	env.send(t, "1")

	reply := env.send(t, "9")
	if !strings.HasPrefix(reply, invalidOptionNotice) {
		t.Errorf("expected invalid option notice, got:\n%s", reply)
	}
	mustContain(t, reply, "*Proteína*")
}

func TestSequentialStateLossRestarts(t *testing.T) {
	env := newSequentialEnv(t)
	env.send(t, "hola")
	env.send(t, "1")

	err := env.manager.Update(context.Background(), testPhone, func(c *models.Conversation) {
		c.SequentialFlow = nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reply := env.send(t, "1")
	mustContain(t, reply, flowErrorNotice, "*Responde 1 para continuar*")
}

func TestSequentialRepeatFlowRestartsComposition(t *testing.T) {
	env := newSequentialEnv(t)
	env.send(t, "hola")
	env.send(t, "1")
	env.send(t, "1")
	env.send(t, "1")
	env.send(t, "1") // quantity

	// "Agregar más productos" returns to the sequential welcome.
	reply := env.send(t, "1")
	mustContain(t, reply, "¿Qué deseas añadir a tu pedido?", "Proteína - Acompañamiento")

	reply = env.send(t, "1")
	mustContain(t, reply, "*Proteína*")
}
