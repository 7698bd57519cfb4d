// Package testutil provides shared fixtures and helpers for orderbot tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chatea-chevere/orderbot/internal/api"
	"github.com/chatea-chevere/orderbot/internal/convstore"
	"github.com/chatea-chevere/orderbot/internal/messaging"
	"github.com/chatea-chevere/orderbot/internal/orders"
	"github.com/chatea-chevere/orderbot/internal/router"
	"github.com/chatea-chevere/orderbot/internal/tenant"
)

// CategoryConfigJSON is a raw category-flow config document used as fixture
// fallback data. The pizza item carries a customization flow.
const CategoryConfigJSON = `{
	"numeroTransferencias": "3001234567",
	"costoDomicilio": 3000,
	"categorias": {
		"pizzas": {
			"nombre": "Pizzas",
			"emoji": "🍕",
			"items": [
				{
					"nombre": "Pizza Artesanal",
					"precio": 20000,
					"personalizacion": [
						{
							"orden": 1,
							"nombre": "Tamaño",
							"opciones": [
								{"nombre": "Personal", "precio": 0},
								{"nombre": "Familiar", "precio": 12000}
							]
						},
						{
							"orden": 2,
							"nombre": "Borde",
							"opciones": [
								{"nombre": "Tradicional", "precio": 0},
								{"nombre": "Queso", "precio": 4000}
							]
						}
					]
				}
			]
		},
		"bebidas": {
			"nombre": "Bebidas",
			"emoji": "🥤",
			"items": [
				{"nombre": "Limonada", "precio": 5000},
				{"nombre": "Gaseosa", "precio": 4000}
			]
		}
	}
}`

// SequentialConfigJSON is a raw sequential-flow config document used as
// fixture fallback data.
const SequentialConfigJSON = `{
	"numeroTransferencias": "3007654321",
	"costoDomicilio": 2000,
	"mensajeInicial": "Arma tu almuerzo paso a paso.",
	"etapas": [
		{
			"orden": 1,
			"nombre": "Proteína",
			"items": [
				{"nombre": "Pollo", "precio": 12000},
				{"nombre": "Carne", "precio": 14000}
			]
		},
		{
			"orden": 2,
			"nombre": "Acompañamiento",
			"items": [
				{"nombre": "Arroz", "precio": 3000},
				{"nombre": "Papas", "precio": 4000}
			]
		}
	]
}`

// TestSources returns the two fixture tenants: a category-flow pizzeria and a
// sequential-flow lunch spot, both backed by fallback config data only.
func TestSources() []tenant.Source {
	return []tenant.Source{
		{
			TenantID:       "la-pizzeria",
			DisplayName:    "La Pizzería",
			Fallback:       []byte(CategoryConfigJSON),
			PhoneNumberID:  "phone-pizzeria",
			TimeoutMinutes: 15,
			TriggerWords:   []string{"pizza", "pizzeria"},
			AdminPhones:    []string{"573009990000"},
		},
		{
			TenantID:       "almuerzos-dona-rosa",
			DisplayName:    "Almuerzos Doña Rosa",
			Fallback:       []byte(SequentialConfigJSON),
			PhoneNumberID:  "phone-rosa",
			TimeoutMinutes: 15,
			TriggerWords:   []string{"almuerzo"},
		},
	}
}

// Env bundles a fully wired in-memory stack for API and router tests.
type Env struct {
	Resolver *tenant.Resolver
	Router   *router.Router
	Sender   *messaging.MockSender
	Repo     orders.Repository
	Store    convstore.Store
	Sessions *router.InMemorySessionStore
	Admin    *router.AdminManager
	Server   *api.Server
}

// NewTestEnv wires the fixture tenants into an in-memory stack. Extra API
// options (verify token, dev mode) are passed through to the server.
func NewTestEnv(t *testing.T, opts ...api.Option) *Env {
	t.Helper()

	resolver := tenant.NewResolver(TestSources())
	store := convstore.NewInMemoryStore()
	repo := orders.NewInMemoryRepository()
	deps := tenant.RuntimeDeps{
		Store:   store,
		Factory: orders.NewFactory(nil, true),
		Repo:    repo,
	}

	sessions := router.NewInMemorySessionStore()
	admin := router.NewAdminManager(resolver, sessions, "https://orderbot.test")
	rt := router.New(resolver, deps, admin, "La Tiendita Chévere")
	sender := messaging.NewMockSender()

	return &Env{
		Resolver: resolver,
		Router:   rt,
		Sender:   sender,
		Repo:     repo,
		Store:    store,
		Sessions: sessions,
		Admin:    admin,
		Server:   api.NewServer(resolver, rt, sender, repo, admin, opts...),
	}
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes a JSON response envelope and validates the
// status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// MustMarshalJSON marshals an object to JSON and fails the test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}
