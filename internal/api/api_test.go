package api_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/chatea-chevere/orderbot/internal/api"
	"github.com/chatea-chevere/orderbot/internal/models"
	"github.com/chatea-chevere/orderbot/internal/router"
	"github.com/chatea-chevere/orderbot/internal/testutil"
)

const testPhone = "573001112233"

// metaWebhookPayload builds a Meta Cloud API inbound text message payload.
func metaWebhookPayload(phoneNumberID, from, text string) map[string]interface{} {
	return map[string]interface{}{
		"object": "whatsapp_business_account",
		"entry": []map[string]interface{}{{
			"changes": []map[string]interface{}{{
				"field": "messages",
				"value": map[string]interface{}{
					"metadata": map[string]interface{}{"phone_number_id": phoneNumberID},
					"messages": []map[string]interface{}{{
						"from": from,
						"type": "text",
						"text": map[string]interface{}{"body": text},
					}},
				},
			}},
		}},
	}
}

func serveRequest(env *testutil.Env, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	env.Server.Handler().ServeHTTP(rr, req)
	return rr
}

func TestWebhookVerification(t *testing.T) {
	env := testutil.NewTestEnv(t, api.WithVerifyToken("secret"))

	req := testutil.CreateHTTPRequest(t, "GET",
		"/webhook?hub.mode=subscribe&hub.verify_token=secret&hub.challenge=12345", nil)
	rr := serveRequest(env, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "valid verification")
	if rr.Body.String() != "12345" {
		t.Errorf("expected challenge echo, got %q", rr.Body.String())
	}

	req = testutil.CreateHTTPRequest(t, "GET",
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	rr = serveRequest(env, req)
	testutil.AssertHTTPStatus(t, http.StatusForbidden, rr.Code, "wrong token")

	// Without a configured token every handshake is refused.
	bare := testutil.NewTestEnv(t)
	req = testutil.CreateHTTPRequest(t, "GET",
		"/webhook?hub.mode=subscribe&hub.verify_token=&hub.challenge=12345", nil)
	rr = serveRequest(bare, req)
	testutil.AssertHTTPStatus(t, http.StatusForbidden, rr.Code, "no token configured")
}

func TestWebhookDevModeEchoesReply(t *testing.T) {
	env := testutil.NewTestEnv(t, api.WithDevMode(true))

	req := testutil.CreateHTTPRequest(t, "POST", "/webhook",
		metaWebhookPayload("unregistered-number", testPhone, "hola"))
	rr := serveRequest(env, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "dev webhook")

	response := testutil.AssertJSONResponse(t, rr, "ok")
	result, ok := response["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing result: %v", response)
	}
	reply, _ := result["response"].(string)
	if !strings.Contains(reply, "Bienvenido a La Tiendita Chévere") {
		t.Errorf("sandbox message should get the menu:\n%s", reply)
	}

	// Nothing goes through the sender in dev mode.
	if len(env.Sender.SentMessages) != 0 {
		t.Errorf("dev mode should not deliver, sent %d", len(env.Sender.SentMessages))
	}
}

func TestWebhookRoutesDedicatedTenantNumber(t *testing.T) {
	env := testutil.NewTestEnv(t, api.WithDevMode(true))

	req := testutil.CreateHTTPRequest(t, "POST", "/webhook",
		metaWebhookPayload("phone-pizzeria", testPhone, "hola"))
	rr := serveRequest(env, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "tenant webhook")

	response := testutil.AssertJSONResponse(t, rr, "ok")
	result := response["result"].(map[string]interface{})
	reply, _ := result["response"].(string)
	if !strings.Contains(reply, "Bienvenido a La Pizzería") {
		t.Errorf("registered number should route to its tenant:\n%s", reply)
	}
}

func TestWebhookDeliversThroughSender(t *testing.T) {
	env := testutil.NewTestEnv(t)

	req := testutil.CreateHTTPRequest(t, "POST", "/webhook",
		metaWebhookPayload("phone-pizzeria", testPhone, "hola"))
	rr := serveRequest(env, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "webhook")
	testutil.AssertJSONResponse(t, rr, "ok")

	if len(env.Sender.SentMessages) != 1 {
		t.Fatalf("expected 1 delivered reply, got %d", len(env.Sender.SentMessages))
	}
	sent := env.Sender.SentMessages[0]
	if sent.To != testPhone {
		t.Errorf("reply sent to %q", sent.To)
	}
	if !strings.Contains(sent.Body, "Bienvenido a La Pizzería") {
		t.Errorf("unexpected reply body:\n%s", sent.Body)
	}
}

func TestWebhookIgnoresNonWhatsAppPayloads(t *testing.T) {
	env := testutil.NewTestEnv(t)

	req := testutil.CreateHTTPRequest(t, "POST", "/webhook",
		map[string]interface{}{"object": "instagram"})
	rr := serveRequest(env, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "foreign payload")
	response := testutil.AssertJSONResponse(t, rr, "ok")
	if response["message"] != "Ignored" {
		t.Errorf("expected Ignored, got %v", response["message"])
	}
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	env := testutil.NewTestEnv(t)

	req, err := http.NewRequest("POST", "/webhook", strings.NewReader("not json"))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	rr := serveRequest(env, req)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "malformed body")
	testutil.AssertJSONResponse(t, rr, "error")
}

func TestGetOrder(t *testing.T) {
	env := testutil.NewTestEnv(t)
	ctx := context.Background()

	id, err := env.Repo.StoreOrder(ctx, models.OrderData{
		Tenant:      "la-pizzeria",
		OrderNumber: "123456",
		Total:       16000,
		Status:      models.OrderStatusPending,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("StoreOrder failed: %v", err)
	}

	rr := serveRequest(env, testutil.CreateHTTPRequest(t, "GET", "/orders/"+id, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "existing order")
	response := testutil.AssertJSONResponse(t, rr, "ok")
	result := response["result"].(map[string]interface{})
	if result["order_number"] != "123456" {
		t.Errorf("unexpected order payload: %v", result)
	}

	rr = serveRequest(env, testutil.CreateHTTPRequest(t, "GET", "/orders/ord_missing", nil))
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "missing order")
	testutil.AssertJSONResponse(t, rr, "error")
}

// issueAdminToken creates a session directly in the store.
func issueAdminToken(t *testing.T, env *testutil.Env, tenantID string) string {
	t.Helper()
	session := router.AdminSession{
		Token:     "test-token-" + tenantID,
		TenantID:  tenantID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(router.SessionTTL),
	}
	if err := env.Sessions.Create(context.Background(), session, router.SessionTTL); err != nil {
		t.Fatalf("Create session failed: %v", err)
	}
	return session.Token
}

func TestAdminListOrders(t *testing.T) {
	env := testutil.NewTestEnv(t)
	ctx := context.Background()

	if _, err := env.Repo.StoreOrder(ctx, models.OrderData{
		Tenant: "la-pizzeria", OrderNumber: "000001", Status: models.OrderStatusPending, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("StoreOrder failed: %v", err)
	}

	// No token.
	rr := serveRequest(env, testutil.CreateHTTPRequest(t, "GET", "/admin/la-pizzeria/orders", nil))
	testutil.AssertHTTPStatus(t, http.StatusUnauthorized, rr.Code, "missing token")

	token := issueAdminToken(t, env, "la-pizzeria")
	path := "/admin/la-pizzeria/orders?token=" + url.QueryEscape(token)
	rr = serveRequest(env, testutil.CreateHTTPRequest(t, "GET", path, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "authorized list")
	response := testutil.AssertJSONResponse(t, rr, "ok")
	list, ok := response["result"].([]interface{})
	if !ok || len(list) != 1 {
		t.Errorf("expected 1 order, got %v", response["result"])
	}

	// A token for one tenant does not open another tenant's dashboard.
	rr = serveRequest(env, testutil.CreateHTTPRequest(t, "GET",
		"/admin/almuerzos-dona-rosa/orders?token="+url.QueryEscape(token), nil))
	testutil.AssertHTTPStatus(t, http.StatusUnauthorized, rr.Code, "cross-tenant token")
}

func TestAdminUpdateOrder(t *testing.T) {
	env := testutil.NewTestEnv(t)
	ctx := context.Background()

	id, err := env.Repo.StoreOrder(ctx, models.OrderData{
		Tenant: "la-pizzeria", OrderNumber: "000001", Status: models.OrderStatusPending, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("StoreOrder failed: %v", err)
	}
	token := issueAdminToken(t, env, "la-pizzeria")

	path := fmt.Sprintf("/admin/la-pizzeria/orders/%s?token=%s", id, url.QueryEscape(token))
	rr := serveRequest(env, testutil.CreateHTTPRequest(t, "PATCH", path,
		map[string]string{"status": "preparing"}))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "valid update")

	order, err := env.Repo.GetOrder(ctx, id)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if order.Status != models.OrderStatusPreparing {
		t.Errorf("status = %s, want preparing", order.Status)
	}

	rr = serveRequest(env, testutil.CreateHTTPRequest(t, "PATCH", path,
		map[string]string{"status": "bogus"}))
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "invalid status")

	// An order owned by another tenant 404s even with a valid token.
	otherID, err := env.Repo.StoreOrder(ctx, models.OrderData{
		Tenant: "almuerzos-dona-rosa", OrderNumber: "000002", Status: models.OrderStatusPending, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("StoreOrder failed: %v", err)
	}
	path = fmt.Sprintf("/admin/la-pizzeria/orders/%s?token=%s", otherID, url.QueryEscape(token))
	rr = serveRequest(env, testutil.CreateHTTPRequest(t, "PATCH", path,
		map[string]string{"status": "confirmed"}))
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "cross-tenant order")
}

func TestAdminEndpointsDisabledWithoutManager(t *testing.T) {
	env := testutil.NewTestEnv(t)
	server := api.NewServer(env.Resolver, env.Router, env.Sender, env.Repo, nil)

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, testutil.CreateHTTPRequest(t, "GET", "/admin/la-pizzeria/orders", nil))
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "admin disabled")
}

func TestHealth(t *testing.T) {
	env := testutil.NewTestEnv(t)
	rr := serveRequest(env, testutil.CreateHTTPRequest(t, "GET", "/health", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "health")
}
