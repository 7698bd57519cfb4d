package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/chatea-chevere/orderbot/internal/models"
)

// webhookBody is the Meta Cloud API webhook payload, reduced to the fields
// inbound text messages carry.
type webhookBody struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Messages []webhookMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
}

// verifyWebhookHandler answers Meta's subscription handshake: echo the
// challenge when the verify token matches, 403 otherwise.
func (s *Server) verifyWebhookHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")

	if mode == "subscribe" && s.verifyToken != "" && token == s.verifyToken {
		slog.Info("Server webhook verified")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	slog.Warn("Server webhook verification failed", "mode", mode)
	http.Error(w, "Verification failed", http.StatusForbidden)
}

// webhookHandler receives inbound messages. Each text message is routed to
// the owning tenant (by the receiving phone-number id) or the sandbox, and
// the reply goes out through the sender. Delivery failures are logged, never
// surfaced: the webhook always acknowledges so the platform does not retry.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}

	var body webhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		slog.Warn("Server.webhookHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if body.Object != "whatsapp_business_account" {
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Ignored", nil))
		return
	}

	for _, entry := range body.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			phoneNumberID := change.Value.Metadata.PhoneNumberID
			for _, msg := range change.Value.Messages {
				if msg.Type != "text" || msg.Text == nil || msg.Text.Body == "" {
					continue
				}
				slog.Info("Server inbound message", "phoneNumberID", phoneNumberID, "from", msg.From)

				reply := s.routeMessage(r, phoneNumberID, msg.From, msg.Text.Body)
				if s.devMode {
					writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"response": reply}))
					return
				}
				s.deliverReply(r, msg.From, reply)
			}
		}
	}

	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Webhook received", nil))
}

// routeMessage picks the engine entry point: a registered tenant number goes
// straight to that tenant, anything else is the shared sandbox.
func (s *Server) routeMessage(r *http.Request, phoneNumberID, from, text string) string {
	if src, ok := s.resolver.SourceByPhoneNumberID(phoneNumberID); ok {
		return s.rt.HandleTenantMessage(r.Context(), src.TenantID, from, text)
	}
	return s.rt.HandleMessage(r.Context(), from, text)
}

func (s *Server) deliverReply(r *http.Request, to, reply string) {
	if err := s.sender.SendMessage(r.Context(), to, reply); err != nil {
		slog.Error("Server failed to deliver reply", "to", to, "error", err)
		return
	}
	slog.Debug("Server reply delivered", "to", to)
}
