package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chatea-chevere/orderbot/internal/models"
	"github.com/chatea-chevere/orderbot/internal/orders"
)

// getOrderHandler serves one order by id for the confirmation page linked
// from the final message.
func (s *Server) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Order id is required"))
		return
	}

	order, err := s.repo.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Order not found"))
			return
		}
		slog.Error("Server.getOrderHandler: failed to fetch order", "id", id, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch order"))
		return
	}
	if order == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Order not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(order))
}

// authorizeAdmin checks the dashboard token on admin endpoints. Writes the
// error response itself and reports whether the request may proceed.
func (s *Server) authorizeAdmin(w http.ResponseWriter, r *http.Request, tenantID string) bool {
	if s.admin == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Admin endpoints disabled"))
		return false
	}
	valid, err := s.admin.ValidateToken(r.Context(), r.URL.Query().Get("token"), tenantID)
	if err != nil {
		slog.Error("Server admin token validation failed", "tenantID", tenantID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to validate token"))
		return false
	}
	if !valid {
		writeJSONResponse(w, http.StatusUnauthorized, models.Error("Invalid or expired token"))
		return false
	}
	return true
}

// adminListOrdersHandler lists a tenant's orders for the dashboard.
func (s *Server) adminListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenantID")
	if !s.authorizeAdmin(w, r, tenantID) {
		return
	}

	list, err := s.repo.ListOrders(r.Context(), tenantID)
	if err != nil {
		slog.Error("Server.adminListOrdersHandler: failed to list orders", "tenantID", tenantID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list orders"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(list))
}

type updateOrderRequest struct {
	Status models.OrderStatus `json:"status"`
}

// adminUpdateOrderHandler moves an order through the fulfillment statuses.
func (s *Server) adminUpdateOrderHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	tenantID := r.PathValue("tenantID")
	id := r.PathValue("id")
	if !s.authorizeAdmin(w, r, tenantID) {
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if !models.IsValidOrderStatus(req.Status) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid order status"))
		return
	}

	// The order must belong to the tenant the token grants.
	order, err := s.repo.GetOrder(r.Context(), id)
	if err != nil && !errors.Is(err, orders.ErrOrderNotFound) {
		slog.Error("Server.adminUpdateOrderHandler: failed to fetch order", "id", id, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch order"))
		return
	}
	if order == nil || err != nil || order.Tenant != tenantID {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Order not found"))
		return
	}

	if err := s.repo.UpdateOrderStatus(r.Context(), id, req.Status); err != nil {
		slog.Error("Server.adminUpdateOrderHandler: failed to update order", "id", id, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update order"))
		return
	}
	slog.Info("Server order status updated", "tenantID", tenantID, "id", id, "status", req.Status)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Order updated", nil))
}
