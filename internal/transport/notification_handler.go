package transport

import (
	"net/http"

	"zen-storefront/internal/domain"
	"zen-storefront/internal/middleware"
	"zen-storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryScanRequest overrides the default low-stock threshold; an absent
// threshold or an empty body uses the configured default.
type InventoryScanRequest struct {
	Threshold *int `json:"threshold"`
}

// ShippingNotificationRequest moves an order along its shipment
type ShippingNotificationRequest struct {
	OrderID        string  `json:"orderId" validate:"required,uuid"`
	Status         string  `json:"status" validate:"required"`
	TrackingNumber *string `json:"trackingNumber" validate:"omitempty,max=100"`
}

// InventoryScanResponse reports one low-stock run
type InventoryScanResponse struct {
	Success bool               `json:"success"`
	Alert   *domain.StockAlert `json:"alert"`
	Warning string             `json:"warning,omitempty"`
}

// NotificationHandler handles the admin notification triggers
type NotificationHandler struct {
	inventory service.InventoryService
	orders    service.OrderService
	logger    *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(inventory service.InventoryService, orders service.OrderService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{inventory: inventory, orders: orders, logger: logger}
}

// RegisterRoutes registers all notification routes
func (h *NotificationHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(g.Auth, g.Admin)
		r.Post("/inventory", h.ScanInventory)
		r.Get("/inventory", h.InventoryHistory)
		r.Post("/shipping", h.Shipping)
	})
}

// ScanInventory runs the low-stock scan
func (h *NotificationHandler) ScanInventory(w http.ResponseWriter, r *http.Request) {
	var req InventoryScanRequest
	if r.ContentLength != 0 && !decode(w, r, h.logger, &req) {
		return
	}

	alert, warning, err := h.inventory.CheckLowStock(r.Context(), req.Threshold)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, InventoryScanResponse{Success: true, Alert: alert, Warning: warning})
}

// InventoryHistory lists recent scans, newest first
func (h *NotificationHandler) InventoryHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 20)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	alerts, err := h.inventory.History(r.Context(), limit)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, alerts)
}

// Shipping records a shipment update and emails the customer
func (h *NotificationHandler) Shipping(w http.ResponseWriter, r *http.Request) {
	var req ShippingNotificationRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	order, warning, err := h.orders.ShippingUpdate(r.Context(), uuid.MustParse(req.OrderID), req.Status, req.TrackingNumber)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, OrderResponse{Success: true, Order: order, Warning: warning})
}
