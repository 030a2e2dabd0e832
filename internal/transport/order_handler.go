package transport

import (
	"net/http"

	"zen-storefront/internal/domain"
	"zen-storefront/internal/middleware"
	"zen-storefront/internal/repository"
	"zen-storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ContactRequest is the checkout contact block
type ContactRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"max=30"`
}

// AddressRequest is the checkout shipping address
type AddressRequest struct {
	Street     string `json:"street" validate:"required,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	Region     string `json:"region" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"max=20"`
	Country    string `json:"country" validate:"max=60"`
}

// OrderItemRequest is one cart line
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=100"`
	Size      string `json:"size" validate:"max=20"`
	Color     string `json:"color" validate:"max=40"`
}

// CreateOrderRequest is the checkout payload. Total is the amount the client
// displayed; it is checked, never trusted.
type CreateOrderRequest struct {
	Contact           ContactRequest     `json:"contact"`
	Items             []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress   AddressRequest     `json:"shipping_address"`
	PaymentMethod     string             `json:"payment_method" validate:"required,oneof=cod instapay"`
	PaymentScreenshot string             `json:"payment_screenshot" validate:"max=500"`
	CouponCode        string             `json:"coupon_code" validate:"max=50"`
	Notes             string             `json:"notes" validate:"max=1000"`
	Total             *decimal.Decimal   `json:"total"`
}

// CreateOrderResponse is returned after checkout
type CreateOrderResponse struct {
	Success     bool   `json:"success"`
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	Total       string `json:"total"`
	Warning     string `json:"warning,omitempty"`
}

// UpdateOrderRequest is an admin patch; absent fields are left untouched
type UpdateOrderRequest struct {
	ID                string  `json:"id" validate:"required,uuid"`
	Status            *string `json:"status"`
	TrackingNumber    *string `json:"tracking_number" validate:"omitempty,max=100"`
	PaymentStatus     *string `json:"payment_status"`
	PaymentScreenshot *string `json:"payment_screenshot" validate:"omitempty,max=500"`
	Notes             *string `json:"notes" validate:"omitempty,max=1000"`
}

// OrderResponse wraps an order with an optional notification warning
type OrderResponse struct {
	Success bool          `json:"success"`
	Order   *domain.Order `json:"order"`
	Warning string        `json:"warning,omitempty"`
}

// OrderHandler handles HTTP requests for the order ledger
type OrderHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Route("/orders", func(r chi.Router) {
		// Public routes
		r.With(g.Optional).Post("/", h.Create)
		r.Get("/track", h.Track)

		// Customer routes
		r.With(g.Auth).Get("/mine", h.ListMine)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(g.Auth, g.Admin)
			r.Get("/", h.List)
			r.Put("/", h.Update)
			r.Get("/{id}", h.Get)
		})
	})
}

// Create handles checkout
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	in := service.OrderInput{
		CustomerID: optionalUser(r),
		Contact: domain.Contact{
			Name:  req.Contact.Name,
			Email: req.Contact.Email,
			Phone: req.Contact.Phone,
		},
		ShippingAddress: domain.Address{
			Street:     req.ShippingAddress.Street,
			City:       req.ShippingAddress.City,
			Region:     req.ShippingAddress.Region,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
		PaymentMethod:     domain.PaymentMethod(req.PaymentMethod),
		PaymentScreenshot: req.PaymentScreenshot,
		CouponCode:        req.CouponCode,
		Notes:             req.Notes,
		ExpectedTotal:     req.Total,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, service.OrderItemInput{
			ProductID: uuid.MustParse(item.ProductID),
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
		})
	}

	order, warning, err := h.orders.Create(r.Context(), in)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, CreateOrderResponse{
		Success:     true,
		ID:          order.ID.String(),
		OrderNumber: order.OrderNumber,
		Total:       order.Total.StringFixed(2),
		Warning:     warning,
	})
}

// Update handles admin order patches
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	order, warning, err := h.orders.Update(r.Context(), uuid.MustParse(req.ID), service.OrderUpdate{
		Status:            req.Status,
		TrackingNumber:    req.TrackingNumber,
		PaymentStatus:     req.PaymentStatus,
		PaymentScreenshot: req.PaymentScreenshot,
		Notes:             req.Notes,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, OrderResponse{Success: true, Order: order, Warning: warning})
}

// Get returns one order
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// List returns orders for the back-office
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageQuery(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	filter := repository.OrderFilter{
		Status:   domain.OrderStatus(r.URL.Query().Get("status")),
		Page:     page,
		PageSize: pageSize,
	}
	orders, total, err := h.orders.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ListResponse{Items: orders, Total: total, Page: page, PageSize: pageSize})
}

// ListMine returns the caller's own orders
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	page, pageSize, err := pageQuery(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	orders, total, err := h.orders.ListForCustomer(r.Context(), userID, page, pageSize)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ListResponse{Items: orders, Total: total, Page: page, PageSize: pageSize})
}

// Track returns the public tracking view
func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := h.orders.Track(r.Context(), q.Get("orderNumber"), q.Get("email"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, view)
}
