package transport

import (
	"net/http"
	"time"

	"zen-storefront/internal/domain"
	"zen-storefront/internal/middleware"
	"zen-storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateCouponRequest is the admin payload for a new coupon
type CreateCouponRequest struct {
	Code           string          `json:"code" validate:"required,max=50"`
	Type           string          `json:"type" validate:"required,oneof=percentage fixed"`
	Value          decimal.Decimal `json:"value"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	MaxUses        int             `json:"max_uses" validate:"min=0"`
	ExpiresAt      *time.Time      `json:"expires_at"`
}

// CouponActionRequest redeems or retires a coupon
type CouponActionRequest struct {
	Action string `json:"action" validate:"required,oneof=use deactivate"`
	Code   string `json:"code" validate:"required,max=50"`
}

// CouponHandler handles HTTP requests for coupons
type CouponHandler struct {
	coupons service.CouponService
	logger  *zap.Logger
}

// NewCouponHandler creates a new CouponHandler
func NewCouponHandler(coupons service.CouponService, logger *zap.Logger) *CouponHandler {
	return &CouponHandler{coupons: coupons, logger: logger}
}

// RegisterRoutes registers all coupon routes
func (h *CouponHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Route("/coupons", func(r chi.Router) {
		r.Get("/", h.Validate)

		r.Group(func(r chi.Router) {
			r.Use(g.Auth, g.Admin)
			r.Post("/", h.Create)
			r.Put("/", h.Action)
			r.Get("/all", h.List)
		})
	})
}

// Validate checks a code against an order amount. A rejected coupon is still
// a 200 with valid=false.
func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount := decimal.Zero
	if raw := q.Get("orderAmount"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "orderAmount must be a number")
			return
		}
		amount = parsed
	}

	check, err := h.coupons.Validate(r.Context(), q.Get("code"), amount)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, check)
}

// Create adds a coupon
func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCouponRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	coupon, err := h.coupons.Create(r.Context(), service.CouponInput{
		Code:           req.Code,
		Type:           domain.CouponType(req.Type),
		Value:          req.Value,
		MinOrderAmount: req.MinOrderAmount,
		MaxUses:        req.MaxUses,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, coupon)
}

// Action redeems ("use") or retires ("deactivate") a coupon
func (h *CouponHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req CouponActionRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	switch req.Action {
	case "use":
		coupon, err := h.coupons.Redeem(r.Context(), req.Code)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"used_count": coupon.UsedCount,
		})
	case "deactivate":
		if err := h.coupons.Deactivate(r.Context(), req.Code); err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		middleware.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// List returns every coupon
func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, coupons)
}
