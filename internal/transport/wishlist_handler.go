package transport

import (
	"net/http"

	"zen-storefront/internal/middleware"
	"zen-storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddWishlistRequest saves a product to the caller's wishlist
type AddWishlistRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// WishlistHandler handles HTTP requests for wishlists
type WishlistHandler struct {
	wishlist service.WishlistService
	logger   *zap.Logger
}

// NewWishlistHandler creates a new WishlistHandler
func NewWishlistHandler(wishlist service.WishlistService, logger *zap.Logger) *WishlistHandler {
	return &WishlistHandler{wishlist: wishlist, logger: logger}
}

// RegisterRoutes registers all wishlist routes
func (h *WishlistHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Route("/wishlist", func(r chi.Router) {
		r.Use(g.Auth)
		r.Get("/", h.List)
		r.Post("/", h.Add)
		r.Delete("/{productId}", h.Remove)
	})
}

// List returns the caller's wishlist
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.wishlist.List(r.Context(), userID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, items)
}

// Add saves a product; adding it twice is a no-op
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req AddWishlistRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	item, err := h.wishlist.Add(r.Context(), userID, uuid.MustParse(req.ProductID))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, item)
}

// Remove drops a product from the wishlist
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productId")
	if !ok {
		return
	}

	if err := h.wishlist.Remove(r.Context(), userID, productID); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
