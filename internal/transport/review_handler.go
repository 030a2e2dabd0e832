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

// SubmitReviewRequest is a customer review. Rating bounds are enforced by the
// review service.
type SubmitReviewRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Rating    int    `json:"rating"`
	Title     string `json:"title"`
	Comment   string `json:"comment"`
}

// ReviewActionRequest acts on an existing review
type ReviewActionRequest struct {
	ReviewID string `json:"reviewId" validate:"required,uuid"`
	Action   string `json:"action" validate:"required,oneof=helpful"`
}

// SubmitReviewResponse returns the review and the product's new rating
type SubmitReviewResponse struct {
	Success bool                 `json:"success"`
	Review  *domain.Review       `json:"review"`
	Rating  domain.RatingSummary `json:"rating"`
}

// ReviewHandler handles HTTP requests for product reviews
type ReviewHandler struct {
	reviews service.ReviewService
	logger  *zap.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviews service.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, logger: logger}
}

// RegisterRoutes registers all review routes
func (h *ReviewHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Route("/reviews", func(r chi.Router) {
		r.Get("/", h.List)
		r.Put("/", h.Action)
		r.With(g.Auth).Post("/", h.Submit)
	})
}

// List returns the reviews of ?productId=
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(r.URL.Query().Get("productId"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "productId is required")
		return
	}

	reviews, err := h.reviews.List(r.Context(), productID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, reviews)
}

// Submit stores the caller's review
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req SubmitReviewRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	review, summary, err := h.reviews.Submit(r.Context(), uuid.MustParse(req.ProductID), userID, req.Rating, req.Title, req.Comment)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, SubmitReviewResponse{Success: true, Review: review, Rating: summary})
}

// Action marks a review helpful
func (h *ReviewHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req ReviewActionRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	count, err := h.reviews.MarkHelpful(r.Context(), uuid.MustParse(req.ReviewID))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"helpful_count": count,
	})
}
