package transport

import (
	"net/http"
	"strings"

	"zen-storefront/internal/domain"
	"zen-storefront/internal/middleware"
	"zen-storefront/internal/repository"
	"zen-storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest is the admin create/replace payload
type ProductRequest struct {
	Name              string           `json:"name" validate:"required,max=200"`
	Slug              string           `json:"slug" validate:"max=200"`
	Description       string           `json:"description" validate:"max=5000"`
	Price             decimal.Decimal  `json:"price"`
	CompareAtPrice    *decimal.Decimal `json:"compare_at_price"`
	Stock             int              `json:"stock" validate:"min=0"`
	Status            string           `json:"status" validate:"omitempty,oneof=draft active archived"`
	Images            []string         `json:"images" validate:"max=20,dive,url"`
	LowStockThreshold *int             `json:"low_stock_threshold" validate:"omitempty,min=0"`
}

func (req ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:              req.Name,
		Slug:              req.Slug,
		Description:       req.Description,
		Price:             req.Price,
		CompareAtPrice:    req.CompareAtPrice,
		Stock:             req.Stock,
		Status:            domain.ProductStatus(req.Status),
		Images:            req.Images,
		LowStockThreshold: req.LowStockThreshold,
	}
}

// CatalogHandler handles HTTP requests for the product catalog
type CatalogHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes registers the storefront and admin catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router, g Guards) {
	r.Get("/products", h.ListActive)
	r.With(g.Optional).Get("/products/{slug}", h.GetBySlug)

	r.Group(func(r chi.Router) {
		r.Use(g.Auth, g.Admin)
		r.Get("/admin/products", h.ListAll)
		r.Post("/admin/products", h.Create)
		r.Put("/admin/products/{id}", h.Update)
		r.Delete("/admin/products/{id}", h.Delete)
	})
}

// ListActive lists published products
func (h *CatalogHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, domain.ProductStatusActive)
}

// ListAll lists products in any status, optionally filtered by ?status=
func (h *CatalogHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, domain.ProductStatus(r.URL.Query().Get("status")))
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request, status domain.ProductStatus) {
	page, pageSize, err := pageQuery(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	filter := repository.ProductFilter{
		Status:    status,
		Query:     q.Get("q"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    q.Get("sort_by"),
		SortOrder: repository.SortOrder(strings.ToUpper(q.Get("sort_order"))),
	}

	products, total, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ListResponse{Items: products, Total: total, Page: page, PageSize: pageSize})
}

// GetBySlug returns one product. Hidden products are visible to admins only.
func (h *CatalogHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetBySlug(r.Context(), chi.URLParam(r, "slug"), isAdmin(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Create adds a product
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	product, err := h.catalog.Create(r.Context(), req.input())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update replaces a product's editable fields
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	product, err := h.catalog.Update(r.Context(), id, req.input())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete removes a product
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.catalog.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
