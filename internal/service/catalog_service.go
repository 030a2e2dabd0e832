package service

import (
	"context"
	"time"

	"zen-storefront/internal/domain"
	"zen-storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductInput is an admin create or replace request.
type ProductInput struct {
	Name              string
	Slug              string
	Description       string
	Price             decimal.Decimal
	CompareAtPrice    *decimal.Decimal
	Stock             int
	Status            domain.ProductStatus
	Images            []string
	LowStockThreshold *int
}

// CatalogService manages products.
type CatalogService interface {
	Create(ctx context.Context, in ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetBySlug(ctx context.Context, slug string, includeHidden bool) (*domain.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error)
}

type catalogService struct {
	repo   repository.ProductRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(repo repository.ProductRepository, logger *zap.Logger) CatalogService {
	return &catalogService{repo: repo, logger: logger, now: time.Now}
}

func normalizeProductInput(in *ProductInput) error {
	if in.Slug == "" {
		in.Slug = domain.Slugify(in.Name)
	} else {
		in.Slug = domain.Slugify(in.Slug)
	}
	if in.Status == "" {
		in.Status = domain.ProductStatusDraft
	}

	switch {
	case in.Name == "":
		return domain.ValidationError("name is required")
	case in.Slug == "":
		return domain.ValidationError("slug must contain letters or digits")
	case in.Price.IsNegative():
		return domain.ValidationError("price must not be negative")
	case in.CompareAtPrice != nil && in.CompareAtPrice.IsNegative():
		return domain.ValidationError("compare-at price must not be negative")
	case in.Stock < 0:
		return domain.ValidationError("stock must not be negative")
	case !in.Status.Valid():
		return domain.ValidationError("status must be draft, active or archived")
	case in.LowStockThreshold != nil && *in.LowStockThreshold < 0:
		return domain.ValidationError("low stock threshold must not be negative")
	}
	return nil
}

func (s *catalogService) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := normalizeProductInput(&in); err != nil {
		return nil, err
	}

	now := s.now()
	product := &domain.Product{
		ID:                uuid.New(),
		Name:              in.Name,
		Slug:              in.Slug,
		Description:       in.Description,
		Price:             in.Price,
		CompareAtPrice:    in.CompareAtPrice,
		Stock:             in.Stock,
		Status:            in.Status,
		Images:            in.Images,
		LowStockThreshold: in.LowStockThreshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created", zap.String("product_id", product.ID.String()), zap.String("slug", product.Slug))
	return product, nil
}

// Update replaces the editable fields. The rating aggregate is owned by the
// review flow and is left untouched.
func (s *catalogService) Update(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error) {
	if err := normalizeProductInput(&in); err != nil {
		return nil, err
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Name = in.Name
	product.Slug = in.Slug
	product.Description = in.Description
	product.Price = in.Price
	product.CompareAtPrice = in.CompareAtPrice
	product.Stock = in.Stock
	product.Status = in.Status
	product.Images = in.Images
	product.LowStockThreshold = in.LowStockThreshold
	product.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

// GetBySlug returns a product page. Draft and archived products are only
// visible to admins.
func (s *catalogService) GetBySlug(ctx context.Context, slug string, includeHidden bool) (*domain.Product, error) {
	product, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !includeHidden && product.Status != domain.ProductStatusActive {
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

func (s *catalogService) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, domain.ValidationError("unknown product status %q", filter.Status)
	}
	return s.repo.List(ctx, filter)
}
