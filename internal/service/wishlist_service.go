package service

import (
	"context"
	"time"

	"zen-storefront/internal/domain"
	"zen-storefront/internal/repository"

	"github.com/google/uuid"
)

// WishlistService keeps per-user product snapshots.
type WishlistService interface {
	List(ctx context.Context, userID uuid.UUID) ([]*domain.WishlistItem, error)
	Add(ctx context.Context, userID, productID uuid.UUID) (*domain.WishlistItem, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) error
}

type wishlistService struct {
	wishlist repository.WishlistRepository
	products repository.ProductRepository
	now      func() time.Time
}

// NewWishlistService creates a new instance of WishlistService
func NewWishlistService(wishlist repository.WishlistRepository, products repository.ProductRepository) WishlistService {
	return &wishlistService{wishlist: wishlist, products: products, now: time.Now}
}

func (s *wishlistService) List(ctx context.Context, userID uuid.UUID) ([]*domain.WishlistItem, error) {
	return s.wishlist.List(ctx, userID)
}

// Add copies the product into the wishlist. Adding it again is a no-op.
func (s *wishlistService) Add(ctx context.Context, userID, productID uuid.UUID) (*domain.WishlistItem, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status != domain.ProductStatusActive {
		return nil, domain.ErrProductNotFound
	}

	item := &domain.WishlistItem{
		UserID:    userID,
		ProductID: product.ID,
		Name:      product.Name,
		Slug:      product.Slug,
		Price:     product.Price,
		Image:     product.FirstImage(),
		AddedAt:   s.now(),
	}
	if err := s.wishlist.Add(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *wishlistService) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	return s.wishlist.Remove(ctx, userID, productID)
}
