package repository

import (
	"context"
	"database/sql"
	"fmt"

	"zen-storefront/internal/domain"

	"github.com/google/uuid"
)

// WishlistRepository defines the interface for wishlist data access
type WishlistRepository interface {
	Add(ctx context.Context, item *domain.WishlistItem) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]*domain.WishlistItem, error)
}

type wishlistRepository struct {
	db *sql.DB
}

// NewWishlistRepository creates a new instance of WishlistRepository
func NewWishlistRepository(db *sql.DB) WishlistRepository {
	return &wishlistRepository{db: db}
}

// Add saves a product snapshot. Adding the same product twice keeps the
// original entry.
func (r *wishlistRepository) Add(ctx context.Context, item *domain.WishlistItem) error {
	query := `
		INSERT INTO wishlist_items (user_id, product_id, name, slug, price, image, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT uq_wishlist_user_product DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		item.UserID,
		item.ProductID,
		item.Name,
		item.Slug,
		item.Price,
		item.Image,
		item.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add wishlist item: %w", err)
	}
	return nil
}

// Remove deletes a product from the user's wishlist
func (r *wishlistRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	return rowsAffected(result, domain.ErrWishlistNotFound)
}

// List returns the user's wishlist, most recently added first
func (r *wishlistRepository) List(ctx context.Context, userID uuid.UUID) ([]*domain.WishlistItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, product_id, name, slug, price, image, added_at
		FROM wishlist_items
		WHERE user_id = $1
		ORDER BY added_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	defer rows.Close()

	items := []*domain.WishlistItem{}
	for rows.Next() {
		var it domain.WishlistItem
		if err := rows.Scan(&it.UserID, &it.ProductID, &it.Name, &it.Slug, &it.Price, &it.Image, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		items = append(items, &it)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wishlist: %w", err)
	}
	return items, nil
}
