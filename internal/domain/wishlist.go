package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WishlistItem is a product snapshot saved by a user.
type WishlistItem struct {
	UserID    uuid.UUID       `json:"-"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	AddedAt   time.Time       `json:"added_at"`
}
