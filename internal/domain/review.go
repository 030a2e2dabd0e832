package domain

import (
	"time"

	"github.com/google/uuid"
)

const ReviewStatusApproved = "approved"

// Review is a product review. Reviews are auto-approved.
type Review struct {
	ID           uuid.UUID `json:"id"`
	ProductID    uuid.UUID `json:"product_id"`
	UserID       uuid.UUID `json:"user_id"`
	Rating       int       `json:"rating"`
	Title        string    `json:"title"`
	Comment      string    `json:"comment"`
	Status       string    `json:"status"`
	HelpfulCount int       `json:"helpful_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// RatingSummary is the aggregate written back to the product.
type RatingSummary struct {
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

// ValidRating reports whether r is in [1,5].
func ValidRating(r int) bool {
	return r >= 1 && r <= 5
}
