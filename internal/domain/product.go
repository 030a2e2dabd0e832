package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus is the publication state of a catalog entry.
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
)

// Valid reports whether s is a known product status.
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive, ProductStatusArchived:
		return true
	}
	return false
}

// Product represents a product in the catalog
type Product struct {
	ID                uuid.UUID        `json:"id"`
	Name              string           `json:"name"`
	Slug              string           `json:"slug"`
	Description       string           `json:"description"`
	Price             decimal.Decimal  `json:"price"`
	CompareAtPrice    *decimal.Decimal `json:"compare_at_price,omitempty"`
	Stock             int              `json:"stock"`
	Status            ProductStatus    `json:"status"`
	Images            []string         `json:"images"`
	LowStockThreshold *int             `json:"low_stock_threshold,omitempty"`
	AverageRating     float64          `json:"average_rating"`
	ReviewCount       int              `json:"review_count"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// FirstImage returns the image used for denormalized snapshots.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a product name into a URL-safe slug.
func Slugify(name string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}
