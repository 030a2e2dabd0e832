package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LowStockItem is one product flagged by an inventory scan.
type LowStockItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Stock     int       `json:"stock"`
	Threshold int       `json:"threshold"`
}

// StockAlert records one run of the low-stock scan.
type StockAlert struct {
	ID               uuid.UUID      `json:"id"`
	DefaultThreshold int            `json:"default_threshold"`
	Items            []LowStockItem `json:"items"`
	Notified         bool           `json:"notified"`
	NotifyError      string         `json:"notify_error,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// DashboardSummary is the admin overview.
type DashboardSummary struct {
	OrdersByStatus map[OrderStatus]int `json:"orders_by_status"`
	TotalOrders    int                 `json:"total_orders"`
	Revenue        decimal.Decimal     `json:"revenue"`
	LowStockCount  int                 `json:"low_stock_count"`
}
