package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"zen-storefront/internal/domain"
	"zen-storefront/internal/report"
	"zen-storefront/internal/repository"

	"go.uber.org/zap"
)

// maxExportRange bounds a single export.
const maxExportRange = 366 * 24 * time.Hour

// DashboardService backs the admin overview and exports.
type DashboardService interface {
	Summary(ctx context.Context) (*domain.DashboardSummary, error)
	ExportOrders(ctx context.Context, w io.Writer, from, to time.Time) (int, error)
}

type dashboardService struct {
	orders           repository.OrderRepository
	products         repository.ProductRepository
	defaultThreshold int
	logger           *zap.Logger
}

// NewDashboardService creates a new instance of DashboardService
func NewDashboardService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	defaultThreshold int,
	logger *zap.Logger,
) DashboardService {
	return &dashboardService{
		orders:           orders,
		products:         products,
		defaultThreshold: defaultThreshold,
		logger:           logger,
	}
}

func (s *dashboardService) Summary(ctx context.Context) (*domain.DashboardSummary, error) {
	counts, revenue, err := s.orders.Summary(ctx)
	if err != nil {
		return nil, err
	}

	lowStock, err := s.products.ListLowStock(ctx, s.defaultThreshold)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	return &domain.DashboardSummary{
		OrdersByStatus: counts,
		TotalOrders:    total,
		Revenue:        revenue,
		LowStockCount:  len(lowStock),
	}, nil
}

// ExportOrders writes the orders created in [from, to) as an xlsx workbook
// and returns how many orders it contained.
func (s *dashboardService) ExportOrders(ctx context.Context, w io.Writer, from, to time.Time) (int, error) {
	if !to.After(from) {
		return 0, domain.ValidationError("export range end must be after its start")
	}
	if to.Sub(from) > maxExportRange {
		return 0, domain.ValidationError("export range must not exceed one year")
	}

	orders, err := s.orders.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return 0, err
	}

	if err := report.WriteOrders(w, orders); err != nil {
		return 0, fmt.Errorf("failed to render export: %w", err)
	}

	s.logger.Info("Orders exported", zap.Int("orders", len(orders)), zap.Time("from", from), zap.Time("to", to))
	return len(orders), nil
}
