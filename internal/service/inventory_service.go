package service

import (
	"context"
	"time"

	"zen-storefront/internal/domain"
	"zen-storefront/internal/notification"
	"zen-storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryService runs low-stock scans.
type InventoryService interface {
	CheckLowStock(ctx context.Context, threshold *int) (alert *domain.StockAlert, warning string, err error)
	History(ctx context.Context, limit int) ([]*domain.StockAlert, error)
}

type inventoryService struct {
	products         repository.ProductRepository
	alerts           repository.AlertRepository
	notify           notifier
	adminEmail       string
	defaultThreshold int
	logger           *zap.Logger
	now              func() time.Time
}

// NewInventoryService creates a new instance of InventoryService
func NewInventoryService(
	products repository.ProductRepository,
	alerts repository.AlertRepository,
	dispatcher notification.Dispatcher,
	settings LedgerSettings,
	defaultThreshold int,
	logger *zap.Logger,
) InventoryService {
	return &inventoryService{
		products:         products,
		alerts:           alerts,
		notify:           notifier{dispatcher: dispatcher, timeout: settings.NotifyTimeout, logger: logger},
		adminEmail:       settings.AdminEmail,
		defaultThreshold: defaultThreshold,
		logger:           logger,
		now:              time.Now,
	}
}

// CheckLowStock flags active products at or below their threshold, sends one
// batched alert when anything was flagged and records the run. Repeated
// calls alert again for the same products. A nil threshold uses the
// configured default; 0 flags only products that are out of stock.
func (s *inventoryService) CheckLowStock(ctx context.Context, override *int) (*domain.StockAlert, string, error) {
	threshold := s.defaultThreshold
	if override != nil {
		threshold = *override
	}
	if threshold < 0 {
		return nil, "", domain.ValidationError("threshold must not be negative")
	}

	items, err := s.products.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	alert := &domain.StockAlert{
		ID:               uuid.New(),
		DefaultThreshold: threshold,
		Items:            items,
		CreatedAt:        now,
	}

	warning := ""
	if len(items) > 0 {
		if err := s.notify.send(ctx, notification.LowStockAlert(items, s.adminEmail, now)); err != nil {
			alert.NotifyError = err.Error()
			warning = WarningAlertNotificationFailed
		} else {
			alert.Notified = true
		}
	}

	if err := s.alerts.Create(ctx, alert); err != nil {
		return nil, "", err
	}

	s.logger.Info("Low stock scan finished",
		zap.Int("threshold", threshold),
		zap.Int("flagged", len(items)),
		zap.Bool("notified", alert.Notified),
	)
	return alert, warning, nil
}

func (s *inventoryService) History(ctx context.Context, limit int) ([]*domain.StockAlert, error) {
	return s.alerts.List(ctx, limit)
}
