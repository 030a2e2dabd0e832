package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"zen-storefront/internal/domain"
)

// AlertRepository stores the history of low-stock scans
type AlertRepository interface {
	Create(ctx context.Context, alert *domain.StockAlert) error
	List(ctx context.Context, limit int) ([]*domain.StockAlert, error)
}

type alertRepository struct {
	db *sql.DB
}

// NewAlertRepository creates a new instance of AlertRepository
func NewAlertRepository(db *sql.DB) AlertRepository {
	return &alertRepository{db: db}
}

// Create records one scan run
func (r *alertRepository) Create(ctx context.Context, alert *domain.StockAlert) error {
	if alert.Items == nil {
		alert.Items = []domain.LowStockItem{}
	}
	items, err := json.Marshal(alert.Items)
	if err != nil {
		return fmt.Errorf("failed to encode alert items: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO stock_alerts (id, default_threshold, items, notified, notify_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		alert.ID,
		alert.DefaultThreshold,
		string(items),
		alert.Notified,
		alert.NotifyError,
		alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create stock alert: %w", err)
	}
	return nil
}

// List returns the most recent runs first
func (r *alertRepository) List(ctx context.Context, limit int) ([]*domain.StockAlert, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, default_threshold, items, notified, notify_error, created_at
		FROM stock_alerts
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*domain.StockAlert{}
	for rows.Next() {
		var (
			a     domain.StockAlert
			items []byte
		)
		if err := rows.Scan(&a.ID, &a.DefaultThreshold, &items, &a.Notified, &a.NotifyError, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock alert: %w", err)
		}
		if err := json.Unmarshal(items, &a.Items); err != nil {
			return nil, fmt.Errorf("failed to decode alert items: %w", err)
		}
		alerts = append(alerts, &a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock alerts: %w", err)
	}
	return alerts, nil
}
