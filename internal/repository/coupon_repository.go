package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"zen-storefront/internal/domain"
)

// CouponRepository defines the interface for coupon data access
type CouponRepository interface {
	Create(ctx context.Context, coupon *domain.Coupon) error
	FindByCode(ctx context.Context, code string) (*domain.Coupon, error)
	List(ctx context.Context) ([]*domain.Coupon, error)
	Deactivate(ctx context.Context, code string) error
	Redeem(ctx context.Context, code string, now time.Time) (*domain.Coupon, error)
}

type couponRepository struct {
	db *sql.DB
}

// NewCouponRepository creates a new instance of CouponRepository
func NewCouponRepository(db *sql.DB) CouponRepository {
	return &couponRepository{db: db}
}

const couponColumns = `id, code, type, value, min_order_amount, max_uses, used_count, expires_at, is_active, created_at, updated_at`

func scanCoupon(row rowScanner) (*domain.Coupon, error) {
	var (
		c         domain.Coupon
		expiresAt sql.NullTime
	)
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Type,
		&c.Value,
		&c.MinOrderAmount,
		&c.MaxUses,
		&c.UsedCount,
		&expiresAt,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		c.ExpiresAt = &expiresAt.Time
	}
	return &c, nil
}

// Create inserts a coupon. The partial unique index on active codes turns a
// concurrent duplicate into ErrDuplicateCode.
func (r *couponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	var expiresAt sql.NullTime
	if coupon.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *coupon.ExpiresAt, Valid: true}
	}

	query := `
		INSERT INTO coupons (id, code, type, value, min_order_amount, max_uses, used_count, expires_at, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		coupon.ID,
		domain.NormalizeCouponCode(coupon.Code),
		coupon.Type,
		coupon.Value,
		coupon.MinOrderAmount,
		coupon.MaxUses,
		expiresAt,
		coupon.IsActive,
		coupon.CreatedAt,
		coupon.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "idx_coupons_active_code") {
			return domain.ErrDuplicateCode
		}
		return fmt.Errorf("failed to create coupon: %w", err)
	}

	return nil
}

// FindByCode returns the active coupon for code, or the most recent inactive
// one when no active coupon exists.
func (r *couponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	return findCoupon(ctx, r.db, code)
}

func findCoupon(ctx context.Context, q DBTX, code string) (*domain.Coupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE code = $1
		ORDER BY is_active DESC, created_at DESC
		LIMIT 1
	`

	coupon, err := scanCoupon(q.QueryRowContext(ctx, query, domain.NormalizeCouponCode(code)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to find coupon: %w", err)
	}
	return coupon, nil
}

// List returns all coupons, newest first
func (r *couponRepository) List(ctx context.Context) ([]*domain.Coupon, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer rows.Close()

	coupons := []*domain.Coupon{}
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, coupon)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupons: %w", err)
	}

	return coupons, nil
}

// Deactivate switches off the active coupon with code
func (r *couponRepository) Deactivate(ctx context.Context, code string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE coupons SET is_active = FALSE WHERE code = $1 AND is_active`,
		domain.NormalizeCouponCode(code),
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate coupon: %w", err)
	}

	return rowsAffected(result, domain.ErrCouponNotFound)
}

// Redeem consumes one use of the coupon with a single conditional write.
func (r *couponRepository) Redeem(ctx context.Context, code string, now time.Time) (*domain.Coupon, error) {
	return redeemCoupon(ctx, r.db, code, now)
}

// redeemCoupon increments used_count only while the coupon is active,
// unexpired and below its cap. Concurrent callers serialize on the row lock
// taken by UPDATE, so the cap can never be exceeded.
func redeemCoupon(ctx context.Context, q DBTX, code string, now time.Time) (*domain.Coupon, error) {
	query := `
		UPDATE coupons
		SET used_count = used_count + 1
		WHERE code = $1
		  AND is_active
		  AND (expires_at IS NULL OR expires_at > $2)
		  AND (max_uses = 0 OR used_count < max_uses)
		RETURNING ` + couponColumns

	coupon, err := scanCoupon(q.QueryRowContext(ctx, query, domain.NormalizeCouponCode(code), now))
	if err == nil {
		return coupon, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to redeem coupon: %w", err)
	}

	// Nothing matched: report why, using the same rule order as validation.
	current, findErr := findCoupon(ctx, q, code)
	if findErr != nil {
		return nil, findErr
	}
	check := current.Check(current.MinOrderAmount, now)
	switch check.Reason {
	case domain.ReasonInactive, domain.ReasonExpired:
		return nil, domain.ValidationError("%s", check.Reason)
	}
	return nil, domain.ErrCouponExhausted
}
