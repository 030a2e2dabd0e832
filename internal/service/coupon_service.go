package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zen-storefront/internal/domain"
	"zen-storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CouponInput is an admin request to create a coupon.
type CouponInput struct {
	Code           string
	Type           domain.CouponType
	Value          decimal.Decimal
	MinOrderAmount decimal.Decimal
	MaxUses        int
	ExpiresAt      *time.Time
}

// CouponService is the coupon ledger.
type CouponService interface {
	Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (domain.CouponCheck, error)
	Redeem(ctx context.Context, code string) (*domain.Coupon, error)
	Create(ctx context.Context, in CouponInput) (*domain.Coupon, error)
	List(ctx context.Context) ([]*domain.Coupon, error)
	Deactivate(ctx context.Context, code string) error
}

type couponService struct {
	repo   repository.CouponRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewCouponService creates a new instance of CouponService
func NewCouponService(repo repository.CouponRepository, logger *zap.Logger) CouponService {
	return &couponService{repo: repo, logger: logger, now: time.Now}
}

// Validate reports whether code applies to orderAmount. An unknown code is a
// negative result, not an error.
func (s *couponService) Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (domain.CouponCheck, error) {
	if domain.NormalizeCouponCode(code) == "" {
		return domain.CouponCheck{}, domain.ValidationError("coupon code is required")
	}
	if orderAmount.IsNegative() {
		return domain.CouponCheck{}, domain.ValidationError("order amount must not be negative")
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrCouponNotFound) {
			return domain.CouponCheck{Reason: domain.ReasonInvalidCode}, nil
		}
		return domain.CouponCheck{}, err
	}

	return coupon.Check(orderAmount, s.now()), nil
}

// Redeem consumes one use of code outside of checkout.
func (s *couponService) Redeem(ctx context.Context, code string) (*domain.Coupon, error) {
	if domain.NormalizeCouponCode(code) == "" {
		return nil, domain.ValidationError("coupon code is required")
	}

	coupon, err := s.repo.Redeem(ctx, code, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Coupon redeemed",
		zap.String("code", coupon.Code),
		zap.Int("used_count", coupon.UsedCount),
		zap.Int("max_uses", coupon.MaxUses),
	)
	return coupon, nil
}

// Create adds a new active coupon.
func (s *couponService) Create(ctx context.Context, in CouponInput) (*domain.Coupon, error) {
	code := domain.NormalizeCouponCode(in.Code)
	switch {
	case code == "":
		return nil, domain.ValidationError("coupon code is required")
	case in.Type != domain.CouponTypePercentage && in.Type != domain.CouponTypeFixed:
		return nil, domain.ValidationError("coupon type must be percentage or fixed")
	case !in.Value.IsPositive():
		return nil, domain.ValidationError("coupon value must be greater than 0")
	case in.Type == domain.CouponTypePercentage && in.Value.GreaterThan(decimal.NewFromInt(100)):
		return nil, domain.ValidationError("percentage coupons cannot exceed 100")
	case in.MinOrderAmount.IsNegative():
		return nil, domain.ValidationError("minimum order amount must not be negative")
	case in.MaxUses < 0:
		return nil, domain.ValidationError("max uses must not be negative")
	}

	now := s.now()
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return nil, domain.ValidationError("expiry must be in the future")
	}

	coupon := &domain.Coupon{
		ID:             uuid.New(),
		Code:           code,
		Type:           in.Type,
		Value:          in.Value,
		MinOrderAmount: in.MinOrderAmount,
		MaxUses:        in.MaxUses,
		ExpiresAt:      in.ExpiresAt,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		return nil, err
	}

	s.logger.Info("Coupon created", zap.String("code", coupon.Code), zap.String("type", string(coupon.Type)))
	return coupon, nil
}

func (s *couponService) List(ctx context.Context) ([]*domain.Coupon, error) {
	coupons, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	return coupons, nil
}

// Deactivate retires the active coupon with code so the code can be reissued.
func (s *couponService) Deactivate(ctx context.Context, code string) error {
	if domain.NormalizeCouponCode(code) == "" {
		return domain.ValidationError("coupon code is required")
	}
	if err := s.repo.Deactivate(ctx, code); err != nil {
		return err
	}
	s.logger.Info("Coupon deactivated", zap.String("code", domain.NormalizeCouponCode(code)))
	return nil
}
