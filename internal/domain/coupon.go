package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CouponType selects how a coupon value is turned into a discount.
type CouponType string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeFixed      CouponType = "fixed"
)

// Rejection reasons returned by coupon validation, in check order.
const (
	ReasonInvalidCode  = "Invalid coupon code"
	ReasonInactive     = "Coupon is not active"
	ReasonExpired      = "Coupon has expired"
	ReasonUsageLimit   = "Coupon has reached its usage limit"
	reasonMinimumOrder = "Minimum order amount is "
)

var hundred = decimal.NewFromInt(100)

// Coupon is a discount code with optional usage cap and expiry.
type Coupon struct {
	ID             uuid.UUID       `json:"id"`
	Code           string          `json:"code"`
	Type           CouponType      `json:"type"`
	Value          decimal.Decimal `json:"value"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	MaxUses        int             `json:"max_uses"`
	UsedCount      int             `json:"used_count"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NormalizeCouponCode is applied both when storing and when looking up codes.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CouponCheck is the outcome of validating a coupon against an order amount.
type CouponCheck struct {
	Valid    bool            `json:"valid"`
	Discount decimal.Decimal `json:"discount"`
	Reason   string          `json:"error,omitempty"`
}

// Check applies the validation rules in order; the first failing rule wins.
func (c *Coupon) Check(orderAmount decimal.Decimal, now time.Time) CouponCheck {
	switch {
	case !c.IsActive:
		return CouponCheck{Reason: ReasonInactive}
	case c.ExpiresAt != nil && !c.ExpiresAt.After(now):
		return CouponCheck{Reason: ReasonExpired}
	case !c.HasUsesLeft():
		return CouponCheck{Reason: ReasonUsageLimit}
	case orderAmount.LessThan(c.MinOrderAmount):
		return CouponCheck{Reason: reasonMinimumOrder + c.MinOrderAmount.StringFixed(2)}
	}
	return CouponCheck{Valid: true, Discount: c.Discount(orderAmount)}
}

// HasUsesLeft reports whether another redemption is allowed.
func (c *Coupon) HasUsesLeft() bool {
	return c.MaxUses == 0 || c.UsedCount < c.MaxUses
}

// Discount computes the discount for orderAmount, clamped to [0, orderAmount].
func (c *Coupon) Discount(orderAmount decimal.Decimal) decimal.Decimal {
	if !orderAmount.IsPositive() {
		return decimal.Zero
	}

	var d decimal.Decimal
	switch c.Type {
	case CouponTypePercentage:
		d = orderAmount.Mul(c.Value).Div(hundred).Round(2)
	case CouponTypeFixed:
		d = c.Value
	}

	if d.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(d, orderAmount)
}
