package domain

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by the ledger wraps exactly one of
// these so the transport layer can map it to a status code with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrDependency        = errors.New("dependency failure")
	ErrInvalidTransition = errors.New("invalid state transition")
)

var (
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrCouponNotFound   = fmt.Errorf("coupon %w", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)
	ErrReviewNotFound   = fmt.Errorf("review %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrWishlistNotFound = fmt.Errorf("wishlist item %w", ErrNotFound)

	ErrDuplicateCode     = fmt.Errorf("%w: an active coupon with this code already exists", ErrConflict)
	ErrDuplicateReview   = fmt.Errorf("%w: you have already reviewed this product", ErrConflict)
	ErrDuplicateSlug     = fmt.Errorf("%w: a product with this slug already exists", ErrConflict)
	ErrUserAlreadyExists = fmt.Errorf("%w: user with this email already exists", ErrConflict)
	ErrCouponExhausted   = fmt.Errorf("%w: coupon has reached its usage limit", ErrConflict)
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", ErrConflict)

	ErrInvalidRating = fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	ErrInvalidStatus = fmt.Errorf("%w: invalid status", ErrValidation)
)

// ValidationError builds an ErrValidation with a caller supplied message.
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// DependencyError marks err as a failure of the database or an external provider.
func DependencyError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependency, op, err)
}
