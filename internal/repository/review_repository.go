package repository

import (
	"context"
	"database/sql"
	"fmt"

	"zen-storefront/internal/domain"

	"github.com/google/uuid"
)

// ReviewRepository defines the interface for review data access
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) (domain.RatingSummary, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error)
	IncrementHelpful(ctx context.Context, id uuid.UUID) (int, error)
}

type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository creates a new instance of ReviewRepository
func NewReviewRepository(db *sql.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

const reviewColumns = `id, product_id, user_id, rating, title, comment, status, helpful_count, created_at`

// Create inserts the review and rewrites the product's rating aggregate in the
// same transaction. The product row is locked first so concurrent reviews of
// one product recompute the aggregate one after another.
func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) (domain.RatingSummary, error) {
	var summary domain.RatingSummary

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRowContext(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, review.ProductID).Scan(&locked)
		if err == sql.ErrNoRows {
			return domain.ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock product: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO reviews (`+reviewColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)
		`,
			review.ID,
			review.ProductID,
			review.UserID,
			review.Rating,
			review.Title,
			review.Comment,
			review.Status,
			review.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, "uq_reviews_product_user") {
				return domain.ErrDuplicateReview
			}
			if isCheckViolation(err, "") {
				return domain.ErrInvalidRating
			}
			return fmt.Errorf("failed to create review: %w", err)
		}

		// ROUND on numeric is half away from zero, matching the one-decimal
		// display rounding of the storefront.
		err = tx.QueryRowContext(ctx, `
			UPDATE products p
			SET average_rating = agg.avg_rating, review_count = agg.cnt
			FROM (
				SELECT COALESCE(ROUND(AVG(rating)::numeric, 1), 0) AS avg_rating, COUNT(*) AS cnt
				FROM reviews
				WHERE product_id = $1 AND status = $2
			) agg
			WHERE p.id = $1
			RETURNING p.average_rating, p.review_count
		`, review.ProductID, domain.ReviewStatusApproved).Scan(&summary.AverageRating, &summary.ReviewCount)
		if err != nil {
			return fmt.Errorf("failed to update rating aggregate: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.RatingSummary{}, err
	}

	return summary, nil
}

// ListByProduct returns the product's reviews, newest first
func (r *reviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE product_id = $1 ORDER BY created_at DESC`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []*domain.Review{}
	for rows.Next() {
		var rv domain.Review
		err := rows.Scan(
			&rv.ID,
			&rv.ProductID,
			&rv.UserID,
			&rv.Rating,
			&rv.Title,
			&rv.Comment,
			&rv.Status,
			&rv.HelpfulCount,
			&rv.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, &rv)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, nil
}

// IncrementHelpful bumps the helpful counter and returns the new value
func (r *reviewRepository) IncrementHelpful(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`UPDATE reviews SET helpful_count = helpful_count + 1 WHERE id = $1 RETURNING helpful_count`,
		id,
	).Scan(&count)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, domain.ErrReviewNotFound
		}
		return 0, fmt.Errorf("failed to mark review helpful: %w", err)
	}
	return count, nil
}
