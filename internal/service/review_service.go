package service

import (
	"context"
	"strings"
	"time"

	"zen-storefront/internal/domain"
	"zen-storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxReviewTitle   = 120
	maxReviewComment = 2000
)

// ReviewService accepts reviews and keeps the product rating in step.
type ReviewService interface {
	Submit(ctx context.Context, productID, userID uuid.UUID, rating int, title, comment string) (*domain.Review, domain.RatingSummary, error)
	List(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error)
	MarkHelpful(ctx context.Context, reviewID uuid.UUID) (int, error)
}

type reviewService struct {
	repo   repository.ReviewRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewReviewService creates a new instance of ReviewService
func NewReviewService(repo repository.ReviewRepository, logger *zap.Logger) ReviewService {
	return &reviewService{repo: repo, logger: logger, now: time.Now}
}

// Submit stores an auto-approved review. The repository writes the review and
// the recomputed product rating in one transaction.
func (s *reviewService) Submit(ctx context.Context, productID, userID uuid.UUID, rating int, title, comment string) (*domain.Review, domain.RatingSummary, error) {
	if !domain.ValidRating(rating) {
		return nil, domain.RatingSummary{}, domain.ErrInvalidRating
	}

	title = strings.TrimSpace(title)
	comment = strings.TrimSpace(comment)
	if len(title) > maxReviewTitle {
		return nil, domain.RatingSummary{}, domain.ValidationError("title must be at most %d characters", maxReviewTitle)
	}
	if len(comment) > maxReviewComment {
		return nil, domain.RatingSummary{}, domain.ValidationError("comment must be at most %d characters", maxReviewComment)
	}

	review := &domain.Review{
		ID:        uuid.New(),
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Title:     title,
		Comment:   comment,
		Status:    domain.ReviewStatusApproved,
		CreatedAt: s.now(),
	}

	summary, err := s.repo.Create(ctx, review)
	if err != nil {
		return nil, domain.RatingSummary{}, err
	}

	s.logger.Info("Review submitted",
		zap.String("product_id", productID.String()),
		zap.Int("rating", rating),
		zap.Float64("average_rating", summary.AverageRating),
		zap.Int("review_count", summary.ReviewCount),
	)
	return review, summary, nil
}

func (s *reviewService) List(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error) {
	return s.repo.ListByProduct(ctx, productID)
}

// MarkHelpful bumps the helpful counter. Votes are not tied to a voter.
func (s *reviewService) MarkHelpful(ctx context.Context, reviewID uuid.UUID) (int, error) {
	return s.repo.IncrementHelpful(ctx, reviewID)
}
