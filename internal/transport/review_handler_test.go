package transport

import (
	"context"
	"net/http"
	"testing"

	"zen-storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubReviewService struct {
	submittedBy uuid.UUID
	rating      int
	helpful     int
	err         error
}

func (s *stubReviewService) Submit(ctx context.Context, productID, userID uuid.UUID, rating int, title, comment string) (*domain.Review, domain.RatingSummary, error) {
	if s.err != nil {
		return nil, domain.RatingSummary{}, s.err
	}
	if !domain.ValidRating(rating) {
		return nil, domain.RatingSummary{}, domain.ErrInvalidRating
	}
	s.submittedBy, s.rating = userID, rating
	review := &domain.Review{ID: uuid.New(), ProductID: productID, UserID: userID, Rating: rating, Title: title, Status: domain.ReviewStatusApproved}
	return review, domain.RatingSummary{AverageRating: float64(rating), ReviewCount: 1}, nil
}

func (s *stubReviewService) List(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error) {
	return []*domain.Review{{ID: uuid.New(), ProductID: productID, Rating: 4}}, s.err
}

func (s *stubReviewService) MarkHelpful(ctx context.Context, reviewID uuid.UUID) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.helpful++
	return s.helpful, nil
}

func TestReviewHandler_List(t *testing.T) {
	router := newTestRouter(NewReviewHandler(&stubReviewService{}, zap.NewNop()))

	w := doRequest(t, router, http.MethodGet, "/api/reviews?productId="+uuid.NewString(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reviews []domain.Review
	decodeBody(t, w, &reviews)
	assert.Len(t, reviews, 1)

	assert.Equal(t, http.StatusBadRequest, doRequest(t, router, http.MethodGet, "/api/reviews", "", nil).Code)
}

func TestReviewHandler_SubmitRequiresCustomer(t *testing.T) {
	reviews := &stubReviewService{}
	router := newTestRouter(NewReviewHandler(reviews, zap.NewNop()))
	body := SubmitReviewRequest{ProductID: uuid.NewString(), Rating: 5, Title: "Great fit"}

	assert.Equal(t, http.StatusUnauthorized, doRequest(t, router, http.MethodPost, "/api/reviews", "", body).Code)

	userID := uuid.New()
	w := doRequest(t, router, http.MethodPost, "/api/reviews", tokenFor(t, userID, domain.RoleCustomer), body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, userID, reviews.submittedBy)

	var resp SubmitReviewResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, 1, resp.Rating.ReviewCount)
	assert.Equal(t, "Great fit", resp.Review.Title)
}

func TestReviewHandler_SubmitErrors(t *testing.T) {
	token := tokenFor(t, uuid.New(), domain.RoleCustomer)

	router := newTestRouter(NewReviewHandler(&stubReviewService{}, zap.NewNop()))
	w := doRequest(t, router, http.MethodPost, "/api/reviews", token, SubmitReviewRequest{ProductID: uuid.NewString(), Rating: 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	router = newTestRouter(NewReviewHandler(&stubReviewService{err: domain.ErrDuplicateReview}, zap.NewNop()))
	w = doRequest(t, router, http.MethodPost, "/api/reviews", token, SubmitReviewRequest{ProductID: uuid.NewString(), Rating: 4})
	assert.Equal(t, http.StatusConflict, w.Code)

	router = newTestRouter(NewReviewHandler(&stubReviewService{err: domain.ErrProductNotFound}, zap.NewNop()))
	w = doRequest(t, router, http.MethodPost, "/api/reviews", token, SubmitReviewRequest{ProductID: uuid.NewString(), Rating: 4})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviewHandler_MarkHelpful(t *testing.T) {
	reviews := &stubReviewService{}
	router := newTestRouter(NewReviewHandler(reviews, zap.NewNop()))
	body := ReviewActionRequest{ReviewID: uuid.NewString(), Action: "helpful"}

	for want := 1; want <= 2; want++ {
		w := doRequest(t, router, http.MethodPut, "/api/reviews", "", body)
		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]interface{}
		decodeBody(t, w, &resp)
		assert.Equal(t, float64(want), resp["helpful_count"])
	}

	body.Action = "flag"
	assert.Equal(t, http.StatusBadRequest, doRequest(t, router, http.MethodPut, "/api/reviews", "", body).Code)

	router = newTestRouter(NewReviewHandler(&stubReviewService{err: domain.ErrReviewNotFound}, zap.NewNop()))
	body.Action = "helpful"
	assert.Equal(t, http.StatusNotFound, doRequest(t, router, http.MethodPut, "/api/reviews", "", body).Code)
}
