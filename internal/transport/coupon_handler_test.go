package transport

import (
	"context"
	"net/http"
	"testing"

	"zen-storefront/internal/domain"
	"zen-storefront/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCouponService struct {
	check       domain.CouponCheck
	amount      decimal.Decimal
	created     service.CouponInput
	redeemed    []string
	deactivated []string
	err         error
}

func (s *stubCouponService) Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (domain.CouponCheck, error) {
	s.amount = orderAmount
	return s.check, s.err
}

func (s *stubCouponService) Redeem(ctx context.Context, code string) (*domain.Coupon, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.redeemed = append(s.redeemed, code)
	return &domain.Coupon{Code: code, UsedCount: len(s.redeemed)}, nil
}

func (s *stubCouponService) Create(ctx context.Context, in service.CouponInput) (*domain.Coupon, error) {
	s.created = in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Coupon{ID: uuid.New(), Code: in.Code, Type: in.Type, Value: in.Value, IsActive: true}, nil
}

func (s *stubCouponService) List(ctx context.Context) ([]*domain.Coupon, error) {
	return []*domain.Coupon{{Code: "SAVE10"}}, s.err
}

func (s *stubCouponService) Deactivate(ctx context.Context, code string) error {
	s.deactivated = append(s.deactivated, code)
	return s.err
}

func TestCouponHandler_ValidateIsPublic(t *testing.T) {
	coupons := &stubCouponService{check: domain.CouponCheck{Valid: true, Discount: decimal.NewFromInt(10)}}
	router := newTestRouter(NewCouponHandler(coupons, zap.NewNop()))

	w := doRequest(t, router, http.MethodGet, "/api/coupons?code=SAVE10&orderAmount=100", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, coupons.amount.Equal(decimal.NewFromInt(100)))

	var check domain.CouponCheck
	decodeBody(t, w, &check)
	assert.True(t, check.Valid)
	assert.True(t, check.Discount.Equal(decimal.NewFromInt(10)))
}

func TestCouponHandler_RejectedCouponIsStillOK(t *testing.T) {
	coupons := &stubCouponService{check: domain.CouponCheck{Reason: domain.ReasonExpired}}
	router := newTestRouter(NewCouponHandler(coupons, zap.NewNop()))

	w := doRequest(t, router, http.MethodGet, "/api/coupons?code=OLD&orderAmount=50", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	decodeBody(t, w, &body)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, domain.ReasonExpired, body["error"])
}

func TestCouponHandler_ValidateRejectsBadAmount(t *testing.T) {
	router := newTestRouter(NewCouponHandler(&stubCouponService{}, zap.NewNop()))

	w := doRequest(t, router, http.MethodGet, "/api/coupons?code=SAVE10&orderAmount=lots", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCouponHandler_Create(t *testing.T) {
	coupons := &stubCouponService{}
	router := newTestRouter(NewCouponHandler(coupons, zap.NewNop()))
	admin := tokenFor(t, uuid.New(), domain.RoleAdmin)

	body := map[string]interface{}{"code": "save10", "type": "percentage", "value": "10", "max_uses": 100}
	assert.Equal(t, http.StatusForbidden, doRequest(t, router, http.MethodPost, "/api/coupons", tokenFor(t, uuid.New(), domain.RoleCustomer), body).Code)

	w := doRequest(t, router, http.MethodPost, "/api/coupons", admin, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, domain.CouponTypePercentage, coupons.created.Type)
	assert.True(t, coupons.created.Value.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 100, coupons.created.MaxUses)

	body["type"] = "bogo"
	assert.Equal(t, http.StatusBadRequest, doRequest(t, router, http.MethodPost, "/api/coupons", admin, body).Code)

	coupons.err = domain.ErrDuplicateCode
	body["type"] = "fixed"
	assert.Equal(t, http.StatusConflict, doRequest(t, router, http.MethodPost, "/api/coupons", admin, body).Code)
}

func TestCouponHandler_Actions(t *testing.T) {
	coupons := &stubCouponService{}
	router := newTestRouter(NewCouponHandler(coupons, zap.NewNop()))
	admin := tokenFor(t, uuid.New(), domain.RoleAdmin)

	w := doRequest(t, router, http.MethodPut, "/api/coupons", admin, CouponActionRequest{Action: "use", Code: "SAVE10"})
	require.Equal(t, http.StatusOK, w.Code)
	var used map[string]interface{}
	decodeBody(t, w, &used)
	assert.Equal(t, float64(1), used["used_count"])

	w = doRequest(t, router, http.MethodPut, "/api/coupons", admin, CouponActionRequest{Action: "deactivate", Code: "SAVE10"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"SAVE10"}, coupons.deactivated)

	w = doRequest(t, router, http.MethodPut, "/api/coupons", admin, CouponActionRequest{Action: "delete", Code: "SAVE10"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	coupons.err = domain.ErrCouponExhausted
	w = doRequest(t, router, http.MethodPut, "/api/coupons", admin, CouponActionRequest{Action: "use", Code: "SAVE10"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "usage limit")
}

func TestCouponHandler_ListIsAdminOnly(t *testing.T) {
	router := newTestRouter(NewCouponHandler(&stubCouponService{}, zap.NewNop()))

	assert.Equal(t, http.StatusUnauthorized, doRequest(t, router, http.MethodGet, "/api/coupons/all", "", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/api/coupons/all", tokenFor(t, uuid.New(), domain.RoleAdmin), nil).Code)
}
