package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zen-storefront/internal/domain"
	"zen-storefront/internal/middleware"
	"zen-storefront/internal/repository"
	"zen-storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type routeRegistrar interface {
	RegisterRoutes(r chi.Router, g Guards)
}

func newTestRouter(handlers ...routeRegistrar) http.Handler {
	logger := zap.NewNop()
	g := Guards{
		Auth:     middleware.AuthMiddleware(testSecret, logger),
		Optional: middleware.OptionalAuth(testSecret, logger),
		Admin:    middleware.RequireAdmin(logger),
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		for _, h := range handlers {
			h.RegisterRoutes(r, g)
		}
	})
	return r
}

func tokenFor(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v))
}

// stubOrderService answers with canned results and records its inputs.
type stubOrderService struct {
	created   service.OrderInput
	updated   service.OrderUpdate
	shipping  string
	order     *domain.Order
	view      *domain.OrderStatusView
	warning   string
	err       error
	listed    repository.OrderFilter
	customers []uuid.UUID
}

func (s *stubOrderService) Create(ctx context.Context, in service.OrderInput) (*domain.Order, string, error) {
	s.created = in
	return s.order, s.warning, s.err
}

func (s *stubOrderService) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) List(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, int, error) {
	s.listed = filter
	if s.err != nil {
		return nil, 0, s.err
	}
	return []*domain.Order{s.order}, 1, nil
}

func (s *stubOrderService) ListForCustomer(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	s.customers = append(s.customers, customerID)
	return []*domain.Order{s.order}, 1, s.err
}

func (s *stubOrderService) AdvanceStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, trackingNumber *string) (*domain.Order, string, error) {
	return s.order, s.warning, s.err
}

func (s *stubOrderService) ShippingUpdate(ctx context.Context, id uuid.UUID, shippingStatus string, trackingNumber *string) (*domain.Order, string, error) {
	s.shipping = shippingStatus
	return s.order, s.warning, s.err
}

func (s *stubOrderService) Update(ctx context.Context, id uuid.UUID, patch service.OrderUpdate) (*domain.Order, string, error) {
	s.updated = patch
	return s.order, s.warning, s.err
}

func (s *stubOrderService) Track(ctx context.Context, orderNumber, email string) (*domain.OrderStatusView, error) {
	return s.view, s.err
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:          uuid.New(),
		OrderNumber: "ZEN000123",
		Contact:     domain.Contact{Name: "Nour Adel", Email: "nour@example.com"},
		Subtotal:    decimal.NewFromInt(100),
		Total:       decimal.NewFromInt(100),
		Status:      domain.OrderStatusPending,
	}
}
