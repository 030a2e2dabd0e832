package transport

import (
	"errors"
	"fmt"
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

func checkoutBody(productID uuid.UUID) map[string]interface{} {
	return map[string]interface{}{
		"contact": map[string]string{"name": "Nour Adel", "email": "nour@example.com", "phone": "+20100000000"},
		"items": []map[string]interface{}{
			{"product_id": productID.String(), "quantity": 2, "size": "M", "color": "black"},
		},
		"shipping_address": map[string]string{"street": "12 Nile St", "city": "Cairo", "country": "EG"},
		"payment_method":   "cod",
		"coupon_code":      "SAVE10",
		"total":            "100.00",
	}
}

func TestOrderHandler_CreateGuestCheckout(t *testing.T) {
	orders := &stubOrderService{order: sampleOrder()}
	router := newTestRouter(NewOrderHandler(orders, zap.NewNop()))
	productID := uuid.New()

	w := doRequest(t, router, http.MethodPost, "/api/orders", "", checkoutBody(productID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp CreateOrderResponse
	decodeBody(t, w, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "ZEN000123", resp.OrderNumber)
	assert.Equal(t, orders.order.ID.String(), resp.ID)
	assert.Empty(t, resp.Warning)

	in := orders.created
	assert.Nil(t, in.CustomerID, "anonymous checkout is a guest order")
	require.Len(t, in.Items, 1)
	assert.Equal(t, productID, in.Items[0].ProductID)
	assert.Equal(t, 2, in.Items[0].Quantity)
	assert.Equal(t, domain.PaymentMethodCOD, in.PaymentMethod)
	require.NotNil(t, in.ExpectedTotal)
	assert.True(t, in.ExpectedTotal.Equal(decimal.NewFromInt(100)))
}

func TestOrderHandler_CreateAttachesSignedInCustomer(t *testing.T) {
	orders := &stubOrderService{order: sampleOrder(), warning: service.WarningOrderNotificationFailed}
	router := newTestRouter(NewOrderHandler(orders, zap.NewNop()))
	userID := uuid.New()

	w := doRequest(t, router, http.MethodPost, "/api/orders", tokenFor(t, userID, domain.RoleCustomer), checkoutBody(uuid.New()))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp CreateOrderResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, service.WarningOrderNotificationFailed, resp.Warning)
	require.NotNil(t, orders.created.CustomerID)
	assert.Equal(t, userID, *orders.created.CustomerID)
}

func TestOrderHandler_CreateRejectsMalformedCheckout(t *testing.T) {
	router := newTestRouter(NewOrderHandler(&stubOrderService{order: sampleOrder()}, zap.NewNop()))

	cases := map[string]func(body map[string]interface{}){
		"no items":       func(b map[string]interface{}) { b["items"] = []interface{}{} },
		"bad email":      func(b map[string]interface{}) { b["contact"] = map[string]string{"name": "N", "email": "nope"} },
		"bad payment":    func(b map[string]interface{}) { b["payment_method"] = "card" },
		"zero quantity":  func(b map[string]interface{}) { b["items"] = []map[string]interface{}{{"product_id": uuid.NewString(), "quantity": 0}} },
		"bad product id": func(b map[string]interface{}) { b["items"] = []map[string]interface{}{{"product_id": "42", "quantity": 1}} },
		"no city": func(b map[string]interface{}) {
			b["shipping_address"] = map[string]string{"street": "12 Nile St"}
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			body := checkoutBody(uuid.New())
			mutate(body)
			w := doRequest(t, router, http.MethodPost, "/api/orders", "", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestOrderHandler_ErrorClassesMapToStatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ValidationError("items are required"), http.StatusBadRequest},
		{domain.ErrCouponExhausted, http.StatusBadRequest},
		{fmt.Errorf("%w: pending -> shipped", domain.ErrInvalidTransition), http.StatusBadRequest},
		{domain.ErrProductNotFound, http.StatusNotFound},
		{domain.ErrInsufficientStock, http.StatusConflict},
		{domain.DependencyError("insert order", errors.New("connection reset")), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		router := newTestRouter(NewOrderHandler(&stubOrderService{err: tc.err}, zap.NewNop()))
		w := doRequest(t, router, http.MethodPost, "/api/orders", "", checkoutBody(uuid.New()))
		assert.Equal(t, tc.code, w.Code, tc.err.Error())

		var body map[string]string
		decodeBody(t, w, &body)
		if tc.code == http.StatusInternalServerError {
			assert.Equal(t, "internal server error", body["error"], "persistence details stay in the logs")
		} else {
			assert.Equal(t, tc.err.Error(), body["error"])
		}
	}
}

func TestOrderHandler_AdminRoutesRequireAdmin(t *testing.T) {
	router := newTestRouter(NewOrderHandler(&stubOrderService{order: sampleOrder()}, zap.NewNop()))
	customer := tokenFor(t, uuid.New(), domain.RoleCustomer)

	assert.Equal(t, http.StatusUnauthorized, doRequest(t, router, http.MethodGet, "/api/orders", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, doRequest(t, router, http.MethodGet, "/api/orders", customer, nil).Code)
	assert.Equal(t, http.StatusForbidden, doRequest(t, router, http.MethodPut, "/api/orders", customer, map[string]string{"id": uuid.NewString()}).Code)
	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/api/orders", tokenFor(t, uuid.New(), domain.RoleAdmin), nil).Code)
}

func TestOrderHandler_ListPassesFilter(t *testing.T) {
	orders := &stubOrderService{order: sampleOrder()}
	router := newTestRouter(NewOrderHandler(orders, zap.NewNop()))

	w := doRequest(t, router, http.MethodGet, "/api/orders?status=shipped&page=2&page_size=5", tokenFor(t, uuid.New(), domain.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, domain.OrderStatusShipped, orders.listed.Status)
	assert.Equal(t, 2, orders.listed.Page)
	assert.Equal(t, 5, orders.listed.PageSize)

	var resp struct {
		Items []domain.Order `json:"items"`
		Total int            `json:"total"`
	}
	decodeBody(t, w, &resp)
	assert.Equal(t, 1, resp.Total)
	assert.Len(t, resp.Items, 1)

	w = doRequest(t, router, http.MethodGet, "/api/orders?page=two", tokenFor(t, uuid.New(), domain.RoleAdmin), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderHandler_UpdatePassesOnlyPresentFields(t *testing.T) {
	orders := &stubOrderService{order: sampleOrder(), warning: service.WarningStatusNotificationFailed}
	router := newTestRouter(NewOrderHandler(orders, zap.NewNop()))

	w := doRequest(t, router, http.MethodPut, "/api/orders", tokenFor(t, uuid.New(), domain.RoleAdmin), map[string]string{
		"id":              uuid.NewString(),
		"status":          "shipped",
		"tracking_number": "EG123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.NotNil(t, orders.updated.Status)
	assert.Equal(t, "shipped", *orders.updated.Status)
	require.NotNil(t, orders.updated.TrackingNumber)
	assert.Equal(t, "EG123", *orders.updated.TrackingNumber)
	assert.Nil(t, orders.updated.PaymentStatus)
	assert.Nil(t, orders.updated.Notes)

	var resp OrderResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, service.WarningStatusNotificationFailed, resp.Warning)
}

func TestOrderHandler_ListMineUsesCaller(t *testing.T) {
	orders := &stubOrderService{order: sampleOrder()}
	router := newTestRouter(NewOrderHandler(orders, zap.NewNop()))
	userID := uuid.New()

	assert.Equal(t, http.StatusUnauthorized, doRequest(t, router, http.MethodGet, "/api/orders/mine", "", nil).Code)

	w := doRequest(t, router, http.MethodGet, "/api/orders/mine", tokenFor(t, userID, domain.RoleCustomer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uuid.UUID{userID}, orders.customers)
}

func TestOrderHandler_Track(t *testing.T) {
	view := &domain.OrderStatusView{OrderNumber: "ZEN000123", Status: domain.OrderStatusShipped, ShippingStatus: "shipped"}
	router := newTestRouter(NewOrderHandler(&stubOrderService{view: view}, zap.NewNop()))

	w := doRequest(t, router, http.MethodGet, "/api/orders/track?orderNumber=ZEN000123&email=nour@example.com", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got domain.OrderStatusView
	decodeBody(t, w, &got)
	assert.Equal(t, "shipped", got.ShippingStatus)

	router = newTestRouter(NewOrderHandler(&stubOrderService{err: domain.ErrOrderNotFound}, zap.NewNop()))
	w = doRequest(t, router, http.MethodGet, "/api/orders/track?orderNumber=ZEN999999&email=nour@example.com", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderHandler_GetRejectsBadID(t *testing.T) {
	router := newTestRouter(NewOrderHandler(&stubOrderService{order: sampleOrder()}, zap.NewNop()))
	admin := tokenFor(t, uuid.New(), domain.RoleAdmin)

	assert.Equal(t, http.StatusBadRequest, doRequest(t, router, http.MethodGet, "/api/orders/not-a-uuid", admin, nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/api/orders/"+uuid.NewString(), admin, nil).Code)
}
