package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"zen-storefront/internal/domain"
	"zen-storefront/internal/notification"
	"zen-storefront/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerSettings configures checkout and notifications.
type LedgerSettings struct {
	OrderNumberPrefix string
	ShippingFlatRate  decimal.Decimal
	AdminEmail        string
	NotifyTimeout     time.Duration
}

// OrderItemInput is one cart line. Name, price and image are taken from the
// catalog at checkout, never from the client.
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Size      string
	Color     string
}

// OrderInput is a checkout request.
type OrderInput struct {
	CustomerID        *uuid.UUID
	Contact           domain.Contact
	Items             []OrderItemInput
	ShippingAddress   domain.Address
	PaymentMethod     domain.PaymentMethod
	PaymentScreenshot string
	CouponCode        string
	Notes             string
	// ExpectedTotal is the total the client displayed. When set it must
	// match the computed total.
	ExpectedTotal *decimal.Decimal
}

// OrderUpdate is an admin patch. Nil fields are left untouched.
type OrderUpdate struct {
	Status            *string
	TrackingNumber    *string
	PaymentStatus     *string
	PaymentScreenshot *string
	Notes             *string
}

// OrderService is the order ledger.
type OrderService interface {
	Create(ctx context.Context, in OrderInput) (order *domain.Order, warning string, err error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, int, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error)
	AdvanceStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, trackingNumber *string) (*domain.Order, string, error)
	ShippingUpdate(ctx context.Context, id uuid.UUID, shippingStatus string, trackingNumber *string) (*domain.Order, string, error)
	Update(ctx context.Context, id uuid.UUID, patch OrderUpdate) (*domain.Order, string, error)
	Track(ctx context.Context, orderNumber, email string) (*domain.OrderStatusView, error)
}

type orderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	coupons  CouponService
	notify   notifier
	settings LedgerSettings
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	coupons CouponService,
	dispatcher notification.Dispatcher,
	settings LedgerSettings,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orders:   orders,
		products: products,
		coupons:  coupons,
		notify:   notifier{dispatcher: dispatcher, timeout: settings.NotifyTimeout, logger: logger},
		settings: settings,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

func (s *orderService) checkInput(in *OrderInput) error {
	in.Contact.Email = strings.TrimSpace(in.Contact.Email)
	in.Contact.Name = strings.TrimSpace(in.Contact.Name)

	if len(in.Items) == 0 {
		return domain.ValidationError("order must contain at least one item")
	}
	for i, item := range in.Items {
		if item.ProductID == uuid.Nil {
			return domain.ValidationError("item %d: product_id is required", i)
		}
		if item.Quantity <= 0 {
			return domain.ValidationError("item %d: quantity must be positive", i)
		}
	}
	if in.Contact.Email == "" {
		return domain.ValidationError("contact email is required")
	}
	if err := s.validate.Var(in.Contact.Email, "email"); err != nil {
		return domain.ValidationError("contact email is not a valid email address")
	}
	if !in.PaymentMethod.Valid() {
		return domain.ValidationError("payment method must be cod or instapay")
	}
	if strings.TrimSpace(in.ShippingAddress.Street) == "" || strings.TrimSpace(in.ShippingAddress.City) == "" {
		return domain.ValidationError("shipping address requires street and city")
	}
	return nil
}

// snapshot resolves each cart line against the catalog. Only active
// products can be ordered.
func (s *orderService) snapshot(ctx context.Context, items []OrderItemInput) ([]domain.LineItem, error) {
	products := make(map[uuid.UUID]*domain.Product)
	lines := make([]domain.LineItem, 0, len(items))

	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			var err error
			product, err = s.products.FindByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, domain.ErrProductNotFound) {
					return nil, domain.ValidationError("product %s does not exist", item.ProductID)
				}
				return nil, err
			}
			products[item.ProductID] = product
		}
		if product.Status != domain.ProductStatusActive {
			return nil, domain.ValidationError("product %q is not available", product.Name)
		}
		if product.Price.IsNegative() {
			return nil, domain.ValidationError("product %q has a negative price", product.Name)
		}

		lines = append(lines, domain.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
			Image:     product.FirstImage(),
		})
	}
	return lines, nil
}

// Create prices the cart, applies the coupon and persists the order. Stock,
// coupon usage, the order number and customer stats are written in one
// transaction by the repository. Notification failures do not undo the
// order; they come back as a warning.
func (s *orderService) Create(ctx context.Context, in OrderInput) (*domain.Order, string, error) {
	if err := s.checkInput(&in); err != nil {
		return nil, "", err
	}

	items, err := s.snapshot(ctx, in.Items)
	if err != nil {
		return nil, "", err
	}

	subtotal := domain.SubtotalOf(items)
	shipping := s.settings.ShippingFlatRate
	discount := decimal.Zero
	couponCode := domain.NormalizeCouponCode(in.CouponCode)

	if couponCode != "" {
		check, err := s.coupons.Validate(ctx, couponCode, subtotal)
		if err != nil {
			return nil, "", err
		}
		if !check.Valid {
			return nil, "", domain.ValidationError("%s", check.Reason)
		}
		discount = check.Discount
	}

	total := domain.OrderTotal(subtotal, shipping, discount)
	if in.ExpectedTotal != nil && !in.ExpectedTotal.Equal(total) {
		return nil, "", domain.ValidationError("order total %s does not match computed total %s",
			in.ExpectedTotal.StringFixed(2), total.StringFixed(2))
	}

	now := s.now()
	order := &domain.Order{
		ID:                uuid.New(),
		CustomerID:        in.CustomerID,
		Contact:           in.Contact,
		Items:             items,
		Subtotal:          subtotal,
		ShippingCost:      shipping,
		Discount:          discount,
		Total:             total,
		CouponCode:        couponCode,
		Status:            domain.OrderStatusPending,
		PaymentMethod:     in.PaymentMethod,
		PaymentStatus:     domain.PaymentStatusPending,
		PaymentScreenshot: in.PaymentScreenshot,
		ShippingAddress:   in.ShippingAddress,
		Notes:             in.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.orders.Create(ctx, order, s.settings.OrderNumberPrefix); err != nil {
		return nil, "", err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("customer", order.Customer()),
		zap.String("total", order.Total.StringFixed(2)),
	)

	warning := ""
	err = s.notify.send(ctx,
		notification.OrderConfirmation(order),
		notification.AdminNewOrder(order, s.settings.AdminEmail),
	)
	if err != nil {
		warning = WarningOrderNotificationFailed
	}
	return order, warning, nil
}

func (s *orderService) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orders.FindByID(ctx, id)
}

func (s *orderService) List(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, int, error) {
	if filter.Status != "" {
		if _, err := domain.ParseOrderStatus(string(filter.Status)); err != nil {
			return nil, 0, err
		}
	}
	return s.orders.List(ctx, filter)
}

func (s *orderService) ListForCustomer(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	return s.orders.List(ctx, repository.OrderFilter{CustomerID: &customerID, Page: page, PageSize: pageSize})
}

// AdvanceStatus moves the order one step along the state machine and sends a
// shipping update. The write is a compare-and-swap on the status read here.
func (s *orderService) AdvanceStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, trackingNumber *string) (*domain.Order, string, error) {
	if _, err := domain.ParseOrderStatus(string(status)); err != nil {
		return nil, "", err
	}

	current, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := current.Status.CheckTransition(status); err != nil {
		return nil, "", err
	}

	trackingNumber = trimmed(trackingNumber)
	order, err := s.orders.UpdateStatus(ctx, id, current.Status, status, trackingNumber, s.now())
	if err != nil {
		return nil, "", err
	}

	return order, s.statusChanged(ctx, current.Status, order), nil
}

// statusChanged logs a committed status change and sends the shipping
// update, returning a warning when the notification fails.
func (s *orderService) statusChanged(ctx context.Context, from domain.OrderStatus, order *domain.Order) string {
	s.logger.Info("Order status changed",
		zap.String("order_number", order.OrderNumber),
		zap.String("from", string(from)),
		zap.String("to", string(order.Status)),
	)

	if err := s.notify.send(ctx, notification.ShippingUpdate(order)); err != nil {
		return WarningStatusNotificationFailed
	}
	return ""
}

// ShippingUpdate applies a coarse shipping status. A delivered shipment
// completes the order.
func (s *orderService) ShippingUpdate(ctx context.Context, id uuid.UUID, shippingStatus string, trackingNumber *string) (*domain.Order, string, error) {
	status, err := domain.StatusForShipping(shippingStatus)
	if err != nil {
		return nil, "", err
	}
	return s.AdvanceStatus(ctx, id, status, trackingNumber)
}

// Update applies an admin patch. Payment status changes are checked against
// the payment transitions and a status change against the state machine.
// Everything is written at once, guarded by the values read here.
func (s *orderService) Update(ctx context.Context, id uuid.UUID, patch OrderUpdate) (*domain.Order, string, error) {
	current, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	details := repository.OrderPatch{
		PaymentScreenshot: patch.PaymentScreenshot,
		TrackingNumber:    trimmed(patch.TrackingNumber),
		Notes:             patch.Notes,
		UpdatedAt:         s.now(),
	}

	if patch.Status != nil {
		next, err := domain.ParseOrderStatus(*patch.Status)
		if err != nil {
			return nil, "", err
		}
		if err := current.Status.CheckTransition(next); err != nil {
			return nil, "", err
		}
		details.Status = &next
		details.ExpectedStatus = current.Status
	}

	if patch.PaymentStatus != nil {
		next := domain.PaymentStatus(*patch.PaymentStatus)
		if !next.Valid() {
			return nil, "", domain.ValidationError("unknown payment status %q", *patch.PaymentStatus)
		}
		if next != current.PaymentStatus {
			if !current.PaymentStatus.CanMovePaymentTo(next) {
				return nil, "", domain.ValidationError("payment status cannot change from %s to %s", current.PaymentStatus, next)
			}
			details.PaymentStatus = &next
			details.ExpectedPaymentStatus = current.PaymentStatus
		}
	}

	order, err := s.orders.UpdateDetails(ctx, id, details)
	if err != nil {
		return nil, "", err
	}

	if details.Status == nil {
		return order, "", nil
	}
	return order, s.statusChanged(ctx, current.Status, order), nil
}

// Track looks an order up by its number. A supplied email must match the
// order's contact email; otherwise the order is reported as not found.
func (s *orderService) Track(ctx context.Context, orderNumber, email string) (*domain.OrderStatusView, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, domain.ValidationError("order number is required")
	}

	order, err := s.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	email = strings.TrimSpace(email)
	if email != "" && !strings.EqualFold(email, order.Contact.Email) {
		return nil, domain.ErrOrderNotFound
	}

	return &domain.OrderStatusView{
		OrderNumber:    order.OrderNumber,
		Status:         order.Status,
		ShippingStatus: order.ShippingStatus(),
		TrackingNumber: order.TrackingNumber,
		IsCancelled:    order.Status == domain.OrderStatusCancelled,
		Timeline:       domain.Timeline(order.Status),
		Items:          order.Items,
		Total:          order.Total.StringFixed(2),
		PlacedAt:       order.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      order.UpdatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
