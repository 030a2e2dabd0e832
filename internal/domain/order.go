package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string
type PaymentStatus string
type PaymentMethod string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"

	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"

	PaymentMethodCOD      PaymentMethod = "cod"
	PaymentMethodInstapay PaymentMethod = "instapay"
)

// Order is the ledger record of one checkout.
type Order struct {
	ID                uuid.UUID       `json:"id"`
	OrderNumber       string          `json:"order_number"`
	CustomerID        *uuid.UUID      `json:"customer_id,omitempty"`
	Contact           Contact         `json:"contact"`
	Items             []LineItem      `json:"items"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	ShippingCost      decimal.Decimal `json:"shipping_cost"`
	Discount          decimal.Decimal `json:"discount"`
	Total             decimal.Decimal `json:"total"`
	CouponCode        string          `json:"coupon_code,omitempty"`
	Status            OrderStatus     `json:"status"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
	PaymentScreenshot string          `json:"payment_screenshot,omitempty"`
	ShippingAddress   Address         `json:"shipping_address"`
	TrackingNumber    string          `json:"tracking_number,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Contact is the customer contact info captured at checkout.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Address is a shipping address.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

// LineItem is an immutable snapshot of a product at checkout time. It is
// never re-resolved against the catalog after the order is created.
type LineItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Image     string          `json:"image,omitempty"`
}

// LineTotal is UnitPrice × Quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Customer returns the customer id, or "guest" for guest checkouts.
func (o *Order) Customer() string {
	if o.CustomerID == nil {
		return "guest"
	}
	return o.CustomerID.String()
}

// IsGuest reports whether the order was placed without an account.
func (o *Order) IsGuest() bool {
	return o.CustomerID == nil
}

// ShippingStatus is derived from Status; it is never stored independently.
func (o *Order) ShippingStatus() string {
	return ShippingStatusFor(o.Status)
}

// SubtotalOf sums the line totals.
func SubtotalOf(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// OrderTotal is subtotal + shipping - discount.
func OrderTotal(subtotal, shipping, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(shipping).Sub(discount)
}

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodInstapay
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusFailed:  {PaymentStatusPaid, PaymentStatusPending},
	PaymentStatusPaid:    {PaymentStatusRefunded},
}

// CanMovePaymentTo reports whether the payment status may change from s to next.
func (s PaymentStatus) CanMovePaymentTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}
