// Package notification formats ledger events and hands them to delivery
// channels. Delivery is best effort: callers log failures and never retry.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"zen-storefront/internal/domain"
)

type EventType string

const (
	EventOrderConfirmation EventType = "order_confirmation"
	EventAdminNewOrder     EventType = "admin_new_order"
	EventShippingUpdate    EventType = "shipping_update"
	EventLowStock          EventType = "low_stock"
	EventTwoFactorCode     EventType = "two_factor_code"
)

// Event is one outbound message. Data carries the structured payload for
// channels that do not render Subject/Body (the admin live feed).
type Event struct {
	Type       EventType `json:"type"`
	To         string    `json:"-"`
	Subject    string    `json:"subject"`
	Body       string    `json:"-"`
	Data       any       `json:"data,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Dispatcher delivers events.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, event Event) error

func (f DispatcherFunc) Dispatch(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Multi fans an event out to every dispatcher. All dispatchers are tried;
// their errors are joined.
type Multi []Dispatcher

func (m Multi) Dispatch(ctx context.Context, event Event) error {
	var errs []error
	for _, d := range m {
		if err := d.Dispatch(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OrderPayload is the structured view of an order carried on events.
type OrderPayload struct {
	OrderID        string             `json:"order_id"`
	OrderNumber    string             `json:"order_number"`
	Customer       string             `json:"customer"`
	Status         domain.OrderStatus `json:"status"`
	ShippingStatus string             `json:"shipping_status"`
	Total          string             `json:"total"`
	ItemCount      int                `json:"item_count"`
	TrackingNumber string             `json:"tracking_number,omitempty"`
}

func payloadFor(order *domain.Order) OrderPayload {
	count := 0
	for _, it := range order.Items {
		count += it.Quantity
	}
	return OrderPayload{
		OrderID:        order.ID.String(),
		OrderNumber:    order.OrderNumber,
		Customer:       order.Customer(),
		Status:         order.Status,
		ShippingStatus: order.ShippingStatus(),
		Total:          order.Total.StringFixed(2),
		ItemCount:      count,
		TrackingNumber: order.TrackingNumber,
	}
}

func itemLines(order *domain.Order) string {
	var b strings.Builder
	for _, it := range order.Items {
		fmt.Fprintf(&b, "  %d x %s", it.Quantity, it.Name)
		if it.Size != "" {
			fmt.Fprintf(&b, " (%s)", it.Size)
		}
		fmt.Fprintf(&b, " - %s\n", it.LineTotal().StringFixed(2))
	}
	return b.String()
}

// OrderConfirmation is sent to the customer after checkout.
func OrderConfirmation(order *domain.Order) Event {
	body := fmt.Sprintf(
		"Hi %s,\n\nThanks for your order %s.\n\n%s\nSubtotal: %s\nShipping: %s\nDiscount: %s\nTotal: %s\n\nPayment: %s\n",
		order.Contact.Name,
		order.OrderNumber,
		itemLines(order),
		order.Subtotal.StringFixed(2),
		order.ShippingCost.StringFixed(2),
		order.Discount.StringFixed(2),
		order.Total.StringFixed(2),
		order.PaymentMethod,
	)
	return Event{
		Type:       EventOrderConfirmation,
		To:         order.Contact.Email,
		Subject:    fmt.Sprintf("Order %s confirmed", order.OrderNumber),
		Body:       body,
		Data:       payloadFor(order),
		OccurredAt: order.CreatedAt,
	}
}

// AdminNewOrder tells the shop admin a new order arrived.
func AdminNewOrder(order *domain.Order, adminEmail string) Event {
	body := fmt.Sprintf(
		"New order %s from %s <%s> (%s).\n\n%s\nTotal: %s via %s\n",
		order.OrderNumber,
		order.Contact.Name,
		order.Contact.Email,
		order.Customer(),
		itemLines(order),
		order.Total.StringFixed(2),
		order.PaymentMethod,
	)
	return Event{
		Type:       EventAdminNewOrder,
		To:         adminEmail,
		Subject:    fmt.Sprintf("New order %s", order.OrderNumber),
		Body:       body,
		Data:       payloadFor(order),
		OccurredAt: order.CreatedAt,
	}
}

// ShippingUpdate tells the customer the order moved along.
func ShippingUpdate(order *domain.Order) Event {
	body := fmt.Sprintf("Hi %s,\n\nYour order %s is now %s.\n",
		order.Contact.Name, order.OrderNumber, strings.ReplaceAll(string(order.Status), "_", " "))
	if order.TrackingNumber != "" {
		body += fmt.Sprintf("Tracking number: %s\n", order.TrackingNumber)
	}
	return Event{
		Type:       EventShippingUpdate,
		To:         order.Contact.Email,
		Subject:    fmt.Sprintf("Order %s update", order.OrderNumber),
		Body:       body,
		Data:       payloadFor(order),
		OccurredAt: order.UpdatedAt,
	}
}

// LowStockAlert is the single batched inventory alert for one scan.
func LowStockAlert(items []domain.LowStockItem, adminEmail string, at time.Time) Event {
	var b strings.Builder
	fmt.Fprintf(&b, "%d product(s) are low on stock:\n\n", len(items))
	for _, it := range items {
		fmt.Fprintf(&b, "  %s: %d left (threshold %d)\n", it.Name, it.Stock, it.Threshold)
	}
	return Event{
		Type:       EventLowStock,
		To:         adminEmail,
		Subject:    fmt.Sprintf("Low stock: %d product(s)", len(items)),
		Body:       b.String(),
		Data:       items,
		OccurredAt: at,
	}
}

// TwoFactorCode carries an admin sign-in code. It has no Data so it is
// never mirrored onto shared channels.
func TwoFactorCode(email, code string, ttl time.Duration, at time.Time) Event {
	return Event{
		Type:       EventTwoFactorCode,
		To:         email,
		Subject:    "Your ZEN admin sign-in code",
		Body:       fmt.Sprintf("Your sign-in code is %s. It expires in %d minutes.\n", code, int(ttl.Minutes())),
		OccurredAt: at,
	}
}
