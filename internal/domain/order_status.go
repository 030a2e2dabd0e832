package domain

import "fmt"

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:     {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:        {OrderStatusOutForDelivery, OrderStatusCancelled},
	OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled},
}

// ParseOrderStatus rejects anything outside the documented status set.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	switch st {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w %q", ErrInvalidStatus, s)
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether next directly follows s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition when s -> next is not allowed.
func (s OrderStatus) CheckTransition(next OrderStatus) error {
	if !s.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return nil
}

// Coarse shipping statuses shown to customers.
const (
	ShippingProcessing     = "processing"
	ShippingShipped        = "shipped"
	ShippingOutForDelivery = "out_for_delivery"
	ShippingDelivered      = "delivered"
)

// ShippingStatusFor maps an order status onto the coarse shipping status.
func ShippingStatusFor(s OrderStatus) string {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing:
		return ShippingProcessing
	case OrderStatusShipped:
		return ShippingShipped
	case OrderStatusOutForDelivery:
		return ShippingOutForDelivery
	case OrderStatusDelivered, OrderStatusCompleted:
		return ShippingDelivered
	}
	return ""
}

// StatusForShipping maps a shipping update onto the order status it drives.
// A delivered shipment completes the order.
func StatusForShipping(shipping string) (OrderStatus, error) {
	switch shipping {
	case ShippingProcessing:
		return OrderStatusProcessing, nil
	case ShippingShipped:
		return OrderStatusShipped, nil
	case ShippingOutForDelivery:
		return OrderStatusOutForDelivery, nil
	case ShippingDelivered:
		return OrderStatusCompleted, nil
	}
	return "", fmt.Errorf("%w: shipping status %q", ErrInvalidStatus, shipping)
}

// Timeline step states.
const (
	StepCompleted = "completed"
	StepCurrent   = "current"
	StepUpcoming  = "upcoming"
)

// TimelineStep is one entry of the customer facing tracking timeline.
type TimelineStep struct {
	Label string `json:"label"`
	State string `json:"state"`
}

// OrderStatusView is what order tracking returns.
type OrderStatusView struct {
	OrderNumber    string         `json:"order_number"`
	Status         OrderStatus    `json:"status"`
	ShippingStatus string         `json:"shipping_status"`
	TrackingNumber string         `json:"tracking_number,omitempty"`
	IsCancelled    bool           `json:"is_cancelled"`
	Timeline       []TimelineStep `json:"timeline"`
	Items          []LineItem     `json:"items"`
	Total          string         `json:"total"`
	PlacedAt       string         `json:"placed_at"`
	UpdatedAt      string         `json:"updated_at"`
}

var timelineLabels = []string{"Order Placed", "Processing", "Shipped", "Out for Delivery", "Delivered"}

// timelineIndex is the position of the current step; len(timelineLabels)
// means every step is completed.
func timelineIndex(s OrderStatus) int {
	switch s {
	case OrderStatusPending:
		return 0
	case OrderStatusConfirmed, OrderStatusProcessing:
		return 1
	case OrderStatusShipped:
		return 2
	case OrderStatusOutForDelivery:
		return 3
	case OrderStatusDelivered, OrderStatusCompleted:
		return len(timelineLabels)
	}
	return 0
}

// Timeline builds the five step tracking timeline for s.
func Timeline(s OrderStatus) []TimelineStep {
	steps := make([]TimelineStep, len(timelineLabels))

	if s == OrderStatusCancelled {
		for i, label := range timelineLabels {
			steps[i] = TimelineStep{Label: label, State: StepUpcoming}
		}
		steps[0].State = StepCompleted
		return steps
	}

	current := timelineIndex(s)
	for i, label := range timelineLabels {
		state := StepUpcoming
		switch {
		case i < current:
			state = StepCompleted
		case i == current:
			state = StepCurrent
		}
		steps[i] = TimelineStep{Label: label, State: state}
	}
	return steps
}
