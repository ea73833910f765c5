package domain

import "fmt"

// InvalidTransitionError reports an order status change outside the
// fulfilment workflow.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("domain: invalid order status transition %s -> %s", e.From, e.To)
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderWaitingPayment: {OrderConfirmed, OrderCancelled},
	OrderConfirmed:      {OrderPurchased, OrderCancelled},
	OrderPurchased:      {OrderShipped, OrderCancelled},
	OrderShipped:        {OrderDelivered, OrderCancelled},
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderWaitingPayment, OrderConfirmed, OrderPurchased, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// ValidateTransition checks that an order may move from one status to
// another. Delivered and cancelled are terminal.
func ValidateTransition(from, to OrderStatus) error {
	for _, next := range orderTransitions[from] {
		if next == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}
