// Package notify carries order status transitions to downstream consumers. It is a
// one-way boundary: nothing published here feeds back into the order core, and a
// failed publish never undoes a committed transition.
package notify

import (
	"context"
	"fmt"
	"time"

	"foodDelivery/models"
)

// Event is one (orderID, old status, new status) transition. From is empty for a
// newly created order.
type Event struct {
	OrderID      string             `json:"order_id"`
	OrderNumber  string             `json:"order_number"`
	CustomerID   int64              `json:"customer_id"`
	RestaurantID int64              `json:"restaurant_id"`
	RiderID      *int64             `json:"rider_id,omitempty"`
	From         models.OrderStatus `json:"from,omitempty"`
	To           models.OrderStatus `json:"to"`
	At           time.Time          `json:"at"`
}

// NewEvent builds the event for an order that just moved from -> o.Status.
func NewEvent(o *models.Order, from models.OrderStatus, at time.Time) Event {
	return Event{
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		CustomerID:   o.CustomerID,
		RestaurantID: o.RestaurantID,
		RiderID:      o.RiderID,
		From:         from,
		To:           o.Status,
		At:           at,
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Text renders the user-facing notification for a transition.
func Text(e Event) string {
	num := e.OrderNumber
	if num == "" {
		num = e.OrderID
	}
	switch e.To {
	case models.OrderStatusPending:
		return fmt.Sprintf("Order %s placed. Waiting for the restaurant to confirm.", num)
	case models.OrderStatusConfirmed:
		return fmt.Sprintf("Order %s confirmed by the restaurant.", num)
	case models.OrderStatusPreparing:
		return fmt.Sprintf("Order %s is being prepared.", num)
	case models.OrderStatusReady:
		return fmt.Sprintf("Order %s is ready for pickup.", num)
	case models.OrderStatusAssigned:
		return fmt.Sprintf("A rider has been assigned to order %s.", num)
	case models.OrderStatusPickedUp:
		return fmt.Sprintf("Order %s has been picked up.", num)
	case models.OrderStatusOnTheWay:
		return fmt.Sprintf("Order %s is on the way.", num)
	case models.OrderStatusDelivered:
		return fmt.Sprintf("Order %s delivered. Enjoy your meal!", num)
	case models.OrderStatusCancelled:
		return fmt.Sprintf("Order %s was cancelled.", num)
	}
	return fmt.Sprintf("Order %s: %s", num, e.To.Label())
}
