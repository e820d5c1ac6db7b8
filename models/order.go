package models

import (
	"fmt"
	"strings"
	"time"
)

// OrderStatus represents the current lifecycle state of an order.
// The string value is what gets persisted; use Label for display text.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusAssigned  OrderStatus = "ASSIGNED"
	OrderStatusPickedUp  OrderStatus = "PICKED_UP"
	OrderStatusOnTheWay  OrderStatus = "ON_THE_WAY"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// forwardPath is the only permitted forward order of states.
var forwardPath = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusAssigned,
	OrderStatusPickedUp,
	OrderStatusOnTheWay,
	OrderStatusDelivered,
}

var statusLabels = map[OrderStatus]string{
	OrderStatusPending:   "Pending",
	OrderStatusConfirmed: "Confirmed",
	OrderStatusPreparing: "Preparing",
	OrderStatusReady:     "Ready for pickup",
	OrderStatusAssigned:  "Rider assigned",
	OrderStatusPickedUp:  "Picked up",
	OrderStatusOnTheWay:  "On the way",
	OrderStatusDelivered: "Delivered",
	OrderStatusCancelled: "Cancelled",
}

// ParseOrderStatus accepts the persisted form case-insensitively ("picked_up" works too).
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

// Valid reports whether s is one of the known states.
func (s OrderStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// IsTerminal reports whether no further transitions are permitted from s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Next returns the immediate forward successor of s.
func (s OrderStatus) Next() (OrderStatus, bool) {
	for i, st := range forwardPath {
		if st == s && i+1 < len(forwardPath) {
			return forwardPath[i+1], true
		}
	}
	return "", false
}

// CanTransitionTo reports whether target is reachable from s in a single step.
// CANCELLED is reachable from every non-terminal state.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if target == OrderStatusCancelled {
		return true
	}
	next, ok := s.Next()
	return ok && next == target
}

// HasRider reports whether an order in state s must carry a rider.
func (s OrderStatus) HasRider() bool {
	switch s {
	case OrderStatusAssigned, OrderStatusPickedUp, OrderStatusOnTheWay, OrderStatusDelivered:
		return true
	}
	return false
}

// Label is the human-facing text for s.
func (s OrderStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return "Unknown"
}

// Address is the flattened delivery address captured on the order.
type Address struct {
	Line  string   `json:"address_line"`
	City  string   `json:"city"`
	State string   `json:"state"`
	Zip   string   `json:"zip"`
	Lat   *float64 `json:"lat,omitempty"`
	Lng   *float64 `json:"lng,omitempty"`
}

// MissingFields lists the required address fields that are blank.
func (a Address) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(a.Line) == "" {
		missing = append(missing, "address_line")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.State) == "" {
		missing = append(missing, "state")
	}
	if strings.TrimSpace(a.Zip) == "" {
		missing = append(missing, "zip")
	}
	return missing
}

// Order is the central ledger entity. Monetary fields are minor currency units and
// are fixed at creation.
type Order struct {
	ID             string        `json:"id"`
	OrderNumber    string        `json:"order_number"`
	CustomerID     int64         `json:"customer_id"`
	RestaurantID   int64         `json:"restaurant_id"`
	RiderID        *int64        `json:"rider_id"`
	Status         OrderStatus   `json:"status"`
	Subtotal       int64         `json:"subtotal"`
	DeliveryFee    int64         `json:"delivery_fee"`
	Tax            int64         `json:"tax"`
	Discount       int64         `json:"discount"`
	Total          int64         `json:"total"`
	Address        Address       `json:"delivery_address"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	IdempotencyKey string        `json:"-"`
	CancelReason   string        `json:"cancel_reason,omitempty"`

	PlacedAt    time.Time  `json:"placed_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	PreparingAt *time.Time `json:"preparing_at,omitempty"`
	PreparedAt  *time.Time `json:"prepared_at,omitempty"`
	AssignedAt  *time.Time `json:"assigned_at,omitempty"`
	PickedUpAt  *time.Time `json:"picked_up_at,omitempty"`
	OnTheWayAt  *time.Time `json:"on_the_way_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Items   []OrderItem `json:"items,omitempty"`
	Payment *Payment    `json:"payment,omitempty"`
}

// ComputeTotal is the one formula for an order total.
func ComputeTotal(subtotal, deliveryFee, tax, discount int64) int64 {
	return subtotal + deliveryFee + tax - discount
}

// TotalConsistent reports whether Total matches its components.
func (o *Order) TotalConsistent() bool {
	return o.Total == ComputeTotal(o.Subtotal, o.DeliveryFee, o.Tax, o.Discount)
}

// LastTransitionAt returns the latest stamped lifecycle timestamp.
func (o *Order) LastTransitionAt() time.Time {
	last := o.PlacedAt
	for _, ts := range []*time.Time{o.ConfirmedAt, o.PreparingAt, o.PreparedAt, o.AssignedAt, o.PickedUpAt, o.OnTheWayAt, o.DeliveredAt, o.CancelledAt} {
		if ts != nil && ts.After(last) {
			last = *ts
		}
	}
	return last
}

// OrderItem is an immutable line item. Name and UnitPrice are snapshots taken at
// checkout so later menu edits never alter historical orders.
type OrderItem struct {
	ID         int64  `json:"id"`
	OrderID    string `json:"order_id"`
	MenuItemID int64  `json:"menu_item_id"`
	Name       string `json:"name"`
	UnitPrice  int64  `json:"unit_price"`
	Quantity   int64  `json:"quantity"`
	Subtotal   int64  `json:"subtotal"`
}
