package models

import "time"

// RiderAvailability is the dispatch-facing state of a rider.
// BUSY is derived from holding an active order and is never set directly.
type RiderAvailability string

const (
	RiderOffline RiderAvailability = "OFFLINE"
	RiderOnline  RiderAvailability = "ONLINE"
	RiderBusy    RiderAvailability = "BUSY"
)

// Rider represents a delivery rider.
// CurrentOrderID has a one-to-one relation to Order (nil when idle).
type Rider struct {
	ID              int64             `db:"id" json:"id"`
	Name            string            `db:"name" json:"name"`
	Availability    RiderAvailability `db:"availability" json:"availability"`
	Lat             float64           `db:"lat" json:"lat"`
	Lng             float64           `db:"lng" json:"lng"`
	TotalDeliveries int64             `db:"total_deliveries" json:"total_deliveries"`
	Rating          float64           `db:"rating" json:"rating"`
	TotalRatings    int64             `db:"total_ratings" json:"total_ratings"`
	CurrentOrderID  *string           `db:"current_order_id" json:"current_order_id"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// Earning is the rider payout attributed to an order at claim time. Rate is kept as
// the decimal string that was in force so the amount can be recomputed for audit.
type Earning struct {
	ID          int64      `json:"id"`
	OrderID     string     `json:"order_id"`
	RiderID     int64      `json:"rider_id"`
	DeliveryFee int64      `json:"delivery_fee"`
	Rate        string     `json:"rate"`
	Amount      int64      `json:"amount"`
	VoidedAt    *time.Time `json:"voided_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
