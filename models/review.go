package models

import (
	"fmt"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Ratings are the per-dimension scores a customer leaves for a delivered order.
// Overall defaults to the mean of the three dimensions when zero.
type Ratings struct {
	Food     int     `json:"food"`
	Service  int     `json:"service"`
	Delivery int     `json:"delivery"`
	Overall  float64 `json:"overall"`
}

// Normalize validates the ratings and fills in Overall.
func (r Ratings) Normalize() (Ratings, error) {
	dims := []struct {
		name string
		v    int
	}{{"food", r.Food}, {"service", r.Service}, {"delivery", r.Delivery}}
	for _, d := range dims {
		if d.v < MinRating || d.v > MaxRating {
			return r, fmt.Errorf("%s rating must be between %d and %d", d.name, MinRating, MaxRating)
		}
	}
	if r.Overall == 0 {
		r.Overall = float64(r.Food+r.Service+r.Delivery) / 3
	}
	if r.Overall < MinRating || r.Overall > MaxRating {
		return r, fmt.Errorf("overall rating must be between %d and %d", MinRating, MaxRating)
	}
	return r, nil
}

// Review is the single review attached to a delivered order.
type Review struct {
	ID           int64     `json:"id"`
	OrderID      string    `json:"order_id"`
	CustomerID   int64     `json:"customer_id"`
	RestaurantID int64     `json:"restaurant_id"`
	RiderID      *int64    `json:"rider_id,omitempty"`
	Ratings      Ratings   `json:"ratings"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
