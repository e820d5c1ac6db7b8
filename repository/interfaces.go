package repository

import (
	"context"
	"time"

	"foodDelivery/models"
)

// CatalogStore is the part of the catalog the order core reads and the aggregates it
// maintains on restaurants.
type CatalogStore interface {
	GetRestaurant(ctx context.Context, id int64) (*models.Restaurant, error)
	GetMenuItem(ctx context.Context, id int64) (*models.MenuItem, error)
	IncrementRestaurantOrderCount(ctx context.Context, restaurantID int64) error
	SetRestaurantRating(ctx context.Context, restaurantID int64, rating float64, totalReviews int64) error
}

// SettlementSource yields per-rider payable totals.
type SettlementSource interface {
	SettlementRows(ctx context.Context, from, to time.Time) ([]SettlementRow, error)
}

var (
	_ CatalogStore     = (*CatalogRepository)(nil)
	_ SettlementSource = (*EarningRepository)(nil)
)
