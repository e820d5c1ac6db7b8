package models

// Restaurant is owned by the catalog. Rating, TotalReviews and TotalOrders are
// maintained aggregates: rating/reviews are recomputed from reviews, orders is a
// historical counter bumped once per created order.
type Restaurant struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Rating       float64 `json:"rating"`
	TotalReviews int64   `json:"total_reviews"`
	TotalOrders  int64   `json:"total_orders"`
}

// MenuItemStatus is the orderability flag of a menu item.
type MenuItemStatus string

const (
	MenuItemAvailable   MenuItemStatus = "AVAILABLE"
	MenuItemUnavailable MenuItemStatus = "UNAVAILABLE"
)

// MenuItem is a catalog entry. Prices are minor currency units.
type MenuItem struct {
	ID              int64          `json:"id"`
	RestaurantID    int64          `json:"restaurant_id"`
	Name            string         `json:"name"`
	Price           int64          `json:"price"`
	DiscountedPrice *int64         `json:"discounted_price,omitempty"`
	Status          MenuItemStatus `json:"status"`
}

// EffectivePrice prefers a valid discounted price over the list price.
func (m *MenuItem) EffectivePrice() int64 {
	if m.DiscountedPrice != nil && *m.DiscountedPrice >= 0 && *m.DiscountedPrice < m.Price {
		return *m.DiscountedPrice
	}
	return m.Price
}
