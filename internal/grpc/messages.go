package grpcserver

import (
	"foodDelivery/models"
)

// Order service

type LineItem struct {
	MenuItemID int64 `json:"menu_item_id"`
	Quantity   int64 `json:"quantity"`
}

type CreateOrderRequest struct {
	RestaurantID   int64          `json:"restaurant_id"`
	Items          []LineItem     `json:"items"`
	Address        models.Address `json:"delivery_address"`
	PaymentMethod  string         `json:"payment_method"`
	Subtotal       *int64         `json:"subtotal,omitempty"`
	DeliveryFee    int64          `json:"delivery_fee"`
	Tax            int64          `json:"tax"`
	Discount       int64          `json:"discount"`
	Total          *int64         `json:"total,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// OrderResponse carries an order and the display label of its status.
type OrderResponse struct {
	Order       *models.Order `json:"order"`
	StatusLabel string        `json:"status_label"`
}

type GetOrderRequest struct {
	OrderID     string `json:"order_id,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
}

type ListOrdersRequest struct {
	Statuses     []string `json:"statuses,omitempty"`
	CustomerID   *int64   `json:"customer_id,omitempty"`
	RestaurantID *int64   `json:"restaurant_id,omitempty"`
	PageSize     int      `json:"page_size,omitempty"`
	Cursor       string   `json:"cursor,omitempty"`
}

type ListOrdersResponse struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type TransitionOrderRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

type SettlePaymentRequest struct {
	OrderID string `json:"order_id"`
}

type PaymentResponse struct {
	Payment *models.Payment `json:"payment"`
}

// Dispatch service

type ListAvailableOrdersRequest struct{}

type Offer struct {
	Order          models.Order `json:"order"`
	RestaurantName string       `json:"restaurant_name"`
	DistanceKm     float64      `json:"distance_km"`
	Payout         int64        `json:"payout"`
}

type ListAvailableOrdersResponse struct {
	Offers []Offer `json:"offers"`
}

type ClaimOrderRequest struct {
	OrderID string `json:"order_id"`
}

type ClaimOrderResponse struct {
	Order   *models.Order   `json:"order"`
	Earning *models.Earning `json:"earning"`
}

type SetAvailabilityRequest struct {
	Availability string `json:"availability"`
}

type RiderResponse struct {
	Rider *models.Rider `json:"rider"`
}

type HeartbeatRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type HeartbeatResponse struct{}

type GetAssignedOrderRequest struct{}

// Feedback service

type SubmitReviewRequest struct {
	OrderID string         `json:"order_id"`
	Ratings models.Ratings `json:"ratings"`
	Comment string         `json:"comment,omitempty"`
}

type UpdateReviewRequest struct {
	ReviewID int64          `json:"review_id"`
	Ratings  models.Ratings `json:"ratings"`
	Comment  string         `json:"comment,omitempty"`
}

type ReviewResponse struct {
	Review *models.Review `json:"review"`
}

type RestaurantRatingRequest struct {
	RestaurantID int64 `json:"restaurant_id"`
}

type RestaurantRatingResponse struct {
	RestaurantID int64   `json:"restaurant_id"`
	Rating       float64 `json:"rating"`
	TotalReviews int64   `json:"total_reviews"`
}

// Admin service

type CreateRestaurantRequest struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type RestaurantResponse struct {
	Restaurant *models.Restaurant `json:"restaurant"`
}

type AddMenuItemRequest struct {
	RestaurantID    int64  `json:"restaurant_id"`
	Name            string `json:"name"`
	Price           int64  `json:"price"`
	DiscountedPrice *int64 `json:"discounted_price,omitempty"`
}

type SetMenuItemStatusRequest struct {
	MenuItemID int64  `json:"menu_item_id"`
	Status     string `json:"status"`
}

type MenuItemResponse struct {
	MenuItem *models.MenuItem `json:"menu_item"`
}

type RegisterRiderRequest struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}
