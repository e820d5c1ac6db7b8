package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"foodDelivery/models"
)

// ReviewRepository stores reviews and computes the rating aggregates.
type ReviewRepository struct {
	db querier
}

// NewReviewRepository returns a repository over db.
func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *ReviewRepository) WithTx(tx *sql.Tx) *ReviewRepository {
	return &ReviewRepository{db: tx}
}

// Insert creates a review. A second review for the same order returns ErrDuplicateReview.
func (r *ReviewRepository) Insert(ctx context.Context, rv *models.Review) error {
	if rv == nil {
		return errors.New("review is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var rider any
	if rv.RiderID != nil {
		rider = *rv.RiderID
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO reviews (order_id, customer_id, restaurant_id, rider_id, food, service, delivery, overall, comment, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rv.OrderID, rv.CustomerID, rv.RestaurantID, rider, rv.Ratings.Food, rv.Ratings.Service, rv.Ratings.Delivery, rv.Ratings.Overall,
		rv.Comment, rv.CreatedAt, rv.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "order_id") {
			return ErrDuplicateReview
		}
		return err
	}
	rv.ID, err = res.LastInsertId()
	return err
}

const reviewColumns = `id, order_id, customer_id, restaurant_id, rider_id, food, service, delivery, overall, comment, created_at, updated_at`

// GetByID returns the review or nil, nil when it does not exist.
func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*models.Review, error) {
	return r.getOne(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id)
}

// GetByOrderID returns the review of an order, if any.
func (r *ReviewRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Review, error) {
	return r.getOne(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE order_id = ?`, orderID)
}

func (r *ReviewRepository) getOne(ctx context.Context, query string, args ...any) (*models.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var rv models.Review
	var rider sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&rv.ID, &rv.OrderID, &rv.CustomerID, &rv.RestaurantID, &rider,
		&rv.Ratings.Food, &rv.Ratings.Service, &rv.Ratings.Delivery, &rv.Ratings.Overall, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if rider.Valid {
		v := rider.Int64
		rv.RiderID = &v
	}
	return &rv, nil
}

// Update rewrites the ratings and comment of a review.
func (r *ReviewRepository) Update(ctx context.Context, rv *models.Review) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE reviews SET food = ?, service = ?, delivery = ?, overall = ?, comment = ?, updated_at = ? WHERE id = ?`,
		rv.Ratings.Food, rv.Ratings.Service, rv.Ratings.Delivery, rv.Ratings.Overall, rv.Comment, rv.UpdatedAt, rv.ID)
	return err
}

// RestaurantAggregate reads the mean overall rating and review count of a restaurant.
func (r *ReviewRepository) RestaurantAggregate(ctx context.Context, restaurantID int64) (float64, int64, error) {
	return r.aggregate(ctx, `SELECT COALESCE(AVG(overall), 0), COUNT(*) FROM reviews WHERE restaurant_id = ?`, restaurantID)
}

// RiderAggregate reads the mean delivery rating and review count of a rider.
func (r *ReviewRepository) RiderAggregate(ctx context.Context, riderID int64) (float64, int64, error) {
	return r.aggregate(ctx, `SELECT COALESCE(AVG(delivery), 0), COUNT(*) FROM reviews WHERE rider_id = ?`, riderID)
}

func (r *ReviewRepository) aggregate(ctx context.Context, query string, id int64) (float64, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var avg float64
	var n int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&avg, &n); err != nil {
		return 0, 0, err
	}
	return avg, n, nil
}
