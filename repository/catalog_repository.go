package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"foodDelivery/models"
)

// CatalogRepository reads restaurants and menu items and maintains the restaurant
// aggregates (order counter, rating) owned by the order core.
type CatalogRepository struct {
	db querier
}

// NewCatalogRepository returns a repository over db.
func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *CatalogRepository) WithTx(tx *sql.Tx) *CatalogRepository {
	return &CatalogRepository{db: tx}
}

// CreateRestaurant inserts a restaurant with zeroed aggregates.
func (r *CatalogRepository) CreateRestaurant(ctx context.Context, rs *models.Restaurant) (*models.Restaurant, error) {
	if rs == nil {
		return nil, errors.New("restaurant is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `INSERT INTO restaurants (name, lat, lng) VALUES (?,?,?)`, rs.Name, rs.Lat, rs.Lng)
	if err != nil {
		return nil, err
	}
	if rs.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	rs.Rating, rs.TotalReviews, rs.TotalOrders = 0, 0, 0
	return rs, nil
}

func (r *CatalogRepository) GetRestaurant(ctx context.Context, id int64) (*models.Restaurant, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var rs models.Restaurant
	err := r.db.QueryRowContext(ctx, `SELECT id, name, lat, lng, rating, total_reviews, total_orders FROM restaurants WHERE id = ?`, id).
		Scan(&rs.ID, &rs.Name, &rs.Lat, &rs.Lng, &rs.Rating, &rs.TotalReviews, &rs.TotalOrders)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rs, nil
}

func (r *CatalogRepository) CreateMenuItem(ctx context.Context, m *models.MenuItem) (*models.MenuItem, error) {
	if m == nil {
		return nil, errors.New("menu item is nil")
	}
	if m.Status == "" {
		m.Status = models.MenuItemAvailable
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var disc any
	if m.DiscountedPrice != nil {
		disc = *m.DiscountedPrice
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO menu_items (restaurant_id, name, price, discounted_price, status) VALUES (?,?,?,?,?)`,
		m.RestaurantID, m.Name, m.Price, disc, string(m.Status))
	if err != nil {
		return nil, err
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return m, nil
}

// GetMenuItem returns a menu item regardless of its status.
func (r *CatalogRepository) GetMenuItem(ctx context.Context, id int64) (*models.MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var m models.MenuItem
	var status string
	var disc sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT id, restaurant_id, name, price, discounted_price, status FROM menu_items WHERE id = ?`, id).
		Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Price, &disc, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if disc.Valid {
		v := disc.Int64
		m.DiscountedPrice = &v
	}
	m.Status = models.MenuItemStatus(status)
	return &m, nil
}

func (r *CatalogRepository) SetMenuItemStatus(ctx context.Context, id int64, status models.MenuItemStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE menu_items SET status = ? WHERE id = ?`, string(status), id)
	return err
}

// SetMenuItemPrice changes list and discounted prices. Existing orders keep the
// prices captured at checkout.
func (r *CatalogRepository) SetMenuItemPrice(ctx context.Context, id int64, price int64, discounted *int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var disc any
	if discounted != nil {
		disc = *discounted
	}
	_, err := r.db.ExecContext(ctx, `UPDATE menu_items SET price = ?, discounted_price = ? WHERE id = ?`, price, disc, id)
	return err
}

// IncrementRestaurantOrderCount bumps the historical order counter by one.
func (r *CatalogRepository) IncrementRestaurantOrderCount(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE restaurants SET total_orders = total_orders + 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	ok, err := affectedOne(res)
	if err != nil {
		return err
	}
	if !ok {
		return sql.ErrNoRows
	}
	return nil
}

// SetRestaurantRating writes the restaurant's maintained rating aggregate.
func (r *CatalogRepository) SetRestaurantRating(ctx context.Context, id int64, rating float64, totalReviews int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE restaurants SET rating = ?, total_reviews = ? WHERE id = ?`, rating, totalReviews, id)
	return err
}
