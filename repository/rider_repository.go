package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"foodDelivery/models"
)

// RiderRepository stores riders and enforces the one-order-per-rider rule.
type RiderRepository struct {
	db querier
}

// NewRiderRepository returns a repository over db.
func NewRiderRepository(db *sql.DB) *RiderRepository {
	return &RiderRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *RiderRepository) WithTx(tx *sql.Tx) *RiderRepository {
	return &RiderRepository{db: tx}
}

// Create inserts a new rider. Availability defaults to OFFLINE.
func (r *RiderRepository) Create(ctx context.Context, rd *models.Rider) (*models.Rider, error) {
	if rd == nil {
		return nil, errors.New("rider is nil")
	}
	if rd.Availability == "" || rd.Availability == models.RiderBusy {
		rd.Availability = models.RiderOffline
	}
	if rd.UpdatedAt.IsZero() {
		rd.UpdatedAt = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `INSERT INTO riders (name, availability, lat, lng, updated_at) VALUES (?,?,?,?,?)`,
		rd.Name, string(rd.Availability), rd.Lat, rd.Lng, rd.UpdatedAt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	rd.ID = id
	return rd, nil
}

// GetByID returns the rider or nil, nil when it does not exist.
func (r *RiderRepository) GetByID(ctx context.Context, id int64) (*models.Rider, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var rd models.Rider
	var availability string
	var current sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT id, name, availability, lat, lng, total_deliveries, rating, total_ratings, current_order_id, updated_at FROM riders WHERE id = ?`, id).
		Scan(&rd.ID, &rd.Name, &availability, &rd.Lat, &rd.Lng, &rd.TotalDeliveries, &rd.Rating, &rd.TotalRatings, &current, &rd.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rd.Availability = models.RiderAvailability(availability)
	if current.Valid {
		v := current.String
		rd.CurrentOrderID = &v
	}
	return &rd, nil
}

// MarkBusy attaches orderID to an ONLINE, idle rider. It returns false when the
// rider is not ONLINE at the moment of the write.
func (r *RiderRepository) MarkBusy(ctx context.Context, id int64, orderID string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE riders SET availability = 'BUSY', current_order_id = ?, updated_at = ?
WHERE id = ? AND availability = 'ONLINE' AND current_order_id IS NULL`, orderID, at, id)
	if err != nil {
		if isUniqueViolation(err, "current_order_id") {
			return false, ErrRiderHasOrder
		}
		return false, err
	}
	return affectedOne(res)
}

// Release frees a rider from orderID and puts them back ONLINE. delivered bumps the
// rider's delivery counter. Releasing a rider that no longer holds orderID is a no-op.
func (r *RiderRepository) Release(ctx context.Context, id int64, orderID string, delivered bool, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	inc := 0
	if delivered {
		inc = 1
	}
	_, err := r.db.ExecContext(ctx, `UPDATE riders SET availability = 'ONLINE', current_order_id = NULL,
total_deliveries = total_deliveries + ?, updated_at = ? WHERE id = ? AND current_order_id = ?`, inc, at, id, orderID)
	return err
}

// SetAvailability switches between ONLINE and OFFLINE. It returns false when the
// rider is BUSY.
func (r *RiderRepository) SetAvailability(ctx context.Context, id int64, a models.RiderAvailability, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE riders SET availability = ?, updated_at = ? WHERE id = ? AND availability != 'BUSY'`,
		string(a), at, id)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

// UpdateLocation records the rider's last reported position.
func (r *RiderRepository) UpdateLocation(ctx context.Context, id int64, lat, lng float64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE riders SET lat = ?, lng = ?, updated_at = ? WHERE id = ?`, lat, lng, at, id)
	return err
}

// SetRating writes the rider's maintained rating aggregate.
func (r *RiderRepository) SetRating(ctx context.Context, id int64, rating float64, total int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE riders SET rating = ?, total_ratings = ? WHERE id = ?`, rating, total, id)
	return err
}
