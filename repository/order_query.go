package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"foodDelivery/models"
)

// ListOrdersParams represents filters and keyset pagination for List.
type ListOrdersParams struct {
	CustomerID   *int64
	RestaurantID *int64
	RiderID      *int64
	Statuses     []models.OrderStatus
	PageSize     int
	// Keyset cursor: the (placed_at, id) of the last order of the previous page.
	AfterPlacedAt *time.Time
	AfterID       string
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// List returns one page of orders matching filters ordered by placed_at desc, id desc.
// more reports whether further orders follow the page.
func (r *OrderRepository) List(ctx context.Context, p ListOrdersParams) (orders []models.Order, more bool, err error) {
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var where []string
	var args []any
	if len(p.Statuses) > 0 {
		placeholders := make([]string, len(p.Statuses))
		for i, s := range p.Statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ",")+")")
	}
	if p.CustomerID != nil {
		where = append(where, "customer_id = ?")
		args = append(args, *p.CustomerID)
	}
	if p.RestaurantID != nil {
		where = append(where, "restaurant_id = ?")
		args = append(args, *p.RestaurantID)
	}
	if p.RiderID != nil {
		where = append(where, "rider_id = ?")
		args = append(args, *p.RiderID)
	}
	if p.AfterPlacedAt != nil && p.AfterID != "" {
		where = append(where, "(placed_at < ? OR (placed_at = ? AND id < ?))")
		args = append(args, p.AfterPlacedAt.UTC(), p.AfterPlacedAt.UTC(), p.AfterID)
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY placed_at DESC, id DESC LIMIT ?"
	args = append(args, p.PageSize+1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()
	if orders, err = scanOrderRows(rows); err != nil {
		return nil, false, err
	}
	if len(orders) > p.PageSize {
		return orders[:p.PageSize], true, nil
	}
	return orders, false, nil
}

// DispatchCandidate is a READY, unassigned order with its pickup location.
type DispatchCandidate struct {
	Order          models.Order
	RestaurantName string
	PickupLat      float64
	PickupLng      float64
}

// ListReadyUnassigned returns every READY order without a rider, oldest-prepared first.
// Distance filtering is left to the caller.
func (r *OrderRepository) ListReadyUnassigned(ctx context.Context) ([]DispatchCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `
SELECT `+prefixed("o.", orderColumns)+`, rs.name, rs.lat, rs.lng
FROM orders o
JOIN restaurants rs ON rs.id = o.restaurant_id
WHERE o.status = 'READY' AND o.rider_id IS NULL
ORDER BY o.prepared_at ASC, o.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DispatchCandidate
	for rows.Next() {
		var c DispatchCandidate
		o, err := scanOrder(scanFunc(func(dest ...any) error {
			return rows.Scan(append(dest, &c.RestaurantName, &c.PickupLat, &c.PickupLng)...)
		}))
		if err != nil {
			return nil, err
		}
		c.Order = *o
		out = append(out, c)
	}
	return out, rows.Err()
}

// ActiveForRider returns the rider's non-terminal order, if any.
func (r *OrderRepository) ActiveForRider(ctx context.Context, riderID int64) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders
WHERE rider_id = ? AND status IN ('ASSIGNED','PICKED_UP','ON_THE_WAY')
ORDER BY assigned_at DESC LIMIT 1`, riderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

// scanOrderRows is a helper to scan rows into Order objects.
func scanOrderRows(rows *sql.Rows) ([]models.Order, error) {
	var out []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
