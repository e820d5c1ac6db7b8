package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"foodDelivery/models"
)

// OrderRepository is the core repository for Order and OrderItem rows.
// Status changes are compare-and-swap updates: each returns false when the row was
// not in the expected state, leaving the caller to decide which conflict occurred.
type OrderRepository struct {
	db querier
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *OrderRepository) WithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{db: tx}
}

const orderColumns = `id, order_number, customer_id, restaurant_id, rider_id, status,
subtotal, delivery_fee, tax, discount, total,
address_line, city, state, zip, delivery_lat, delivery_lng,
payment_method, idempotency_key, cancel_reason,
placed_at, confirmed_at, preparing_at, prepared_at, assigned_at, picked_up_at, on_the_way_at, delivered_at, cancelled_at`

// stampColumn is the lifecycle timestamp written when an order enters a status.
var stampColumn = map[models.OrderStatus]string{
	models.OrderStatusConfirmed: "confirmed_at",
	models.OrderStatusPreparing: "preparing_at",
	models.OrderStatusReady:     "prepared_at",
	models.OrderStatusAssigned:  "assigned_at",
	models.OrderStatusPickedUp:  "picked_up_at",
	models.OrderStatusOnTheWay:  "on_the_way_at",
	models.OrderStatusDelivered: "delivered_at",
	models.OrderStatusCancelled: "cancelled_at",
}

// Insert writes a new order row. The caller supplies ID, OrderNumber and PlacedAt.
// Unique violations come back as ErrDuplicateOrderNumber or ErrDuplicateIdempotencyKey.
func (r *OrderRepository) Insert(ctx context.Context, o *models.Order) error {
	if o == nil {
		return errors.New("order is nil")
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var key any
	if o.IdempotencyKey != "" {
		key = o.IdempotencyKey
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO orders (id, order_number, customer_id, restaurant_id, status,
subtotal, delivery_fee, tax, discount, total, address_line, city, state, zip, delivery_lat, delivery_lng,
payment_method, idempotency_key, placed_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.ID, o.OrderNumber, o.CustomerID, o.RestaurantID, string(o.Status),
		o.Subtotal, o.DeliveryFee, o.Tax, o.Discount, o.Total,
		o.Address.Line, o.Address.City, o.Address.State, o.Address.Zip, nullFloat(o.Address.Lat), nullFloat(o.Address.Lng),
		string(o.PaymentMethod), key, o.PlacedAt)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err, "idempotency_key"):
		return ErrDuplicateIdempotencyKey
	case isUniqueViolation(err, "order_number"):
		return ErrDuplicateOrderNumber
	}
	return err
}

// InsertItems writes the line items of an order and fills in their IDs.
func (r *OrderRepository) InsertItems(ctx context.Context, orderID string, items []models.OrderItem) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	for i := range items {
		it := &items[i]
		it.OrderID = orderID
		res, err := r.db.ExecContext(ctx, `INSERT INTO order_items (order_id, menu_item_id, name, unit_price, quantity, subtotal) VALUES (?,?,?,?,?,?)`,
			orderID, it.MenuItemID, it.Name, it.UnitPrice, it.Quantity, it.Subtotal)
		if err != nil {
			return fmt.Errorf("insert item %d: %w", it.MenuItemID, err)
		}
		if it.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}
	return nil
}

// Items returns the line items of an order in insertion order.
func (r *OrderRepository) Items(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id, order_id, menu_item_id, name, unit_price, quantity, subtotal FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.UnitPrice, &it.Quantity, &it.Subtotal); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// GetByID fetches an order by its ID. Returns nil, nil when absent.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

// GetByNumber fetches an order by its human-facing order number.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = ?`, number)
}

// GetByIdempotencyKey finds the order a customer already created under key.
func (r *OrderRepository) GetByIdempotencyKey(ctx context.Context, customerID int64, key string) (*models.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE customer_id = ? AND idempotency_key = ?`, customerID, key)
}

func (r *OrderRepository) getOne(ctx context.Context, query string, args ...any) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

// CompareAndSetStatus moves an order from one status to the next and stamps the
// target's timestamp column. It returns false when the order was not in status
// from (or the stamp was already set).
// ASSIGNED and CANCELLED have dedicated methods (ClaimReady, Cancel).
func (r *OrderRepository) CompareAndSetStatus(ctx context.Context, id string, from, to models.OrderStatus, at time.Time) (bool, error) {
	col, ok := stampColumn[to]
	if !ok || to == models.OrderStatusAssigned || to == models.OrderStatusCancelled {
		return false, fmt.Errorf("status %s cannot be set directly", to)
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = ?, `+col+` = ? WHERE id = ? AND status = ? AND `+col+` IS NULL`,
		string(to), at, id, string(from))
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

// ClaimReady assigns riderID to a READY, unassigned order. Exactly one concurrent
// caller can get true for a given order.
func (r *OrderRepository) ClaimReady(ctx context.Context, id string, riderID int64, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET rider_id = ?, status = 'ASSIGNED', assigned_at = ?
WHERE id = ? AND status = 'READY' AND rider_id IS NULL`, riderID, at, id)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

// Cancel moves an order from status from to CANCELLED and clears its rider.
func (r *OrderRepository) Cancel(ctx context.Context, id string, from models.OrderStatus, reason string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = 'CANCELLED', cancelled_at = ?, cancel_reason = ?, rider_id = NULL
WHERE id = ? AND status = ?`, at, reason, id, string(from))
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func scanOrder(s rowScanner) (*models.Order, error) {
	var o models.Order
	var status, method string
	var riderID sql.NullInt64
	var lat, lng sql.NullFloat64
	var key sql.NullString
	var confirmed, preparing, prepared, assigned, pickedUp, onTheWay, delivered, cancelled sql.NullTime
	err := s.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.RestaurantID, &riderID, &status,
		&o.Subtotal, &o.DeliveryFee, &o.Tax, &o.Discount, &o.Total,
		&o.Address.Line, &o.Address.City, &o.Address.State, &o.Address.Zip, &lat, &lng,
		&method, &key, &o.CancelReason,
		&o.PlacedAt, &confirmed, &preparing, &prepared, &assigned, &pickedUp, &onTheWay, &delivered, &cancelled)
	if err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	o.PaymentMethod = models.PaymentMethod(method)
	if riderID.Valid {
		v := riderID.Int64
		o.RiderID = &v
	}
	o.Address.Lat = floatPtr(lat)
	o.Address.Lng = floatPtr(lng)
	o.IdempotencyKey = key.String
	o.PlacedAt = o.PlacedAt.UTC()
	o.ConfirmedAt = timePtr(confirmed)
	o.PreparingAt = timePtr(preparing)
	o.PreparedAt = timePtr(prepared)
	o.AssignedAt = timePtr(assigned)
	o.PickedUpAt = timePtr(pickedUp)
	o.OnTheWayAt = timePtr(onTheWay)
	o.DeliveredAt = timePtr(delivered)
	o.CancelledAt = timePtr(cancelled)
	return &o, nil
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
