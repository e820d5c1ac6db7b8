package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"foodDelivery/models"
)

// EarningRepository stores the rider payout attributed to each claimed order.
type EarningRepository struct {
	db querier
}

// NewEarningRepository returns a repository over db.
func NewEarningRepository(db *sql.DB) *EarningRepository {
	return &EarningRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *EarningRepository) WithTx(tx *sql.Tx) *EarningRepository {
	return &EarningRepository{db: tx}
}

func (r *EarningRepository) Insert(ctx context.Context, e *models.Earning) error {
	if e == nil {
		return errors.New("earning is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `INSERT INTO rider_earnings (order_id, rider_id, delivery_fee, rate, amount, created_at) VALUES (?,?,?,?,?,?)`,
		e.OrderID, e.RiderID, e.DeliveryFee, e.Rate, e.Amount, e.CreatedAt)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

func (r *EarningRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Earning, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var e models.Earning
	var voided sql.NullTime
	err := r.db.QueryRowContext(ctx, `SELECT id, order_id, rider_id, delivery_fee, rate, amount, voided_at, created_at FROM rider_earnings WHERE order_id = ?`, orderID).
		Scan(&e.ID, &e.OrderID, &e.RiderID, &e.DeliveryFee, &e.Rate, &e.Amount, &voided, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	e.VoidedAt = timePtr(voided)
	return &e, nil
}

// Void marks the order's earning as not payable. Already voided earnings are kept as is.
func (r *EarningRepository) Void(ctx context.Context, orderID string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE rider_earnings SET voided_at = ? WHERE order_id = ? AND voided_at IS NULL`, at, orderID)
	return err
}

// SettlementRow is one rider's payable total over a settlement window.
type SettlementRow struct {
	RiderID      int64
	RiderName    string
	Deliveries   int64
	DeliveryFees int64
	Amount       int64
}

// SettlementRows sums non-voided earnings of orders delivered in [from, to), per rider.
func (r *EarningRepository) SettlementRows(ctx context.Context, from, to time.Time) ([]SettlementRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `
SELECT e.rider_id, rd.name, COUNT(*), SUM(e.delivery_fee), SUM(e.amount)
FROM rider_earnings e
JOIN orders o ON o.id = e.order_id
JOIN riders rd ON rd.id = e.rider_id
WHERE e.voided_at IS NULL
  AND o.status = 'DELIVERED'
  AND o.delivered_at >= ? AND o.delivered_at < ?
GROUP BY e.rider_id, rd.name
ORDER BY e.rider_id`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SettlementRow
	for rows.Next() {
		var s SettlementRow
		if err := rows.Scan(&s.RiderID, &s.RiderName, &s.Deliveries, &s.DeliveryFees, &s.Amount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
