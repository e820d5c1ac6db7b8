package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"foodDelivery/models"
)

// PaymentRepository stores the single payment captured with each order.
type PaymentRepository struct {
	db querier
}

// NewPaymentRepository returns a repository over db.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *PaymentRepository) WithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

// Insert creates the payment record of an order. Status defaults to PENDING.
func (r *PaymentRepository) Insert(ctx context.Context, p *models.Payment) error {
	if p == nil {
		return errors.New("payment is nil")
	}
	if p.Status == "" {
		p.Status = models.PaymentStatusPending
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `INSERT INTO payments (order_id, method, status, amount, created_at, updated_at) VALUES (?,?,?,?,?,?)`,
		p.OrderID, string(p.Method), string(p.Status), p.Amount, p.CreatedAt, p.CreatedAt)
	if err != nil {
		return err
	}
	p.UpdatedAt = p.CreatedAt
	p.ID, err = res.LastInsertId()
	return err
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var p models.Payment
	var method, status string
	var completed sql.NullTime
	err := r.db.QueryRowContext(ctx, `SELECT id, order_id, method, status, amount, created_at, completed_at, updated_at FROM payments WHERE order_id = ?`, orderID).
		Scan(&p.ID, &p.OrderID, &method, &status, &p.Amount, &p.CreatedAt, &completed, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.Method = models.PaymentMethod(method)
	p.Status = models.PaymentStatus(status)
	p.CompletedAt = timePtr(completed)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// CompareAndSetStatus moves the order's payment from one status to another.
// completed_at is stamped when the target is COMPLETED.
func (r *PaymentRepository) CompareAndSetStatus(ctx context.Context, orderID string, from, to models.PaymentStatus, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var completed any
	if to == models.PaymentStatusCompleted {
		completed = at
	}
	res, err := r.db.ExecContext(ctx, `UPDATE payments SET status = ?, updated_at = ?, completed_at = COALESCE(?, completed_at)
WHERE order_id = ? AND status = ?`, string(to), at, completed, orderID, string(from))
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}
