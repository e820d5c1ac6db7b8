package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// querier is implemented by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Store groups the repositories over one database handle. A Store returned to an
// InTx callback has every repository bound to the same transaction.
type Store struct {
	db *sql.DB
	tx *sql.Tx

	Orders   *OrderRepository
	Payments *PaymentRepository
	Riders   *RiderRepository
	Catalog  *CatalogRepository
	Reviews  *ReviewRepository
	Earnings *EarningRepository
}

// NewStore builds every repository over db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:       db,
		Orders:   NewOrderRepository(db),
		Payments: NewPaymentRepository(db),
		Riders:   NewRiderRepository(db),
		Catalog:  NewCatalogRepository(db),
		Reviews:  NewReviewRepository(db),
		Earnings: NewEarningRepository(db),
	}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) withTx(tx *sql.Tx) *Store {
	return &Store{
		db:       s.db,
		tx:       tx,
		Orders:   s.Orders.WithTx(tx),
		Payments: s.Payments.WithTx(tx),
		Riders:   s.Riders.WithTx(tx),
		Catalog:  s.Catalog.WithTx(tx),
		Reviews:  s.Reviews.WithTx(tx),
		Earnings: s.Earnings.WithTx(tx),
	}
}

// InTx runs fn inside a single transaction. Any error returned by fn rolls back every
// write fn made; a nil error commits. Calling InTx on a transaction-bound Store joins
// the outer transaction.
//
// The pool holds one connection, so fn must only use the Store it is given.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()
	if err = fn(s.withTx(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
