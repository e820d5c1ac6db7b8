package repository

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrDuplicateOrderNumber    = errors.New("order number already exists")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used by this customer")
	ErrDuplicateReview         = errors.New("order already has a review")
	ErrRiderHasOrder           = errors.New("rider already holds an order")
)

// isUniqueViolation reports whether err is a UNIQUE constraint failure naming column.
// An empty column matches any unique constraint.
func isUniqueViolation(err error, column string) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.ExtendedCode != sqlite3.ErrConstraintUnique && se.ExtendedCode != sqlite3.ErrConstraintPrimaryKey {
		return false
	}
	return column == "" || strings.Contains(se.Error(), column)
}
