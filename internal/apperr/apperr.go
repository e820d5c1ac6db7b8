// Package apperr is the error taxonomy shared by the ledger, dispatch and feedback
// services. Every error carries a Kind (how callers should react) and a stable Code
// (what happened). errors.Is matches on Code, so contextual messages can be added
// without breaking comparisons against the sentinels below.
package apperr

import (
	"errors"
	"fmt"
)

// Kind groups codes by how a caller should react.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindStateConflict
	KindTransaction
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindNotFound:
		return "NotFoundError"
	case KindForbidden:
		return "Forbidden"
	case KindStateConflict:
		return "StateConflictError"
	case KindTransaction:
		return "TransactionFailure"
	}
	return "Unknown"
}

// Error is a classified application error.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := e.Code
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func sentinel(kind Kind, code string) *Error { return &Error{Kind: kind, Code: code} }

// Validation
var (
	ErrInvalidInput   = sentinel(KindValidation, "InvalidInput")
	ErrInvalidAddress = sentinel(KindValidation, "InvalidAddress")
	ErrPriceMismatch  = sentinel(KindValidation, "PriceMismatch")
)

// Not found
var (
	ErrOrderNotFound      = sentinel(KindNotFound, "OrderNotFound")
	ErrRestaurantNotFound = sentinel(KindNotFound, "RestaurantNotFound")
	ErrRiderNotFound      = sentinel(KindNotFound, "RiderNotFound")
	ErrReviewNotFound     = sentinel(KindNotFound, "ReviewNotFound")
)

// Authorization
var ErrForbidden = sentinel(KindForbidden, "Forbidden")

// State conflicts
var (
	ErrInvalidTransition     = sentinel(KindStateConflict, "InvalidTransition")
	ErrOrderAlreadyClaimed   = sentinel(KindStateConflict, "OrderAlreadyClaimed")
	ErrOrderCancelled        = sentinel(KindStateConflict, "OrderCancelled")
	ErrItemUnavailable       = sentinel(KindStateConflict, "ItemUnavailable")
	ErrOrderNotDelivered     = sentinel(KindStateConflict, "OrderNotDelivered")
	ErrReviewAlreadyExists   = sentinel(KindStateConflict, "ReviewAlreadyExists")
	ErrRiderBusy             = sentinel(KindStateConflict, "RiderBusy")
	ErrRiderUnavailable      = sentinel(KindStateConflict, "RiderUnavailable")
	ErrPaymentNotCollectable = sentinel(KindStateConflict, "PaymentNotCollectable")
	ErrPaymentNotPending     = sentinel(KindStateConflict, "PaymentNotPending")
)

// Storage / downstream
var (
	ErrTransactionFailed    = sentinel(KindTransaction, "TransactionFailed")
	ErrPaymentGatewayFailed = sentinel(KindTransaction, "PaymentGatewayFailed")
)

// New returns an error with the kind and code of base and a formatted message.
func New(base *Error, format string, args ...any) *Error {
	return &Error{Kind: base.Kind, Code: base.Code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to a copy of base.
func Wrap(base *Error, cause error, msg string) *Error {
	return &Error{Kind: base.Kind, Code: base.Code, Msg: msg, Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the Code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Storage classifies an error coming out of a transaction: already-classified
// errors pass through, anything else is a TransactionFailed.
func Storage(err error, msg string) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return Wrap(ErrTransactionFailed, err, msg)
}
