package models

import (
	"fmt"
	"strings"
	"time"
)

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodWallet PaymentMethod = "wallet"
)

// ParsePaymentMethod normalizes and validates a payment method.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodWallet:
		return m, nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// CollectedOnDelivery reports whether money changes hands only at handoff.
func (m PaymentMethod) CollectedOnDelivery() bool {
	return m == PaymentMethodCash
}

// PaymentStatus tracks settlement independently of the order status.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// CanTransitionTo: PENDING -> COMPLETED|FAILED, COMPLETED -> REFUNDED.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return target == PaymentStatusCompleted || target == PaymentStatusFailed
	case PaymentStatusCompleted:
		return target == PaymentStatusRefunded
	}
	return false
}

// Payment is the single payment record of an order.
type Payment struct {
	ID          int64         `json:"id"`
	OrderID     string        `json:"order_id"`
	Method      PaymentMethod `json:"method"`
	Status      PaymentStatus `json:"status"`
	Amount      int64         `json:"amount"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
