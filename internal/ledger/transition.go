package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"foodDelivery/internal/apperr"
	"foodDelivery/internal/notify"
	"foodDelivery/models"
	"foodDelivery/repository"
)

// Transition moves an order one step along its lifecycle, or to CANCELLED.
// Validity is checked before authorization so callers learn about an impossible
// move even when they would not be allowed to make it.
func (s *Service) Transition(ctx context.Context, orderID string, target models.OrderStatus, actor models.Actor) (*models.Order, error) {
	return s.transition(ctx, orderID, target, actor, "")
}

// Cancel is Transition to CANCELLED with a reason kept on the order.
func (s *Service) Cancel(ctx context.Context, orderID string, actor models.Actor, reason string) (*models.Order, error) {
	return s.transition(ctx, orderID, models.OrderStatusCancelled, actor, strings.TrimSpace(reason))
}

func (s *Service) transition(ctx context.Context, orderID string, target models.OrderStatus, actor models.Actor, reason string) (*models.Order, error) {
	if !target.Valid() {
		return nil, apperr.New(apperr.ErrInvalidInput, "unknown status %q", target)
	}
	var (
		updated *models.Order
		from    models.OrderStatus
	)
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		o, err := tx.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return apperr.New(apperr.ErrOrderNotFound, "order %s", orderID)
		}
		if err := checkTransition(o, target); err != nil {
			return err
		}
		if err := authorizeTransition(actor, o, target); err != nil {
			return err
		}
		from = o.Status

		if target == models.OrderStatusCancelled {
			err = s.applyCancel(ctx, tx, o, reason)
		} else {
			err = s.applyForward(ctx, tx, o, target)
		}
		if err != nil {
			return err
		}
		if updated, err = tx.Orders.GetByID(ctx, orderID); err != nil {
			return err
		}
		return s.attach(ctx, tx, updated)
	})
	if err != nil {
		return nil, apperr.Storage(err, "transition order")
	}

	s.log.WithFields(logrus.Fields{
		"order_id": updated.ID,
		"from":     string(from),
		"to":       string(updated.Status),
		"actor":    actor.String(),
	}).Info("order status changed")
	notify.Emit(ctx, s.events, s.log, notify.NewEvent(updated, from, updated.LastTransitionAt()))
	return updated, nil
}

func checkTransition(o *models.Order, target models.OrderStatus) error {
	switch {
	case o.Status == models.OrderStatusCancelled:
		return apperr.New(apperr.ErrOrderCancelled, "order %s is cancelled", o.ID)
	case target == models.OrderStatusAssigned:
		return apperr.New(apperr.ErrInvalidTransition, "orders are assigned by a rider claim, not a status change")
	case !o.Status.CanTransitionTo(target):
		return apperr.New(apperr.ErrInvalidTransition, "%s -> %s", o.Status, target)
	}
	return nil
}

func (s *Service) applyForward(ctx context.Context, tx *repository.Store, o *models.Order, target models.OrderStatus) error {
	at := s.stamp(o)
	ok, err := tx.Orders.CompareAndSetStatus(ctx, o.ID, o.Status, target, at)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.ErrInvalidTransition, "order %s changed concurrently", o.ID)
	}
	if target == models.OrderStatusDelivered && o.RiderID != nil {
		if err := tx.Riders.Release(ctx, *o.RiderID, o.ID, true, at); err != nil {
			return fmt.Errorf("release rider: %w", err)
		}
	}
	return nil
}

// applyCancel cancels o and unwinds everything attached to it: the rider goes back
// ONLINE, the rider's earning is voided, a pending payment fails and a completed one
// is refunded.
func (s *Service) applyCancel(ctx context.Context, tx *repository.Store, o *models.Order, reason string) error {
	at := s.stamp(o)
	ok, err := tx.Orders.Cancel(ctx, o.ID, o.Status, reason, at)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.ErrInvalidTransition, "order %s changed concurrently", o.ID)
	}
	if o.RiderID != nil {
		if err := tx.Riders.Release(ctx, *o.RiderID, o.ID, false, at); err != nil {
			return fmt.Errorf("release rider: %w", err)
		}
		if err := tx.Earnings.Void(ctx, o.ID, at); err != nil {
			return fmt.Errorf("void earning: %w", err)
		}
	}
	p, err := tx.Payments.GetByOrderID(ctx, o.ID)
	if err != nil {
		return err
	}
	if p == nil {
		return nil
	}
	var next models.PaymentStatus
	switch p.Status {
	case models.PaymentStatusPending:
		next = models.PaymentStatusFailed
	case models.PaymentStatusCompleted:
		next = models.PaymentStatusRefunded
	default:
		return nil
	}
	if _, err := tx.Payments.CompareAndSetStatus(ctx, o.ID, p.Status, next, at); err != nil {
		return fmt.Errorf("unwind payment: %w", err)
	}
	return nil
}

// SettlePayment asks the gateway to settle the order's payment and records the
// outcome. The gateway call happens outside any transaction; the result is applied
// only if the payment is still PENDING and the order was not cancelled meanwhile.
func (s *Service) SettlePayment(ctx context.Context, orderID string, actor models.Actor) (*models.Payment, error) {
	o, err := s.store.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransactionFailed, err, "load order")
	}
	if o == nil {
		return nil, apperr.New(apperr.ErrOrderNotFound, "order %s", orderID)
	}
	if !maySettle(actor, o) {
		return nil, apperr.New(apperr.ErrForbidden, "%s may not settle payment of order %s", actor, o.ID)
	}
	p, err := s.store.Payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransactionFailed, err, "load payment")
	}
	if p == nil {
		return nil, apperr.New(apperr.ErrOrderNotFound, "order %s has no payment", orderID)
	}
	if err := checkSettle(o, p); err != nil {
		return nil, err
	}

	outcome, err := s.gateway.Settle(ctx, p)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrPaymentGatewayFailed, err, "settle payment")
	}
	if outcome != models.PaymentStatusCompleted && outcome != models.PaymentStatusFailed {
		return nil, apperr.New(apperr.ErrPaymentGatewayFailed, "gateway returned %q", outcome)
	}

	var settled *models.Payment
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		cur, err := tx.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if cur.Status == models.OrderStatusCancelled {
			return apperr.New(apperr.ErrOrderCancelled, "order %s was cancelled during settlement", orderID)
		}
		ok, err := tx.Payments.CompareAndSetStatus(ctx, orderID, models.PaymentStatusPending, outcome, s.now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.ErrPaymentNotPending, "payment of order %s was settled concurrently", orderID)
		}
		settled, err = tx.Payments.GetByOrderID(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, apperr.Storage(err, "record settlement")
	}
	s.log.WithFields(logrus.Fields{"order_id": orderID, "payment_status": string(settled.Status)}).Info("payment settled")
	return settled, nil
}

func checkSettle(o *models.Order, p *models.Payment) error {
	if o.Status == models.OrderStatusCancelled {
		return apperr.New(apperr.ErrOrderCancelled, "order %s is cancelled", o.ID)
	}
	if p.Status != models.PaymentStatusPending {
		return apperr.New(apperr.ErrPaymentNotPending, "payment of order %s is %s", o.ID, p.Status)
	}
	if p.Method.CollectedOnDelivery() && o.Status != models.OrderStatusDelivered {
		return apperr.New(apperr.ErrPaymentNotCollectable, "cash for order %s is collected on delivery", o.ID)
	}
	return nil
}
