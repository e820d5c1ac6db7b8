package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lucsky/cuid"
	"github.com/sirupsen/logrus"

	"foodDelivery/internal/apperr"
	"foodDelivery/internal/notify"
	"foodDelivery/models"
	"foodDelivery/repository"
)

const (
	orderNumberAttempts = 3
	// MaxLineQuantity bounds the quantity of a single order line.
	MaxLineQuantity = 1000
)

// LineInput is one requested line of an order.
type LineInput struct {
	MenuItemID int64
	Quantity   int64
}

// Pricing is the pre-computed pricing sent by the client. Subtotal and Total are
// optional; when present they must match what the ledger computes from the menu.
type Pricing struct {
	Subtotal    *int64
	DeliveryFee int64
	Tax         int64
	Discount    int64
	Total       *int64
}

type CreateOrderInput struct {
	CustomerID     int64
	RestaurantID   int64
	Lines          []LineInput
	Address        models.Address
	PaymentMethod  string
	Pricing        Pricing
	IdempotencyKey string
}

func (in *CreateOrderInput) validate() (models.PaymentMethod, error) {
	if in.CustomerID <= 0 {
		return "", apperr.New(apperr.ErrInvalidInput, "customer id is required")
	}
	if in.RestaurantID <= 0 {
		return "", apperr.New(apperr.ErrInvalidInput, "restaurant id is required")
	}
	if len(in.Lines) == 0 {
		return "", apperr.New(apperr.ErrInvalidInput, "order has no items")
	}
	for i, l := range in.Lines {
		if l.Quantity < 1 {
			return "", apperr.New(apperr.ErrInvalidInput, "line %d: quantity must be at least 1, got %d", i+1, l.Quantity)
		}
		if l.Quantity > MaxLineQuantity {
			return "", apperr.New(apperr.ErrInvalidInput, "line %d: quantity %d exceeds %d", i+1, l.Quantity, MaxLineQuantity)
		}
		if l.MenuItemID <= 0 {
			return "", apperr.New(apperr.ErrInvalidInput, "line %d: menu item id is required", i+1)
		}
	}
	if missing := in.Address.MissingFields(); len(missing) > 0 {
		return "", apperr.New(apperr.ErrInvalidAddress, "missing %s", strings.Join(missing, ", "))
	}
	method, err := models.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrInvalidInput, err, "payment method")
	}
	p := in.Pricing
	if p.DeliveryFee < 0 || p.Tax < 0 || p.Discount < 0 {
		return "", apperr.New(apperr.ErrInvalidInput, "delivery fee, tax and discount must not be negative")
	}
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	return method, nil
}

// CreateOrder places an order. The order, its items, its payment and the restaurant's
// order counter are written in one transaction. A repeated IdempotencyKey for the
// same customer returns the order created the first time and writes nothing.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	method, err := in.validate()
	if err != nil {
		return nil, err
	}

	var (
		created  *models.Order
		replayed bool
	)
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		if in.IdempotencyKey != "" {
			prior, err := tx.Orders.GetByIdempotencyKey(ctx, in.CustomerID, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if prior != nil {
				created, replayed = prior, true
				return s.attach(ctx, tx, prior)
			}
		}

		restaurant, err := tx.Catalog.GetRestaurant(ctx, in.RestaurantID)
		if err != nil {
			return err
		}
		if restaurant == nil {
			return apperr.New(apperr.ErrRestaurantNotFound, "restaurant %d", in.RestaurantID)
		}
		items, subtotal, err := captureLines(ctx, tx.Catalog, in.RestaurantID, in.Lines)
		if err != nil {
			return err
		}
		total, err := price(in.Pricing, subtotal)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		o := &models.Order{
			CustomerID:     in.CustomerID,
			RestaurantID:   in.RestaurantID,
			Status:         models.OrderStatusPending,
			Subtotal:       subtotal,
			DeliveryFee:    in.Pricing.DeliveryFee,
			Tax:            in.Pricing.Tax,
			Discount:       in.Pricing.Discount,
			Total:          total,
			Address:        in.Address,
			PaymentMethod:  method,
			IdempotencyKey: in.IdempotencyKey,
			PlacedAt:       now,
		}
		if err := s.insertOrder(ctx, tx, o); err != nil {
			return err
		}
		if err := tx.Orders.InsertItems(ctx, o.ID, items); err != nil {
			return err
		}
		pay := &models.Payment{OrderID: o.ID, Method: method, Status: models.PaymentStatusPending, Amount: o.Total, CreatedAt: now}
		if err := tx.Payments.Insert(ctx, pay); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		if err := tx.Catalog.IncrementRestaurantOrderCount(ctx, o.RestaurantID); err != nil {
			return fmt.Errorf("count restaurant order: %w", err)
		}
		o.Items, o.Payment = items, pay
		created = o
		return nil
	})
	if errors.Is(err, repository.ErrDuplicateIdempotencyKey) {
		// Lost a race against a concurrent request carrying the same key.
		return s.replay(ctx, in)
	}
	if err != nil {
		return nil, apperr.Storage(err, "create order")
	}

	log := s.log.WithFields(logrus.Fields{"order_id": created.ID, "customer_id": created.CustomerID})
	if replayed {
		log.Debug("idempotent replay of order creation")
		return created, nil
	}
	log.WithField("total", created.Total).Info("order created")
	notify.Emit(ctx, s.events, s.log, notify.NewEvent(created, "", created.PlacedAt))
	return created, nil
}

func (s *Service) replay(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	o, err := s.store.Orders.GetByIdempotencyKey(ctx, in.CustomerID, in.IdempotencyKey)
	if err != nil || o == nil {
		return nil, apperr.Wrap(apperr.ErrTransactionFailed, err, "load order for idempotency key")
	}
	if err := s.attach(ctx, s.store, o); err != nil {
		return nil, apperr.Wrap(apperr.ErrTransactionFailed, err, "load order details")
	}
	return o, nil
}

// insertOrder assigns identifiers and inserts o, drawing a fresh order number when
// the generated one is already taken.
func (s *Service) insertOrder(ctx context.Context, tx *repository.Store, o *models.Order) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate order id: %w", err)
	}
	o.ID = id.String()
	for attempt := 1; ; attempt++ {
		o.OrderNumber = newOrderNumber(o.PlacedAt)
		err := tx.Orders.Insert(ctx, o)
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) || attempt == orderNumberAttempts {
			return err
		}
		s.log.WithField("order_number", o.OrderNumber).Warn("order number collision, retrying")
	}
}

// newOrderNumber is ORD-<date>-<cuid slug>: readable, time-ordered by day and not
// guessable from neighbouring orders.
func newOrderNumber(at time.Time) string {
	return "ORD-" + at.UTC().Format("20060102") + "-" + strings.ToUpper(cuid.Slug())
}

// captureLines snapshots name and effective price of every requested item. Any item
// that is missing, belongs to another restaurant or is not AVAILABLE fails the whole
// order.
func captureLines(ctx context.Context, catalog repository.CatalogStore, restaurantID int64, lines []LineInput) ([]models.OrderItem, int64, error) {
	items := make([]models.OrderItem, 0, len(lines))
	var subtotal int64
	for _, l := range lines {
		m, err := catalog.GetMenuItem(ctx, l.MenuItemID)
		if err != nil {
			return nil, 0, err
		}
		switch {
		case m == nil:
			return nil, 0, apperr.New(apperr.ErrItemUnavailable, "menu item %d does not exist", l.MenuItemID)
		case m.RestaurantID != restaurantID:
			return nil, 0, apperr.New(apperr.ErrItemUnavailable, "menu item %d is not sold by restaurant %d", l.MenuItemID, restaurantID)
		case m.Status != models.MenuItemAvailable:
			return nil, 0, apperr.New(apperr.ErrItemUnavailable, "menu item %d is %s", l.MenuItemID, strings.ToLower(string(m.Status)))
		}
		unit := m.EffectivePrice()
		line, ok := mulAmount(unit, l.Quantity)
		if !ok {
			return nil, 0, apperr.New(apperr.ErrInvalidInput, "menu item %d: %d x %d overflows", m.ID, unit, l.Quantity)
		}
		if subtotal, ok = addAmount(subtotal, line); !ok {
			return nil, 0, apperr.New(apperr.ErrInvalidInput, "order subtotal overflows")
		}
		items = append(items, models.OrderItem{
			MenuItemID: m.ID,
			Name:       m.Name,
			UnitPrice:  unit,
			Quantity:   l.Quantity,
			Subtotal:   line,
		})
	}
	return items, subtotal, nil
}

// price checks client pricing against the captured subtotal and returns the total.
func price(p Pricing, subtotal int64) (int64, error) {
	if p.Subtotal != nil && *p.Subtotal != subtotal {
		return 0, apperr.New(apperr.ErrPriceMismatch, "subtotal %d does not match menu prices (%d)", *p.Subtotal, subtotal)
	}
	gross, ok := addAmount(subtotal, p.DeliveryFee)
	if ok {
		gross, ok = addAmount(gross, p.Tax)
	}
	if !ok {
		return 0, apperr.New(apperr.ErrInvalidInput, "order value overflows")
	}
	if p.Discount > gross {
		return 0, apperr.New(apperr.ErrInvalidInput, "discount %d exceeds order value", p.Discount)
	}
	total := models.ComputeTotal(subtotal, p.DeliveryFee, p.Tax, p.Discount)
	if p.Total != nil && *p.Total != total {
		return 0, apperr.New(apperr.ErrPriceMismatch, "total %d does not equal subtotal + delivery fee + tax - discount (%d)", *p.Total, total)
	}
	return total, nil
}

// mulAmount multiplies two non-negative amounts, reporting false on overflow.
func mulAmount(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo), true
}

// addAmount adds two non-negative amounts, reporting false on overflow.
func addAmount(a, b int64) (int64, bool) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}
