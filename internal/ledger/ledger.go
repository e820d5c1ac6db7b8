// Package ledger owns orders, their line items and payments, and enforces the order
// lifecycle. Every mutating operation runs in one storage transaction; events are
// published only after that transaction has committed.
package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"foodDelivery/internal/apperr"
	"foodDelivery/internal/notify"
	"foodDelivery/internal/payment"
	"foodDelivery/models"
	"foodDelivery/repository"
)

// Service is the order ledger.
type Service struct {
	store   *repository.Store
	gateway payment.Gateway
	events  notify.Publisher
	log     logrus.FieldLogger
	now     func() time.Time
}

type Option func(*Service)

func WithGateway(g payment.Gateway) Option { return func(s *Service) { s.gateway = g } }
func WithPublisher(p notify.Publisher) Option { return func(s *Service) { s.events = p } }
func WithLogger(l logrus.FieldLogger) Option { return func(s *Service) { s.log = l } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func New(store *repository.Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		gateway: payment.OfflineGateway{},
		events:  notify.Nop{},
		log:     logrus.StandardLogger(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// stamp returns the timestamp for the next transition: now, but never earlier than
// the order's latest stamp.
func (s *Service) stamp(o *models.Order) time.Time {
	now := s.now().UTC()
	if last := o.LastTransitionAt(); now.Before(last) {
		return last
	}
	return now
}

// GetOrder returns an order with its items and payment, if actor may see it.
func (s *Service) GetOrder(ctx context.Context, orderID string, actor models.Actor) (*models.Order, error) {
	o, err := s.store.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransactionFailed, err, "load order")
	}
	return s.present(ctx, o, orderID, actor)
}

// GetOrderByNumber looks an order up by its human-facing number.
func (s *Service) GetOrderByNumber(ctx context.Context, number string, actor models.Actor) (*models.Order, error) {
	o, err := s.store.Orders.GetByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransactionFailed, err, "load order")
	}
	return s.present(ctx, o, number, actor)
}

func (s *Service) present(ctx context.Context, o *models.Order, ref string, actor models.Actor) (*models.Order, error) {
	if o == nil {
		return nil, apperr.New(apperr.ErrOrderNotFound, "order %s", ref)
	}
	if !canView(actor, o) {
		return nil, apperr.New(apperr.ErrForbidden, "%s may not view order %s", actor, o.ID)
	}
	if err := s.attach(ctx, s.store, o); err != nil {
		return nil, apperr.Wrap(apperr.ErrTransactionFailed, err, "load order details")
	}
	return o, nil
}

// attach loads items and payment onto o.
func (s *Service) attach(ctx context.Context, st *repository.Store, o *models.Order) error {
	items, err := st.Orders.Items(ctx, o.ID)
	if err != nil {
		return err
	}
	p, err := st.Payments.GetByOrderID(ctx, o.ID)
	if err != nil {
		return err
	}
	o.Items, o.Payment = items, p
	return nil
}

// ListParams filters ListOrders. Non-admin actors are always scoped to their own
// orders regardless of the customer/restaurant filters.
type ListParams struct {
	Statuses     []models.OrderStatus
	CustomerID   *int64
	RestaurantID *int64
	PageSize     int
	Cursor       string
}

// Page is one page of orders. NextCursor is empty on the last page.
type Page struct {
	Orders     []models.Order
	NextCursor string
}

// ListOrders returns orders newest first using keyset pagination.
func (s *Service) ListOrders(ctx context.Context, actor models.Actor, p ListParams) (*Page, error) {
	q := repository.ListOrdersParams{Statuses: p.Statuses, PageSize: p.PageSize}
	switch actor.Role {
	case models.RoleAdmin:
		q.CustomerID, q.RestaurantID = p.CustomerID, p.RestaurantID
	case models.RoleCustomer:
		q.CustomerID = &actor.ID
	case models.RoleRestaurant:
		q.RestaurantID = &actor.ID
	case models.RoleRider:
		q.RiderID = &actor.ID
	default:
		return nil, apperr.New(apperr.ErrForbidden, "unknown role %q", actor.Role)
	}
	if p.Cursor != "" {
		at, id, err := decodeCursor(p.Cursor)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrInvalidInput, err, "cursor")
		}
		q.AfterPlacedAt, q.AfterID = &at, id
	}
	orders, more, err := s.store.Orders.List(ctx, q)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransactionFailed, err, "list orders")
	}
	page := &Page{Orders: orders}
	if more && len(orders) > 0 {
		last := orders[len(orders)-1]
		page.NextCursor = encodeCursor(last.PlacedAt, last.ID)
	}
	return page, nil
}

func encodeCursor(at time.Time, id string) string {
	return strconv.FormatInt(at.UnixNano(), 10) + "_" + id
}

func decodeCursor(c string) (time.Time, string, error) {
	ns, id, ok := strings.Cut(c, "_")
	if !ok || id == "" {
		return time.Time{}, "", fmt.Errorf("malformed cursor %q", c)
	}
	n, err := strconv.ParseInt(ns, 10, 64)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("malformed cursor %q: %w", c, err)
	}
	return time.Unix(0, n).UTC(), id, nil
}
