// Package dispatch matches READY orders to riders. A claim is a compare-and-swap on
// the order row followed by a guarded update of the rider, both in one transaction,
// so exactly one of any number of concurrent claims for an order succeeds.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"foodDelivery/internal/apperr"
	"foodDelivery/internal/geo"
	"foodDelivery/internal/notify"
	"foodDelivery/models"
	"foodDelivery/repository"
)

// DefaultPayoutRate is the rider's share of the delivery fee when none is configured.
var DefaultPayoutRate = decimal.RequireFromString("0.80")

type Service struct {
	store    *repository.Store
	events   notify.Publisher
	log      logrus.FieldLogger
	now      func() time.Time
	radiusKm float64
	rate     decimal.Decimal
}

type Option func(*Service)

func WithPublisher(p notify.Publisher) Option { return func(s *Service) { s.events = p } }
func WithLogger(l logrus.FieldLogger) Option { return func(s *Service) { s.log = l } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithRadiusKm(km float64) Option { return func(s *Service) { s.radiusKm = km } }
func WithPayoutRate(r decimal.Decimal) Option { return func(s *Service) { s.rate = r } }

func New(store *repository.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		events:   notify.Nop{},
		log:      logrus.StandardLogger(),
		now:      time.Now,
		radiusKm: geo.DefaultServiceRadiusKm,
		rate:     DefaultPayoutRate,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Payout is the rider's earning for a delivery fee at rate, rounded half away from
// zero to the minor unit.
func Payout(deliveryFee int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(deliveryFee).Mul(rate).Round(0).IntPart()
}

// Offer is a claimable order as seen by one rider.
type Offer struct {
	Order          models.Order
	RestaurantName string
	DistanceKm     float64
	Payout         int64
}

// ListAvailable returns READY, unassigned orders whose restaurant lies within the
// service radius of the rider, oldest-prepared first. Riders that are not ONLINE, or
// whose location is unknown, get an empty list.
func (s *Service) ListAvailable(ctx context.Context, riderID int64) ([]Offer, error) {
	rd, err := s.rider(ctx, s.store, riderID)
	if err != nil {
		return nil, err
	}
	here := geo.Point{Lat: rd.Lat, Lng: rd.Lng}
	if rd.Availability != models.RiderOnline || !here.Valid() {
		return []Offer{}, nil
	}
	candidates, err := s.store.Orders.ListReadyUnassigned(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransactionFailed, err, "list ready orders")
	}
	offers := make([]Offer, 0, len(candidates))
	for _, c := range candidates {
		km := geo.HaversineKm(here, geo.Point{Lat: c.PickupLat, Lng: c.PickupLng})
		if km > s.radiusKm {
			continue
		}
		offers = append(offers, Offer{
			Order:          c.Order,
			RestaurantName: c.RestaurantName,
			DistanceKm:     km,
			Payout:         Payout(c.Order.DeliveryFee, s.rate),
		})
	}
	return offers, nil
}

// ClaimResult is the outcome of a successful claim.
type ClaimResult struct {
	Order   *models.Order
	Earning *models.Earning
}

// Claim assigns orderID to riderID. Under concurrent claims for the same order
// exactly one returns a result; the rest get OrderAlreadyClaimed. Missing order or
// rider is reported first, then the order's state, then the rider's availability.
func (s *Service) Claim(ctx context.Context, orderID string, riderID int64) (*ClaimResult, error) {
	var res ClaimResult
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		o, err := tx.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return apperr.New(apperr.ErrOrderNotFound, "order %s", orderID)
		}
		rd, err := s.rider(ctx, tx, riderID)
		if err != nil {
			return err
		}
		if err := claimable(o); err != nil {
			return err
		}
		if rd.Availability != models.RiderOnline {
			return apperr.New(apperr.ErrRiderUnavailable, "rider %d is %s", riderID, rd.Availability)
		}

		at := s.now().UTC()
		if last := o.LastTransitionAt(); at.Before(last) {
			at = last
		}
		ok, err := tx.Orders.ClaimReady(ctx, orderID, riderID, at)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.ErrOrderAlreadyClaimed, "order %s", orderID)
		}
		ok, err = tx.Riders.MarkBusy(ctx, riderID, orderID, at)
		if errors.Is(err, repository.ErrRiderHasOrder) {
			ok, err = false, nil
		}
		if err != nil {
			return fmt.Errorf("mark rider busy: %w", err)
		}
		if !ok {
			return apperr.New(apperr.ErrRiderUnavailable, "rider %d is no longer available", riderID)
		}

		e := &models.Earning{
			OrderID:     orderID,
			RiderID:     riderID,
			DeliveryFee: o.DeliveryFee,
			Rate:        s.rate.String(),
			Amount:      Payout(o.DeliveryFee, s.rate),
			CreatedAt:   at,
		}
		if err := tx.Earnings.Insert(ctx, e); err != nil {
			return fmt.Errorf("record earning: %w", err)
		}
		if res.Order, err = tx.Orders.GetByID(ctx, orderID); err != nil {
			return err
		}
		res.Earning = e
		return nil
	})
	if err != nil {
		return nil, apperr.Storage(err, "claim order")
	}

	s.log.WithFields(logrus.Fields{
		"order_id": orderID,
		"rider_id": riderID,
		"payout":   res.Earning.Amount,
	}).Info("order claimed")
	notify.Emit(ctx, s.events, s.log, notify.NewEvent(res.Order, models.OrderStatusReady, *res.Order.AssignedAt))
	return &res, nil
}

func claimable(o *models.Order) error {
	switch {
	case o.Status == models.OrderStatusCancelled:
		return apperr.New(apperr.ErrOrderCancelled, "order %s is cancelled", o.ID)
	case o.Status == models.OrderStatusReady && o.RiderID == nil:
		return nil
	case o.RiderID != nil || o.Status.HasRider():
		return apperr.New(apperr.ErrOrderAlreadyClaimed, "order %s", o.ID)
	}
	return apperr.New(apperr.ErrInvalidTransition, "order %s is %s, not READY", o.ID, o.Status)
}

// SetAvailability switches a rider between ONLINE and OFFLINE. BUSY follows from
// holding an order and cannot be set directly.
func (s *Service) SetAvailability(ctx context.Context, riderID int64, a models.RiderAvailability) (*models.Rider, error) {
	switch a {
	case models.RiderOnline, models.RiderOffline:
	case models.RiderBusy:
		return nil, apperr.New(apperr.ErrInvalidInput, "BUSY is set by claiming an order")
	default:
		return nil, apperr.New(apperr.ErrInvalidInput, "unknown availability %q", a)
	}
	var out *models.Rider
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if _, err := s.rider(ctx, tx, riderID); err != nil {
			return err
		}
		ok, err := tx.Riders.SetAvailability(ctx, riderID, a, s.now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.ErrRiderBusy, "rider %d has an active order", riderID)
		}
		out, err = tx.Riders.GetByID(ctx, riderID)
		return err
	})
	if err != nil {
		return nil, apperr.Storage(err, "set availability")
	}
	s.log.WithFields(logrus.Fields{"rider_id": riderID, "availability": string(a)}).Debug("rider availability changed")
	return out, nil
}

// Heartbeat records the rider's current location.
func (s *Service) Heartbeat(ctx context.Context, riderID int64, lat, lng float64) error {
	if p := (geo.Point{Lat: lat, Lng: lng}); !p.Valid() {
		return apperr.New(apperr.ErrInvalidInput, "invalid location %.6f,%.6f", lat, lng)
	}
	if _, err := s.rider(ctx, s.store, riderID); err != nil {
		return err
	}
	if err := s.store.Riders.UpdateLocation(ctx, riderID, lat, lng, s.now().UTC()); err != nil {
		return apperr.Wrap(apperr.ErrTransactionFailed, err, "update location")
	}
	return nil
}

// AssignedOrder returns the rider's order in flight.
func (s *Service) AssignedOrder(ctx context.Context, riderID int64) (*models.Order, error) {
	if _, err := s.rider(ctx, s.store, riderID); err != nil {
		return nil, err
	}
	o, err := s.store.Orders.ActiveForRider(ctx, riderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransactionFailed, err, "load active order")
	}
	if o == nil {
		return nil, apperr.New(apperr.ErrOrderNotFound, "rider %d has no active order", riderID)
	}
	return o, nil
}

func (s *Service) rider(ctx context.Context, st *repository.Store, id int64) (*models.Rider, error) {
	rd, err := st.Riders.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransactionFailed, err, "load rider")
	}
	if rd == nil {
		return nil, apperr.New(apperr.ErrRiderNotFound, "rider %d", id)
	}
	return rd, nil
}
