package dispatch

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"foodDelivery/internal/apperr"
	"foodDelivery/internal/notify"
	"foodDelivery/internal/testutil"
	"foodDelivery/models"
	"foodDelivery/repository"
)

// Downtown and a point roughly 1.1 km north of it; far is ~55 km away.
var (
	downtown = [2]float64{40.7128, -74.0060}
	nearby   = [2]float64{40.7228, -74.0060}
	far      = [2]float64{41.2128, -74.0060}
)

type env struct {
	db    *sql.DB
	store *repository.Store
	svc   *Service
	seq   int
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	d := testutil.OpenInMemoryDB(t)
	st := repository.NewStore(d)
	return &env{db: d, store: st, svc: New(st, opts...)}
}

// readyOrder inserts an order at restaurant rs and walks it to READY.
func (e *env) readyOrder(t *testing.T, rs *models.Restaurant, fee int64) *models.Order {
	t.Helper()
	ctx := context.Background()
	e.seq++
	now := time.Now().UTC().Add(time.Duration(e.seq) * time.Second)
	o := &models.Order{
		ID:            fmt.Sprintf("ord-%d", e.seq),
		OrderNumber:   fmt.Sprintf("ORD-T-%d", e.seq),
		CustomerID:    testutil.CustomerID(),
		RestaurantID:  rs.ID,
		Subtotal:      1000,
		DeliveryFee:   fee,
		Total:         1000 + fee,
		Address:       testutil.Address(),
		PaymentMethod: models.PaymentMethodCard,
		PlacedAt:      now,
	}
	require.NoError(t, e.store.Orders.Insert(ctx, o))
	from := models.OrderStatusPending
	for _, to := range []models.OrderStatus{models.OrderStatusConfirmed, models.OrderStatusPreparing, models.OrderStatusReady} {
		ok, err := e.store.Orders.CompareAndSetStatus(ctx, o.ID, from, to, now)
		require.NoError(t, err)
		require.True(t, ok)
		from = to
	}
	got, err := e.store.Orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	return got
}

func TestPayout(t *testing.T) {
	tests := []struct {
		fee  int64
		rate string
		want int64
	}{
		{100, "0.80", 80},
		{250, "0.80", 200},
		{333, "0.80", 266},
		{5, "0.75", 4}, // 3.75 rounds up
		{0, "0.80", 0},
		{199, "1", 199},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Payout(tc.fee, decimal.RequireFromString(tc.rate)), "%d x %s", tc.fee, tc.rate)
	}
}

func TestListAvailable_FiltersByRadiusAndAvailability(t *testing.T) {
	e := newEnv(t, WithRadiusKm(5))
	ctx := context.Background()
	corner := testutil.SeedRestaurant(t, e.db, nearby[0], nearby[1])
	distant := testutil.SeedRestaurant(t, e.db, far[0], far[1])
	first := e.readyOrder(t, corner, 100)
	second := e.readyOrder(t, corner, 300)
	e.readyOrder(t, distant, 100)

	rider := testutil.SeedRider(t, e.db, models.RiderOnline, downtown[0], downtown[1])
	offers, err := e.svc.ListAvailable(ctx, rider.ID)
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, first.ID, offers[0].Order.ID)
	assert.Equal(t, second.ID, offers[1].Order.ID)
	assert.InDelta(t, 1.1, offers[0].DistanceKm, 0.1)
	assert.Equal(t, int64(80), offers[0].Payout)
	assert.Equal(t, int64(240), offers[1].Payout)
	assert.Equal(t, corner.Name, offers[0].RestaurantName)

	offline := testutil.SeedRider(t, e.db, models.RiderOffline, downtown[0], downtown[1])
	offers, err = e.svc.ListAvailable(ctx, offline.ID)
	require.NoError(t, err)
	assert.Empty(t, offers)

	lost := testutil.SeedRider(t, e.db, models.RiderOnline, 0, 0)
	offers, err = e.svc.ListAvailable(ctx, lost.ID)
	require.NoError(t, err)
	assert.Empty(t, offers)

	_, err = e.svc.ListAvailable(ctx, 9999)
	assert.ErrorIs(t, err, apperr.ErrRiderNotFound)
}

func TestClaim_AssignsRiderAndRecordsEarning(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if !assert.Contains(t, string(val), `"to":"ASSIGNED"`) {
			return fmt.Errorf("unexpected event %s", val)
		}
		return nil
	})
	e := newEnv(t, WithPayoutRate(decimal.RequireFromString("0.75")),
		WithPublisher(notify.NewKafkaPublisher(producer, "order-events")))
	ctx := context.Background()
	rs := testutil.SeedRestaurant(t, e.db, nearby[0], nearby[1])
	o := e.readyOrder(t, rs, 250)
	rider := testutil.SeedRider(t, e.db, models.RiderOnline, downtown[0], downtown[1])

	res, err := e.svc.Claim(ctx, o.ID, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAssigned, res.Order.Status)
	require.NotNil(t, res.Order.RiderID)
	assert.Equal(t, rider.ID, *res.Order.RiderID)
	require.NotNil(t, res.Order.AssignedAt)
	assert.Equal(t, "0.75", res.Earning.Rate)
	assert.Equal(t, int64(188), res.Earning.Amount)

	rd, err := e.store.Riders.GetByID(ctx, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RiderBusy, rd.Availability)
	require.NotNil(t, rd.CurrentOrderID)
	assert.Equal(t, o.ID, *rd.CurrentOrderID)

	stored, err := e.store.Earnings.GetByOrderID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(188), stored.Amount)

	active, err := e.svc.AssignedOrder(ctx, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, active.ID)

	// the order left the pool
	other := testutil.SeedRider(t, e.db, models.RiderOnline, downtown[0], downtown[1])
	offers, err := e.svc.ListAvailable(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, offers)

	// a busy rider gets nothing to claim
	offers, err = e.svc.ListAvailable(ctx, rider.ID)
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestClaim_Conflicts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rs := testutil.SeedRestaurant(t, e.db, nearby[0], nearby[1])
	r1 := testutil.SeedRider(t, e.db, models.RiderOnline, downtown[0], downtown[1])
	r2 := testutil.SeedRider(t, e.db, models.RiderOnline, downtown[0], downtown[1])
	offline := testutil.SeedRider(t, e.db, models.RiderOffline, downtown[0], downtown[1])

	o := e.readyOrder(t, rs, 100)
	_, err := e.svc.Claim(ctx, o.ID, offline.ID)
	assert.ErrorIs(t, err, apperr.ErrRiderUnavailable)

	_, err = e.svc.Claim(ctx, o.ID, r1.ID)
	require.NoError(t, err)
	_, err = e.svc.Claim(ctx, o.ID, r2.ID)
	assert.ErrorIs(t, err, apperr.ErrOrderAlreadyClaimed)

	// r1 is busy now and cannot take a second order
	o2 := e.readyOrder(t, rs, 100)
	_, err = e.svc.Claim(ctx, o2.ID, r1.ID)
	assert.ErrorIs(t, err, apperr.ErrRiderUnavailable)
	got, err := e.store.Orders.GetByID(ctx, o2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReady, got.Status, "failed claim rolls back")
	assert.Nil(t, got.RiderID)

	ok, err := e.store.Orders.Cancel(ctx, o2.ID, models.OrderStatusReady, "", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.True(t, ok)
	_, err = e.svc.Claim(ctx, o2.ID, r2.ID)
	assert.ErrorIs(t, err, apperr.ErrOrderCancelled)

	_, err = e.svc.Claim(ctx, "missing", r2.ID)
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)
	_, err = e.svc.Claim(ctx, o.ID, 9999)
	assert.ErrorIs(t, err, apperr.ErrRiderNotFound)
}

func TestClaim_NotReadyYet(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rs := testutil.SeedRestaurant(t, e.db, nearby[0], nearby[1])
	rider := testutil.SeedRider(t, e.db, models.RiderOnline, downtown[0], downtown[1])
	o := &models.Order{ID: "early", OrderNumber: "ORD-EARLY", CustomerID: 7, RestaurantID: rs.ID,
		Subtotal: 100, Total: 100, Address: testutil.Address(), PaymentMethod: models.PaymentMethodCash, PlacedAt: time.Now().UTC()}
	require.NoError(t, e.store.Orders.Insert(ctx, o))

	_, err := e.svc.Claim(ctx, o.ID, rider.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestClaim_OrderStateReportedBeforeRiderAvailability(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rs := testutil.SeedRestaurant(t, e.db, nearby[0], nearby[1])
	offline := testutil.SeedRider(t, e.db, models.RiderOffline, downtown[0], downtown[1])
	busy := testutil.SeedRider(t, e.db, models.RiderOnline, downtown[0], downtown[1])

	held := e.readyOrder(t, rs, 100)
	_, err := e.svc.Claim(ctx, held.ID, busy.ID)
	require.NoError(t, err)

	cancelled := e.readyOrder(t, rs, 100)
	ok, err := e.store.Orders.Cancel(ctx, cancelled.ID, models.OrderStatusReady, "kitchen closed", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = e.svc.Claim(ctx, cancelled.ID, offline.ID)
	assert.ErrorIs(t, err, apperr.ErrOrderCancelled)
	_, err = e.svc.Claim(ctx, cancelled.ID, busy.ID)
	assert.ErrorIs(t, err, apperr.ErrOrderCancelled)
	_, err = e.svc.Claim(ctx, "missing", offline.ID)
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)
	_, err = e.svc.Claim(ctx, held.ID, offline.ID)
	assert.ErrorIs(t, err, apperr.ErrOrderAlreadyClaimed)

	open := e.readyOrder(t, rs, 100)
	_, err = e.svc.Claim(ctx, open.ID, offline.ID)
	assert.ErrorIs(t, err, apperr.ErrRiderUnavailable)
}

func TestClaim_ConcurrentExactlyOneWinner(t *testing.T) {
	rec := &eventCount{}
	e := newEnv(t, WithPublisher(rec))
	ctx := context.Background()
	rs := testutil.SeedRestaurant(t, e.db, nearby[0], nearby[1])
	o := e.readyOrder(t, rs, 100)

	const n = 10
	riders := make([]*models.Rider, n)
	for i := range riders {
		riders[i] = testutil.SeedRider(t, e.db, models.RiderOnline, downtown[0], downtown[1])
	}

	var (
		mu      sync.Mutex
		winners []int64
		lost    int
	)
	var g errgroup.Group
	for _, rd := range riders {
		g.Go(func() error {
			_, err := e.svc.Claim(ctx, o.ID, rd.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, rd.ID)
			case apperr.CodeOf(err) == apperr.ErrOrderAlreadyClaimed.Code:
				lost++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Len(t, winners, 1)
	assert.Equal(t, n-1, lost)
	assert.Equal(t, 1, rec.count())

	got, err := e.store.Orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, winners[0], *got.RiderID)

	var busy int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM riders WHERE availability = 'BUSY'`).Scan(&busy))
	assert.Equal(t, 1, busy)
	var earnings int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM rider_earnings`).Scan(&earnings))
	assert.Equal(t, 1, earnings)
}

func TestSetAvailability(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rs := testutil.SeedRestaurant(t, e.db, nearby[0], nearby[1])
	rider := testutil.SeedRider(t, e.db, models.RiderOffline, downtown[0], downtown[1])

	rd, err := e.svc.SetAvailability(ctx, rider.ID, models.RiderOnline)
	require.NoError(t, err)
	assert.Equal(t, models.RiderOnline, rd.Availability)

	_, err = e.svc.SetAvailability(ctx, rider.ID, models.RiderBusy)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = e.svc.SetAvailability(ctx, rider.ID, "NAPPING")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	o := e.readyOrder(t, rs, 100)
	_, err = e.svc.Claim(ctx, o.ID, rider.ID)
	require.NoError(t, err)
	_, err = e.svc.SetAvailability(ctx, rider.ID, models.RiderOffline)
	assert.ErrorIs(t, err, apperr.ErrRiderBusy)

	_, err = e.svc.SetAvailability(ctx, 9999, models.RiderOnline)
	assert.ErrorIs(t, err, apperr.ErrRiderNotFound)
}

func TestHeartbeat(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rider := testutil.SeedRider(t, e.db, models.RiderOnline, downtown[0], downtown[1])

	require.NoError(t, e.svc.Heartbeat(ctx, rider.ID, nearby[0], nearby[1]))
	rd, err := e.store.Riders.GetByID(ctx, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, nearby[0], rd.Lat)

	assert.ErrorIs(t, e.svc.Heartbeat(ctx, rider.ID, 91, 0), apperr.ErrInvalidInput)
	assert.ErrorIs(t, e.svc.Heartbeat(ctx, 9999, 1, 1), apperr.ErrRiderNotFound)

	_, err = e.svc.AssignedOrder(ctx, rider.ID)
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)
}

type eventCount struct {
	mu sync.Mutex
	n  int
}

func (c *eventCount) Publish(context.Context, notify.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return nil
}

func (c *eventCount) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
