package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"foodDelivery/internal/apperr"
	"foodDelivery/internal/testutil"
	"foodDelivery/models"
	"foodDelivery/repository"
)

type env struct {
	db         *sql.DB
	store      *repository.Store
	svc        *Service
	restaurant *models.Restaurant
	rider      *models.Rider
	seq        int
}

func newEnv(t *testing.T) *env {
	t.Helper()
	d := testutil.OpenInMemoryDB(t)
	st := repository.NewStore(d)
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return &env{
		db:         d,
		store:      st,
		svc:        New(st, log),
		restaurant: testutil.SeedRestaurant(t, d, 40.7, -74.0),
		rider:      testutil.SeedRider(t, d, models.RiderOnline, 40.7, -74.0),
	}
}

// order inserts an order for customer and forces it into status.
func (e *env) order(t *testing.T, customer int64, status models.OrderStatus) *models.Order {
	t.Helper()
	e.seq++
	now := time.Now().UTC()
	o := &models.Order{
		ID:            fmt.Sprintf("fb-%d", e.seq),
		OrderNumber:   fmt.Sprintf("ORD-FB-%d", e.seq),
		CustomerID:    customer,
		RestaurantID:  e.restaurant.ID,
		Subtotal:      1200,
		DeliveryFee:   200,
		Total:         1400,
		Address:       testutil.Address(),
		PaymentMethod: models.PaymentMethodCard,
		PlacedAt:      now,
	}
	require.NoError(t, e.store.Orders.Insert(context.Background(), o))
	if status == models.OrderStatusDelivered {
		_, err := e.db.Exec(`UPDATE orders SET status = 'DELIVERED', rider_id = ?, delivered_at = ? WHERE id = ?`, e.rider.ID, now, o.ID)
		require.NoError(t, err)
		o.Status, o.RiderID = status, &e.rider.ID
	}
	return o
}

func customer(id int64) models.Actor { return models.Actor{ID: id, Role: models.RoleCustomer} }

func TestSubmitReview_RecomputesAggregates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first := e.order(t, 10, models.OrderStatusDelivered)
	rv, err := e.svc.SubmitReview(ctx, first.ID, customer(10), models.Ratings{Food: 5, Service: 5, Delivery: 4, Overall: 5}, "  great  ")
	require.NoError(t, err)
	assert.NotZero(t, rv.ID)
	assert.Equal(t, "great", rv.Comment)
	require.NotNil(t, rv.RiderID)
	assert.Equal(t, e.rider.ID, *rv.RiderID)

	second := e.order(t, 11, models.OrderStatusDelivered)
	_, err = e.svc.SubmitReview(ctx, second.ID, customer(11), models.Ratings{Food: 3, Service: 3, Delivery: 2, Overall: 3}, "")
	require.NoError(t, err)

	rating, err := e.svc.RestaurantRating(ctx, e.restaurant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rating.Count)
	assert.InDelta(t, 4.0, rating.Average, 1e-9)

	rd, err := e.store.Riders.GetByID(ctx, e.rider.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rd.TotalRatings)
	assert.InDelta(t, 3.0, rd.Rating, 1e-9)
}

func TestSubmitReview_DefaultsOverallToMean(t *testing.T) {
	e := newEnv(t)
	o := e.order(t, 10, models.OrderStatusDelivered)

	rv, err := e.svc.SubmitReview(context.Background(), o.ID, customer(10), models.Ratings{Food: 5, Service: 4, Delivery: 3}, "")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, rv.Ratings.Overall, 1e-9)
}

func TestSubmitReview_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pending := e.order(t, 10, models.OrderStatusPending)
	delivered := e.order(t, 10, models.OrderStatusDelivered)
	good := models.Ratings{Food: 4, Service: 4, Delivery: 4}

	_, err := e.svc.SubmitReview(ctx, pending.ID, customer(10), good, "")
	assert.ErrorIs(t, err, apperr.ErrOrderNotDelivered)

	_, err = e.svc.SubmitReview(ctx, delivered.ID, customer(99), good, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = e.svc.SubmitReview(ctx, delivered.ID, models.Actor{ID: e.restaurant.ID, Role: models.RoleRestaurant}, good, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = e.svc.SubmitReview(ctx, delivered.ID, customer(10), models.Ratings{Food: 6, Service: 4, Delivery: 4}, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = e.svc.SubmitReview(ctx, "nope", customer(10), good, "")
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)

	_, err = e.svc.SubmitReview(ctx, delivered.ID, customer(10), good, "")
	require.NoError(t, err)
	_, err = e.svc.SubmitReview(ctx, delivered.ID, customer(10), good, "again")
	assert.ErrorIs(t, err, apperr.ErrReviewAlreadyExists)

	rating, err := e.svc.RestaurantRating(ctx, e.restaurant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rating.Count)

	_, err = e.svc.RestaurantRating(ctx, e.restaurant.ID+50)
	assert.ErrorIs(t, err, apperr.ErrRestaurantNotFound)
}

func TestUpdateReview_RecomputesMean(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.order(t, 10, models.OrderStatusDelivered)
	b := e.order(t, 11, models.OrderStatusDelivered)

	rv, err := e.svc.SubmitReview(ctx, a.ID, customer(10), models.Ratings{Food: 1, Service: 1, Delivery: 1}, "cold")
	require.NoError(t, err)
	_, err = e.svc.SubmitReview(ctx, b.ID, customer(11), models.Ratings{Food: 5, Service: 5, Delivery: 5}, "")
	require.NoError(t, err)

	rating, err := e.svc.RestaurantRating(ctx, e.restaurant.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, rating.Average, 1e-9)

	_, err = e.svc.UpdateReview(ctx, rv.ID, customer(11), models.Ratings{Food: 5, Service: 5, Delivery: 5}, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	updated, err := e.svc.UpdateReview(ctx, rv.ID, customer(10), models.Ratings{Food: 4, Service: 3, Delivery: 5, Overall: 4}, "reheated, fine")
	require.NoError(t, err)
	assert.Equal(t, "reheated, fine", updated.Comment)

	rating, err = e.svc.RestaurantRating(ctx, e.restaurant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rating.Count)
	assert.InDelta(t, 4.5, rating.Average, 1e-9)

	rd, err := e.store.Riders.GetByID(ctx, e.rider.ID)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, rd.Rating, 1e-9)

	_, err = e.svc.UpdateReview(ctx, 404, customer(10), models.Ratings{Food: 4, Service: 4, Delivery: 4}, "")
	assert.ErrorIs(t, err, apperr.ErrReviewNotFound)
}

func TestSubmitReview_ConcurrentReviewsAllCounted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const n = 12
	orders := make([]*models.Order, n)
	for i := range orders {
		orders[i] = e.order(t, int64(100+i), models.OrderStatusDelivered)
	}

	var g errgroup.Group
	for i, o := range orders {
		score := i%5 + 1
		g.Go(func() error {
			_, err := e.svc.SubmitReview(ctx, o.ID, customer(o.CustomerID), models.Ratings{Food: score, Service: score, Delivery: score}, "")
			return err
		})
	}
	require.NoError(t, g.Wait())

	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(i%5 + 1)
	}
	rating, err := e.svc.RestaurantRating(ctx, e.restaurant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), rating.Count)
	assert.InDelta(t, sum/n, rating.Average, 1e-9)
}
