package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodDelivery/internal/testutil"
	"foodDelivery/models"
)

func newOrder(restaurantID int64, n int, placed time.Time) *models.Order {
	return &models.Order{
		ID:            fmt.Sprintf("order-%03d", n),
		OrderNumber:   fmt.Sprintf("ORD-TEST-%03d", n),
		CustomerID:    42,
		RestaurantID:  restaurantID,
		Subtotal:      1000,
		DeliveryFee:   100,
		Total:         1100,
		Address:       testutil.Address(),
		PaymentMethod: models.PaymentMethodCard,
		PlacedAt:      placed,
	}
}

func TestOrderRepository_InsertAndGet(t *testing.T) {
	d := testutil.OpenInMemoryDB(t)
	ctx := context.Background()
	rs := testutil.SeedRestaurant(t, d, 40.0, -73.0)
	repo := NewOrderRepository(d)

	placed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	o := newOrder(rs.ID, 1, placed)
	o.IdempotencyKey = "k-1"
	lat := 40.01
	o.Address.Lat = &lat
	require.NoError(t, repo.Insert(ctx, o))
	require.NoError(t, repo.InsertItems(ctx, o.ID, []models.OrderItem{
		{MenuItemID: 7, Name: "Pad Thai", UnitPrice: 500, Quantity: 2, Subtotal: 1000},
	}))

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.OrderStatusPending, got.Status)
	assert.Equal(t, int64(1100), got.Total)
	assert.True(t, got.PlacedAt.Equal(placed))
	assert.Nil(t, got.RiderID)
	require.NotNil(t, got.Address.Lat)
	assert.InDelta(t, 40.01, *got.Address.Lat, 1e-9)
	assert.Nil(t, got.Address.Lng)
	assert.Equal(t, "k-1", got.IdempotencyKey)

	byNumber, err := repo.GetByNumber(ctx, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, o.ID, byNumber.ID)

	byKey, err := repo.GetByIdempotencyKey(ctx, 42, "k-1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, byKey.ID)

	items, err := repo.Items(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Pad Thai", items[0].Name)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOrderRepository_InsertDuplicates(t *testing.T) {
	d := testutil.OpenInMemoryDB(t)
	ctx := context.Background()
	rs := testutil.SeedRestaurant(t, d, 0, 0)
	repo := NewOrderRepository(d)
	now := time.Now().UTC()

	first := newOrder(rs.ID, 1, now)
	first.IdempotencyKey = "same"
	require.NoError(t, repo.Insert(ctx, first))

	sameKey := newOrder(rs.ID, 2, now)
	sameKey.IdempotencyKey = "same"
	assert.ErrorIs(t, repo.Insert(ctx, sameKey), ErrDuplicateIdempotencyKey)

	sameNumber := newOrder(rs.ID, 3, now)
	sameNumber.OrderNumber = first.OrderNumber
	assert.ErrorIs(t, repo.Insert(ctx, sameNumber), ErrDuplicateOrderNumber)

	// empty keys are stored as NULL and never collide
	a, b := newOrder(rs.ID, 4, now), newOrder(rs.ID, 5, now)
	require.NoError(t, repo.Insert(ctx, a))
	require.NoError(t, repo.Insert(ctx, b))
}

func TestOrderRepository_CompareAndSetStatus(t *testing.T) {
	d := testutil.OpenInMemoryDB(t)
	ctx := context.Background()
	rs := testutil.SeedRestaurant(t, d, 0, 0)
	repo := NewOrderRepository(d)
	now := time.Now().UTC()
	o := newOrder(rs.ID, 1, now)
	require.NoError(t, repo.Insert(ctx, o))

	ok, err := repo.CompareAndSetStatus(ctx, o.ID, models.OrderStatusPending, models.OrderStatusConfirmed, now)
	require.NoError(t, err)
	assert.True(t, ok)

	// stale expected status loses
	ok, err = repo.CompareAndSetStatus(ctx, o.ID, models.OrderStatusPending, models.OrderStatusConfirmed, now)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.CompareAndSetStatus(ctx, o.ID, models.OrderStatusReady, models.OrderStatusAssigned, now)
	assert.Error(t, err)

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, got.Status)
	require.NotNil(t, got.ConfirmedAt)
}

func TestOrderRepository_ClaimReadyAndCancel(t *testing.T) {
	d := testutil.OpenInMemoryDB(t)
	ctx := context.Background()
	rs := testutil.SeedRestaurant(t, d, 0, 0)
	r1 := testutil.SeedRider(t, d, models.RiderOnline, 0, 0)
	r2 := testutil.SeedRider(t, d, models.RiderOnline, 0, 0)
	repo := NewOrderRepository(d)
	now := time.Now().UTC()

	o := newOrder(rs.ID, 1, now)
	require.NoError(t, repo.Insert(ctx, o))

	// not READY yet
	ok, err := repo.ClaimReady(ctx, o.ID, r1.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, step := range [][2]models.OrderStatus{
		{models.OrderStatusPending, models.OrderStatusConfirmed},
		{models.OrderStatusConfirmed, models.OrderStatusPreparing},
		{models.OrderStatusPreparing, models.OrderStatusReady},
	} {
		ok, err := repo.CompareAndSetStatus(ctx, o.ID, step[0], step[1], now)
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err = repo.ClaimReady(ctx, o.ID, r1.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.ClaimReady(ctx, o.ID, r2.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	active, err := repo.ActiveForRider(ctx, r1.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, o.ID, active.ID)

	ok, err = repo.Cancel(ctx, o.ID, models.OrderStatusAssigned, "kitchen closed", now)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
	assert.Nil(t, got.RiderID)
	assert.Equal(t, "kitchen closed", got.CancelReason)

	active, err = repo.ActiveForRider(ctx, r1.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestOrderRepository_ListKeyset(t *testing.T) {
	d := testutil.OpenInMemoryDB(t)
	ctx := context.Background()
	rs := testutil.SeedRestaurant(t, d, 0, 0)
	other := testutil.SeedRestaurant(t, d, 0, 0)
	repo := NewOrderRepository(d)
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Insert(ctx, newOrder(rs.ID, i, base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, repo.Insert(ctx, newOrder(other.ID, 9, base)))

	page1, more, err := repo.List(ctx, ListOrdersParams{RestaurantID: &rs.ID, PageSize: 2})
	require.NoError(t, err)
	assert.True(t, more)
	require.Len(t, page1, 2)
	assert.Equal(t, "order-005", page1[0].ID)
	assert.Equal(t, "order-004", page1[1].ID)

	last := page1[1]
	page2, more, err := repo.List(ctx, ListOrdersParams{RestaurantID: &rs.ID, PageSize: 2, AfterPlacedAt: &last.PlacedAt, AfterID: last.ID})
	require.NoError(t, err)
	assert.True(t, more)
	require.Len(t, page2, 2)
	assert.Equal(t, "order-003", page2[0].ID)
	assert.Equal(t, "order-002", page2[1].ID)

	last = page2[1]
	page3, more, err := repo.List(ctx, ListOrdersParams{RestaurantID: &rs.ID, PageSize: 1, AfterPlacedAt: &last.PlacedAt, AfterID: last.ID})
	require.NoError(t, err)
	assert.False(t, more)
	require.Len(t, page3, 1)
	assert.Equal(t, "order-001", page3[0].ID)

	pending, more, err := repo.List(ctx, ListOrdersParams{Statuses: []models.OrderStatus{models.OrderStatusPending}, PageSize: 50})
	require.NoError(t, err)
	assert.False(t, more)
	assert.Len(t, pending, 6)
}

func TestOrderRepository_ListReadyUnassigned(t *testing.T) {
	d := testutil.OpenInMemoryDB(t)
	ctx := context.Background()
	rs := testutil.SeedRestaurant(t, d, 51.5, -0.12)
	repo := NewOrderRepository(d)
	now := time.Now().UTC()

	ready := newOrder(rs.ID, 1, now)
	pending := newOrder(rs.ID, 2, now)
	require.NoError(t, repo.Insert(ctx, ready))
	require.NoError(t, repo.Insert(ctx, pending))
	for _, to := range []models.OrderStatus{models.OrderStatusConfirmed, models.OrderStatusPreparing, models.OrderStatusReady} {
		from := map[models.OrderStatus]models.OrderStatus{
			models.OrderStatusConfirmed: models.OrderStatusPending,
			models.OrderStatusPreparing: models.OrderStatusConfirmed,
			models.OrderStatusReady:     models.OrderStatusPreparing,
		}[to]
		ok, err := repo.CompareAndSetStatus(ctx, ready.ID, from, to, now)
		require.NoError(t, err)
		require.True(t, ok)
	}

	got, err := repo.ListReadyUnassigned(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ready.ID, got[0].Order.ID)
	assert.Equal(t, rs.Name, got[0].RestaurantName)
	assert.InDelta(t, 51.5, got[0].PickupLat, 1e-9)
	assert.InDelta(t, -0.12, got[0].PickupLng, 1e-9)
}
