package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_ForwardPathOnly(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusConfirmed))
	assert.True(t, OrderStatusReady.CanTransitionTo(OrderStatusAssigned))
	assert.True(t, OrderStatusOnTheWay.CanTransitionTo(OrderStatusDelivered))

	// no skipping
	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatusPreparing))
	assert.False(t, OrderStatusConfirmed.CanTransitionTo(OrderStatusReady))
	// no going back
	assert.False(t, OrderStatusReady.CanTransitionTo(OrderStatusPreparing))
	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatusPending))
}

func TestOrderStatus_Cancellation(t *testing.T) {
	for _, s := range forwardPath {
		if s == OrderStatusDelivered {
			assert.False(t, s.CanTransitionTo(OrderStatusCancelled), "delivered cannot be cancelled")
			continue
		}
		assert.True(t, s.CanTransitionTo(OrderStatusCancelled), "%s should be cancellable", s)
	}
	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusCancelled))
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.True(t, OrderStatusDelivered.IsTerminal())
}

func TestOrderStatus_HasRider(t *testing.T) {
	withRider := map[OrderStatus]bool{
		OrderStatusAssigned:  true,
		OrderStatusPickedUp:  true,
		OrderStatusOnTheWay:  true,
		OrderStatusDelivered: true,
	}
	for s := range statusLabels {
		assert.Equal(t, withRider[s], s.HasRider(), "status %s", s)
	}
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus("picked_up")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPickedUp, s)
	assert.Equal(t, "Picked up", s.Label())

	_, err = ParseOrderStatus("shipped")
	assert.Error(t, err)
}

func TestComputeTotal(t *testing.T) {
	assert.Equal(t, int64(1100), ComputeTotal(1000, 100, 0, 0))
	assert.Equal(t, int64(1070), ComputeTotal(1000, 100, 20, 50))

	o := &Order{Subtotal: 1000, DeliveryFee: 100, Total: 1100}
	assert.True(t, o.TotalConsistent())
	o.Total = 1000
	assert.False(t, o.TotalConsistent())
}

func TestLastTransitionAt(t *testing.T) {
	placed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	confirmed := placed.Add(time.Minute)
	o := &Order{PlacedAt: placed}
	assert.Equal(t, placed, o.LastTransitionAt())
	o.ConfirmedAt = &confirmed
	assert.Equal(t, confirmed, o.LastTransitionAt())
}

func TestAddress_MissingFields(t *testing.T) {
	a := Address{Line: "1 Main St", City: "Springfield"}
	assert.Equal(t, []string{"state", "zip"}, a.MissingFields())
	a.State, a.Zip = "IL", "62701"
	assert.Empty(t, a.MissingFields())
}

func TestRatings_Normalize(t *testing.T) {
	r, err := Ratings{Food: 5, Service: 4, Delivery: 5}.Normalize()
	require.NoError(t, err)
	assert.InDelta(t, 14.0/3.0, r.Overall, 1e-9)

	_, err = Ratings{Food: 0, Service: 4, Delivery: 5}.Normalize()
	assert.Error(t, err)
	_, err = Ratings{Food: 5, Service: 4, Delivery: 5, Overall: 6}.Normalize()
	assert.Error(t, err)
}

func TestMenuItem_EffectivePrice(t *testing.T) {
	disc := int64(800)
	m := &MenuItem{Price: 1000, DiscountedPrice: &disc}
	assert.Equal(t, int64(800), m.EffectivePrice())
	higher := int64(1200)
	m.DiscountedPrice = &higher
	assert.Equal(t, int64(1000), m.EffectivePrice())
	m.DiscountedPrice = nil
	assert.Equal(t, int64(1000), m.EffectivePrice())
}

func TestPaymentStatus_Transitions(t *testing.T) {
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusCompleted))
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusFailed))
	assert.True(t, PaymentStatusCompleted.CanTransitionTo(PaymentStatusRefunded))
	assert.False(t, PaymentStatusFailed.CanTransitionTo(PaymentStatusCompleted))
	assert.False(t, PaymentStatusPending.CanTransitionTo(PaymentStatusRefunded))
}
