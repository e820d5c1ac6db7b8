package ledger

import (
	"foodDelivery/internal/apperr"
	"foodDelivery/models"
)

// Who may move an order where:
//
//	PENDING -> CONFIRMED -> PREPARING -> READY   owning restaurant, admin
//	READY -> ASSIGNED                            rider, through dispatch claim only
//	ASSIGNED -> PICKED_UP -> ON_THE_WAY          assigned rider
//	ON_THE_WAY -> DELIVERED                      assigned rider, owning restaurant
//	PENDING -> CANCELLED                         owning customer, owning restaurant, admin
//	CONFIRMED..ASSIGNED -> CANCELLED             owning restaurant, admin
//	PICKED_UP, ON_THE_WAY -> CANCELLED           admin
func authorizeTransition(actor models.Actor, o *models.Order, target models.OrderStatus) error {
	if allowed(actor, o, target) {
		return nil
	}
	return apperr.New(apperr.ErrForbidden, "%s may not move order %s from %s to %s", actor, o.ID, o.Status, target)
}

func allowed(actor models.Actor, o *models.Order, target models.OrderStatus) bool {
	if target == models.OrderStatusCancelled {
		return mayCancel(actor, o)
	}
	switch target {
	case models.OrderStatusConfirmed, models.OrderStatusPreparing, models.OrderStatusReady:
		return actor.Role == models.RoleAdmin || ownsRestaurant(actor, o)
	case models.OrderStatusPickedUp, models.OrderStatusOnTheWay:
		return isAssignedRider(actor, o)
	case models.OrderStatusDelivered:
		return isAssignedRider(actor, o) || ownsRestaurant(actor, o)
	}
	return false
}

func mayCancel(actor models.Actor, o *models.Order) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	switch o.Status {
	case models.OrderStatusPending:
		return ownsRestaurant(actor, o) || (actor.Role == models.RoleCustomer && actor.ID == o.CustomerID)
	case models.OrderStatusConfirmed, models.OrderStatusPreparing, models.OrderStatusReady, models.OrderStatusAssigned:
		return ownsRestaurant(actor, o)
	}
	return false
}

func ownsRestaurant(actor models.Actor, o *models.Order) bool {
	return actor.Role == models.RoleRestaurant && actor.ID == o.RestaurantID
}

func isAssignedRider(actor models.Actor, o *models.Order) bool {
	return actor.Role == models.RoleRider && o.RiderID != nil && *o.RiderID == actor.ID
}

// canView reports whether actor may read o. Riders may also see READY orders that
// are still open for claiming.
func canView(actor models.Actor, o *models.Order) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCustomer:
		return actor.ID == o.CustomerID
	case models.RoleRestaurant:
		return actor.ID == o.RestaurantID
	case models.RoleRider:
		return isAssignedRider(actor, o) || (o.Status == models.OrderStatusReady && o.RiderID == nil)
	}
	return false
}

// maySettle reports whether actor may trigger settlement of o's payment.
func maySettle(actor models.Actor, o *models.Order) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCustomer:
		return actor.ID == o.CustomerID
	case models.RoleRider:
		return isAssignedRider(actor, o)
	}
	return false
}
