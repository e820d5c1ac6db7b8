package models

import (
	"fmt"
	"strings"
)

// Role is the already-resolved role of the caller. Identity is resolved upstream;
// this module only authorizes.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleRestaurant Role = "restaurant"
	RoleRider      Role = "rider"
	RoleAdmin      Role = "admin"
)

// ParseRole normalizes and validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleCustomer, RoleRestaurant, RoleRider, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Actor is the explicit caller of every operation. For restaurant staff ID is the
// restaurant id, for riders the rider id, for customers the customer id.
type Actor struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

func (a Actor) String() string {
	return fmt.Sprintf("%s:%d", a.Role, a.ID)
}
