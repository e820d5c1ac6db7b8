package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/jaswdr/faker"
	"google.golang.org/grpc/metadata"

	"foodDelivery/internal/db"
	"foodDelivery/models"
)

var (
	dbSeq atomic.Int64
	fake  = faker.New()
)

// OpenInMemoryDB opens a private in-memory SQLite database with migrations applied.
// The database is closed through t.Cleanup.
func OpenInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	d, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// GenerateJWTHS256 returns a signed JWT carrying the actor id in sub and its role.
func GenerateJWTHS256(t *testing.T, secret string, actorID int64, role models.Role) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  fmt.Sprint(actorID),
		"role": string(role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// CtxWithBearer returns a context containing gRPC metadata Authorization header with the given token.
func CtxWithBearer(ctx context.Context, token string) context.Context {
	md := metadata.Pairs("authorization", "Bearer "+token)
	return metadata.NewIncomingContext(ctx, md)
}

// SeedRestaurant inserts a restaurant at the given location.
func SeedRestaurant(t *testing.T, d *sql.DB, lat, lng float64) *models.Restaurant {
	t.Helper()
	rs := &models.Restaurant{Name: fake.Company().Name(), Lat: lat, Lng: lng}
	res, err := d.Exec(`INSERT INTO restaurants (name, lat, lng) VALUES (?,?,?)`, rs.Name, lat, lng)
	if err != nil {
		t.Fatalf("seed restaurant: %v", err)
	}
	rs.ID, _ = res.LastInsertId()
	return rs
}

// SeedMenuItem inserts an AVAILABLE menu item priced in minor units.
func SeedMenuItem(t *testing.T, d *sql.DB, restaurantID, price int64) *models.MenuItem {
	t.Helper()
	m := &models.MenuItem{
		RestaurantID: restaurantID,
		Name:         fake.Lorem().Word() + " " + fake.Lorem().Word(),
		Price:        price,
		Status:       models.MenuItemAvailable,
	}
	res, err := d.Exec(`INSERT INTO menu_items (restaurant_id, name, price, status) VALUES (?,?,?,?)`,
		restaurantID, m.Name, price, string(m.Status))
	if err != nil {
		t.Fatalf("seed menu item: %v", err)
	}
	m.ID, _ = res.LastInsertId()
	return m
}

// SeedRider inserts a rider with the given availability at a location.
// BUSY is not accepted here: a busy rider must hold an order.
func SeedRider(t *testing.T, d *sql.DB, availability models.RiderAvailability, lat, lng float64) *models.Rider {
	t.Helper()
	if availability == models.RiderBusy {
		t.Fatalf("seed rider: BUSY riders are created by claiming an order")
	}
	rd := &models.Rider{Name: fake.Person().Name(), Availability: availability, Lat: lat, Lng: lng}
	res, err := d.Exec(`INSERT INTO riders (name, availability, lat, lng) VALUES (?,?,?,?)`, rd.Name, string(availability), lat, lng)
	if err != nil {
		t.Fatalf("seed rider: %v", err)
	}
	rd.ID, _ = res.LastInsertId()
	return rd
}

// Address returns a complete delivery address.
func Address() models.Address {
	a := fake.Address()
	return models.Address{
		Line:  a.StreetAddress(),
		City:  a.City(),
		State: a.State(),
		Zip:   a.PostCode(),
	}
}

// CustomerID returns a random customer id.
func CustomerID() int64 {
	return int64(fake.IntBetween(1000, 1_000_000))
}
