package auth

import (
	"context"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"

	"foodDelivery/internal/testutil"
	"foodDelivery/models"
)

const testSecret = "test-secret"

func TestParseFromMD_ValidBearer(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, 42, models.RoleCustomer)
	ctx := testutil.CtxWithBearer(context.Background(), tok)
	a, err := ParseFromMD(ctx, testSecret)
	if err != nil {
		t.Fatalf("ParseFromMD: %v", err)
	}
	if a.ID != 42 || a.Role != models.RoleCustomer {
		t.Fatalf("actor mismatch: %+v", a)
	}
}

func TestParseFromMD_MissingHeader(t *testing.T) {
	if _, err := ParseFromMD(context.Background(), testSecret); err == nil {
		t.Fatalf("expected error for missing metadata")
	}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic abc"))
	if _, err := ParseFromMD(ctx, testSecret); err == nil {
		t.Fatalf("expected error for non-Bearer scheme")
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, 7, models.RoleRider)
	if _, err := parseJWT(tok, "wrong"); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
}

func TestParseJWT_ClaimsValidation(t *testing.T) {
	sign := func(c jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	exp := time.Now().Add(time.Hour).Unix()
	cases := map[string]jwt.MapClaims{
		"missing role":    {"sub": "1", "exp": exp},
		"unknown role":    {"sub": "1", "role": "chef", "exp": exp},
		"non-numeric sub": {"sub": "alice", "role": "customer", "exp": exp},
		"missing exp":     {"sub": "1", "role": "customer"},
		"expired":         {"sub": "1", "role": "customer", "exp": time.Now().Add(-time.Minute).Unix()},
	}
	for name, c := range cases {
		if _, err := parseJWT(sign(c), testSecret); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestIssueToken_RoundTrip(t *testing.T) {
	tok, err := IssueToken(testSecret, models.Actor{ID: 9, Role: models.RoleRestaurant}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	a, err := parseJWT(tok, testSecret)
	if err != nil {
		t.Fatalf("parseJWT: %v", err)
	}
	if a != (models.Actor{ID: 9, Role: models.RoleRestaurant}) {
		t.Fatalf("actor mismatch: %+v", a)
	}
	if _, err := IssueToken("", a, time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
