package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"

	"foodDelivery/models"
)

type actorKey struct{}

// WithActor stores the authenticated actor in context.
func WithActor(ctx context.Context, a models.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// FromContext retrieves the actor from context (if any).
func FromContext(ctx context.Context) (models.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(models.Actor)
	return a, ok
}

// ParseFromMD extracts and validates a Bearer JWT from gRPC metadata and returns the actor.
func ParseFromMD(ctx context.Context, secret string) (models.Actor, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return models.Actor{}, errors.New("missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return models.Actor{}, errors.New("missing authorization")
	}
	parts := strings.SplitN(vals[0], " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return models.Actor{}, errors.New("invalid authorization header")
	}
	return parseJWT(strings.TrimSpace(parts[1]), secret)
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// parseJWT validates the token and maps sub/role to an actor. Identity is issued
// upstream; sub is the customer, restaurant or rider id depending on role.
func parseJWT(tokenStr string, secret string) (models.Actor, error) {
	if secret == "" {
		return models.Actor{}, errors.New("jwt secret is empty")
	}
	tok, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return models.Actor{}, err
	}
	c, _ := tok.Claims.(*claims)
	if c == nil || c.Subject == "" || c.Role == "" {
		return models.Actor{}, errors.New("invalid claims")
	}
	role, err := models.ParseRole(c.Role)
	if err != nil {
		return models.Actor{}, err
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return models.Actor{}, fmt.Errorf("invalid subject %q", c.Subject)
	}
	return models.Actor{ID: id, Role: role}, nil
}

// IssueToken signs an HS256 token for a. Used by the CLI to mint development tokens.
func IssueToken(secret string, a models.Actor, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	c := claims{
		Role: string(a.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(a.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}
