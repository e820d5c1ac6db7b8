package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"foodDelivery/models"
)

// NewUnaryAuthInterceptor returns a gRPC unary interceptor that extracts and validates
// a Bearer JWT from incoming metadata and injects the Actor into the context.
// Methods listed in allowUnauthenticated will bypass authentication (e.g., health checks).
func NewUnaryAuthInterceptor(secret string, allowUnauthenticated ...string) grpc.UnaryServerInterceptor {
	allow := make(map[string]struct{}, len(allowUnauthenticated))
	for _, m := range allowUnauthenticated {
		allow[strings.TrimSpace(m)] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := allow[info.FullMethod]; ok {
			return handler(ctx, req)
		}
		a, err := ParseFromMD(ctx, secret)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "auth error: %v", err)
		}
		return handler(WithActor(ctx, a), req)
	}
}

// RequireActor ensures an actor is present in context.
func RequireActor(ctx context.Context) (models.Actor, error) {
	a, ok := FromContext(ctx)
	if !ok {
		return models.Actor{}, status.Error(codes.Unauthenticated, "missing actor")
	}
	return a, nil
}

// RequireRole ensures the actor has one of roles.
func RequireRole(ctx context.Context, roles ...models.Role) (models.Actor, error) {
	a, err := RequireActor(ctx)
	if err != nil {
		return a, err
	}
	for _, r := range roles {
		if a.Role == r {
			return a, nil
		}
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return a, status.Errorf(codes.PermissionDenied, "only %s can perform this action", strings.Join(names, " or "))
}

// RequireRider ensures the caller is a rider.
func RequireRider(ctx context.Context) (models.Actor, error) {
	return RequireRole(ctx, models.RoleRider)
}

// RequireCustomer ensures the caller is a customer.
func RequireCustomer(ctx context.Context) (models.Actor, error) {
	return RequireRole(ctx, models.RoleCustomer)
}
