package grpcserver

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"foodDelivery/internal/auth"
	"foodDelivery/internal/geo"
	"foodDelivery/models"
	"foodDelivery/repository"
)

const AdminServiceName = "fooddelivery.v1.AdminService"

// AdminServer manages the catalog and the rider roster.
type AdminServer struct {
	Store *repository.Store
}

type AdminServiceServer interface {
	CreateRestaurant(context.Context, *CreateRestaurantRequest) (*RestaurantResponse, error)
	AddMenuItem(context.Context, *AddMenuItemRequest) (*MenuItemResponse, error)
	SetMenuItemStatus(context.Context, *SetMenuItemStatusRequest) (*MenuItemResponse, error)
	RegisterRider(context.Context, *RegisterRiderRequest) (*RiderResponse, error)
}

var AdminServiceDesc = grpc.ServiceDesc{
	ServiceName: AdminServiceName,
	HandlerType: (*AdminServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(AdminServiceName, "CreateRestaurant", AdminServiceServer.CreateRestaurant),
		unary(AdminServiceName, "AddMenuItem", AdminServiceServer.AddMenuItem),
		unary(AdminServiceName, "SetMenuItemStatus", AdminServiceServer.SetMenuItemStatus),
		unary(AdminServiceName, "RegisterRider", AdminServiceServer.RegisterRider),
	},
	Metadata: "fooddelivery/v1/admin.proto",
}

func (s *AdminServer) CreateRestaurant(ctx context.Context, req *CreateRestaurantRequest) (*RestaurantResponse, error) {
	if _, err := auth.RequireRole(ctx, models.RoleAdmin); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	if !(geo.Point{Lat: req.Lat, Lng: req.Lng}).Valid() {
		return nil, status.Error(codes.InvalidArgument, "invalid coordinates")
	}
	rs, err := s.Store.Catalog.CreateRestaurant(ctx, &models.Restaurant{Name: name, Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "create restaurant: %v", err)
	}
	return &RestaurantResponse{Restaurant: rs}, nil
}

// AddMenuItem adds an item to a restaurant's menu. Restaurant staff may only add to
// their own restaurant.
func (s *AdminServer) AddMenuItem(ctx context.Context, req *AddMenuItemRequest) (*MenuItemResponse, error) {
	a, err := auth.RequireRole(ctx, models.RoleAdmin, models.RoleRestaurant)
	if err != nil {
		return nil, err
	}
	if a.Role == models.RoleRestaurant && a.ID != req.RestaurantID {
		return nil, status.Error(codes.PermissionDenied, "not your restaurant")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	if req.Price < 0 || (req.DiscountedPrice != nil && *req.DiscountedPrice < 0) {
		return nil, status.Error(codes.InvalidArgument, "prices must not be negative")
	}
	rs, err := s.Store.Catalog.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get restaurant: %v", err)
	}
	if rs == nil {
		return nil, status.Error(codes.NotFound, "restaurant not found")
	}
	m, err := s.Store.Catalog.CreateMenuItem(ctx, &models.MenuItem{
		RestaurantID:    rs.ID,
		Name:            name,
		Price:           req.Price,
		DiscountedPrice: req.DiscountedPrice,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "create menu item: %v", err)
	}
	return &MenuItemResponse{MenuItem: m}, nil
}

// SetMenuItemStatus marks an item AVAILABLE or UNAVAILABLE.
func (s *AdminServer) SetMenuItemStatus(ctx context.Context, req *SetMenuItemStatusRequest) (*MenuItemResponse, error) {
	a, err := auth.RequireRole(ctx, models.RoleAdmin, models.RoleRestaurant)
	if err != nil {
		return nil, err
	}
	st := models.MenuItemStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if st != models.MenuItemAvailable && st != models.MenuItemUnavailable {
		return nil, status.Errorf(codes.InvalidArgument, "unknown menu item status %q", req.Status)
	}
	m, err := s.Store.Catalog.GetMenuItem(ctx, req.MenuItemID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get menu item: %v", err)
	}
	if m == nil {
		return nil, status.Error(codes.NotFound, "menu item not found")
	}
	if a.Role == models.RoleRestaurant && a.ID != m.RestaurantID {
		return nil, status.Error(codes.PermissionDenied, "not your restaurant")
	}
	if err := s.Store.Catalog.SetMenuItemStatus(ctx, m.ID, st); err != nil {
		return nil, status.Errorf(codes.Internal, "update menu item: %v", err)
	}
	m.Status = st
	return &MenuItemResponse{MenuItem: m}, nil
}

// RegisterRider creates an OFFLINE rider at the given position.
func (s *AdminServer) RegisterRider(ctx context.Context, req *RegisterRiderRequest) (*RiderResponse, error) {
	if _, err := auth.RequireRole(ctx, models.RoleAdmin); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	rd, err := s.Store.Riders.Create(ctx, &models.Rider{Name: name, Availability: models.RiderOffline, Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "create rider: %v", err)
	}
	return &RiderResponse{Rider: rd}, nil
}
