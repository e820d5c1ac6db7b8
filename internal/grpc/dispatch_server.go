package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"foodDelivery/internal/auth"
	"foodDelivery/internal/dispatch"
	"foodDelivery/models"
)

const DispatchServiceName = "fooddelivery.v1.DispatchService"

// DispatchServer exposes rider dispatch. Every call acts on the calling rider.
type DispatchServer struct {
	Dispatch *dispatch.Service
}

type DispatchServiceServer interface {
	ListAvailableOrders(context.Context, *ListAvailableOrdersRequest) (*ListAvailableOrdersResponse, error)
	ClaimOrder(context.Context, *ClaimOrderRequest) (*ClaimOrderResponse, error)
	SetAvailability(context.Context, *SetAvailabilityRequest) (*RiderResponse, error)
	Heartbeat(context.Context, *HeartbeatRequest) (*HeartbeatResponse, error)
	GetAssignedOrder(context.Context, *GetAssignedOrderRequest) (*OrderResponse, error)
}

var DispatchServiceDesc = grpc.ServiceDesc{
	ServiceName: DispatchServiceName,
	HandlerType: (*DispatchServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(DispatchServiceName, "ListAvailableOrders", DispatchServiceServer.ListAvailableOrders),
		unary(DispatchServiceName, "ClaimOrder", DispatchServiceServer.ClaimOrder),
		unary(DispatchServiceName, "SetAvailability", DispatchServiceServer.SetAvailability),
		unary(DispatchServiceName, "Heartbeat", DispatchServiceServer.Heartbeat),
		unary(DispatchServiceName, "GetAssignedOrder", DispatchServiceServer.GetAssignedOrder),
	},
	Metadata: "fooddelivery/v1/dispatch.proto",
}

func (s *DispatchServer) ListAvailableOrders(ctx context.Context, _ *ListAvailableOrdersRequest) (*ListAvailableOrdersResponse, error) {
	a, err := auth.RequireRider(ctx)
	if err != nil {
		return nil, err
	}
	offers, err := s.Dispatch.ListAvailable(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	resp := &ListAvailableOrdersResponse{Offers: make([]Offer, 0, len(offers))}
	for _, o := range offers {
		resp.Offers = append(resp.Offers, Offer{
			Order:          o.Order,
			RestaurantName: o.RestaurantName,
			DistanceKm:     o.DistanceKm,
			Payout:         o.Payout,
		})
	}
	return resp, nil
}

// ClaimOrder assigns a READY order to the calling rider.
func (s *DispatchServer) ClaimOrder(ctx context.Context, req *ClaimOrderRequest) (*ClaimOrderResponse, error) {
	a, err := auth.RequireRider(ctx)
	if err != nil {
		return nil, err
	}
	if req.OrderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	res, err := s.Dispatch.Claim(ctx, req.OrderID, a.ID)
	if err != nil {
		return nil, err
	}
	return &ClaimOrderResponse{Order: res.Order, Earning: res.Earning}, nil
}

func (s *DispatchServer) SetAvailability(ctx context.Context, req *SetAvailabilityRequest) (*RiderResponse, error) {
	a, err := auth.RequireRider(ctx)
	if err != nil {
		return nil, err
	}
	rd, err := s.Dispatch.SetAvailability(ctx, a.ID, models.RiderAvailability(req.Availability))
	if err != nil {
		return nil, err
	}
	return &RiderResponse{Rider: rd}, nil
}

func (s *DispatchServer) Heartbeat(ctx context.Context, req *HeartbeatRequest) (*HeartbeatResponse, error) {
	a, err := auth.RequireRider(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Dispatch.Heartbeat(ctx, a.ID, req.Lat, req.Lng); err != nil {
		return nil, err
	}
	return &HeartbeatResponse{}, nil
}

func (s *DispatchServer) GetAssignedOrder(ctx context.Context, _ *GetAssignedOrderRequest) (*OrderResponse, error) {
	a, err := auth.RequireRider(ctx)
	if err != nil {
		return nil, err
	}
	o, err := s.Dispatch.AssignedOrder(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return orderResponse(o), nil
}
