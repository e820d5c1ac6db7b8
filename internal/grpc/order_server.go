package grpcserver

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"foodDelivery/internal/auth"
	"foodDelivery/internal/ledger"
	"foodDelivery/models"
)

const (
	OrderServiceName     = "fooddelivery.v1.OrderService"
	idempotencyKeyHeader = "idempotency-key"
)

// OrderServer exposes the order ledger.
type OrderServer struct {
	Ledger *ledger.Service
}

// OrderServiceServer is the handler type of OrderServiceDesc.
type OrderServiceServer interface {
	CreateOrder(context.Context, *CreateOrderRequest) (*OrderResponse, error)
	GetOrder(context.Context, *GetOrderRequest) (*OrderResponse, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error)
	TransitionOrder(context.Context, *TransitionOrderRequest) (*OrderResponse, error)
	SettlePayment(context.Context, *SettlePaymentRequest) (*PaymentResponse, error)
}

var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: OrderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(OrderServiceName, "CreateOrder", OrderServiceServer.CreateOrder),
		unary(OrderServiceName, "GetOrder", OrderServiceServer.GetOrder),
		unary(OrderServiceName, "ListOrders", OrderServiceServer.ListOrders),
		unary(OrderServiceName, "TransitionOrder", OrderServiceServer.TransitionOrder),
		unary(OrderServiceName, "SettlePayment", OrderServiceServer.SettlePayment),
	},
	Metadata: "fooddelivery/v1/order.proto",
}

// CreateOrder places an order for the calling customer. The idempotency key may be
// sent in the body or as the idempotency-key header.
func (s *OrderServer) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error) {
	a, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(idempotencyKeyHeader); len(v) > 0 {
				key = strings.TrimSpace(v[0])
			}
		}
	}
	lines := make([]ledger.LineInput, len(req.Items))
	for i, it := range req.Items {
		lines[i] = ledger.LineInput{MenuItemID: it.MenuItemID, Quantity: it.Quantity}
	}
	o, err := s.Ledger.CreateOrder(ctx, ledger.CreateOrderInput{
		CustomerID:    a.ID,
		RestaurantID:  req.RestaurantID,
		Lines:         lines,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
		Pricing: ledger.Pricing{
			Subtotal:    req.Subtotal,
			DeliveryFee: req.DeliveryFee,
			Tax:         req.Tax,
			Discount:    req.Discount,
			Total:       req.Total,
		},
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, err
	}
	return orderResponse(o), nil
}

// GetOrder looks an order up by id or by order number.
func (s *OrderServer) GetOrder(ctx context.Context, req *GetOrderRequest) (*OrderResponse, error) {
	a, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var o *models.Order
	switch {
	case req.OrderID != "":
		o, err = s.Ledger.GetOrder(ctx, req.OrderID, a)
	case req.OrderNumber != "":
		o, err = s.Ledger.GetOrderByNumber(ctx, req.OrderNumber, a)
	default:
		return nil, status.Error(codes.InvalidArgument, "order_id or order_number is required")
	}
	if err != nil {
		return nil, err
	}
	return orderResponse(o), nil
}

func (s *OrderServer) ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersResponse, error) {
	a, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	var statuses []models.OrderStatus
	for _, raw := range req.Statuses {
		st, err := models.ParseOrderStatus(raw)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "statuses: %v", err)
		}
		statuses = append(statuses, st)
	}
	page, err := s.Ledger.ListOrders(ctx, a, ledger.ListParams{
		Statuses:     statuses,
		CustomerID:   req.CustomerID,
		RestaurantID: req.RestaurantID,
		PageSize:     req.PageSize,
		Cursor:       req.Cursor,
	})
	if err != nil {
		return nil, err
	}
	if page.Orders == nil {
		page.Orders = []models.Order{}
	}
	return &ListOrdersResponse{Orders: page.Orders, NextCursor: page.NextCursor}, nil
}

// TransitionOrder moves an order to the requested status. CANCELLED goes through
// the cancellation path and records the reason.
func (s *OrderServer) TransitionOrder(ctx context.Context, req *TransitionOrderRequest) (*OrderResponse, error) {
	a, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	if req.OrderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	target, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	var o *models.Order
	if target == models.OrderStatusCancelled {
		o, err = s.Ledger.Cancel(ctx, req.OrderID, a, req.Reason)
	} else {
		o, err = s.Ledger.Transition(ctx, req.OrderID, target, a)
	}
	if err != nil {
		return nil, err
	}
	return orderResponse(o), nil
}

func (s *OrderServer) SettlePayment(ctx context.Context, req *SettlePaymentRequest) (*PaymentResponse, error) {
	a, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	if req.OrderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	p, err := s.Ledger.SettlePayment(ctx, req.OrderID, a)
	if err != nil {
		return nil, err
	}
	return &PaymentResponse{Payment: p}, nil
}

func orderResponse(o *models.Order) *OrderResponse {
	return &OrderResponse{Order: o, StatusLabel: o.Status.Label()}
}
