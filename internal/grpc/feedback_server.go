package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"foodDelivery/internal/auth"
	"foodDelivery/internal/feedback"
)

const FeedbackServiceName = "fooddelivery.v1.FeedbackService"

type FeedbackServer struct {
	Feedback *feedback.Service
}

type FeedbackServiceServer interface {
	SubmitReview(context.Context, *SubmitReviewRequest) (*ReviewResponse, error)
	UpdateReview(context.Context, *UpdateReviewRequest) (*ReviewResponse, error)
	GetRestaurantRating(context.Context, *RestaurantRatingRequest) (*RestaurantRatingResponse, error)
}

var FeedbackServiceDesc = grpc.ServiceDesc{
	ServiceName: FeedbackServiceName,
	HandlerType: (*FeedbackServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(FeedbackServiceName, "SubmitReview", FeedbackServiceServer.SubmitReview),
		unary(FeedbackServiceName, "UpdateReview", FeedbackServiceServer.UpdateReview),
		unary(FeedbackServiceName, "GetRestaurantRating", FeedbackServiceServer.GetRestaurantRating),
	},
	Metadata: "fooddelivery/v1/feedback.proto",
}

func (s *FeedbackServer) SubmitReview(ctx context.Context, req *SubmitReviewRequest) (*ReviewResponse, error) {
	a, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	rv, err := s.Feedback.SubmitReview(ctx, req.OrderID, a, req.Ratings, req.Comment)
	if err != nil {
		return nil, err
	}
	return &ReviewResponse{Review: rv}, nil
}

func (s *FeedbackServer) UpdateReview(ctx context.Context, req *UpdateReviewRequest) (*ReviewResponse, error) {
	a, err := auth.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	rv, err := s.Feedback.UpdateReview(ctx, req.ReviewID, a, req.Ratings, req.Comment)
	if err != nil {
		return nil, err
	}
	return &ReviewResponse{Review: rv}, nil
}

// GetRestaurantRating is open to any authenticated caller.
func (s *FeedbackServer) GetRestaurantRating(ctx context.Context, req *RestaurantRatingRequest) (*RestaurantRatingResponse, error) {
	if _, err := auth.RequireActor(ctx); err != nil {
		return nil, err
	}
	r, err := s.Feedback.RestaurantRating(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	return &RestaurantRatingResponse{RestaurantID: req.RestaurantID, Rating: r.Average, TotalReviews: r.Count}, nil
}
