package grpcserver

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"foodDelivery/internal/apperr"
)

// ErrorCodeTrailer carries the application error code next to the gRPC status.
const ErrorCodeTrailer = "x-error-code"

// toStatus maps an application error onto a gRPC status. Errors that already are
// statuses (auth failures) pass through.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		code = codes.InvalidArgument
	case apperr.KindNotFound:
		code = codes.NotFound
	case apperr.KindForbidden:
		code = codes.PermissionDenied
	case apperr.KindStateConflict:
		switch {
		case errors.Is(err, apperr.ErrOrderAlreadyClaimed):
			code = codes.Aborted
		case errors.Is(err, apperr.ErrReviewAlreadyExists):
			code = codes.AlreadyExists
		default:
			code = codes.FailedPrecondition
		}
	case apperr.KindTransaction:
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

// errorInterceptor converts service errors to statuses and exposes the
// application code as a trailer.
func errorInterceptor(log logrus.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if c := apperr.CodeOf(err); c != "" {
			if terr := grpc.SetTrailer(ctx, metadata.Pairs(ErrorCodeTrailer, c)); terr != nil {
				log.WithError(terr).Debug("set error trailer")
			}
		}
		return nil, toStatus(err)
	}
}
