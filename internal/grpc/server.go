package grpcserver

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"foodDelivery/internal/auth"
	"foodDelivery/internal/config"
	"foodDelivery/internal/dispatch"
	"foodDelivery/internal/feedback"
	"foodDelivery/internal/ledger"
	"foodDelivery/repository"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// Services bundles what the transport exposes.
type Services struct {
	Store    *repository.Store
	Ledger   *ledger.Service
	Dispatch *dispatch.Service
	Feedback *feedback.Service
}

// NewServer builds a gRPC server with every service registered. Requests are
// authenticated with a Bearer JWT, logged, and service errors are mapped to statuses.
func NewServer(secret string, svc Services, log logrus.FieldLogger) *grpc.Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		auth.NewUnaryAuthInterceptor(secret, healthCheckMethod),
		loggingInterceptor(log),
		errorInterceptor(log),
	))

	srv.RegisterService(&OrderServiceDesc, &OrderServer{Ledger: svc.Ledger})
	srv.RegisterService(&DispatchServiceDesc, &DispatchServer{Dispatch: svc.Dispatch})
	srv.RegisterService(&FeedbackServiceDesc, &FeedbackServer{Feedback: svc.Feedback})
	srv.RegisterService(&AdminServiceDesc, &AdminServer{Store: svc.Store})

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

// StartGRPC starts the gRPC server on the configured address and returns a shutdown function.
func StartGRPC(cfg *config.Config, svc Services, log logrus.FieldLogger) (func(context.Context) error, error) {
	if cfg == nil {
		panic("config is required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	addr := cfg.GRPC.Address
	if addr == "" {
		addr = ":50051"
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := NewServer(cfg.Auth.JWTSecret, svc, log)
	go func() {
		if err := srv.Serve(lis); err != nil {
			log.WithError(err).Error("grpc server stopped")
		}
	}()

	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}, nil
}
