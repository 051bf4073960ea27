package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	compliancev1 "github.com/glimte/svc-compliance/api/compliance/v1"
)

// GRPCServer hosts the ComplianceRpc service and the standard health service.
type GRPCServer struct {
	srv             *grpc.Server
	health          *health.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// GRPCOption configures the GRPCServer
type GRPCOption func(*GRPCServer)

// WithShutdownTimeout bounds GracefulStop before the server is stopped hard.
func WithShutdownTimeout(d time.Duration) GRPCOption {
	return func(s *GRPCServer) {
		s.shutdownTimeout = d
	}
}

// WithGRPCLogger sets the logger
func WithGRPCLogger(logger *slog.Logger) GRPCOption {
	return func(s *GRPCServer) {
		s.logger = logger
	}
}

// NewGRPCServer registers svc and a health service reporting NOT_SERVING
// until MarkServing is called.
func NewGRPCServer(svc compliancev1.ComplianceRPCServer, options ...GRPCOption) *GRPCServer {
	s := &GRPCServer{
		health:          health.NewServer(),
		shutdownTimeout: 10 * time.Second,
		logger:          slog.Default(),
	}

	for _, opt := range options {
		opt(s)
	}

	s.srv = grpc.NewServer(grpc.ChainUnaryInterceptor(
		recoverInterceptor(s.logger),
		logInterceptor(s.logger),
	))
	compliancev1.RegisterComplianceRPCServer(s.srv, svc)
	healthpb.RegisterHealthServer(s.srv, s.health)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.health.SetServingStatus(compliancev1.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// MarkServing flips the health service to SERVING
func (s *GRPCServer) MarkServing() {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(compliancev1.ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// Serve accepts on lis until ctx is done, then drains in-flight requests.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	s.logger.Info("gRPC server listening", "addr", lis.Addr().String())

	doneCh := make(chan struct{})
	defer close(doneCh)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info("gRPC server shutting down")
			s.stop()
		case <-doneCh:
		}
	}()

	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("gRPC server failed: %w", err)
	}
	s.logger.Info("gRPC server terminated")
	return nil
}

func (s *GRPCServer) stop() {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(stopped)
	}()

	timer := time.NewTimer(s.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-stopped:
	case <-timer.C:
		s.logger.Warn("gRPC graceful stop timed out, forcing", "timeout", s.shutdownTimeout)
		s.srv.Stop()
	}
}

func logInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("rpc handled",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start))
		return resp, err
	}
}

func recoverInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in rpc handler", "method", info.FullMethod, "panic", r)
				err = status.Errorf(codes.Internal, "panic in %s", info.FullMethod)
			}
		}()
		return handler(ctx, req)
	}
}
