package grpcserver

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"shopBackend/internal/auth"
	"shopBackend/internal/config"
	"shopBackend/internal/logger"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// NewServer builds a grpc.Server with the auth and logging interceptors, the
// order service and the standard health service.
func NewServer(secret string, svc *Server, log *logger.Logger) *grpc.Server {
	if log == nil {
		log = logger.Nop()
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		loggingInterceptor(log),
		auth.NewUnaryAuthInterceptor(secret, healthCheckMethod, MethodListItems),
	))
	RegisterOrderServiceServer(srv, svc)

	hs := health.NewServer()
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

// StartGRPC starts the gRPC server on the given address and returns a shutdown function.
func StartGRPC(cfg *config.Config, svc *Server, log *logger.Logger) (func(context.Context) error, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	addr := cfg.GRPC.Address
	if addr == "" {
		addr = ":50051"
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	// Plaintext; terminate TLS in front of the service.
	srv := NewServer(cfg.Auth.JWTSecret, svc, log)
	go func() {
		if err := srv.Serve(lis); err != nil && log != nil {
			log.Error("grpc server stopped", "error", err)
		}
	}()
	if log != nil {
		log.Info("grpc server listening", "address", addr)
	}

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

func loggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []interface{}{"method", info.FullMethod, "code", code.String(), "duration_ms", time.Since(start).Milliseconds()}
		if err != nil {
			log.Warn("gRPC request", append(fields, "error", err)...)
		} else {
			log.Debug("gRPC request", fields...)
		}
		return resp, err
	}
}
