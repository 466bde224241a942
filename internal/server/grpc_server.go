package server

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/oggyb/catmatch/internal/config"
)

// ServiceName is the name reported by the gRPC health service.
const ServiceName = "catmatch"

// HealthRegistrar exposes grpc.health.v1 for the whole process.
type HealthRegistrar struct {
	Health *health.Server
}

func NewHealthRegistrar() *HealthRegistrar {
	return &HealthRegistrar{Health: health.NewServer()}
}

func (h *HealthRegistrar) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.Health)
	h.Health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.Health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// Shutdown flips every service to NOT_SERVING.
func (h *HealthRegistrar) Shutdown() {
	h.Health.Shutdown()
}

// NewGRPCServer builds a gRPC server and registers all provided services
func NewGRPCServer(registrars ...Registrar) *grpc.Server {
	grpcServer := grpc.NewServer()

	for _, r := range registrars {
		r.Register(grpcServer)
	}

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)
	return grpcServer
}

// ServeGRPC listens on the configured address and serves until ctx is done.
func ServeGRPC(ctx context.Context, cfg *config.Config, grpcServer *grpc.Server) error {
	addr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	return grpcServer.Serve(lis)
}
