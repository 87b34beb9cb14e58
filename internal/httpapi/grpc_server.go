package httpapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"mop.org/internal/obs"
)

// readinessChecker is satisfied by ReadyProbe.
type readinessChecker interface {
	Check(ctx context.Context) error
}

// HealthServer implements the standard gRPC health protocol on top of the
// readiness probe. Only the empty service name and serviceName are known.
type HealthServer struct {
	healthpb.UnimplementedHealthServer

	readiness readinessChecker
}

// NewHealthServer creates the gRPC health service.
func NewHealthServer(r readinessChecker) *HealthServer {
	return &HealthServer{readiness: r}
}

// Register attaches the health service to srv.
func (s *HealthServer) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, s)
}

// Check evaluates readiness. A failing probe reports NOT_SERVING.
func (s *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != serviceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}
	if s.readiness != nil {
		if err := s.readiness.Check(ctx); err != nil {
			obs.SetReady(false)
			return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
		}
	}
	obs.SetReady(true)
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
