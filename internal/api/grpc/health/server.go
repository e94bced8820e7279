package health

import (
	"context"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/installer-endpoint/internal/logger"
)

// ServiceName is the health service name reported for the installer endpoint.
const ServiceName = "installer"

// Presence reports whether the script is currently available.
type Presence interface {
	Exists(ctx context.Context) (bool, error)
}

// Server keeps the gRPC health status in line with the script presence.
type Server struct {
	// health is the grpc-go implementation of grpc.health.v1.Health.
	health *grpchealth.Server
	// presence checks the script presence on Refresh.
	presence Presence
}

// NewServer creates a health server; call Refresh to publish the first status.
func NewServer(presence Presence) *Server {
	return &Server{
		health: grpchealth.NewServer(),
		presence: presence,
	}
}

// Register attaches the health service to a gRPC server.
func (s *Server) Register(registrar grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(registrar, &liveServer{Server: s.health, owner: s})
}

// liveServer re-checks the script on every Check, so the answer never
// depends on the watcher being enabled. Watch and List come from grpc-go.
type liveServer struct {
	*grpchealth.Server

	// owner publishes the fresh status before the check is answered.
	owner *Server
}

// Check refreshes the status of the installer services, then answers from the status map.
func (p *liveServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if service := req.GetService(); service == "" || service == ServiceName {
		p.owner.Refresh(ctx)
	}

	return p.Server.Check(ctx, req)
}

// Refresh checks the script and publishes the resulting status.
func (s *Server) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	exists, err := s.presence.Exists(ctx)
	if err != nil {
		logger.WarnKV(ctx, "Script existence check failed", "error", err)
	}

	return s.SetAvailable(exists)
}

// SetAvailable publishes SERVING or NOT_SERVING for both the installer and the overall service.
func (s *Server) SetAvailable(available bool) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if available {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)

	return status
}

// Shutdown marks every service NOT_SERVING and ignores later updates.
func (s *Server) Shutdown() {
	s.health.Shutdown()
}

// Check answers a health request directly, without a network round trip.
// Like the registered service, it checks the script first.
func (s *Server) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	checker := &liveServer{Server: s.health, owner: s}

	resp, err := checker.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}

	return resp.GetStatus(), nil
}
