package grpcserver

import (
	"context"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name the hub reports under. The empty
// name tracks the same status for clients that ask about the server as a whole.
const ServiceName = "depthfeed.Hub"

// Probe reports whether the process can currently serve subscribers.
type Probe func() bool

// Server exposes the standard gRPC health protocol.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

func New() *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)

	s.SetServing(false)
	return s
}

// -------------------- Status --------------------

func (s *Server) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

// Watch polls probe every interval and publishes the result until ctx is
// done. Only transitions are logged.
func (s *Server) Watch(ctx context.Context, interval time.Duration, probe Probe) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := false
	for {
		ok := probe()
		if ok != last {
			log.Printf("[grpc] health serving=%v", ok)
			last = ok
		}
		s.SetServing(ok)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// -------------------- Lifecycle --------------------

func (s *Server) Serve(lis net.Listener) error {
	log.Printf("[grpc] health listening on %s", lis.Addr())
	return s.grpc.Serve(lis)
}

// Stop marks everything NOT_SERVING so watchers see the shutdown, then
// drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
