package api

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/banshee-data/eim/internal/monitoring"
	"github.com/banshee-data/eim/internal/timeutil"
)

// HealthService is the service name reported alongside the overall ("")
// status.
const HealthService = "eim"

var healthLogf = monitoring.Component("health")

// Pinger reports whether a dependency is reachable. *db.DB implements it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health publishes the standard gRPC health service, backed by periodic
// pings of the experiment store.
type Health struct {
	server *grpc.Server
	status *health.Server
	pinger Pinger
	clock  timeutil.Clock
}

func NewHealth(p Pinger, clock timeutil.Clock) *Health {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	h := &Health{
		server: grpc.NewServer(),
		status: health.NewServer(),
		pinger: p,
		clock:  clock,
	}
	healthpb.RegisterHealthServer(h.server, h.status)
	return h
}

// Check pings the store once and updates the published status.
func (h *Health) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.pinger.PingContext(ctx); err != nil {
		healthLogf("store ping failed: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.status.SetServingStatus("", status)
	h.status.SetServingStatus(HealthService, status)
	return status
}

// Serve answers health RPCs on lis and re-checks the store every interval
// until ctx ends.
func (h *Health) Serve(ctx context.Context, lis net.Listener, interval time.Duration) error {
	h.Check(ctx)

	errc := make(chan error, 1)
	go func() {
		healthLogf("gRPC health listening on %s", lis.Addr())
		errc <- h.server.Serve(lis)
	}()

	ticker := h.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.status.Shutdown()
			h.server.GracefulStop()
			return nil
		case err := <-errc:
			return fmt.Errorf("health server stopped: %w", err)
		case <-ticker.C():
			h.Check(ctx)
		}
	}
}
