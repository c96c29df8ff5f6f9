package grpcserver

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"secureNotes/internal/config"
	"secureNotes/internal/db"
)

// StoreService is the health service name that tracks the database.
// The empty name ("") reports the same status for the server as a whole.
const StoreService = "secureNotes.store"

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// Server exposes the standard gRPC health service, backed by periodic database pings.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	db       *db.DB
	interval time.Duration
	log      logrus.FieldLogger

	stopOnce sync.Once
	stop     chan struct{}
}

// NewServer builds a Server that probes d every interval.
func NewServer(d *db.DB, interval time.Duration, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	s := &Server{
		grpc:     grpc.NewServer(grpc.UnaryInterceptor(NewUnaryLoggingInterceptor(log, healthCheckMethod))),
		health:   health.NewServer(),
		db:       d,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	return s
}

// Serve probes the database once, starts the probe loop and serves on lis until Shutdown.
func (s *Server) Serve(lis net.Listener) error {
	s.probe()
	go s.probeLoop()
	return s.grpc.Serve(lis)
}

func (s *Server) probeLoop() {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.probe()
		}
	}
}

func (s *Server) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.db.Health(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		s.log.WithError(err).Warn("database health check failed")
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(StoreService, status)
}

// Shutdown marks every service NOT_SERVING and stops the server gracefully,
// falling back to a hard stop when ctx ends first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.health.Shutdown()
	done := make(chan struct{})
	go func() { s.grpc.GracefulStop(); close(done) }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.grpc.Stop()
		return ctx.Err()
	}
}

// StartGRPC starts the health server on the configured address and returns a shutdown function.
func StartGRPC(cfg *config.Config, d *db.DB, log logrus.FieldLogger) (func(context.Context) error, error) {
	if cfg == nil {
		panic("config is required")
	}

	addr := cfg.GRPC.Address
	if addr == "" {
		addr = ":50051"
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := NewServer(d, cfg.GRPC.HealthInterval, log)
	go func() {
		if err := s.Serve(lis); err != nil {
			s.log.WithError(err).Error("grpc serve")
		}
	}()

	return s.Shutdown, nil
}
