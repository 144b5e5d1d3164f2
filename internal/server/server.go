package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/elskow/authguard/internal/api"
	"github.com/elskow/authguard/internal/config"
)

const (
	defaultHealthInterval = 10 * time.Second
	healthCheckTimeout    = 3 * time.Second
)

// BackendPinger reports whether the lockout backend answers.
type BackendPinger interface {
	Backend() string
	Ping(ctx context.Context) error
}

// Server runs the HTTP auth API and a gRPC endpoint carrying the standard
// health service.
type Server struct {
	config     *config.AppConfig
	log        *zap.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	backend    BackendPinger

	stop chan struct{}
	wg   sync.WaitGroup
}

type Params struct {
	fx.In

	Config  *config.AppConfig
	Logger  *zap.Logger
	Router  http.Handler
	Backend BackendPinger
}

func NewServer(p Params) *Server {
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	if p.Config.GRPC.EnableReflection {
		reflection.Register(grpcServer)
	}

	return &Server{
		config: p.Config,
		log:    p.Logger,
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(p.Config.Server.Host, p.Config.Server.HTTPPort),
			Handler:           p.Router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		grpcServer: grpcServer,
		health:     healthServer,
		backend:    p.Backend,
		stop:       make(chan struct{}),
	}
}

// Start binds both listeners and serves in the background.
func (s *Server) Start() error {
	grpcAddr := net.JoinHostPort(s.config.Server.Host, s.config.Server.GRPCPort)
	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	httpLis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		grpcLis.Close()
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.log.Info("Starting servers",
		zap.String("http_address", s.httpServer.Addr),
		zap.String("grpc_address", grpcAddr),
		zap.Object("config", serverConfigToField(s.config, s.backend.Backend())),
	)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.checkBackend(context.Background())

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		if err := s.grpcServer.Serve(grpcLis); err != nil {
			s.log.Error("grpc server stopped", zap.Error(err))
		}
	}()
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", zap.Error(err))
		}
	}()
	go func() {
		defer s.wg.Done()
		s.monitorBackend()
	}()

	return nil
}

func (s *Server) monitorBackend() {
	interval := s.config.GRPC.HealthInterval
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.checkBackend(context.Background())
		}
	}
}

// checkBackend mirrors the backend ping into the health service. Logins keep
// working through the in-memory fallback, so only the backend service flips.
func (s *Server) checkBackend(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := s.backend.Ping(ctx); err != nil {
		s.log.Warn("lockout backend health check failed",
			zap.String("backend", s.backend.Backend()),
			zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(api.HealthService, status)
}

func serverConfigToField(config *config.AppConfig, backend string) zapcore.ObjectMarshaler {
	return zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		enc.AddString("environment", os.Getenv("APP_ENV"))
		enc.AddString("lockout_backend", backend)
		enc.AddInt("max_failed", config.Auth.MaxFailed)
		enc.AddDuration("lockout_duration", config.Auth.LockoutDuration)
		enc.AddBool("reflection_enabled", config.GRPC.EnableReflection)
		return nil
	})
}

func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("shutting down servers")
	close(s.stop)
	s.health.Shutdown()

	err := s.httpServer.Shutdown(ctx)
	s.grpcServer.GracefulStop()
	s.wg.Wait()
	return err
}
