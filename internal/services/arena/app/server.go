// Package server wires the arena runtime: sqlite storage, the domain
// services, and the gRPC health lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Tejaspatil1175/codecore-backend/internal/platform/config"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/ledger"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/market"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/question"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/room"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/runner"
	arenasqlite "github.com/Tejaspatil1175/codecore-backend/internal/services/arena/storage/sqlite"
	"github.com/Tejaspatil1175/codecore-backend/internal/services/arena/unlockcode"
)

// healthServiceName is the per-service health check identifier.
const healthServiceName = "arena.v1.ArenaService"

type serverEnv struct {
	DBPath    string `env:"CODECORE_DB_PATH"`
	RunnerURL string `env:"CODECORE_RUNNER_URL"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "arena.db")
	}
	return cfg
}

// Services bundles the arena domain services built over one store.
type Services struct {
	Rooms       *room.Service
	Questions   *question.Service
	Ledger      *ledger.Service
	UnlockCodes *unlockcode.Service
	Market      *market.Service
}

// Server hosts the arena gRPC lifecycle and storage.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      *arenasqlite.Store
	services   Services
}

// New creates a configured arena server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured arena server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	env := loadServerEnv()
	store, err := openArenaStore(env.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	executor := runner.NewPistonClient(env.RunnerURL, nil)
	services := Services{
		Rooms:       room.NewService(store, nil, nil, nil),
		Questions:   question.NewService(store, store, executor, nil, nil, nil),
		Ledger:      ledger.NewService(store, nil, nil),
		UnlockCodes: unlockcode.NewService(store, store, nil, nil, nil),
		Market:      market.NewService(store, nil, nil),
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(healthServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
		services:   services,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Services exposes the wired domain services.
func (s *Server) Services() Services {
	if s == nil {
		return Services{}
	}
	return s.services
}

// Run creates and serves an arena server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// RunWithAddr creates and serves an arena server on an explicit address.
func RunWithAddr(ctx context.Context, addr string) error {
	server, err := NewWithAddr(addr)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the gRPC server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("arena server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// Close releases arena server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close arena store: %v", err)
		}
	}
}

func openArenaStore(path string) (*arenasqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := arenasqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open arena sqlite store: %w", err)
	}
	return store, nil
}
