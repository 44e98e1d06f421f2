package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quantumlab/labtrack/internal/bootstrap"
	"github.com/quantumlab/labtrack/internal/config"
	"github.com/quantumlab/labtrack/internal/pkg/taskqueue"
)

// Server holds the state for the HTTP server.
type Server struct {
	config *config.Config
	router *gin.Engine
	deps   *bootstrap.Dependencies
	dbPool *pgxpool.Pool
	redis  *redis.Client
	tasks  *taskqueue.Queue
	logger zerolog.Logger
	http   *http.Server
}

// NewServer creates and initializes a new server instance by calling bootstrap functions.
func NewServer(ctx context.Context, configPath string) (*Server, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config or setup logger: %w", err)
	}

	dbPool, err := bootstrap.SetupDatabase(ctx, cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	redisClient, err := bootstrap.NewRedisClient(ctx, cfg, lgr)
	if err != nil {
		dbPool.Close()
		return nil, err
	}

	tasks := bootstrap.NewTaskQueue(cfg, lgr)

	deps, err := bootstrap.BuildDependencies(cfg, bootstrap.PostgresStores(dbPool), tasks, redisClient, lgr)
	if err != nil {
		tasks.Close(ctx)
		if redisClient != nil {
			redisClient.Close()
		}
		dbPool.Close()
		return nil, fmt.Errorf("failed to setup dependencies: %w", err)
	}

	return &Server{
		config: cfg,
		router: bootstrap.SetupRouter(cfg, deps, lgr),
		deps:   deps,
		dbPool: dbPool,
		redis:  redisClient,
		tasks:  tasks,
		logger: lgr,
	}, nil
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM or ctx cancellation.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	realtimeCtx, stopRealtime := context.WithCancel(context.Background())
	defer stopRealtime()
	go s.deps.Hub.Run(realtimeCtx)
	go s.deps.Broadcaster.Listen(realtimeCtx)

	s.http = &http.Server{
		Addr:              ":" + s.config.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// uploads of up to max_upload_mb need more than the usual write budget
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
		serverErrors <- s.http.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			s.closeResources(context.Background())
			return fmt.Errorf("error starting server: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info().Msg("Shutdown requested")
	}

	return s.Shutdown(context.Background(), stopRealtime)
}

// Shutdown stops accepting requests, drains background tasks and closes resources.
func (s *Server) Shutdown(ctx context.Context, stopRealtime context.CancelFunc) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var shutdownErr error
	if s.http != nil {
		s.logger.Info().Msg("Shutting down HTTP server...")
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error().Err(err).Msg("HTTP server shutdown error")
			shutdownErr = errors.Join(shutdownErr, err)
		}
	}

	if stopRealtime != nil {
		stopRealtime()
	}
	if err := s.closeResources(ctx); err != nil {
		shutdownErr = errors.Join(shutdownErr, err)
	}

	s.logger.Info().Msg("Server shutdown process complete.")
	return shutdownErr
}

func (s *Server) closeResources(ctx context.Context) error {
	var err error
	if s.tasks != nil {
		if closeErr := s.tasks.Close(ctx); closeErr != nil {
			s.logger.Error().Err(closeErr).Msg("Background tasks did not drain in time")
			err = errors.Join(err, closeErr)
		}
	}
	if s.redis != nil {
		if closeErr := s.redis.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}
	if s.dbPool != nil {
		s.logger.Info().Msg("Closing database connection pool...")
		s.dbPool.Close()
	}
	return err
}
