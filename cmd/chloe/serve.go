package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/chloe/internal/config"
	"github.com/aescanero/chloe/pkg/api/grpc"
	"github.com/aescanero/chloe/pkg/api/http"
	"github.com/aescanero/chloe/pkg/api/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, WebSocket and gRPC servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting Chloe",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	httpServer := http.NewServer(&http.Config{
		Port:         cfg.HTTPPort,
		APIKey:       cfg.APIKey,
		CORSOrigins:  cfg.CORSOrigins,
		Orchestrator: a.manager,
		Health:       a.pool.Health(),
		Gatherer:     a.registry,
		Logger:       logger.Named("http"),
	})
	httpServer.SetupWebSocket(cfg.APIKey,
		websocket.NewHandler(a.manager, a.eventBus, cfg.CORSOrigins, logger.Named("websocket")))

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:          cfg.GRPCPort,
		Health:        a.pool.Health(),
		CheckInterval: cfg.Workers.HealthCheckInterval,
		Logger:        logger.Named("grpc"),
	})
	if err != nil {
		_ = a.close(context.Background())
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}

	serverErr := make(chan error, 2)
	go func() { serverErr <- httpServer.Start() }()
	go func() { serverErr <- grpcServer.Start() }()

	logger.Info("Chloe started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize))

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-sigCtx.Done():
		logger.Info("received shutdown signal")
	case runErr = <-serverErr:
		logger.Error("server failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}
	if err := a.close(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("Chloe shut down complete")
	return runErr
}
