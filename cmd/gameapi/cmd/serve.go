package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leoska/gameapi/internal/handler"
	"github.com/leoska/gameapi/internal/methods"
	"github.com/leoska/gameapi/internal/server"
	"github.com/leoska/gameapi/pkg/config"
	"github.com/leoska/gameapi/pkg/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		logger, err := logging.NewLogger(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		logger.Info("Starting gameapi server",
			zap.String("version", version),
			zap.String("build_time", buildTime),
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := serve(ctx, cfg, methods.Table(), logger); err != nil {
			logger.Error("Server exited with error", zap.Error(err))
			return err
		}
		logger.Info("Server exited")
		return nil
	},
}

// buildRegistry registers table and seals the registry.
func buildRegistry(table []handler.Descriptor) (*handler.Registry, error) {
	reg := handler.NewRegistry()
	if err := reg.RegisterAll(table); err != nil {
		return nil, err
	}
	reg.Seal()
	return reg, nil
}

// serve runs the server until ctx is cancelled, then stops it within the
// configured shutdown timeout. A failed or late stop is an error.
func serve(ctx context.Context, cfg *config.Config, table []handler.Descriptor, logger *zap.Logger) error {
	srv, err := newServer(cfg, table, logger)
	if err != nil {
		return err
	}
	return runServer(ctx, srv, cfg, logger)
}

func newServer(cfg *config.Config, table []handler.Descriptor, logger *zap.Logger) (*server.Server, error) {
	reg, err := buildRegistry(table)
	if err != nil {
		return nil, err
	}

	srv, err := server.New(cfg, reg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build server: %w", err)
	}
	return srv, nil
}

func runServer(ctx context.Context, srv *server.Server, cfg *config.Config, logger *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			logger.Info("Received shutdown signal")
		}

		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Stop(stopCtx)
	})
	return g.Wait()
}
