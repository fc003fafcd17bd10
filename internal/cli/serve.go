package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowgraph/chatflow/internal/app/services"
	"github.com/flowgraph/chatflow/internal/interfaces/http/rest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the flow editor API",
		Long: `Serve the flow editor JSON API.

The archived history of the configured flow is restored on start and every
saved version is written through to the archive backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(rootOpts, cmd)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := cfg.OpenArchive(ctx)
	if err != nil {
		return fmt.Errorf("failed to open %s archive: %w", cfg.Storage.Backend, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("Failed to close archive", zap.Error(err))
		}
	}()

	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	archive := services.NewVersionArchive(backend, cfg.Storage.Backend, logger)
	if _, err := archive.Restore(ctx, store); err != nil {
		return err
	}

	router := rest.NewRouter(store, logger,
		rest.WithArchive(archive),
		rest.WithAllowedOrigins(cfg.Server.AllowedOrigins))

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
	}
	srv := &http.Server{
		Handler:           router.Setup(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting chatflow server",
			zap.String("addr", ln.Addr().String()),
			zap.String("flow_id", store.FlowID()),
			zap.String("backend", cfg.Storage.Backend))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down chatflow server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
