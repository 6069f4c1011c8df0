package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/giygas/meditrust-api/handlers"
	"github.com/giygas/meditrust-api/health"
	"github.com/giygas/meditrust-api/logging"
	"github.com/giygas/meditrust-api/scheduler"
	"github.com/giygas/meditrust-api/server"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API. The catalogs are loaded once at startup, then refreshed
at CATALOG_REFRESH_TIMES. The server stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			logging.Warn("Failed to close catalog store", "error", err)
		}
	}()

	p.container.SetServerStartTime(time.Now())

	// The snapshot backs /health and the data quality report even when
	// resolutions read the store directly
	refresher := scheduler.NewScheduler(p.container, p.source, p.validator, cfg.CatalogRefreshTimes)
	if err := refresher.Start(); err != nil {
		return err
	}
	defer refresher.Stop()

	handler := handlers.NewHTTPHandler(handlers.Dependencies{
		Catalog:       p.catalog,
		Resolver:      p.resolver,
		Identifier:    p.identifier,
		Validator:     p.validator,
		HealthChecker: health.NewHealthChecker(p.container, cfg.CatalogRefreshTimes),
		UploadDir:     cfg.UploadDir,
		MaxUploadSize: cfg.MaxUploadSize,
	})
	srv := server.NewServer(cfg, handler)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logging.Info("Server shutdown complete")
	return nil
}
