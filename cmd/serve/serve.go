// Package serve implements the HTTP API server command.
package serve

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	api "github.com/aquasentinel/aquasentinel/internal/api/v2"
	"github.com/aquasentinel/aquasentinel/internal/classifier"
	"github.com/aquasentinel/aquasentinel/internal/conf"
	"github.com/aquasentinel/aquasentinel/internal/datastore"
	"github.com/aquasentinel/aquasentinel/internal/fusion"
	"github.com/aquasentinel/aquasentinel/internal/geo"
	"github.com/aquasentinel/aquasentinel/internal/identity"
	"github.com/aquasentinel/aquasentinel/internal/logging"
	"github.com/aquasentinel/aquasentinel/internal/observability"
	"github.com/aquasentinel/aquasentinel/internal/outbreak"
)

const shutdownTimeout = 10 * time.Second

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the surveillance API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings)
		},
	}

	cmd.Flags().StringVar(&settings.WebServer.Port, "port", settings.WebServer.Port, "Port for the API server")

	return cmd
}

func run(settings *conf.Settings) error {
	logger := logging.ForService("serve")

	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer closeStore(store)

	cls, err := classifier.New(settings)
	if err != nil {
		return fmt.Errorf("failed to initialize classifier: %w", err)
	}
	pool := classifier.NewPool(cls, settings.Classifier.Workers,
		time.Duration(settings.Classifier.Timeout)*time.Second)

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	pipeline := fusion.New(store, pool, identity.NewResolver(store), metrics)
	defer pipeline.Drain()

	aggregator := outbreak.New(store, geo.NewRegistry(), &settings.Outbreak, metrics)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	if settings.WebServer.Debug {
		e.Use(middleware.Logger())
	}

	api.New(e, store, settings, pipeline, aggregator, log.Default(), metrics)

	errChan := make(chan error, 1)
	go func() {
		addr := ":" + settings.WebServer.Port
		logger.Info("starting API server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func closeStore(store datastore.Interface) {
	if err := store.Close(); err != nil {
		logging.Error("failed to close datastore", "error", err)
	}
}
