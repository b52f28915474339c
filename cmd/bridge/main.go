// orderbridge - executes partner directive batches against a WooCommerce storefront.
// Designed for Cloud Run deployment with stateless operation.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderbridge/internal/config"
	"orderbridge/internal/directive"
	"orderbridge/internal/handler"
	"orderbridge/internal/importer"
	"orderbridge/internal/metrics"
	"orderbridge/internal/middleware"
	"orderbridge/internal/quote"
	"orderbridge/internal/remote"
	"orderbridge/internal/storefront"
	"orderbridge/internal/taxcache"
	"orderbridge/internal/token"
	"orderbridge/internal/woocommerce"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize structured logger
	logger := initLogger()

	// Load configuration
	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("integration_id", cfg.Credentials.IntegrationID),
		slog.String("storefront", cfg.Storefront),
		slog.String("environment", cfg.Environment),
		slog.String("store_domain", cfg.StoreDomain()),
		slog.String("route", cfg.DirectivePath()),
	)

	httpHandler, cleanup, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel for server errors
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give outstanding batches time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// buildApp wires every component and returns the root HTTP handler.
// cleanup releases the tax cache connection.
func buildApp(cfg *config.Config, logger *slog.Logger) (http.Handler, func(), error) {
	metrics.Register()
	tokens := token.New()

	store, err := createStorefront(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating storefront: %w", err)
	}

	taxes, cleanup, err := createTaxCache(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating tax cache: %w", err)
	}

	// Without credentials the directive route answers Error-203.
	var api remote.API
	if err := cfg.Credentials.Validate(); err != nil {
		logger.Warn("integration credentials incomplete, directive route disabled", slog.String("error", err.Error()))
	} else {
		client, err := remote.New(remote.Config{
			Credentials: cfg.Credentials,
			Tokens:      tokens,
			TokenTTL:    cfg.TokenTTL,
			RateLimit:   cfg.PartnerRateLimit,
			RateBurst:   cfg.PartnerRateBurst,
			Logger:      logger,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("creating remote client: %w", err)
		}
		api = client
	}

	registry, err := directive.NewDefaultRegistry(directive.Deps{
		Remote:   api,
		Store:    store,
		Quotes:   quote.NewBuilder(api, store, taxes, logger),
		Importer: importer.New(store, logger),
		Logger:   logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("building directive registry: %w", err)
	}

	h := handler.New(handler.Options{
		Dispatcher:       directive.NewDispatcher(registry, logger),
		Tokens:           tokens,
		Credentials:      cfg.Credentials,
		Namespace:        cfg.RouteNamespace,
		TokenTTL:         cfg.TokenTTL,
		ExposeTokenRoute: cfg.Environment != "production",
		Logger:           logger,
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Recovery must be outermost to catch panics from the other middleware.
	// Metrics wraps the mux directly so it sees the matched route pattern.
	return middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.Metrics(),
	)(mux), cleanup, nil
}

// createStorefront creates the storefront binding selected by configuration.
func createStorefront(cfg *config.Config) (storefront.Storefront, error) {
	switch cfg.Storefront {
	case config.StorefrontWooCommerce:
		client, err := woocommerce.New(woocommerce.Config{
			StoreURL:      cfg.Store.StoreURL,
			APIKey:        cfg.Store.APIKey,
			APISecret:     cfg.Store.APISecret,
			BatchStrategy: woocommerce.BatchStrategy(cfg.Store.BatchStrategy),
			Fingerprint:   cfg.Store.Fingerprint,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.StorefrontMemory:
		return storefront.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported storefront: %s", cfg.Storefront)
	}
}

// createTaxCache uses Redis when configured, otherwise an in-process cache.
func createTaxCache(cfg *config.Config) (taxcache.Cache, func(), error) {
	if cfg.RedisURL == "" {
		return taxcache.NewMemory(taxcache.DefaultTTL), func() {}, nil
	}
	cache, err := taxcache.NewRedis(cfg.RedisURL, taxcache.DefaultTTL)
	if err != nil {
		return nil, nil, err
	}
	return cache, func() { cache.Close() }, nil
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	// JSON for production (Cloud Logging compatible), text for development
	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
