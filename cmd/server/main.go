/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the checkout engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse flags (each with an environment fallback)
  2. Build the zap logger
  3. Initialize SQLite store (runs migrations)
  4. Build pricing calculator, metrics, and checkout engine
  5. Optionally seed a demo scenario
  6. Start the idle cart sweeper
  7. Configure HTTP router and start serving

FLAGS / ENVIRONMENT:
  -port      CHECKOUT_PORT      HTTP server port (default: 8080)
  -db        CHECKOUT_DB        SQLite database path (default: checkout.db)
                                Use ":memory:" for in-memory database
  -tax-rate  CHECKOUT_TAX_RATE  Sales tax rate (default: 0.08)
  -dev       CHECKOUT_LOG_DEV   Development logging (default: false)
  -seed      CHECKOUT_SEED      Scenario to load at startup (default: none)
  -cart-ttl  CHECKOUT_CART_TTL  Idle cart lifetime (default: 30m, 0 disables)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the cart sweeper
  4. Close database connection

EXAMPLES:
  ./server -db=":memory:" -seed=grocery -dev
  CHECKOUT_TAX_RATE=0.2 ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - checkout/engine.go: Checkout engine
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/checkout-engine/api"
	"github.com/warp/checkout-engine/checkout"
	"github.com/warp/checkout-engine/pricing"
	"github.com/warp/checkout-engine/store/sqlite"
)

func main() {
	cfg, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg config, logger *zap.Logger) error {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	calc, err := pricing.NewCalculator(cfg.TaxRate)
	if err != nil {
		return fmt.Errorf("pricing: %w", err)
	}

	metrics := api.NewMetrics()
	engine := checkout.NewEngine(store,
		checkout.WithLogger(logger),
		checkout.WithCalculator(calc),
		checkout.WithObserver(metrics),
	)

	handler := api.NewHandler(store, engine, logger)
	metrics.Register(handler.Carts.Collector())

	if cfg.Seed != "" {
		if err := api.LoadScenarioData(context.Background(), store, engine, cfg.Seed); err != nil {
			return fmt.Errorf("seed scenario %q: %w", cfg.Seed, err)
		}
		logger.Info("scenario loaded", zap.String("scenario", cfg.Seed))
	}

	sweeper := api.NewCartSweeper(handler.Carts, logger)
	sweeper.TTL = cfg.CartTTL
	sweeper.Enabled = cfg.CartTTL > 0
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler, metrics),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("db", cfg.DBPath),
			zap.String("tax_rate", cfg.TaxRate.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-serveErr:
		if ok {
			return err
		}
		return nil
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
