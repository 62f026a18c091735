/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the voyage report ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, .env/environment, flags)
  2. Build the structured logger
  3. Open the SQLite store and apply migrations
  4. Optionally seed a demo scenario into an empty database
  5. Start the overdue review scheduler
  6. Configure HTTP router and start serving

COMMAND-LINE FLAGS:
  -port        HTTP server port (default: 8080)
  -db          SQLite database path (default: voyage.db)
               Use ":memory:" for in-memory database
  -log-level   debug|info|warn|error (default: info)
  -log-format  json|text (default: json)
  -origins     Comma-separated CORS origins
  -seed        Demo scenario to load when the database is empty
  -review-interval  Overdue review scan interval (default: 15m, 0 disables)
  -review-max-age   Pending age that counts as overdue (default: 24h)

ENVIRONMENT:
  VOYAGE_PORT, VOYAGE_DB_PATH, VOYAGE_LOG_LEVEL, VOYAGE_LOG_FORMAT,
  VOYAGE_ALLOWED_ORIGINS, VOYAGE_SEED_SCENARIO, VOYAGE_REVIEW_INTERVAL,
  VOYAGE_REVIEW_MAX_AGE; also read from the file
  named by VOYAGE_ENV_FILE (default .env). Flags win over environment.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the review scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  ./server -db="./data/voyage.db"
  ./server -db=":memory:" -seed=mid-passage -log-format=text

SEE ALSO:
  - config/config.go: Configuration sources
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/voyage-ledger/api"
	"github.com/warp/voyage-ledger/config"
	"github.com/warp/voyage-ledger/logging"
	"github.com/warp/voyage-ledger/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	store, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, logger)
	handler.ReviewMaxAge = cfg.ReviewMaxAge

	if cfg.SeedScenario != "" {
		vessels, err := store.ListVessels(ctx)
		if err != nil {
			return fmt.Errorf("failed to check for existing data: %w", err)
		}
		if len(vessels) == 0 {
			if err := handler.Seed(ctx, cfg.SeedScenario); err != nil {
				return err
			}
		} else {
			logger.Info(ctx, "database not empty; skipping seed", "scenario", cfg.SeedScenario)
		}
	}

	scheduler := api.NewReviewScheduler(handler.Reports, logger)
	scheduler.CheckInterval = cfg.ReviewInterval
	scheduler.MaxAge = cfg.ReviewMaxAge
	handler.Scheduler = scheduler
	scheduler.Start(ctx)
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler, cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server starting", "addr", server.Addr, "db", cfg.DBPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info(context.Background(), "server stopped")
	return nil
}
