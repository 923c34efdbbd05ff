/*
main.go - Application entry point

PURPOSE:
  Starts the customer tracking server. Handles configuration, dependency
  injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load config (flags > TRACKER_* env > tracker.yaml > defaults)
  2. Build the zap logger
  3. Open the table backend (sheets or sqlite) and the cache (memory or redis)
  4. Create the tracking service, session gate and API handler
  5. Start server with graceful shutdown

COMMANDS:
  tracker            Run the HTTP server (default)
  tracker seed       Load a seed scenario into the configured backend

COMMON FLAGS:
  --config       Config file (default: ./tracker.yaml if present)
  --port         HTTP server port (default: 8080)
  --backend      sheets | sqlite (default: sqlite)
  --db           SQLite database path (default: ./tracker.db)
                 Use ":memory:" for an in-memory database
  --cache        memory | redis (default: memory)
  --cache-ttl    Snapshot cache TTL, 0 disables caching (default: 30s)
  --log-level    debug | info (default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the backend and cache connections
  4. Exit

EXAMPLES:
  # Local development on SQLite with demo data
  TRACKER_SESSION_SECRET=dev ./tracker seed --scenario demo --admin-password pw
  TRACKER_SESSION_SECRET=dev ./tracker

  # Production on Google Sheets with a shared cache
  TRACKER_BACKEND=sheets TRACKER_SPREADSHEET_ID=... \
  TRACKER_CREDENTIALS="$(cat sa.json)" TRACKER_CACHE=redis \
  TRACKER_REDIS_ADDR=redis:6379 ./tracker

SEE ALSO:
  - backends.go: Backend and cache selection
  - seed.go: Seed command
  - api/server.go: Router configuration
  - config/config.go: Settings
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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Mgdadali/249-subsite/api"
	"github.com/Mgdadali/249-subsite/config"
	"github.com/Mgdadali/249-subsite/tracking"
)

var (
	// configFile is set by the --config flag.
	configFile string

	cfg    config.Config
	logger *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Customer tracking server",
	Long: `Serves the public tracking lookup and the admin panel. Clients,
steps and checklists live in a Google spreadsheet or a local SQLite file.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: serve,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default: ./tracker.yaml)")
	flags.String("port", "", "HTTP server port")
	flags.String("backend", "", "table backend: sheets | sqlite")
	flags.String("db", "", "SQLite database path")
	flags.String("spreadsheet-id", "", "Google spreadsheet ID")
	flags.String("credentials-file", "", "service account JSON file")
	flags.String("cache", "", "cache backend: memory | redis")
	flags.Duration("cache-ttl", 0, "snapshot cache TTL (0 disables caching)")
	flags.String("redis-addr", "", "Redis address for the redis cache")
	flags.String("log-level", "", "log level: debug | info")

	rootCmd.AddCommand(seedCmd)
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"port":             config.KeyPort,
	"backend":          config.KeyBackend,
	"db":               config.KeyDB,
	"spreadsheet-id":   config.KeySpreadsheetID,
	"credentials-file": config.KeyCredentialsFile,
	"cache":            config.KeyCache,
	"cache-ttl":        config.KeyCacheTTL,
	"redis-addr":       config.KeyRedisAddr,
	"log-level":        config.KeyLogLevel,
}

// setup loads config and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	v := config.New(configFile)
	if err := bindFlags(v, cmd); err != nil {
		return err
	}
	var err error
	cfg, err = config.Load(v)
	if err != nil {
		return err
	}

	zc := zap.NewProductionConfig()
	if cfg.LogLevel == "debug" {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err = zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// bindFlags binds only flags the user set, so unset flags fall through to
// the environment and config file.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.PersistentFlags().Lookup(name)
		}
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// =============================================================================
// SERVE
// =============================================================================

func serve(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()

	tables, closeTables, err := openTables(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeTables()

	cache, closeCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	svc := tracking.NewService(tables, cache, logger.Named("tracking"))
	sessions := api.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	handler := api.NewHandler(svc, sessions, logger.Named("http"))
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("backend", cfg.Backend),
			zap.String("cache", cfg.Cache),
			zap.Duration("cache_ttl", cfg.CacheTTL),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
