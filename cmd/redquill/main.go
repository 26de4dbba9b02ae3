// Redquill Core - Writing Platform Backend
//
// This is the main entry point for the Redquill Core service. It wires
// together the configuration, database, session components, and HTTP API,
// then waits for a shutdown signal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/redquill/redquill-core/migrations"

	"github.com/redquill/redquill-core/internal/api"
	"github.com/redquill/redquill-core/internal/audit"
	"github.com/redquill/redquill-core/internal/auth"
	"github.com/redquill/redquill-core/internal/infrastructure/config"
	"github.com/redquill/redquill-core/internal/infrastructure/database"
	"github.com/redquill/redquill-core/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Redquill Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Session components. Repositories share the database handle; request
	// handlers re-scope them to transactions where writes span tables.
	users := auth.NewUserRepository(db.DB)
	devices := auth.NewDeviceRepository(db.DB)
	provisioner := auth.NewProvisioner(users)
	registry := auth.NewRegistry(devices, cfg.Auth.DefaultDeviceName, cfg.Auth.DefaultDeviceType)
	verifier := auth.NewVerifier(devices, cfg.Auth.LegacySharedSecret)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	if cfg.Auth.LegacySharedSecret != "" {
		log.Warn("legacy shared-secret verification enabled; disable once old tokens have expired")
	}

	// Start the HTTP API
	server, err := api.New(api.Deps{
		Config:      cfg,
		Logger:      log,
		DB:          db,
		Users:       users,
		Devices:     devices,
		Provisioner: provisioner,
		Registry:    registry,
		Verifier:    verifier,
		AuditRepo:   auditRepo,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
	)

	// Verify the service came up healthy
	if healthErr := healthCheck(ctx, db, server); healthErr != nil {
		return fmt.Errorf("health check failed: %w", healthErr)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (drains in-flight requests)
	// 2. Database

	log.Info("Redquill Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses REDQUILL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("REDQUILL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, server *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
