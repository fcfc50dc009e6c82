// Package main provides the main entry point for the accounts API server
// @title Accounts API
// @version 1.0
// @description User registration, login and role-gated account management.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/avast/retry-go"

	"github.com/memtensor/accounts/api"
	"github.com/memtensor/accounts/pkg/config"
	"github.com/memtensor/accounts/pkg/events"
	"github.com/memtensor/accounts/pkg/interfaces"
	"github.com/memtensor/accounts/pkg/logger"
	"github.com/memtensor/accounts/pkg/metrics"
	"github.com/memtensor/accounts/pkg/ratelimit"
	"github.com/memtensor/accounts/pkg/users"
)

// Version information (set by build process)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Command line flags
var (
	configFile  = flag.String("config", "", "Path to configuration file (YAML)")
	logLevel    = flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("accounts %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func run(ctx context.Context) error {
	loader := config.NewLoader(*configFile)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	zl, err := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	zl.Info("Starting accounts service", map[string]interface{}{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
		"config":     *configFile,
	})

	repo, err := openRepository(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			zl.Error("Failed to close user store", closeErr)
		}
	}()

	collector := metrics.NewCollector()
	var managerMetrics interfaces.Metrics = metrics.NewNoOpMetrics()
	if cfg.MetricsEnabled {
		managerMetrics = collector
	}

	publisher, err := initializeEvents(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			zl.Warn("Failed to close event publisher", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	tokens := users.NewJWTTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer, repo)
	manager := users.NewManager(repo, users.NewBcryptHasher(cfg.Auth.BcryptCost), tokens,
		users.WithLogger(zl),
		users.WithMetrics(managerMetrics),
		users.WithEvents(publisher),
	)

	if cfg.Bootstrap.Enabled {
		if _, err := manager.EnsureSuperAdmin(ctx, cfg.BootstrapPayload()); err != nil {
			return fmt.Errorf("failed to bootstrap super admin: %w", err)
		}
	}

	opts := []api.Option{}
	if cfg.MetricsEnabled {
		opts = append(opts, api.WithMetrics(collector))
	}
	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.NewRedisLimiter(ctx, ratelimit.Config{
			Addr:      cfg.RateLimit.RedisAddr,
			Password:  cfg.RateLimit.RedisPassword,
			DB:        cfg.RateLimit.RedisDB,
			Requests:  cfg.RateLimit.Requests,
			Window:    cfg.RateLimit.Window,
			KeyPrefix: cfg.RateLimit.KeyPrefix,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize rate limiter: %w", err)
		}
		defer func() { _ = limiter.Close() }()
		opts = append(opts, api.WithRateLimiter(limiter))
	}

	if *configFile != "" {
		watchConfig(loader, zl)
	}

	api.Version = Version
	server := api.NewServer(manager, cfg, zl, opts...)
	return server.Start(ctx)
}

// openRepository opens the user store, retrying while the database is unavailable
func openRepository(ctx context.Context, cfg *config.Config, log interfaces.Logger) (*users.Repository, error) {
	var repo *users.Repository
	err := retry.Do(
		func() error {
			r, err := users.NewRepository(cfg.UsersConfig())
			if err != nil {
				return err
			}
			repo = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(cfg.Database.ConnectAttempts),
		retry.Delay(cfg.Database.ConnectDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("User store not ready, retrying", map[string]interface{}{
				"attempt": n + 1,
				"path":    cfg.Database.Path,
				"error":   err.Error(),
			})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open user store: %w", err)
	}
	return repo, nil
}

func initializeEvents(ctx context.Context, cfg *config.Config, log interfaces.Logger) (interfaces.EventPublisher, error) {
	if !cfg.Events.Enabled {
		return events.NewNoOpPublisher(), nil
	}

	natsConfig := events.DefaultNATSConfig()
	natsConfig.URLs = []string{cfg.Events.NATSURL}
	natsConfig.SubjectPrefix = cfg.Events.SubjectPrefix
	if cfg.Events.ConnectTimeout > 0 {
		natsConfig.ConnectTimeout = cfg.Events.ConnectTimeout
	}

	publisher, err := events.ConnectNATS(ctx, natsConfig, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event publisher: %w", err)
	}
	return publisher, nil
}

// watchConfig applies log level edits live; other changes need a restart
func watchConfig(loader *config.Loader, zl *logger.ZapLogger) {
	err := loader.Watch(
		func(prev, next *config.Config) {
			if prev == nil || prev.Log.Level != next.Log.Level {
				if err := zl.SetLevel(next.Log.Level); err != nil {
					zl.Warn("Ignoring log level change", map[string]interface{}{"error": err.Error()})
					return
				}
				zl.Info("Log level changed", map[string]interface{}{"level": next.Log.Level})
			}
			zl.Info("Configuration reloaded; settings other than the log level apply after restart")
		},
		func(err error) {
			zl.Warn("Ignoring invalid configuration change", map[string]interface{}{"error": err.Error()})
		},
	)
	if err != nil {
		zl.Warn("Configuration watch disabled", map[string]interface{}{"error": err.Error()})
	}
}
