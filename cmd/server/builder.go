package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/favorize-app/multi-auth-sub004/config"
	"github.com/favorize-app/multi-auth-sub004/internal/application"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/biometric"
	"github.com/favorize-app/multi-auth-sub004/internal/infrastructure/persistence/postgres"
	"github.com/favorize-app/multi-auth-sub004/internal/infrastructure/storage"
	apphttp "github.com/favorize-app/multi-auth-sub004/internal/interfaces/http"
	"github.com/favorize-app/multi-auth-sub004/internal/interfaces/http/handlers"
	"github.com/favorize-app/multi-auth-sub004/internal/metrics"
	"github.com/favorize-app/multi-auth-sub004/pkg/logger"
)

func run() error {
	ctx := context.Background()

	cfg := config.Load()

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Environment: cfg.Logging.Environment,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("Starting authentication core...",
		logger.Component("main"),
	)

	db, store, err := initInfrastructure(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	registry := prometheus.NewRegistry()
	collector := metrics.NewPrometheusCollector(registry)

	deps := application.NewDependencies(cfg)
	svcs := application.NewServices(cfg, deps, &application.Collaborators{
		Users:     postgres.NewUserRepository(db),
		Store:     store,
		Biometric: biometric.Unavailable{},
		Metrics:   collector,
	}, log)
	defer svcs.Close()

	svcs.Anonymous.StartSweeper(ctx, time.Minute)
	log.Info("Anonymous session sweeper started", logger.Component("main"))

	server := newServer(cfg, svcs, deps, db, store, registry, log)
	return startServer(server, log)
}

func initInfrastructure(ctx context.Context, cfg *config.Config, log logger.Logger) (*postgres.DB, *storage.Redis, error) {
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Connected to PostgreSQL",
		logger.Component("infrastructure"),
		logger.String("host", cfg.Database.Host),
		logger.Int("port", cfg.Database.Port),
	)

	store, err := storage.NewRedis(ctx, &cfg.Redis)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("Connected to Redis",
		logger.Component("infrastructure"),
		logger.String("host", cfg.Redis.Host),
		logger.Int("port", cfg.Redis.Port),
	)

	return db, store, nil
}

func newServer(
	cfg *config.Config,
	svcs *application.Services,
	deps *application.Dependencies,
	db *postgres.DB,
	store *storage.Redis,
	registry *prometheus.Registry,
	log logger.Logger,
) *http.Server {
	routerDeps := &apphttp.RouterDeps{
		Services:   svcs,
		JWTManager: deps.JWTManager,
		HealthChecks: map[string]handlers.HealthChecker{
			"database": db,
			"redis":    store,
		},
		Registry: registry,
		Logger:   log,
	}

	router := apphttp.NewRouter(cfg, routerDeps)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func startServer(server *http.Server, log logger.Logger) error {
	errChan := make(chan error, 1)
	go func() {
		log.Info("Server listening",
			logger.Component("server"),
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("Shutting down server...",
			logger.Component("server"),
			logger.String("signal", sig.String()),
		)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited", logger.Component("server"))
	return nil
}
