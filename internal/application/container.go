package application

import (
	"github.com/favorize-app/multi-auth-sub004/config"
	"github.com/favorize-app/multi-auth-sub004/internal/application/services"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/biometric"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/notification"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/oauth"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/user"
	"github.com/favorize-app/multi-auth-sub004/internal/eventbus"
	"github.com/favorize-app/multi-auth-sub004/internal/infrastructure/crypto"
	"github.com/favorize-app/multi-auth-sub004/internal/infrastructure/storage"
	"github.com/favorize-app/multi-auth-sub004/internal/metrics"
	"github.com/favorize-app/multi-auth-sub004/pkg/jwt"
	"github.com/favorize-app/multi-auth-sub004/pkg/logger"
)

// Services holds all application services.
type Services struct {
	Engine    *services.AuthEngine
	Sessions  *services.SessionManager
	Scheduler *services.RefreshScheduler
	Anonymous *services.AnonymousService
	Bus       *eventbus.Bus
}

// Dependencies holds shared dependencies for services.
type Dependencies struct {
	Hasher     *crypto.Argon2Hasher
	TokenGen   *crypto.TokenGenerator
	JWTManager *jwt.Manager
}

// Collaborators are the injected platform and provider implementations.
type Collaborators struct {
	Users     user.Repository
	Store     storage.SecureStorage
	Providers map[string]oauth.Client
	Notifier  notification.Provider
	Biometric biometric.Authenticator
	Metrics   metrics.Collector
}

// NewDependencies creates shared dependencies from config.
func NewDependencies(cfg *config.Config) *Dependencies {
	return &Dependencies{
		Hasher: crypto.NewArgon2Hasher(
			cfg.Auth.Argon2Memory,
			cfg.Auth.Argon2Iterations,
			cfg.Auth.Argon2Parallelism,
			cfg.Auth.Argon2SaltLength,
			cfg.Auth.Argon2KeyLength,
		),
		TokenGen:   crypto.NewTokenGenerator(),
		JWTManager: jwt.NewManager(cfg.Auth.Issuer, cfg.Auth.SigningSecret),
	}
}

// NewServices wires all application services over the shared event bus.
// The engine doubles as the token refresher for the scheduler.
func NewServices(cfg *config.Config, deps *Dependencies, collab *Collaborators, log logger.Logger) *Services {
	bus := eventbus.New(log)

	sessions := services.NewSessionManager(collab.Store, bus, collab.Metrics, log)
	anonymous := services.NewAnonymousService(cfg.Auth, bus, collab.Metrics, log)

	engine := services.NewAuthEngine(cfg.Auth, services.EngineDeps{
		Users:     collab.Users,
		Sessions:  sessions,
		Anonymous: anonymous,
		Providers: collab.Providers,
		Notifier:  collab.Notifier,
		Biometric: collab.Biometric,
		Store:     collab.Store,
		Hasher:    deps.Hasher,
		Tokens:    deps.TokenGen,
		JWT:       deps.JWTManager,
		Bus:       bus,
		Metrics:   collab.Metrics,
		Logger:    log,
	})

	scheduler := services.NewRefreshScheduler(cfg.Refresh, sessions, engine, bus, collab.Metrics, log)
	engine.SetScheduler(scheduler)

	return &Services{
		Engine:    engine,
		Sessions:  sessions,
		Scheduler: scheduler,
		Anonymous: anonymous,
		Bus:       bus,
	}
}

// Close stops background work and the event bus.
func (s *Services) Close() {
	s.Scheduler.Stop()
	s.Anonymous.StopSweeper()
	s.Bus.Close()
}
