package services

import (
	"context"
	"sync"
	"time"

	"github.com/favorize-app/multi-auth-sub004/config"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/anonymous"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/event"
	"github.com/favorize-app/multi-auth-sub004/internal/eventbus"
	"github.com/favorize-app/multi-auth-sub004/internal/metrics"
	apperrors "github.com/favorize-app/multi-auth-sub004/pkg/errors"
	"github.com/favorize-app/multi-auth-sub004/pkg/logger"
)

// AnonymousService tracks guest sessions in an in-memory registry, capped at
// a configured maximum of concurrently active entries. Expired entries are
// swept lazily on every access and by an optional background sweeper.
type AnonymousService struct {
	cfg     config.AuthConfig
	bus     *eventbus.Bus
	metrics metrics.Collector
	log     logger.Logger

	mu       sync.Mutex
	sessions map[string]*anonymous.User

	sweepCancel context.CancelFunc
}

// NewAnonymousService creates the registry. Call StartSweeper to reap
// expired entries in the background.
func NewAnonymousService(cfg config.AuthConfig, bus *eventbus.Bus, m metrics.Collector, log logger.Logger) *AnonymousService {
	if m == nil {
		m = metrics.Nop{}
	}
	return &AnonymousService{
		cfg:      cfg,
		bus:      bus,
		metrics:  m,
		log:      log,
		sessions: make(map[string]*anonymous.User),
	}
}

// Create registers a new anonymous session for the device. Returns
// ErrMaxSessionsReached when the active-session cap is hit.
func (s *AnonymousService) Create(ctx context.Context, deviceID string) (*anonymous.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	if s.activeCountLocked() >= s.cfg.MaxAnonymousSessions {
		return nil, apperrors.New(apperrors.KindMaxSessions, "anonymous session limit reached").
			WithCause(apperrors.ErrMaxSessionsReached)
	}

	anon := anonymous.NewUser(deviceID, s.cfg.AnonymousSessionTTL)
	s.sessions[anon.ID] = anon

	s.metrics.RecordAnonymousSession()
	s.log.Info("anonymous session created",
		logger.Component("anonymous_service"),
		logger.String("anonymous_id", anon.ID),
		logger.String("device_id", deviceID),
	)
	s.bus.Dispatch(
		event.AnonymousSessionCreated{AnonymousID: anon.ID, SessionID: anon.SessionID, ExpiresAt: anon.ExpiresAt},
		event.NewMetadata("anonymous_service").WithUser(anon.ID).WithSession(anon.SessionID),
	)
	return anon, nil
}

// Get returns the anonymous session by ID if it exists and has not expired.
func (s *AnonymousService) Get(id string) (*anonymous.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	anon, ok := s.sessions[id]
	if !ok || !anon.IsActive {
		return nil, apperrors.ErrSessionNotFound
	}
	return anon, nil
}

// List returns all active anonymous sessions.
func (s *AnonymousService) List() []*anonymous.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	out := make([]*anonymous.User, 0, len(s.sessions))
	for _, anon := range s.sessions {
		if anon.IsActive {
			out = append(out, anon)
		}
	}
	return out
}

// ActiveCount returns the number of active, unexpired sessions.
func (s *AnonymousService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return s.activeCountLocked()
}

// Terminate deactivates the anonymous session. Idempotent for unknown IDs.
func (s *AnonymousService) Terminate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	anon, ok := s.sessions[id]
	if !ok {
		return nil
	}
	delete(s.sessions, id)
	if !anon.IsActive {
		return nil
	}
	anon.Terminate()

	s.log.Info("anonymous session terminated",
		logger.Component("anonymous_service"),
		logger.String("anonymous_id", id),
	)
	s.bus.Dispatch(
		event.AnonymousSessionTerminated{AnonymousID: id},
		event.NewMetadata("anonymous_service").WithUser(id),
	)
	return nil
}

// Remove takes the entry out of the registry without a termination event,
// used when an anonymous session is converted to an authenticated one.
func (s *AnonymousService) Remove(id string) (*anonymous.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	anon, ok := s.sessions[id]
	if !ok || !anon.IsActive {
		return nil, apperrors.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return anon, nil
}

// StartSweeper reaps expired sessions periodically until ctx is canceled or
// StopSweeper is called.
func (s *AnonymousService) StartSweeper(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	if s.sweepCancel != nil {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.sweepCancel = cancel
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				s.sweepLocked()
				s.mu.Unlock()
			}
		}
	}()
}

// StopSweeper stops the background sweeper if running.
func (s *AnonymousService) StopSweeper() {
	s.mu.Lock()
	cancel := s.sweepCancel
	s.sweepCancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// sweepLocked drops expired entries and announces their expiry. Caller holds
// the mutex.
func (s *AnonymousService) sweepLocked() {
	for id, anon := range s.sessions {
		if anon.IsActive && anon.IsExpired() {
			anon.MarkExpired()
			delete(s.sessions, id)
			s.bus.Dispatch(
				event.AnonymousSessionExpired{AnonymousID: id},
				event.NewMetadata("anonymous_service").WithUser(id),
			)
		}
	}
}

func (s *AnonymousService) activeCountLocked() int {
	n := 0
	for _, anon := range s.sessions {
		if anon.IsActive {
			n++
		}
	}
	return n
}
