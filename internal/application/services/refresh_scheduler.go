package services

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/favorize-app/multi-auth-sub004/config"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/event"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/session"
	"github.com/favorize-app/multi-auth-sub004/internal/eventbus"
	"github.com/favorize-app/multi-auth-sub004/internal/metrics"
	apperrors "github.com/favorize-app/multi-auth-sub004/pkg/errors"
	"github.com/favorize-app/multi-auth-sub004/pkg/logger"
)

// SchedulerState names the refresh scheduler's lifecycle phase.
type SchedulerState string

const (
	SchedulerIdle       SchedulerState = "idle"
	SchedulerMonitoring SchedulerState = "monitoring"
	SchedulerRefreshing SchedulerState = "refreshing"
	SchedulerFailed     SchedulerState = "failed"
)

// TokenRefresher exchanges a refresh token for a new token pair.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (session.TokenPair, error)
}

// sessionSource is the slice of SessionManager the scheduler needs.
type sessionSource interface {
	GetCurrentSession() *session.Session
	UpdateSession(ctx context.Context, sess *session.Session) error
}

// SchedulerStats is a point-in-time snapshot for diagnostics.
type SchedulerStats struct {
	State         SchedulerState
	Threshold     time.Duration
	CheckInterval time.Duration
	LastRefresh   time.Time
	LastError     string
	Attempts      uint64
	Failures      uint64
}

// RefreshScheduler proactively refreshes the current session's tokens before
// they expire. It polls at a fixed interval and triggers a refresh once
// time-to-expiry drops under the configured threshold, with bounded
// exponential-backoff retries. A terminal failure parks the scheduler in the
// failed state until the next Start.
type RefreshScheduler struct {
	cfg       config.RefreshConfig
	sessions  sessionSource
	refresher TokenRefresher
	bus       *eventbus.Bus
	metrics   metrics.Collector
	log       logger.Logger

	mu      sync.Mutex
	state   SchedulerState
	cancel  context.CancelFunc
	done    chan struct{}
	stats   SchedulerStats
	changes *eventbus.Broadcaster[SchedulerState]
}

// NewRefreshScheduler wires a scheduler over the session manager and the
// refresher collaborator. It starts idle.
func NewRefreshScheduler(cfg config.RefreshConfig, sessions sessionSource, refresher TokenRefresher, bus *eventbus.Bus, m metrics.Collector, log logger.Logger) *RefreshScheduler {
	if m == nil {
		m = metrics.Nop{}
	}
	s := &RefreshScheduler{
		cfg:       cfg,
		sessions:  sessions,
		refresher: refresher,
		bus:       bus,
		metrics:   m,
		log:       log,
		state:     SchedulerIdle,
		changes:   eventbus.NewBroadcaster[SchedulerState](),
	}
	s.changes.Publish(SchedulerIdle)
	return s
}

// Start begins monitoring. Calling Start while a loop is already running is
// a no-op; starting after a terminal failure launches a fresh loop.
func (s *RefreshScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.transitionLocked(SchedulerMonitoring)
	s.stats.LastError = ""

	go s.run(runCtx, s.done)

	s.log.Info("refresh scheduler started",
		logger.Component("refresh_scheduler"),
		logger.Duration("check_interval", s.cfg.CheckInterval),
		logger.Duration("threshold", s.cfg.Threshold),
	)
}

// Stop halts monitoring, waits for the loop to exit, and returns the
// scheduler to idle. Safe to call from any state, any number of times.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	s.mu.Lock()
	s.transitionLocked(SchedulerIdle)
	s.mu.Unlock()
}

// State returns the current scheduler state.
func (s *RefreshScheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// States returns the reactive state stream and a cancel func.
func (s *RefreshScheduler) States() (<-chan SchedulerState, func()) {
	return s.changes.Subscribe()
}

// Stats returns a snapshot of scheduler counters.
func (s *RefreshScheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.State = s.state
	st.Threshold = s.cfg.Threshold
	st.CheckInterval = s.cfg.CheckInterval
	return st
}

// RefreshNow forces an immediate refresh regardless of time-to-expiry. The
// same bounded retry policy applies, so a failure here is terminal too.
func (s *RefreshScheduler) RefreshNow(ctx context.Context) error {
	sess := s.sessions.GetCurrentSession()
	if sess == nil {
		return apperrors.ErrSessionNotFound
	}
	if err := s.refresh(ctx, sess); err != nil {
		s.fail(sess, err)
		return err
	}
	return nil
}

func (s *RefreshScheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
			if s.State() == SchedulerFailed {
				s.release(done)
				return
			}
		}
	}
}

// release drops loop ownership when the loop exits on its own, so a later
// Start launches a fresh loop instead of no-opping against a dead one.
func (s *RefreshScheduler) release(done chan struct{}) {
	s.mu.Lock()
	cancel := s.cancel
	if s.done == done {
		s.cancel = nil
		s.done = nil
	} else {
		// A concurrent Stop already took ownership and will cancel.
		cancel = nil
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (s *RefreshScheduler) check(ctx context.Context) {
	sess := s.sessions.GetCurrentSession()
	if sess == nil || !sess.IsActive {
		return
	}
	if sess.Tokens.TimeToExpiry() > s.cfg.Threshold {
		return
	}
	if err := s.refresh(ctx, sess); err != nil {
		s.fail(sess, err)
	}
}

// refresh performs one refresh cycle with bounded exponential-backoff
// retries. Invalid-token responses are not retried.
func (s *RefreshScheduler) refresh(ctx context.Context, sess *session.Session) error {
	s.setState(SchedulerRefreshing)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.InitialBackoff
	policy.MaxInterval = s.cfg.MaxBackoff
	policy.MaxElapsedTime = 0

	var attempt int
	operation := func() error {
		attempt++
		s.mu.Lock()
		s.stats.Attempts++
		s.mu.Unlock()

		tokens, err := s.refresher.Refresh(ctx, sess.Tokens.RefreshToken)
		if err != nil {
			s.noteAttemptFailure(sess, attempt, err)
			kind := apperrors.KindOf(err)
			if kind == apperrors.KindTokenInvalid || kind == apperrors.KindInvalidCredentials {
				return backoff.Permanent(err)
			}
			return err
		}
		return s.apply(ctx, sess, tokens)
	}

	retries := s.cfg.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(retries)), ctx))
	if err != nil {
		return err
	}

	// Monitoring belongs to the run loop; a one-off RefreshNow without a
	// loop goes back to idle so a later Start still launches one.
	s.mu.Lock()
	if s.done != nil {
		s.transitionLocked(SchedulerMonitoring)
	} else {
		s.transitionLocked(SchedulerIdle)
	}
	s.mu.Unlock()
	return nil
}

// apply swaps the refreshed tokens into the session manager.
func (s *RefreshScheduler) apply(ctx context.Context, sess *session.Session, tokens session.TokenPair) error {
	updated := sess.WithTokens(tokens)
	if err := s.sessions.UpdateSession(ctx, updated); err != nil {
		return err
	}

	s.mu.Lock()
	s.stats.LastRefresh = time.Now().UTC()
	s.stats.LastError = ""
	s.mu.Unlock()

	s.metrics.RecordRefresh(true)
	s.log.Info("tokens refreshed",
		logger.Component("refresh_scheduler"),
		logger.SessionID(sess.ID),
	)
	s.bus.Dispatch(
		event.TokenRefreshCompleted{SessionID: sess.ID, ExpiresAt: tokens.ExpiresAt},
		event.NewMetadata("refresh_scheduler").WithSession(sess.ID),
	)
	return nil
}

func (s *RefreshScheduler) noteAttemptFailure(sess *session.Session, attempt int, err error) {
	s.metrics.RecordRefresh(false)
	s.log.Warn("token refresh attempt failed",
		logger.Component("refresh_scheduler"),
		logger.SessionID(sess.ID),
		logger.Int("attempt", attempt),
		logger.Error(err),
	)
	s.bus.Dispatch(
		event.TokenRefreshFailed{SessionID: sess.ID, Attempt: attempt, Err: apperrors.AsAuthError(err)},
		event.NewMetadata("refresh_scheduler").WithSession(sess.ID),
	)
}

// fail parks the scheduler after retries are exhausted and signals that the
// session is no longer refreshable.
func (s *RefreshScheduler) fail(sess *session.Session, err error) {
	s.mu.Lock()
	s.stats.Failures++
	s.stats.LastError = err.Error()
	s.transitionLocked(SchedulerFailed)
	s.mu.Unlock()

	s.log.Error("token refresh failed terminally",
		logger.Component("refresh_scheduler"),
		logger.SessionID(sess.ID),
		logger.Error(err),
	)
	s.bus.Dispatch(
		event.TokenRefreshFailed{SessionID: sess.ID, Terminal: true, Err: apperrors.AsAuthError(err)},
		event.NewMetadata("refresh_scheduler").WithSession(sess.ID),
	)
	s.bus.Dispatch(
		event.SessionExpired{SessionID: sess.ID, UserID: sess.User.ID, Reason: "refresh_exhausted"},
		event.NewMetadata("refresh_scheduler").WithUser(sess.User.ID).WithSession(sess.ID),
	)
}

func (s *RefreshScheduler) setState(state SchedulerState) {
	s.mu.Lock()
	s.transitionLocked(state)
	s.mu.Unlock()
}

// transitionLocked updates state and notifies observers. Caller holds the
// mutex.
func (s *RefreshScheduler) transitionLocked(state SchedulerState) {
	if s.state == state {
		return
	}
	s.state = state
	s.changes.Publish(state)
}
