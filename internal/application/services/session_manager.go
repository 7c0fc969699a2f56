package services

import (
	"context"
	"sync"

	"github.com/favorize-app/multi-auth-sub004/internal/domain/event"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/session"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/user"
	"github.com/favorize-app/multi-auth-sub004/internal/eventbus"
	"github.com/favorize-app/multi-auth-sub004/internal/infrastructure/storage"
	"github.com/favorize-app/multi-auth-sub004/internal/metrics"
	apperrors "github.com/favorize-app/multi-auth-sub004/pkg/errors"
	"github.com/favorize-app/multi-auth-sub004/pkg/logger"
)

// SessionStorageKey is the fixed key under which the active session's token
// material is persisted in secure storage.
const SessionStorageKey = "auth.session.tokens"

// SessionState is the reactive view exposed to UI bindings.
type SessionState struct {
	Session *session.Session
	User    *user.User
	Valid   bool
}

// SessionManager is the sole authority on the current authenticated session.
// At most one active session is held in memory per manager instance;
// multi-session-per-user is a store concern, not this core's.
//
// All mutations (create, update, invalidate) are serialized behind one
// mutex, so concurrent operations cannot interleave partially: the final
// state is consistent with exactly one of them winning.
type SessionManager struct {
	store   storage.SecureStorage
	bus     *eventbus.Bus
	metrics metrics.Collector
	log     logger.Logger

	mu      sync.Mutex
	current *session.Session
	states  *eventbus.Broadcaster[SessionState]
}

// NewSessionManager creates a session manager persisting through store and
// announcing transitions on bus.
func NewSessionManager(store storage.SecureStorage, bus *eventbus.Bus, m metrics.Collector, log logger.Logger) *SessionManager {
	if m == nil {
		m = metrics.Nop{}
	}
	return &SessionManager{
		store:   store,
		bus:     bus,
		metrics: m,
		log:     log,
		states:  eventbus.NewBroadcaster[SessionState](),
	}
}

// CreateSession builds a session for the user, persists its token material,
// and makes it current. A token pair that is already expired is rejected
// before any storage call. Either both the persisted and in-memory state
// change, or neither does.
func (m *SessionManager) CreateSession(ctx context.Context, u *user.User, tokens session.TokenPair, device session.DeviceInfo) (*session.Session, error) {
	if u == nil {
		return nil, apperrors.Validation("user", "must not be nil")
	}
	if tokens.IsExpired() {
		return nil, apperrors.New(apperrors.KindTokenExpired, "token pair is expired at creation").
			WithCause(apperrors.ErrTokenExpired)
	}

	sess := session.New(u, tokens, device)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.persistTokens(ctx, tokens); err != nil {
		return nil, err
	}

	m.current = sess
	m.publishState()

	m.metrics.RecordSessionCreated()
	m.log.Info("session created",
		logger.Component("session_manager"),
		logger.SessionID(sess.ID),
		logger.UserID(u.ID),
	)
	m.bus.Dispatch(
		event.SessionCreated{SessionID: sess.ID, UserID: u.ID, ExpiresAt: tokens.ExpiresAt},
		event.NewMetadata("session_manager").WithUser(u.ID).WithSession(sess.ID),
	)
	return sess, nil
}

// UpdateSession atomically replaces the current session, used after a token
// refresh. The session must carry the same ID as the current one.
func (m *SessionManager) UpdateSession(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return apperrors.Validation("session", "must not be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// An expected outcome when a refresh races an invalidation, so this is
	// tagged as a stale token, not an internal fault.
	if m.current == nil || m.current.ID != sess.ID {
		return apperrors.New(apperrors.KindTokenInvalid, "session is not current").
			WithCause(apperrors.ErrSessionNotFound)
	}

	if err := m.persistTokens(ctx, sess.Tokens); err != nil {
		return err
	}

	m.current = sess
	m.publishState()

	m.bus.Dispatch(
		event.SessionUpdated{SessionID: sess.ID, UserID: sess.User.ID, ExpiresAt: sess.Tokens.ExpiresAt},
		event.NewMetadata("session_manager").WithUser(sess.User.ID).WithSession(sess.ID),
	)
	return nil
}

// InvalidateSession clears the current session and its persisted tokens.
// Idempotent: with no session present it succeeds as a no-op and dispatches
// no event. Session objects handed out earlier are never written through;
// presence in the manager is the authority on liveness.
func (m *SessionManager) InvalidateSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}

	if _, err := m.store.Remove(ctx, SessionStorageKey); err != nil {
		return apperrors.New(apperrors.KindStorage, "failed to remove persisted tokens").
			WithCause(err)
	}

	ended := m.current
	m.current = nil
	m.publishState()

	m.metrics.RecordSessionEnded()
	m.log.Info("session ended",
		logger.Component("session_manager"),
		logger.SessionID(ended.ID),
	)
	m.bus.Dispatch(
		event.SessionEnded{SessionID: ended.ID, UserID: ended.User.ID},
		event.NewMetadata("session_manager").WithUser(ended.User.ID).WithSession(ended.ID),
	)
	return nil
}

// GetCurrentSession returns the current session, or nil. Pure read, no I/O.
func (m *SessionManager) GetCurrentSession() *session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// GetCurrentUser returns the current session's user, or nil. Pure read.
func (m *SessionManager) GetCurrentUser() *user.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.User
}

// IsSessionValid reports whether a session exists, is active, and holds
// unexpired tokens.
func (m *SessionManager) IsSessionValid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && m.current.IsValid()
}

// GetSessionInfo returns a diagnostic snapshot, or nil when no session.
func (m *SessionManager) GetSessionInfo() *session.Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	info := m.current.Snapshot()
	return &info
}

// States returns the reactive session-state stream and a cancel func. The
// current state is delivered immediately.
func (m *SessionManager) States() (<-chan SessionState, func()) {
	return m.states.Subscribe()
}

// persistTokens writes token material through the secure storage
// collaborator, converting failures to the storage taxonomy kind. Caller
// holds the mutex.
func (m *SessionManager) persistTokens(ctx context.Context, tokens session.TokenPair) error {
	data, err := tokens.ToJSON()
	if err != nil {
		return apperrors.New(apperrors.KindInternal, "failed to encode tokens").WithCause(err)
	}
	if err := m.store.Store(ctx, SessionStorageKey, string(data)); err != nil {
		return apperrors.New(apperrors.KindStorage, "failed to persist tokens").WithCause(err)
	}
	return nil
}

// publishState pushes the current state to stream observers. Caller holds
// the mutex.
func (m *SessionManager) publishState() {
	state := SessionState{}
	if m.current != nil {
		state.Session = m.current
		state.User = m.current.User
		state.Valid = m.current.IsValid()
	}
	m.states.Publish(state)
}
