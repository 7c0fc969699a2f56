package services

import (
	"context"
	"testing"
	"time"

	"github.com/favorize-app/multi-auth-sub004/internal/domain/event"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/user"
	"github.com/favorize-app/multi-auth-sub004/internal/eventbus"
	"github.com/favorize-app/multi-auth-sub004/internal/infrastructure/storage"
	apperrors "github.com/favorize-app/multi-auth-sub004/pkg/errors"
	"github.com/favorize-app/multi-auth-sub004/pkg/logger"
)

func newTestSessionManager(t *testing.T) (*SessionManager, *eventbus.Bus, storage.SecureStorage) {
	t.Helper()
	bus := eventbus.New(logger.Nop())
	t.Cleanup(bus.Close)
	store := storage.NewMemory()
	return NewSessionManager(store, bus, nil, logger.Nop()), bus, store
}

func TestCreateSessionPersistsAndBecomesCurrent(t *testing.T) {
	m, bus, store := newTestSessionManager(t)
	rec := recordEvents(bus, eventbus.WithFamily(event.FamilySession))
	defer rec.stop()

	u := user.NewUser("alice@example.com", "Alice")
	sess, err := m.CreateSession(context.Background(), u, validTokenPair(time.Hour), testDevice())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.ID == "" {
		t.Error("expected a session ID")
	}
	if got := m.GetCurrentSession(); got != sess {
		t.Error("created session is not current")
	}
	if !m.IsSessionValid() {
		t.Error("fresh session should be valid")
	}

	ok, err := store.Contains(context.Background(), SessionStorageKey)
	if err != nil || !ok {
		t.Errorf("tokens not persisted: ok=%v err=%v", ok, err)
	}

	if !rec.waitForKind(event.KindSessionCreated, time.Second) {
		t.Error("expected a session created event")
	}
}

func TestCreateSessionRejectsExpiredTokens(t *testing.T) {
	m, _, store := newTestSessionManager(t)

	u := user.NewUser("bob@example.com", "Bob")
	_, err := m.CreateSession(context.Background(), u, validTokenPair(-time.Minute), testDevice())
	if err == nil {
		t.Fatal("expected an error for a pre-expired token pair")
	}
	if got := apperrors.KindOf(err); got != apperrors.KindTokenExpired {
		t.Errorf("kind = %q, want %q", got, apperrors.KindTokenExpired)
	}

	if m.GetCurrentSession() != nil {
		t.Error("no session should be installed")
	}
	if n, _ := store.ItemCount(context.Background()); n != 0 {
		t.Errorf("storage should be untouched, has %d items", n)
	}
}

func TestCreateSessionStorageFailureLeavesNoSession(t *testing.T) {
	bus := eventbus.New(logger.Nop())
	defer bus.Close()
	store := newFailingStorage()
	store.failOps["store"] = true
	m := NewSessionManager(store, bus, nil, logger.Nop())

	u := user.NewUser("carol@example.com", "Carol")
	_, err := m.CreateSession(context.Background(), u, validTokenPair(time.Hour), testDevice())
	if err == nil {
		t.Fatal("expected a storage error")
	}
	if got := apperrors.KindOf(err); got != apperrors.KindStorage {
		t.Errorf("kind = %q, want %q", got, apperrors.KindStorage)
	}
	if m.GetCurrentSession() != nil {
		t.Error("failed create must not install a session")
	}
}

func TestUpdateSessionSwapsTokens(t *testing.T) {
	m, bus, _ := newTestSessionManager(t)
	rec := recordEvents(bus, eventbus.WithKinds(event.KindSessionUpdated))
	defer rec.stop()

	u := user.NewUser("dave@example.com", "Dave")
	sess, err := m.CreateSession(context.Background(), u, validTokenPair(time.Minute), testDevice())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	updated := sess.WithTokens(validTokenPair(time.Hour))
	if err := m.UpdateSession(context.Background(), updated); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}

	if got := m.GetCurrentSession(); got.Tokens.AccessToken != updated.Tokens.AccessToken {
		t.Error("current session still holds the old tokens")
	}
	if !rec.waitForKind(event.KindSessionUpdated, time.Second) {
		t.Error("expected a session updated event")
	}
}

func TestUpdateSessionRejectsForeignSession(t *testing.T) {
	m, _, _ := newTestSessionManager(t)

	u := user.NewUser("erin@example.com", "Erin")
	if _, err := m.CreateSession(context.Background(), u, validTokenPair(time.Hour), testDevice()); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	other := user.NewUser("frank@example.com", "Frank")
	foreign, err := NewSessionManager(storage.NewMemory(), eventbus.New(logger.Nop()), nil, logger.Nop()).
		CreateSession(context.Background(), other, validTokenPair(time.Hour), testDevice())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	err = m.UpdateSession(context.Background(), foreign)
	if err == nil {
		t.Fatal("updating with a different session ID should fail")
	}
	// A stale-session update is an expected race outcome, not an internal
	// fault.
	if got := apperrors.KindOf(err); got != apperrors.KindTokenInvalid {
		t.Errorf("kind = %q, want %q", got, apperrors.KindTokenInvalid)
	}
}

func TestInvalidateSessionIsIdempotent(t *testing.T) {
	m, bus, store := newTestSessionManager(t)
	rec := recordEvents(bus, eventbus.WithKinds(event.KindSessionEnded))
	defer rec.stop()

	// No session yet: success, no event.
	if err := m.InvalidateSession(context.Background()); err != nil {
		t.Fatalf("no-op invalidate: %v", err)
	}

	u := user.NewUser("grace@example.com", "Grace")
	if _, err := m.CreateSession(context.Background(), u, validTokenPair(time.Hour), testDevice()); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if err := m.InvalidateSession(context.Background()); err != nil {
		t.Fatalf("InvalidateSession: %v", err)
	}
	if m.GetCurrentSession() != nil {
		t.Error("session should be cleared")
	}
	if ok, _ := store.Contains(context.Background(), SessionStorageKey); ok {
		t.Error("persisted tokens should be removed")
	}

	// Second invalidate: still success, still exactly one event.
	if err := m.InvalidateSession(context.Background()); err != nil {
		t.Fatalf("repeat invalidate: %v", err)
	}
	if !rec.waitForKind(event.KindSessionEnded, time.Second) {
		t.Fatal("expected a session ended event")
	}
	time.Sleep(20 * time.Millisecond)
	if n := rec.countKind(event.KindSessionEnded); n != 1 {
		t.Errorf("session ended events = %d, want 1", n)
	}
}

func TestInvalidateSessionDoesNotWriteThroughHandedOutSession(t *testing.T) {
	m, _, _ := newTestSessionManager(t)

	u := user.NewUser("judy@example.com", "Judy")
	sess, err := m.CreateSession(context.Background(), u, validTokenPair(time.Hour), testDevice())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// A reader holding the returned session must be able to inspect it
	// while an invalidation runs, without synchronizing with the manager.
	stop := make(chan struct{})
	read := make(chan struct{})
	go func() {
		defer close(read)
		for {
			select {
			case <-stop:
				return
			default:
				_ = sess.IsValid()
			}
		}
	}()

	if err := m.InvalidateSession(context.Background()); err != nil {
		t.Fatalf("InvalidateSession: %v", err)
	}
	close(stop)
	<-read

	if !sess.IsActive {
		t.Error("invalidation must not mutate a previously returned session")
	}
	if m.GetCurrentSession() != nil {
		t.Error("manager should no longer hold the session")
	}
}

func TestIsSessionValidImpliesSessionPresent(t *testing.T) {
	m, _, _ := newTestSessionManager(t)

	if m.IsSessionValid() {
		t.Error("no session must never be valid")
	}
	if m.GetSessionInfo() != nil {
		t.Error("expected nil info without a session")
	}

	u := user.NewUser("heidi@example.com", "Heidi")
	if _, err := m.CreateSession(context.Background(), u, validTokenPair(50*time.Millisecond), testDevice()); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if !m.IsSessionValid() {
		t.Error("session should be valid before expiry")
	}

	time.Sleep(80 * time.Millisecond)
	if m.IsSessionValid() {
		t.Error("session should be invalid after token expiry")
	}
	// Invalid but still present: validity implies presence, not the reverse.
	if m.GetCurrentSession() == nil {
		t.Error("expired session should still be inspectable until invalidated")
	}
}

func TestSessionStatesStreamDeliversCurrentState(t *testing.T) {
	m, _, _ := newTestSessionManager(t)

	u := user.NewUser("ivan@example.com", "Ivan")
	if _, err := m.CreateSession(context.Background(), u, validTokenPair(time.Hour), testDevice()); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	states, cancel := m.States()
	defer cancel()

	select {
	case state := <-states:
		if !state.Valid || state.User == nil || state.User.ID != u.ID {
			t.Errorf("unexpected initial state: %+v", state)
		}
	case <-time.After(time.Second):
		t.Fatal("no initial state delivered")
	}

	if err := m.InvalidateSession(context.Background()); err != nil {
		t.Fatalf("InvalidateSession: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		select {
		case state := <-states:
			if state.Session == nil && !state.Valid {
				return
			}
		case <-deadline:
			t.Fatal("signed-out state never delivered")
		}
	}
}
