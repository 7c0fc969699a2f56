package services

import (
	"context"
	"testing"
	"time"

	"github.com/favorize-app/multi-auth-sub004/config"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/event"
	"github.com/favorize-app/multi-auth-sub004/internal/eventbus"
	apperrors "github.com/favorize-app/multi-auth-sub004/pkg/errors"
	"github.com/favorize-app/multi-auth-sub004/pkg/logger"
)

func newAnonymousFixture(t *testing.T, max int, ttl time.Duration) (*AnonymousService, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.New(logger.Nop())
	t.Cleanup(bus.Close)
	cfg := config.AuthConfig{MaxAnonymousSessions: max, AnonymousSessionTTL: ttl}
	return NewAnonymousService(cfg, bus, nil, logger.Nop()), bus
}

func TestAnonymousCreateEnforcesLimit(t *testing.T) {
	svc, bus := newAnonymousFixture(t, 5, time.Hour)
	rec := recordEvents(bus, eventbus.WithFamily(event.FamilyAnonymous))
	defer rec.stop()

	for i := 0; i < 5; i++ {
		if _, err := svc.Create(context.Background(), "device-1"); err != nil {
			t.Fatalf("Create #%d: %v", i+1, err)
		}
	}
	if got := svc.ActiveCount(); got != 5 {
		t.Fatalf("active = %d, want 5", got)
	}

	_, err := svc.Create(context.Background(), "device-1")
	if err == nil {
		t.Fatal("sixth session should be rejected")
	}
	if got := apperrors.KindOf(err); got != apperrors.KindMaxSessions {
		t.Errorf("kind = %q, want %q", got, apperrors.KindMaxSessions)
	}
	if !apperrors.Is(err, apperrors.ErrMaxSessionsReached) {
		t.Error("error should wrap the max-sessions sentinel")
	}

	// Terminating one frees a slot.
	anon := svc.List()[0]
	if err := svc.Terminate(context.Background(), anon.ID); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if _, err := svc.Create(context.Background(), "device-2"); err != nil {
		t.Errorf("create after terminate: %v", err)
	}
}

func TestAnonymousExpiredSessionsAreSwept(t *testing.T) {
	svc, bus := newAnonymousFixture(t, 5, 30*time.Millisecond)
	rec := recordEvents(bus, eventbus.WithKinds(event.KindAnonymousSessionExpired))
	defer rec.stop()

	anon, err := svc.Create(context.Background(), "device-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	if got := svc.ActiveCount(); got != 0 {
		t.Errorf("active = %d after TTL, want 0", got)
	}
	if _, err := svc.Get(anon.ID); !apperrors.Is(err, apperrors.ErrSessionNotFound) {
		t.Errorf("Get after expiry = %v, want not-found", err)
	}
	if !rec.waitForKind(event.KindAnonymousSessionExpired, time.Second) {
		t.Error("expected an expiry event")
	}
}

func TestAnonymousTerminateIsIdempotent(t *testing.T) {
	svc, bus := newAnonymousFixture(t, 5, time.Hour)
	rec := recordEvents(bus, eventbus.WithKinds(event.KindAnonymousSessionTerminated))
	defer rec.stop()

	anon, err := svc.Create(context.Background(), "device-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Terminate(context.Background(), anon.ID); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if err := svc.Terminate(context.Background(), anon.ID); err != nil {
		t.Fatalf("repeat Terminate: %v", err)
	}
	if err := svc.Terminate(context.Background(), "anon_unknown"); err != nil {
		t.Fatalf("unknown Terminate: %v", err)
	}

	if !rec.waitForKind(event.KindAnonymousSessionTerminated, time.Second) {
		t.Fatal("expected one termination event")
	}
	time.Sleep(20 * time.Millisecond)
	if n := rec.countKind(event.KindAnonymousSessionTerminated); n != 1 {
		t.Errorf("termination events = %d, want 1", n)
	}
}

func TestAnonymousRemoveSkipsTerminationEvent(t *testing.T) {
	svc, bus := newAnonymousFixture(t, 5, time.Hour)
	rec := recordEvents(bus, eventbus.WithFamily(event.FamilyAnonymous))
	defer rec.stop()

	anon, err := svc.Create(context.Background(), "device-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	removed, err := svc.Remove(anon.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed.ID != anon.ID {
		t.Errorf("removed %q, want %q", removed.ID, anon.ID)
	}
	if _, err := svc.Remove(anon.ID); err == nil {
		t.Error("second remove should report not found")
	}

	time.Sleep(20 * time.Millisecond)
	if n := rec.countKind(event.KindAnonymousSessionTerminated); n != 0 {
		t.Errorf("remove must not dispatch termination events, got %d", n)
	}
}

func TestAnonymousSweeperReapsInBackground(t *testing.T) {
	svc, _ := newAnonymousFixture(t, 5, 20*time.Millisecond)

	if _, err := svc.Create(context.Background(), "device-1"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	svc.StartSweeper(context.Background(), 10*time.Millisecond)
	defer svc.StopSweeper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if svc.ActiveCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("sweeper never reaped the expired session")
}
