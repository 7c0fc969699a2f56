package services

import (
	"context"
	"testing"
	"time"

	"github.com/favorize-app/multi-auth-sub004/config"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/event"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/user"
	"github.com/favorize-app/multi-auth-sub004/internal/eventbus"
	"github.com/favorize-app/multi-auth-sub004/internal/infrastructure/storage"
	"github.com/favorize-app/multi-auth-sub004/pkg/logger"
)

func schedulerTestConfig() config.RefreshConfig {
	return config.RefreshConfig{
		CheckInterval:  20 * time.Millisecond,
		Threshold:      time.Minute,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func newSchedulerFixture(t *testing.T, refresher TokenRefresher) (*RefreshScheduler, *SessionManager, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.New(logger.Nop())
	t.Cleanup(bus.Close)
	sessions := NewSessionManager(storage.NewMemory(), bus, nil, logger.Nop())
	sched := NewRefreshScheduler(schedulerTestConfig(), sessions, refresher, bus, nil, logger.Nop())
	t.Cleanup(sched.Stop)
	return sched, sessions, bus
}

func TestSchedulerRefreshesBeforeExpiry(t *testing.T) {
	refresher := &mockRefresher{}
	sched, sessions, bus := newSchedulerFixture(t, refresher)
	rec := recordEvents(bus, eventbus.WithKinds(event.KindTokenRefreshCompleted))
	defer rec.stop()

	u := user.NewUser("alice@example.com", "Alice")
	// Expires inside the threshold, so the first tick refreshes.
	if _, err := sessions.CreateSession(context.Background(), u, validTokenPair(30*time.Second), testDevice()); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	sched.Start(context.Background())
	if !rec.waitForKind(event.KindTokenRefreshCompleted, 2*time.Second) {
		t.Fatal("no refresh completed event")
	}

	current := sessions.GetCurrentSession()
	if current.Tokens.AccessToken != "refreshed-access" {
		t.Errorf("tokens not swapped, access = %q", current.Tokens.AccessToken)
	}
	if sched.State() != SchedulerMonitoring && sched.State() != SchedulerRefreshing {
		t.Errorf("state = %q after successful refresh", sched.State())
	}
}

func TestSchedulerLeavesFreshTokensAlone(t *testing.T) {
	refresher := &mockRefresher{}
	sched, sessions, _ := newSchedulerFixture(t, refresher)

	u := user.NewUser("bob@example.com", "Bob")
	if _, err := sessions.CreateSession(context.Background(), u, validTokenPair(time.Hour), testDevice()); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	sched.Start(context.Background())
	time.Sleep(100 * time.Millisecond)

	if n := refresher.callCount(); n != 0 {
		t.Errorf("refresher called %d times for unexpired tokens", n)
	}
}

func TestSchedulerRetriesTransientFailures(t *testing.T) {
	refresher := &mockRefresher{failUpTo: 2}
	sched, sessions, bus := newSchedulerFixture(t, refresher)
	rec := recordEvents(bus, eventbus.WithFamily(event.FamilyToken))
	defer rec.stop()

	u := user.NewUser("carol@example.com", "Carol")
	if _, err := sessions.CreateSession(context.Background(), u, validTokenPair(time.Second), testDevice()); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	sched.Start(context.Background())
	if !rec.waitForKind(event.KindTokenRefreshCompleted, 2*time.Second) {
		t.Fatal("refresh never succeeded")
	}

	if n := refresher.callCount(); n != 3 {
		t.Errorf("refresher calls = %d, want 3 (two failures, one success)", n)
	}
	if n := rec.countKind(event.KindTokenRefreshFailed); n != 2 {
		t.Errorf("failure events = %d, want 2", n)
	}
}

func TestSchedulerFailsTerminallyAfterRetriesExhausted(t *testing.T) {
	refresher := &mockRefresher{failUpTo: 100}
	sched, sessions, bus := newSchedulerFixture(t, refresher)
	rec := recordEvents(bus, eventbus.WithKinds(event.KindTokenRefreshFailed, event.KindSessionExpired))
	defer rec.stop()

	u := user.NewUser("dave@example.com", "Dave")
	if _, err := sessions.CreateSession(context.Background(), u, validTokenPair(time.Second), testDevice()); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	sched.Start(context.Background())
	if !rec.waitForKind(event.KindSessionExpired, 2*time.Second) {
		t.Fatal("no session expired event after exhausting retries")
	}

	if sched.State() != SchedulerFailed {
		t.Errorf("state = %q, want %q", sched.State(), SchedulerFailed)
	}
	if n := refresher.callCount(); n != 3 {
		t.Errorf("refresher calls = %d, want exactly max attempts", n)
	}

	terminal := 0
	for _, env := range rec.events() {
		if f, ok := env.Event.(event.TokenRefreshFailed); ok && f.Terminal {
			terminal++
		}
	}
	if terminal != 1 {
		t.Errorf("terminal failure events = %d, want 1", terminal)
	}

	stats := sched.Stats()
	if stats.Failures != 1 || stats.LastError == "" {
		t.Errorf("stats not updated: %+v", stats)
	}

	// Stop acknowledges the failure and returns the scheduler to idle.
	sched.Stop()
	if sched.State() != SchedulerIdle {
		t.Errorf("state = %q after stop, want idle", sched.State())
	}
}

func TestSchedulerRestartsAfterTerminalFailure(t *testing.T) {
	refresher := &mockRefresher{failUpTo: 3}
	sched, sessions, bus := newSchedulerFixture(t, refresher)
	rec := recordEvents(bus, eventbus.WithKinds(event.KindSessionExpired, event.KindTokenRefreshCompleted))
	defer rec.stop()

	u := user.NewUser("frank@example.com", "Frank")
	if _, err := sessions.CreateSession(context.Background(), u, validTokenPair(time.Second), testDevice()); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	sched.Start(context.Background())
	if !rec.waitForKind(event.KindSessionExpired, 2*time.Second) {
		t.Fatal("no terminal failure")
	}

	// The dead loop releases ownership, so a later Start launches a fresh
	// one; the next attempt succeeds.
	deadline := time.Now().Add(2 * time.Second)
	for sched.State() != SchedulerMonitoring && sched.State() != SchedulerRefreshing {
		if time.Now().After(deadline) {
			t.Fatal("scheduler never restarted from the failed state")
		}
		sched.Start(context.Background())
		time.Sleep(5 * time.Millisecond)
	}
	if !rec.waitForKind(event.KindTokenRefreshCompleted, 2*time.Second) {
		t.Fatal("no refresh completed after restarting from the failed state")
	}
}

func TestSchedulerStopIsSafeFromAnyState(t *testing.T) {
	refresher := &mockRefresher{}
	sched, _, _ := newSchedulerFixture(t, refresher)

	// Stop before start.
	sched.Stop()
	if sched.State() != SchedulerIdle {
		t.Errorf("state = %q, want idle", sched.State())
	}

	sched.Start(context.Background())
	if sched.State() != SchedulerMonitoring {
		t.Errorf("state = %q, want monitoring", sched.State())
	}

	sched.Stop()
	sched.Stop()
	if sched.State() != SchedulerIdle {
		t.Errorf("state = %q after double stop, want idle", sched.State())
	}

	// Restart after stop works.
	sched.Start(context.Background())
	if sched.State() != SchedulerMonitoring {
		t.Errorf("state = %q after restart, want monitoring", sched.State())
	}
}

func TestSchedulerRefreshNowBypassesThreshold(t *testing.T) {
	refresher := &mockRefresher{}
	sched, sessions, _ := newSchedulerFixture(t, refresher)

	if err := sched.RefreshNow(context.Background()); err == nil {
		t.Error("RefreshNow without a session should fail")
	}

	u := user.NewUser("erin@example.com", "Erin")
	if _, err := sessions.CreateSession(context.Background(), u, validTokenPair(time.Hour), testDevice()); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if err := sched.RefreshNow(context.Background()); err != nil {
		t.Fatalf("RefreshNow: %v", err)
	}
	if n := refresher.callCount(); n != 1 {
		t.Errorf("refresher calls = %d, want 1", n)
	}
	if got := sessions.GetCurrentSession().Tokens.AccessToken; got != "refreshed-access" {
		t.Errorf("tokens not swapped, access = %q", got)
	}
}

func TestSchedulerStartAfterRefreshNowLaunchesLoop(t *testing.T) {
	refresher := &mockRefresher{tokenTTL: 30 * time.Second}
	sched, sessions, _ := newSchedulerFixture(t, refresher)

	u := user.NewUser("grace@example.com", "Grace")
	if _, err := sessions.CreateSession(context.Background(), u, validTokenPair(30*time.Second), testDevice()); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// One-off refresh without a loop: back to idle, not monitoring.
	if err := sched.RefreshNow(context.Background()); err != nil {
		t.Fatalf("RefreshNow: %v", err)
	}
	if sched.State() != SchedulerIdle {
		t.Errorf("state = %q after one-off refresh, want idle", sched.State())
	}

	// Start must launch a real loop. Refreshed tokens stay inside the
	// threshold, so a running loop keeps refreshing.
	sched.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for refresher.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := refresher.callCount(); n < 2 {
		t.Errorf("monitoring loop never refreshed after Start, calls = %d", n)
	}
}

func TestSchedulerStateStream(t *testing.T) {
	refresher := &mockRefresher{}
	sched, _, _ := newSchedulerFixture(t, refresher)

	states, cancel := sched.States()
	defer cancel()

	select {
	case st := <-states:
		if st != SchedulerIdle {
			t.Errorf("initial state = %q, want idle", st)
		}
	case <-time.After(time.Second):
		t.Fatal("no initial state delivered")
	}

	sched.Start(context.Background())

	select {
	case st := <-states:
		if st != SchedulerMonitoring {
			t.Errorf("state = %q, want monitoring", st)
		}
	case <-time.After(time.Second):
		t.Fatal("monitoring transition never delivered")
	}
}
