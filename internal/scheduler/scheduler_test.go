package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/qinche/penpal-bot/internal/storage"
)

func TestScheduleReplacesById(t *testing.T) {
	s := newPlannerService(t, defaultPlannerConfig())

	var mu sync.Mutex
	var fired []string
	record := func(tag string) func() {
		return func() {
			mu.Lock()
			fired = append(fired, tag)
			mu.Unlock()
		}
	}

	now := time.Now()
	s.Schedule("daily_message_42", now.Add(30*time.Millisecond), record("first"))
	s.Schedule("daily_message_42", now.Add(50*time.Millisecond), record("second"))

	if got := s.Pending(); got != 1 {
		t.Fatalf("Pending = %d, want 1 after re-arming the same id", got)
	}

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 || fired[0] != "second" {
		t.Fatalf("fired = %v, want only the replacement", fired)
	}
}

func TestScheduleWelcomeFires(t *testing.T) {
	done := make(chan int64, 1)
	cfg := defaultPlannerConfig()
	cfg.Location = time.UTC
	cfg.Workers = 1
	cfg.WelcomeDelay = 20 * time.Millisecond

	s := New(cfg, storage.NewMemoryStorage(), func(userID int64) {
		done <- userID
	}, zap.NewNop())
	t.Cleanup(s.Stop)

	s.ScheduleWelcome(42)

	select {
	case userID := <-done:
		if userID != 42 {
			t.Fatalf("job ran for user %d, want 42", userID)
		}
	case <-time.After(time.Second):
		t.Fatalf("welcome event never fired")
	}
}

func TestScheduleUserArmsEvents(t *testing.T) {
	s := newPlannerService(t, defaultPlannerConfig())

	if err := s.ScheduleUser(42); err != nil {
		t.Fatalf("ScheduleUser: %v", err)
	}
	if got := s.Pending(); got < 1 || got > 4 {
		t.Fatalf("Pending = %d, want 1..4 (daily plus 0-3 random)", got)
	}
}

func TestScheduleAllContinuesPastUserFailure(t *testing.T) {
	// Degenerate random window: every user's random planning fails,
	// but the daily event is still armed for each of them
	cfg := defaultPlannerConfig()
	cfg.WindowStart = 8
	cfg.WindowEnd = 9
	s := newPlannerService(t, cfg)

	registry := storage.NewMemoryStorage()
	ctx := context.Background()
	if err := registry.AddActiveUser(ctx, 1); err != nil {
		t.Fatalf("seed registry: %v", err)
	}
	if err := registry.AddActiveUser(ctx, 2); err != nil {
		t.Fatalf("seed registry: %v", err)
	}
	s.registry = registry

	s.ScheduleAll(ctx)

	if got := s.Pending(); got != 2 {
		t.Fatalf("Pending = %d, want 2 daily events despite per-user failures", got)
	}
}

func TestStopDiscardsPendingTimers(t *testing.T) {
	cfg := defaultPlannerConfig()
	cfg.Location = time.UTC
	cfg.Workers = 1

	ran := make(chan struct{}, 1)
	s := New(cfg, storage.NewMemoryStorage(), func(int64) {
		ran <- struct{}{}
	}, zap.NewNop())

	s.Schedule("daily_message_1", time.Now().Add(50*time.Millisecond), func() {
		ran <- struct{}{}
	})
	s.Stop()

	if got := s.Pending(); got != 0 {
		t.Fatalf("Pending = %d after Stop, want 0", got)
	}
	select {
	case <-ran:
		t.Fatalf("timer fired after Stop")
	case <-time.After(150 * time.Millisecond):
	}
}
