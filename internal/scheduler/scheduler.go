// Package scheduler arms one-shot timers for proactive messages. Each
// event carries a stable id; re-arming an id cancels and replaces the
// previous timer, so re-running the planning pass never stacks
// duplicate events. Fired events run on a bounded worker pool.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/qinche/penpal-bot/internal/storage"
)

// JobFunc runs the proactive message job for one user.
type JobFunc func(userID int64)

type Config struct {
	Location     *time.Location
	DailyHour    int
	DailyMinute  int
	WindowStart  int
	WindowEnd    int // inclusive
	RandomCount  int
	Workers      int
	WelcomeDelay time.Duration
	ReplanCron   string
}

type Service struct {
	cfg      Config
	registry storage.UserRegistry
	run      JobFunc
	logger   *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	rng    *rand.Rand
	now    func() time.Time

	cron *cron.Cron
	jobs chan func()
	quit chan struct{}
	wg   sync.WaitGroup
}

func New(cfg Config, registry storage.UserRegistry, run JobFunc, logger *zap.Logger) *Service {
	s := &Service{
		cfg:      cfg,
		registry: registry,
		run:      run,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
		cron:     cron.New(cron.WithLocation(cfg.Location)),
		jobs:     make(chan func(), cfg.Workers),
		quit:     make(chan struct{}),
	}
	for i := 0; i < cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

func (s *Service) worker() {
	defer s.wg.Done()
	for {
		select {
		case fn := <-s.jobs:
			fn()
		case <-s.quit:
			return
		}
	}
}

// Start plans events for every registered user and arms the nightly
// re-plan, which re-derives the next day's fire times.
func (s *Service) Start(ctx context.Context) error {
	if s.cfg.ReplanCron != "" {
		_, err := s.cron.AddFunc(s.cfg.ReplanCron, func() {
			s.logger.Info("Nightly re-plan triggered")
			s.ScheduleAll(context.Background())
		})
		if err != nil {
			return fmt.Errorf("add re-plan cron entry: %w", err)
		}
	}
	s.ScheduleAll(ctx)
	s.cron.Start()
	return nil
}

// Schedule arms a one-shot timer for an event id. An already-armed
// timer with the same id is stopped and replaced.
func (s *Service) Schedule(id string, at time.Time, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.timers[id]; ok {
		prev.Stop()
	}
	delay := at.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	s.timers[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
		select {
		case s.jobs <- fn:
		case <-s.quit:
		}
	})
}

// ScheduleAll plans events for every registered user. A single user's
// failure is logged and skipped so it cannot block the rest.
func (s *Service) ScheduleAll(ctx context.Context) {
	users, err := s.registry.ActiveUsers(ctx)
	if err != nil {
		s.logger.Error("Failed to read active user registry", zap.Error(err))
		return
	}
	if len(users) == 0 {
		s.logger.Warn("No active users, no proactive messages will be scheduled")
		return
	}

	s.logger.Info("Scheduling proactive messages", zap.Int("users", len(users)))
	for _, userID := range users {
		if err := s.ScheduleUser(userID); err != nil {
			s.logger.Error("Failed to schedule user",
				zap.Error(err),
				zap.Int64("user_id", userID))
		}
	}
}

// ScheduleUser arms the fixed daily event plus up to RandomCount
// random daytime events for one user.
func (s *Service) ScheduleUser(userID int64) error {
	now := s.now().In(s.cfg.Location)

	daily := s.nextDaily(now)
	s.Schedule(fmt.Sprintf("daily_message_%d", userID), daily, func() { s.run(userID) })
	s.logger.Info("Scheduled daily message",
		zap.Int64("user_id", userID),
		zap.Time("fire_at", daily))

	times, err := s.randomFireTimes(now)
	if err != nil {
		return fmt.Errorf("plan random messages: %w", err)
	}
	for i, at := range times {
		s.Schedule(fmt.Sprintf("random_message_%d_%d", i, userID), at, func() { s.run(userID) })
	}
	if len(times) == 0 {
		s.logger.Warn("No random message slots survived planning", zap.Int64("user_id", userID))
	} else {
		s.logger.Info("Scheduled random messages",
			zap.Int64("user_id", userID),
			zap.Times("fire_at", times))
	}
	return nil
}

// ScheduleWelcome arms the first proactive contact shortly after a
// user's /start, independent of the daily and random events.
func (s *Service) ScheduleWelcome(userID int64) {
	at := s.now().In(s.cfg.Location).Add(s.cfg.WelcomeDelay)
	s.Schedule(fmt.Sprintf("welcome_message_%d", userID), at, func() { s.run(userID) })
	s.logger.Info("Scheduled welcome message",
		zap.Int64("user_id", userID),
		zap.Time("fire_at", at))
}

// Pending reports how many events are currently armed.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels all armed timers and waits for in-flight jobs to
// finish. Pending events are not persisted; the schedule is rebuilt
// from the registry on the next start.
func (s *Service) Stop() {
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()

	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	close(s.quit)
	s.wg.Wait()
}
