package scheduler

import (
	"fmt"
	"sort"
	"time"
)

// nextDaily computes the fixed daily fire time, rolled to tomorrow if
// today's slot has already passed.
func (s *Service) nextDaily(now time.Time) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(),
		s.cfg.DailyHour, s.cfg.DailyMinute, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

// randomFireTimes picks RandomCount distinct hours from the daytime
// window and pairs each with a random minute. Hours within one hour of
// now are dropped outright, so the result can hold fewer entries than
// requested, down to none. Each surviving slot already in the past is
// rolled to tomorrow.
func (s *Service) randomFireTimes(now time.Time) ([]time.Time, error) {
	candidates := s.cfg.WindowEnd - s.cfg.WindowStart + 1
	if candidates < s.cfg.RandomCount {
		return nil, fmt.Errorf("daytime window [%d,%d] has fewer than %d hours",
			s.cfg.WindowStart, s.cfg.WindowEnd, s.cfg.RandomCount)
	}

	s.mu.Lock()
	perm := s.rng.Perm(candidates)
	minutes := make([]int, s.cfg.RandomCount)
	for i := range minutes {
		minutes[i] = s.rng.Intn(60)
	}
	s.mu.Unlock()

	hours := make([]int, s.cfg.RandomCount)
	for i := 0; i < s.cfg.RandomCount; i++ {
		hours[i] = s.cfg.WindowStart + perm[i]
	}
	sort.Ints(hours)

	var times []time.Time
	for i, hour := range hours {
		// Too close to the current hour; dropped, not rescheduled
		if hour >= now.Hour()-1 && hour <= now.Hour()+1 {
			continue
		}
		at := time.Date(now.Year(), now.Month(), now.Day(), hour, minutes[i], 0, 0, now.Location())
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		times = append(times, at)
	}
	return times, nil
}
