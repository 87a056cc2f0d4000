package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
	"github.com/jasonzgao/accountability-partner-sub001/internal/repository"
)

// maxSkippedPeriods bounds the scan for skipped active periods after a long
// downtime; beyond it the streak is treated as broken.
const maxSkippedPeriods = 400

// RolloverResult summarizes one rollover pass.
type RolloverResult struct {
	Reset       int
	Broken      int
	Deactivated int
}

// RolloverService advances goals into their current period. It is the only
// place a streak is reset.
type RolloverService struct {
	goals *repository.GoalRepository
	log   *slog.Logger
}

func NewRolloverService(goals *repository.GoalRepository, log *slog.Logger) *RolloverService {
	if log == nil {
		log = slog.Default()
	}
	return &RolloverService{goals: goals, log: log.With("component", "rollover")}
}

// Run rolls every active goal forward to the period containing now. A streak
// breaks when the period that ended was active but not completed, or when an
// active period passed without the goal being rolled into it. Expired goals
// are deactivated.
func (s *RolloverService) Run(ctx context.Context, now time.Time) (RolloverResult, error) {
	var res RolloverResult
	goals, err := s.goals.GetActive(ctx)
	if err != nil {
		return res, err
	}

	var errs []error
	for _, goal := range goals {
		if goal.IsExpired(now) {
			if err := s.goals.Deactivate(ctx, goal.ID); err != nil {
				errs = append(errs, fmt.Errorf("deactivate goal %s: %w", goal.ID, err))
				continue
			}
			res.Deactivated++
			s.log.Info("goal expired", "goal_id", goal.ID, "title", goal.Title)
			continue
		}

		sched := ScheduleFor(goal)
		current := sched.PeriodStart(now)
		if goal.PeriodStart.IsZero() {
			if _, err := s.goals.InitPeriod(ctx, goal.ID, current); err != nil {
				errs = append(errs, fmt.Errorf("initialize goal period %s: %w", goal.ID, err))
			}
			continue
		}
		if !current.After(goal.PeriodStart) {
			continue
		}

		// The streak decision runs on the stored row so progress recorded
		// since the snapshot counts.
		roll, err := s.goals.RollPeriod(ctx, goal.ID, current, func(stored model.Goal) bool {
			return StreakBroken(sched, stored, stored.PeriodStart.In(now.Location()), current)
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !roll.Rolled {
			continue
		}
		res.Reset++
		if roll.StreakLost {
			res.Broken++
			s.log.Info("goal streak broken", "goal_id", goal.ID, "title", goal.Title, "streak", roll.Streak)
		}
	}

	if res.Reset > 0 || res.Deactivated > 0 {
		s.log.Info("goal rollover finished", "reset", res.Reset, "broken", res.Broken, "deactivated", res.Deactivated)
	}
	return res, errors.Join(errs...)
}

// StreakBroken reports whether moving goal from the period starting at
// previous to the one starting at current loses its streak.
func StreakBroken(sched Schedule, goal model.Goal, previous, current time.Time) bool {
	if sched.IsActiveOn(previous) && !goal.IsCompleted() {
		return true
	}
	p := sched.NextPeriod(previous)
	for i := 0; p.Before(current); i++ {
		if i >= maxSkippedPeriods || sched.IsActiveOn(p) {
			return true
		}
		p = sched.NextPeriod(p)
	}
	return false
}
