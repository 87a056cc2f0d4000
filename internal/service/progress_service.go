package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/jasonzgao/accountability-partner-sub001/internal/clock"
	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
	"github.com/jasonzgao/accountability-partner-sub001/internal/repository"
)

// ProgressService derives goal progress from recorded activity.
type ProgressService struct {
	goals      *repository.GoalRepository
	activities *repository.ActivityRepository
	clock      clock.Clock
	log        *slog.Logger
}

func NewProgressService(goals *repository.GoalRepository, activities *repository.ActivityRepository, clk clock.Clock, log *slog.Logger) *ProgressService {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &ProgressService{goals: goals, activities: activities, clock: clk, log: log.With("component", "progress")}
}

// Measured reports whether progress for the goal type comes from activity.
// Completion and custom goals are updated by hand.
func Measured(t model.GoalType) bool {
	switch t {
	case model.GoalTimeSpent, model.GoalTimeLimit, model.GoalActivityCount, model.GoalActivityRatio:
		return true
	}
	return false
}

// Recompute measures the goal over the period it is in up to now and stores
// the result when it changed. Until rollover moves the goal on, that is the
// stored period, cut off at its end. Manual goals are returned untouched.
func (s *ProgressService) Recompute(ctx context.Context, goalID string, now time.Time) (*model.Goal, error) {
	goal, err := s.goals.GetByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, fmt.Errorf("goal %s: %w", goalID, model.ErrNotFound)
	}
	if !Measured(goal.Type) {
		return goal, nil
	}

	start, end := measureWindow(*goal, now)
	records, err := s.activities.GetInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load activity for goal %s: %w", goalID, err)
	}
	value := Measure(*goal, records, start, end)
	if value == goal.CurrentProgress {
		return goal, nil
	}
	if err := s.goals.UpdateProgress(ctx, goal.ID, value); err != nil {
		return nil, err
	}
	return s.goals.GetByID(ctx, goal.ID)
}

// measureWindow returns the span CurrentProgress covers at now.
func measureWindow(goal model.Goal, now time.Time) (time.Time, time.Time) {
	sched := ScheduleFor(goal)
	current := sched.PeriodStart(now)
	if goal.PeriodStart.IsZero() || !current.After(goal.PeriodStart) {
		return current, now
	}
	start := goal.PeriodStart.In(now.Location())
	end := sched.NextPeriod(start)
	if end.After(now) {
		end = now
	}
	return start, end
}

// RecomputeAll recomputes every active goal and joins the failures.
func (s *ProgressService) RecomputeAll(ctx context.Context, now time.Time) error {
	goals, err := s.goals.GetActive(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, g := range goals {
		if !Measured(g.Type) {
			continue
		}
		if _, err := s.Recompute(ctx, g.ID, now); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run recomputes active goals whenever a new activity is saved, until ctx is done.
func (s *ProgressService) Run(ctx context.Context) {
	sub := s.activities.Subscribe(16)
	defer sub.Cancel()

	s.log.Info("progress tracking started")
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			if err := s.RecomputeAll(ctx, s.clock.Now()); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Warn("recompute goal progress", "error", err)
			}
		}
	}
}

// Measure computes a goal's progress from the records overlapping [start, end).
func Measure(goal model.Goal, records []model.ActivityRecord, start, end time.Time) float64 {
	var (
		total      time.Duration
		productive time.Duration
		count      int
	)
	for _, r := range records {
		if !matchesGoal(goal, r) {
			continue
		}
		d := r.Overlap(start, end, end)
		total += d
		if r.Category == model.CategoryProductive {
			productive += d
		}
		count++
	}

	switch goal.Type {
	case model.GoalTimeSpent, model.GoalTimeLimit:
		if strings.EqualFold(goal.Unit, "hours") {
			return round2(total.Hours())
		}
		return round2(total.Minutes())
	case model.GoalActivityCount:
		return float64(count)
	case model.GoalActivityRatio:
		if total <= 0 {
			return 0
		}
		return round2(float64(productive) / float64(total) * 100)
	default:
		return goal.CurrentProgress
	}
}

func matchesGoal(goal model.Goal, r model.ActivityRecord) bool {
	if goal.CategoryFilter != nil && *goal.CategoryFilter != "" &&
		!strings.EqualFold(strings.TrimSpace(*goal.CategoryFilter), string(r.Category)) {
		return false
	}
	if goal.ApplicationFilter != nil && *goal.ApplicationFilter != "" &&
		!matchSubstring(*goal.ApplicationFilter, strings.ToLower(r.Name)) {
		return false
	}
	if goal.URLFilter != nil && *goal.URLFilter != "" {
		host := hostOf(deref(r.URL))
		if host == "" || !matchHost(*goal.URLFilter, host) {
			return false
		}
	}
	return true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
