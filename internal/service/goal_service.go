package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jasonzgao/accountability-partner-sub001/internal/clock"
	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
	"github.com/jasonzgao/accountability-partner-sub001/internal/repository"
)

// GoalInput represents data required to create a goal.
type GoalInput struct {
	Title             string
	Type              model.GoalType
	Frequency         model.GoalFrequency
	Target            float64
	Unit              string
	StartDate         time.Time
	EndDate           *time.Time
	Category          string
	ApplicationFilter string
	URLFilter         string
	CustomDays        []int
	ReminderTime      string
}

// GoalService wraps goal-related business logic.
type GoalService struct {
	goalRepo     *repository.GoalRepository
	categoryRepo *repository.CategoryRepository
	validate     *validator.Validate
	clock        clock.Clock
}

func NewGoalService(goalRepo *repository.GoalRepository, categoryRepo *repository.CategoryRepository, clk clock.Clock) *GoalService {
	if clk == nil {
		clk = clock.System{}
	}
	return &GoalService{
		goalRepo:     goalRepo,
		categoryRepo: categoryRepo,
		validate:     validator.New(),
		clock:        clk,
	}
}

func (s *GoalService) CreateGoal(ctx context.Context, input GoalInput) (*model.Goal, error) {
	now := s.clock.Now()
	start := input.StartDate
	if start.IsZero() {
		start = now
	}

	goal := model.Goal{
		Title:               strings.TrimSpace(input.Title),
		Type:                input.Type,
		Frequency:           input.Frequency,
		Target:              input.Target,
		Unit:                strings.TrimSpace(input.Unit),
		StartDate:           start,
		EndDate:             input.EndDate,
		ApplicationFilter:   optional(input.ApplicationFilter),
		URLFilter:           optional(input.URLFilter),
		CustomFrequencyDays: input.CustomDays,
		ReminderTime:        optional(input.ReminderTime),
		LastUpdated:         now,
		IsActive:            true,
	}
	if goal.Frequency == model.FrequencyCustom && len(goal.CustomFrequencyDays) == 0 {
		return nil, fmt.Errorf("custom frequency needs at least one weekday")
	}
	if goal.EndDate != nil && goal.EndDate.Before(goal.StartDate) {
		return nil, fmt.Errorf("end date %s is before start date %s",
			goal.EndDate.Format(time.DateOnly), goal.StartDate.Format(time.DateOnly))
	}

	if input.Category != "" {
		category, err := s.categoryRepo.GetByID(ctx, strings.ToLower(strings.TrimSpace(input.Category)))
		if err != nil {
			return nil, err
		}
		if category == nil {
			return nil, fmt.Errorf("category %q: %w", input.Category, model.ErrNotFound)
		}
		code := category.Kind.Code()
		goal.CategoryFilter = &code
	}

	if err := s.validate.Struct(goal); err != nil {
		return nil, fmt.Errorf("validate goal: %w", err)
	}
	goal.PeriodStart = ScheduleFor(goal).PeriodStart(now)

	if err := s.goalRepo.Save(ctx, &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

func (s *GoalService) ListGoals(ctx context.Context, filter model.GoalFilter) ([]model.Goal, error) {
	return s.goalRepo.GetGoals(ctx, filter)
}

func (s *GoalService) GetGoal(ctx context.Context, id string) (*model.Goal, error) {
	goal, err := s.goalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, fmt.Errorf("goal %s: %w", id, model.ErrNotFound)
	}
	return goal, nil
}

// SetProgress records a manual progress value.
func (s *GoalService) SetProgress(ctx context.Context, id string, value float64) (*model.Goal, error) {
	if value < 0 {
		return nil, fmt.Errorf("progress must not be negative, got %g", value)
	}
	if _, err := s.GetGoal(ctx, id); err != nil {
		return nil, err
	}
	if err := s.goalRepo.UpdateProgress(ctx, id, value); err != nil {
		return nil, err
	}
	return s.GetGoal(ctx, id)
}

// ArchiveGoal retires a goal while keeping its history.
func (s *GoalService) ArchiveGoal(ctx context.Context, id string) (*model.Goal, error) {
	if _, err := s.GetGoal(ctx, id); err != nil {
		return nil, err
	}
	if err := s.goalRepo.Archive(ctx, id); err != nil {
		return nil, err
	}
	return s.GetGoal(ctx, id)
}

// DeleteGoal removes a goal and its progress history completely.
func (s *GoalService) DeleteGoal(ctx context.Context, id string) error {
	return s.goalRepo.Delete(ctx, id)
}

func (s *GoalService) History(ctx context.Context, id string) ([]model.GoalProgressRecord, error) {
	return s.goalRepo.GetProgressHistory(ctx, id)
}
