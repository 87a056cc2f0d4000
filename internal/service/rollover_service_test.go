package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonzgao/accountability-partner-sub001/internal/logging"
	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
)

func TestStreakBroken(t *testing.T) {
	daily := Schedule{Frequency: model.FrequencyDaily}
	weekdays := Schedule{Frequency: model.FrequencyWeekdays}
	done := model.Goal{Target: 1, CurrentProgress: 1}
	open := model.Goal{Target: 1, CurrentProgress: 0.5}

	tests := []struct {
		name     string
		schedule Schedule
		goal     model.Goal
		previous time.Time
		current  time.Time
		want     bool
	}{
		{"completed day", daily, done, date(6, 0, 0), date(7, 0, 0), false},
		{"missed day", daily, open, date(6, 0, 0), date(7, 0, 0), true},
		{"skipped an active day", daily, done, date(6, 0, 0), date(8, 0, 0), true},
		{"weekend gap is not counted", weekdays, done, date(10, 0, 0), date(13, 0, 0), false},
		{"inactive day may stay incomplete", weekdays, open, date(11, 0, 0), date(12, 0, 0), false},
		{"weekly completed", Schedule{Frequency: model.FrequencyWeekly}, done, date(6, 0, 0), date(13, 0, 0), false},
		{"weekly skipped a week", Schedule{Frequency: model.FrequencyWeekly}, done, date(6, 0, 0), date(20, 0, 0), true},
		{"long downtime", daily, done, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), date(6, 0, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StreakBroken(tt.schedule, tt.goal, tt.previous, tt.current))
		})
	}
}

func TestRolloverService_Run(t *testing.T) {
	store := newTestStore(t, date(7, 0, 5))
	ctx := context.Background()
	svc := NewRolloverService(store.goals, logging.Discard())

	completed := store.addGoal(t, model.Goal{
		Title: "Completed", Type: model.GoalCompletion, Frequency: model.FrequencyDaily,
		Target: 1, CurrentProgress: 1, Streak: 3, StartDate: date(1, 0, 0), PeriodStart: date(6, 0, 0),
	})
	missed := store.addGoal(t, model.Goal{
		Title: "Missed", Type: model.GoalCompletion, Frequency: model.FrequencyDaily,
		Target: 5, CurrentProgress: 2, Streak: 4, StartDate: date(1, 0, 0), PeriodStart: date(6, 0, 0),
	})
	expiredEnd := date(6, 12, 0)
	expired := store.addGoal(t, model.Goal{
		Title: "Expired", Type: model.GoalCompletion, Frequency: model.FrequencyDaily,
		Target: 1, StartDate: date(1, 0, 0), EndDate: &expiredEnd, PeriodStart: date(6, 0, 0),
	})
	fresh := store.addGoal(t, model.Goal{
		Title: "Fresh", Type: model.GoalCompletion, Frequency: model.FrequencyDaily,
		Target: 1, StartDate: date(1, 0, 0),
	})

	res, err := svc.Run(ctx, date(7, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, RolloverResult{Reset: 2, Broken: 1, Deactivated: 1}, res)

	got, err := store.goals.GetByID(ctx, completed.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Streak)
	assert.Zero(t, got.CurrentProgress)
	assert.True(t, got.PeriodStart.Equal(date(7, 0, 0)))

	got, err = store.goals.GetByID(ctx, missed.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Streak)
	assert.Zero(t, got.CurrentProgress)

	got, err = store.goals.GetByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	got, err = store.goals.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.True(t, got.PeriodStart.Equal(date(7, 0, 0)))

	res, err = svc.Run(ctx, date(7, 8, 0))
	require.NoError(t, err)
	assert.Equal(t, RolloverResult{}, res, "same period rolls over once")
}

func TestRolloverService_WeekdayGoalKeepsStreakOverWeekend(t *testing.T) {
	store := newTestStore(t, date(13, 0, 1))
	ctx := context.Background()
	svc := NewRolloverService(store.goals, logging.Discard())

	goal := store.addGoal(t, model.Goal{
		Title: "Standup", Type: model.GoalCompletion, Frequency: model.FrequencyWeekdays,
		Target: 1, CurrentProgress: 1, Streak: 5, StartDate: date(1, 0, 0), PeriodStart: date(10, 0, 0),
	})

	res, err := svc.Run(ctx, date(13, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reset)
	assert.Zero(t, res.Broken)

	got, err := store.goals.GetByID(ctx, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Streak)
	assert.True(t, got.PeriodStart.Equal(date(13, 0, 0)))
}
