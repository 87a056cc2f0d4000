package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
)

func TestHabitService_Detect(t *testing.T) {
	store := newTestStore(t, date(15, 12, 0))
	for day := 6; day <= 10; day++ {
		store.addActivity(t, "Xcode", date(day, 9, 0), time.Hour, model.CategoryProductive)
	}
	store.addActivity(t, "Xcode", date(3, 10, 0), 30*time.Minute, model.CategoryProductive)
	for day := 6; day <= 8; day++ {
		store.addActivity(t, "Steam", date(day, 21, 0), 2*time.Hour, model.CategoryDistracting)
	}
	store.addActivity(t, "Xcode", date(1, 9, 0), time.Hour, model.CategoryProductive)

	svc := NewHabitService(store.activities)
	habits, err := svc.Detect(context.Background(), date(15, 12, 0), 14, 5)
	require.NoError(t, err)
	require.Len(t, habits, 1)

	h := habits[0]
	assert.Equal(t, "Xcode", h.Name)
	assert.Equal(t, model.CategoryProductive, h.Category)
	assert.Equal(t, 6, h.DaysSeen, "records before the lookback window are ignored")
	assert.Equal(t, 9, h.TypicalHour)
	assert.InDelta(t, 55, h.AvgDailyMinutes, 0.001)

	habits, err = svc.Detect(context.Background(), date(15, 12, 0), 14, 3)
	require.NoError(t, err)
	require.Len(t, habits, 2)
	assert.Equal(t, "Xcode", habits[0].Name)
	assert.Equal(t, "Steam", habits[1].Name)
	assert.Equal(t, 21, habits[1].TypicalHour)
}

func TestHabitService_RejectsEmptyLookback(t *testing.T) {
	store := newTestStore(t, date(15, 12, 0))
	_, err := NewHabitService(store.activities).Detect(context.Background(), date(15, 12, 0), 0, 5)
	assert.Error(t, err)
}

func TestBusiestHour(t *testing.T) {
	var hours [24]int
	assert.Zero(t, busiestHour(hours))
	hours[14] = 2
	hours[9] = 2
	assert.Equal(t, 9, busiestHour(hours), "ties resolve to the earliest hour")
	hours[20] = 3
	assert.Equal(t, 20, busiestHour(hours))
}
