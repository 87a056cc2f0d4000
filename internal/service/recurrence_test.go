package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
)

func TestSchedule_IsActiveOn(t *testing.T) {
	monday := date(6, 9, 0)
	saturday := date(11, 9, 0)
	sunday := date(12, 9, 0)

	tests := []struct {
		name     string
		schedule Schedule
		day      time.Time
		want     bool
	}{
		{"daily", Schedule{Frequency: model.FrequencyDaily}, saturday, true},
		{"weekly", Schedule{Frequency: model.FrequencyWeekly}, sunday, true},
		{"monthly", Schedule{Frequency: model.FrequencyMonthly}, monday, true},
		{"weekdays on monday", Schedule{Frequency: model.FrequencyWeekdays}, monday, true},
		{"weekdays on saturday", Schedule{Frequency: model.FrequencyWeekdays}, saturday, false},
		{"weekends on sunday", Schedule{Frequency: model.FrequencyWeekends}, sunday, true},
		{"weekends on monday", Schedule{Frequency: model.FrequencyWeekends}, monday, false},
		{"custom includes monday", Schedule{Frequency: model.FrequencyCustom, CustomDays: []int{1, 3}}, monday, true},
		{"custom excludes saturday", Schedule{Frequency: model.FrequencyCustom, CustomDays: []int{1, 3}}, saturday, false},
		{"custom sunday is 7", Schedule{Frequency: model.FrequencyCustom, CustomDays: []int{7}}, sunday, true},
		{"custom without days", Schedule{Frequency: model.FrequencyCustom}, saturday, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.schedule.IsActiveOn(tt.day))
		})
	}
}

func TestSchedule_NextDue(t *testing.T) {
	tests := []struct {
		name     string
		schedule Schedule
		from     time.Time
		want     time.Time
	}{
		{"daily", Schedule{Frequency: model.FrequencyDaily}, date(6, 9, 0), date(7, 9, 0)},
		{"weekdays from friday", Schedule{Frequency: model.FrequencyWeekdays}, date(10, 9, 0), date(13, 9, 0)},
		{"weekdays from saturday", Schedule{Frequency: model.FrequencyWeekdays}, date(11, 9, 0), date(13, 9, 0)},
		{"weekdays from monday", Schedule{Frequency: model.FrequencyWeekdays}, date(6, 9, 0), date(7, 9, 0)},
		{"weekends from monday", Schedule{Frequency: model.FrequencyWeekends}, date(6, 9, 0), date(11, 9, 0)},
		{"weekends from saturday", Schedule{Frequency: model.FrequencyWeekends}, date(11, 9, 0), date(12, 9, 0)},
		{"weekends from sunday", Schedule{Frequency: model.FrequencyWeekends}, date(12, 9, 0), date(18, 9, 0)},
		{"weekly", Schedule{Frequency: model.FrequencyWeekly}, date(6, 9, 0), date(13, 9, 0)},
		{"monthly", Schedule{Frequency: model.FrequencyMonthly}, date(15, 9, 0), time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)},
		{"monthly clamps to leap february",
			Schedule{Frequency: model.FrequencyMonthly},
			time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC)},
		{"monthly clamps to short month",
			Schedule{Frequency: model.FrequencyMonthly},
			time.Date(2023, 3, 31, 9, 0, 0, 0, time.UTC),
			time.Date(2023, 4, 30, 9, 0, 0, 0, time.UTC)},
		{"custom next listed day", Schedule{Frequency: model.FrequencyCustom, CustomDays: []int{1, 3}}, date(6, 9, 0), date(8, 9, 0)},
		{"custom wraps to next week", Schedule{Frequency: model.FrequencyCustom, CustomDays: []int{1, 3}}, date(8, 9, 0), date(13, 9, 0)},
		{"custom single day", Schedule{Frequency: model.FrequencyCustom, CustomDays: []int{1}}, date(6, 9, 0), date(13, 9, 0)},
		{"custom without days", Schedule{Frequency: model.FrequencyCustom}, date(6, 9, 0), date(13, 9, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.schedule.NextDue(tt.from)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
			assert.True(t, tt.schedule.NextDue(tt.from).Equal(got), "NextDue is pure")
			assert.True(t, got.After(tt.from))
		})
	}
}

func TestSchedule_NextDueIsActive(t *testing.T) {
	schedules := []Schedule{
		{Frequency: model.FrequencyWeekdays},
		{Frequency: model.FrequencyWeekends},
		{Frequency: model.FrequencyCustom, CustomDays: []int{2, 6}},
	}
	for _, s := range schedules {
		from := date(1, 8, 0)
		for i := 0; i < 30; i++ {
			from = s.NextDue(from)
			assert.True(t, s.IsActiveOn(from), "%s: %s", s.Frequency, from.Weekday())
		}
	}
}

func TestSchedule_PeriodStart(t *testing.T) {
	sunday := date(12, 18, 30)

	assert.True(t, Schedule{Frequency: model.FrequencyDaily}.PeriodStart(sunday).Equal(date(12, 0, 0)))
	assert.True(t, Schedule{Frequency: model.FrequencyWeekly}.PeriodStart(sunday).Equal(date(6, 0, 0)), "weeks start on monday")
	assert.True(t, Schedule{Frequency: model.FrequencyWeekly}.PeriodStart(date(6, 0, 0)).Equal(date(6, 0, 0)))
	assert.True(t, Schedule{Frequency: model.FrequencyMonthly}.PeriodStart(sunday).Equal(date(1, 0, 0)))
}

func TestSchedule_NextPeriod(t *testing.T) {
	assert.True(t, Schedule{Frequency: model.FrequencyWeekdays}.NextPeriod(date(10, 0, 0)).Equal(date(11, 0, 0)))
	assert.True(t, Schedule{Frequency: model.FrequencyWeekly}.NextPeriod(date(6, 0, 0)).Equal(date(13, 0, 0)))
	assert.True(t, Schedule{Frequency: model.FrequencyMonthly}.NextPeriod(date(1, 0, 0)).Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
}
