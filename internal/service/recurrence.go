package service

import (
	"time"

	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
)

// Schedule is the calendar policy of a goal. All methods are pure and
// interpret dates in the location of their argument.
type Schedule struct {
	Frequency model.GoalFrequency
	// CustomDays are ISO weekdays (1 = Monday ... 7 = Sunday) used by
	// FrequencyCustom. An empty set behaves like daily for IsActiveOn and
	// advances a week for NextDue.
	CustomDays []int
}

func ScheduleFor(goal model.Goal) Schedule {
	return Schedule{Frequency: goal.Frequency, CustomDays: goal.CustomFrequencyDays}
}

// IsActiveOn reports whether the goal counts on the given date.
func (s Schedule) IsActiveOn(date time.Time) bool {
	switch s.Frequency {
	case model.FrequencyWeekdays:
		return !isWeekend(date.Weekday())
	case model.FrequencyWeekends:
		return isWeekend(date.Weekday())
	case model.FrequencyCustom:
		if len(s.CustomDays) == 0 {
			return true
		}
		return s.hasCustomDay(date.Weekday())
	default:
		// daily, weekly and monthly: every day inside the period counts.
		return true
	}
}

// NextDue returns the next date the goal is due after from.
func (s Schedule) NextDue(from time.Time) time.Time {
	switch s.Frequency {
	case model.FrequencyWeekdays:
		next := from.AddDate(0, 0, 1)
		switch next.Weekday() {
		case time.Saturday:
			next = next.AddDate(0, 0, 2)
		case time.Sunday:
			next = next.AddDate(0, 0, 1)
		}
		return next
	case model.FrequencyWeekends:
		next := from.AddDate(0, 0, 1)
		if !isWeekend(next.Weekday()) {
			next = next.AddDate(0, 0, daysUntil(next.Weekday(), time.Saturday))
		}
		return next
	case model.FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case model.FrequencyMonthly:
		return addMonthClamped(from, 1)
	case model.FrequencyCustom:
		if len(s.CustomDays) == 0 {
			return from.AddDate(0, 0, 7)
		}
		for i := 1; i <= 7; i++ {
			next := from.AddDate(0, 0, i)
			if s.hasCustomDay(next.Weekday()) {
				return next
			}
		}
		return from.AddDate(0, 0, 7)
	default:
		return from.AddDate(0, 0, 1)
	}
}

// PeriodStart returns the start of the period containing t: the ISO week
// (Monday) for weekly goals, the month for monthly goals, the day otherwise.
func (s Schedule) PeriodStart(t time.Time) time.Time {
	day := startOfDay(t)
	switch s.Frequency {
	case model.FrequencyWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case model.FrequencyMonthly:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	default:
		return day
	}
}

// NextPeriod returns the start of the period following periodStart.
func (s Schedule) NextPeriod(periodStart time.Time) time.Time {
	start := s.PeriodStart(periodStart)
	switch s.Frequency {
	case model.FrequencyWeekly:
		return start.AddDate(0, 0, 7)
	case model.FrequencyMonthly:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

func (s Schedule) hasCustomDay(wd time.Weekday) bool {
	iso := isoWeekday(wd)
	for _, d := range s.CustomDays {
		if d == iso {
			return true
		}
	}
	return false
}

func isWeekend(wd time.Weekday) bool {
	return wd == time.Saturday || wd == time.Sunday
}

// isoWeekday maps Sunday=0 to 7 so Monday is 1.
func isoWeekday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

func daysUntil(from, to time.Weekday) int {
	return (int(to) - int(from) + 7) % 7
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// addMonthClamped keeps the day of month, clamped to the target month's length
// (Jan 31 + 1 month = Feb 28/29), and the time of day.
func addMonthClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, months, 0)
	if last := daysInMonth(target.Month(), target.Year()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(month time.Month, year int) int {
	// Move to next month, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	firstOfNextMonth := firstOfMonth.AddDate(0, 1, 0)
	lastOfMonth := firstOfNextMonth.AddDate(0, 0, -1)
	return lastOfMonth.Day()
}
