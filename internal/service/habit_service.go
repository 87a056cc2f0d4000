package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
	"github.com/jasonzgao/accountability-partner-sub001/internal/repository"
)

const (
	DefaultHabitLookbackDays = 14
	DefaultHabitMinDays      = 5
)

// HabitService detects applications that are used on a regular basis.
type HabitService struct {
	activities *repository.ActivityRepository
}

func NewHabitService(activities *repository.ActivityRepository) *HabitService {
	return &HabitService{activities: activities}
}

type habitAcc struct {
	category model.ActivityCategory
	days     map[string]struct{}
	hours    [24]int
	minutes  float64
}

// Detect returns applications used on at least minDays distinct days during
// the lookbackDays days ending with now's day, most regular first.
func (s *HabitService) Detect(ctx context.Context, now time.Time, lookbackDays, minDays int) ([]model.Habit, error) {
	if lookbackDays <= 0 {
		return nil, fmt.Errorf("lookback days must be positive, got %d", lookbackDays)
	}
	if minDays <= 0 {
		minDays = 1
	}
	start := startOfDay(now).AddDate(0, 0, -(lookbackDays - 1))
	records, err := s.activities.GetInRange(ctx, start, now)
	if err != nil {
		return nil, fmt.Errorf("load habit activity: %w", err)
	}

	byApp := make(map[string]*habitAcc)
	for _, r := range records {
		minutes := r.Overlap(start, now, now).Minutes()
		if minutes <= 0 {
			continue
		}
		acc, ok := byApp[r.Name]
		if !ok {
			acc = &habitAcc{category: r.Category, days: make(map[string]struct{})}
			byApp[r.Name] = acc
		}
		local := r.StartTime.In(now.Location())
		if local.Before(start) {
			local = start
		}
		acc.days[local.Format(time.DateOnly)] = struct{}{}
		acc.hours[local.Hour()]++
		acc.minutes += minutes
	}

	var habits []model.Habit
	for name, acc := range byApp {
		if len(acc.days) < minDays {
			continue
		}
		habits = append(habits, model.Habit{
			Name:            name,
			Category:        acc.category,
			DaysSeen:        len(acc.days),
			TypicalHour:     busiestHour(acc.hours),
			AvgDailyMinutes: round2(acc.minutes / float64(len(acc.days))),
		})
	}
	sort.Slice(habits, func(i, j int) bool {
		a, b := habits[i], habits[j]
		if a.DaysSeen != b.DaysSeen {
			return a.DaysSeen > b.DaysSeen
		}
		if a.AvgDailyMinutes != b.AvgDailyMinutes {
			return a.AvgDailyMinutes > b.AvgDailyMinutes
		}
		return a.Name < b.Name
	})
	return habits, nil
}

func busiestHour(hours [24]int) int {
	best := 0
	for h := 1; h < 24; h++ {
		if hours[h] > hours[best] {
			best = h
		}
	}
	return best
}
