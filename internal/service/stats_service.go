package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jasonzgao/accountability-partner-sub001/internal/clock"
	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
	"github.com/jasonzgao/accountability-partner-sub001/internal/repository"
)

// StatsService aggregates activity into daily and ranged summaries.
type StatsService struct {
	activities *repository.ActivityRepository
	clock      clock.Clock
}

func NewStatsService(activities *repository.ActivityRepository, clk clock.Clock) *StatsService {
	if clk == nil {
		clk = clock.System{}
	}
	return &StatsService{activities: activities, clock: clk}
}

// DailySummary aggregates the calendar day containing day, in day's location.
func (s *StatsService) DailySummary(ctx context.Context, day time.Time) (model.DaySummary, error) {
	start := startOfDay(day)
	end := start.AddDate(0, 0, 1)
	records, err := s.activities.GetInRange(ctx, start, end)
	if err != nil {
		return model.DaySummary{}, fmt.Errorf("load day activity: %w", err)
	}
	return summarizeDay(records, start, end, s.clock.Now()), nil
}

// Range aggregates every day from start up to (excluding) end.
func (s *StatsService) Range(ctx context.Context, start, end time.Time) (model.RangeSummary, error) {
	start = startOfDay(start)
	if !end.After(start) {
		return model.RangeSummary{}, fmt.Errorf("range end %s must be after start %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	records, err := s.activities.GetInRange(ctx, start, end)
	if err != nil {
		return model.RangeSummary{}, fmt.Errorf("load range activity: %w", err)
	}

	now := s.clock.Now()
	summary := model.RangeSummary{
		Start:           start,
		End:             end,
		CategoryMinutes: make(map[model.ActivityCategory]float64),
	}
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		dayEnd := day.AddDate(0, 0, 1)
		if dayEnd.After(end) {
			dayEnd = end
		}
		ds := summarizeDay(records, day, dayEnd, now)
		summary.Days = append(summary.Days, ds)
		summary.TotalMinutes += ds.TotalMinutes
		for c, m := range ds.CategoryMinutes {
			summary.CategoryMinutes[c] += m
		}
	}
	summary.TotalMinutes = round2(summary.TotalMinutes)
	for c, m := range summary.CategoryMinutes {
		summary.CategoryMinutes[c] = round2(m)
	}
	summary.ProductivityScore = productivityScore(summary.CategoryMinutes, summary.TotalMinutes)
	return summary, nil
}

func summarizeDay(records []model.ActivityRecord, start, end, now time.Time) model.DaySummary {
	summary := model.DaySummary{
		Date:            start.Format(time.DateOnly),
		CategoryMinutes: make(map[model.ActivityCategory]float64),
	}
	apps := make(map[string]*model.AppUsage)
	for _, r := range records {
		minutes := r.Overlap(start, end, now).Minutes()
		if minutes <= 0 {
			continue
		}
		summary.SessionsCount++
		summary.TotalMinutes += minutes
		summary.CategoryMinutes[r.Category] += minutes

		usage, ok := apps[r.Name]
		if !ok {
			usage = &model.AppUsage{Name: r.Name, Category: r.Category}
			apps[r.Name] = usage
		}
		usage.Minutes += minutes
		usage.Sessions++
	}

	for _, usage := range apps {
		usage.Minutes = round2(usage.Minutes)
		summary.Applications = append(summary.Applications, *usage)
	}
	sort.Slice(summary.Applications, func(i, j int) bool {
		a, b := summary.Applications[i], summary.Applications[j]
		if a.Minutes != b.Minutes {
			return a.Minutes > b.Minutes
		}
		return a.Name < b.Name
	})

	summary.ProductivityScore = productivityScore(summary.CategoryMinutes, summary.TotalMinutes)
	summary.TotalMinutes = round2(summary.TotalMinutes)
	for c, m := range summary.CategoryMinutes {
		summary.CategoryMinutes[c] = round2(m)
	}
	return summary
}

// productivityScore is the productive share of tracked time, 0-100.
func productivityScore(byCategory map[model.ActivityCategory]float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return round2(byCategory[model.CategoryProductive] / total * 100)
}
