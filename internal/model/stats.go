package model

import "time"

type AppUsage struct {
	Name     string           `json:"name"`
	Category ActivityCategory `json:"category"`
	Minutes  float64          `json:"minutes"`
	Sessions int              `json:"sessions"`
}

type DaySummary struct {
	Date              string                       `json:"date"`
	TotalMinutes      float64                      `json:"total_minutes"`
	CategoryMinutes   map[ActivityCategory]float64 `json:"category_minutes"`
	Applications      []AppUsage                   `json:"applications"`
	ProductivityScore float64                      `json:"productivity_score"`
	SessionsCount     int                          `json:"sessions_count"`
}

type RangeSummary struct {
	Start             time.Time                    `json:"start"`
	End               time.Time                    `json:"end"`
	TotalMinutes      float64                      `json:"total_minutes"`
	CategoryMinutes   map[ActivityCategory]float64 `json:"category_minutes"`
	ProductivityScore float64                      `json:"productivity_score"`
	Days              []DaySummary                 `json:"days"`
}

// Habit is an application used regularly within the lookback window.
type Habit struct {
	Name            string           `json:"name"`
	Category        ActivityCategory `json:"category"`
	DaysSeen        int              `json:"days_seen"`
	TypicalHour     int              `json:"typical_hour"`
	AvgDailyMinutes float64          `json:"avg_daily_minutes"`
}
