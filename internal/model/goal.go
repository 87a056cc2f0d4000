package model

import (
	"time"

	"gorm.io/datatypes"
)

// GoalType describes how a goal's progress is measured.
type GoalType string

const (
	GoalTimeSpent     GoalType = "time_spent"
	GoalTimeLimit     GoalType = "time_limit"
	GoalActivityCount GoalType = "activity_count"
	GoalActivityRatio GoalType = "activity_ratio"
	GoalCompletion    GoalType = "completion"
	GoalCustom        GoalType = "custom"
)

// GoalFrequency is the recurrence policy of a goal.
type GoalFrequency string

const (
	FrequencyDaily    GoalFrequency = "daily"
	FrequencyWeekdays GoalFrequency = "weekdays"
	FrequencyWeekends GoalFrequency = "weekends"
	FrequencyWeekly   GoalFrequency = "weekly"
	FrequencyMonthly  GoalFrequency = "monthly"
	FrequencyCustom   GoalFrequency = "custom"
)

// Goal is a recurring quantitative target evaluated per period.
//
// CustomFrequencyDays holds ISO weekdays (1 = Monday ... 7 = Sunday) and is
// only consulted for FrequencyCustom. PeriodStart marks the period that
// CurrentProgress belongs to; the rollover scheduler advances it.
// CompletedPeriod is the PeriodStart of the last period credited to the
// streak, so each period counts at most once.
type Goal struct {
	ID                  string                   `gorm:"primaryKey" json:"id"`
	Title               string                   `gorm:"not null" json:"title" validate:"required,max=200"`
	Type                GoalType                 `gorm:"index;not null" json:"type" validate:"required,oneof=time_spent time_limit activity_count activity_ratio completion custom"`
	Frequency           GoalFrequency            `gorm:"index;not null" json:"frequency" validate:"required,oneof=daily weekdays weekends weekly monthly custom"`
	Target              float64                  `json:"target" validate:"gte=0"`
	CurrentProgress     float64                  `json:"current_progress" validate:"gte=0"`
	Unit                string                   `json:"unit"`
	StartDate           time.Time                `json:"start_date"`
	EndDate             *time.Time               `json:"end_date,omitempty"`
	CategoryFilter      *string                  `json:"category_filter,omitempty"`
	ApplicationFilter   *string                  `json:"application_filter,omitempty"`
	URLFilter           *string                  `json:"url_filter,omitempty"`
	LastUpdated         time.Time                `json:"last_updated"`
	PeriodStart         time.Time                `json:"period_start"`
	CompletedPeriod     *time.Time               `json:"completed_period,omitempty"`
	IsActive            bool                     `gorm:"index" json:"is_active"`
	IsArchived          bool                     `gorm:"index" json:"is_archived"`
	DaysCompleted       int                      `json:"days_completed"`
	Streak              int                      `json:"streak"`
	CustomFrequencyDays datatypes.JSONSlice[int] `json:"custom_frequency_days,omitempty" validate:"dive,min=1,max=7"`
	ReminderTime        *string                  `json:"reminder_time,omitempty" validate:"omitempty,datetime=15:04"`
	Progress            []GoalProgressRecord     `gorm:"foreignKey:GoalID;constraint:OnDelete:CASCADE" json:"-" validate:"-"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
}

func (Goal) TableName() string { return "goals" }

// ProgressPercentage returns progress toward the target clamped to [0, 1].
func (g Goal) ProgressPercentage() float64 {
	if g.Target <= 0 {
		return 0
	}
	pct := g.CurrentProgress / g.Target
	switch {
	case pct > 1:
		return 1
	case pct < 0:
		return 0
	}
	return pct
}

func (g Goal) IsCompleted() bool { return g.CurrentProgress >= g.Target }

func (g Goal) IsExpired(now time.Time) bool {
	return g.EndDate != nil && now.After(*g.EndDate)
}

// GoalProgressRecord is an immutable snapshot appended on every progress mutation.
type GoalProgressRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	GoalID        string    `gorm:"not null;index:idx_goal_progress_goal_date,priority:1" json:"goal_id"`
	Date          time.Time `gorm:"not null;index:idx_goal_progress_goal_date,priority:2" json:"date"`
	ProgressValue float64   `json:"progress_value"`
	IsCompleted   bool      `json:"is_completed"`
}

func (GoalProgressRecord) TableName() string { return "goal_progress" }

// GoalFilter selects goals; nil fields are ignored. The substring filters
// match against the goal's own filter columns.
type GoalFilter struct {
	IsActive    *bool
	Type        *GoalType
	Frequency   *GoalFrequency
	IsCompleted *bool
	IsArchived  *bool
	Category    *string
	Application *string
	URL         *string
}
