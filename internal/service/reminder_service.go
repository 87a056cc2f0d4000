package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
	"github.com/jasonzgao/accountability-partner-sub001/internal/repository"
)

// ReminderService builds human-readable goal messages for notifications.
type ReminderService struct {
	goalRepo *repository.GoalRepository
}

func NewReminderService(goalRepo *repository.GoalRepository) *ReminderService {
	return &ReminderService{goalRepo: goalRepo}
}

// DueReminders returns active goals whose reminder time is hh:mm of now and
// that are due today and not yet completed.
func (s *ReminderService) DueReminders(ctx context.Context, now time.Time) ([]model.Goal, error) {
	goals, err := s.goalRepo.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	slot := now.Format("15:04")
	var due []model.Goal
	for _, g := range goals {
		if g.ReminderTime == nil || *g.ReminderTime != slot {
			continue
		}
		if !ScheduleFor(g).IsActiveOn(now) || g.IsCompleted() {
			continue
		}
		due = append(due, g)
	}
	return due, nil
}

// DailySummary lists every goal active today with its progress.
func (s *ReminderService) DailySummary(ctx context.Context, now time.Time) (string, error) {
	goals, err := s.goalRepo.GetActive(ctx)
	if err != nil {
		return "", err
	}

	var open, done []model.Goal
	for _, g := range goals {
		if !ScheduleFor(g).IsActiveOn(now) {
			continue
		}
		if g.IsCompleted() {
			done = append(done, g)
		} else {
			open = append(open, g)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		return open[i].ProgressPercentage() < open[j].ProgressPercentage()
	})

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily goals</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("02.01.2006")))

	builder.WriteString("🔥 <b>In progress</b>\n")
	if len(open) == 0 {
		builder.WriteString("— nothing left for today\n")
	} else {
		for _, g := range open {
			builder.WriteString(FormatGoal(g))
		}
	}

	builder.WriteString("\n✅ <b>Completed</b>\n")
	if len(done) == 0 {
		builder.WriteString("— no goals completed yet\n")
	} else {
		for _, g := range done {
			builder.WriteString(FormatGoal(g))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// FormatReminder is the message sent at a goal's reminder time.
func FormatReminder(goal model.Goal) string {
	return strings.TrimSpace("⏰ <b>Reminder</b>\n" + FormatGoal(goal))
}

// FormatCompleted is the message sent when a goal reaches its target.
func FormatCompleted(goal model.Goal) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎉 <b>Goal completed:</b> %s", html.EscapeString(strings.TrimSpace(goal.Title))))
	sb.WriteString(fmt.Sprintf("\n   %s of %s", formatAmount(goal.CurrentProgress, goal.Unit), formatAmount(goal.Target, goal.Unit)))
	if goal.Streak > 0 {
		sb.WriteString(fmt.Sprintf("\n   🔥 streak: %d", goal.Streak))
	}
	return sb.String()
}

func FormatGoal(goal model.Goal) string {
	var sb strings.Builder

	icon := "🟢"
	switch {
	case goal.IsCompleted():
		icon = "✅"
	case goal.ProgressPercentage() < 0.5:
		icon = "⏳"
	}

	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(goal.Title))))
	sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", goal.Frequency))
	sb.WriteString(fmt.Sprintf("\n   📈 %s / %s · %.0f%%",
		formatAmount(goal.CurrentProgress, goal.Unit),
		formatAmount(goal.Target, goal.Unit),
		goal.ProgressPercentage()*100))
	if goal.Streak > 0 {
		sb.WriteString(fmt.Sprintf("\n   🔥 streak %d · %d days completed", goal.Streak, goal.DaysCompleted))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func formatAmount(v float64, unit string) string {
	s := strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
	if unit == "" {
		return s
	}
	return s + " " + html.EscapeString(unit)
}
