package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
)

var (
	subtle = lipgloss.Color("#8E8E93")
	accent = lipgloss.Color("#74c7ec")

	titleStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(subtle)
	boxStyle   = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(subtle).
			Padding(0, 1)
)

func categoryStyle(c model.ActivityCategory) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color())).Bold(true)
}

func renderActivity(w io.Writer, r model.ActivityRecord) {
	end := "ongoing"
	if r.EndTime != nil {
		end = r.EndTime.Local().Format("15:04:05")
	}
	line := fmt.Sprintf("%s  %s → %s  %s",
		mutedStyle.Render(shortID(r.ID)),
		r.StartTime.Local().Format("2006-01-02 15:04:05"),
		end,
		r.Name,
	)
	if r.URL != nil {
		line += " " + mutedStyle.Render(*r.URL)
	}
	_, _ = fmt.Fprintf(w, "%s  %s\n", line, categoryStyle(r.Category).Render(r.Category.Label()))
}

func renderRules(w io.Writer, rules []model.CategoryRule) {
	if len(rules) == 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("no rules"))
		return
	}
	for _, r := range rules {
		var parts []string
		if r.ApplicationNamePattern != nil {
			parts = append(parts, "app="+*r.ApplicationNamePattern)
		}
		if r.URLPattern != nil {
			parts = append(parts, "url="+*r.URLPattern)
		}
		if r.WindowTitlePattern != nil {
			parts = append(parts, "title="+*r.WindowTitlePattern)
		}
		label := r.Category.Label
		if label == "" {
			label = r.CategoryID
		}
		_, _ = fmt.Fprintf(w, "%4d  %-40s %s\n", r.ID, strings.Join(parts, " "),
			categoryStyle(r.Category.Kind).Render(label))
	}
}

func renderGoals(w io.Writer, goals []model.Goal) {
	if len(goals) == 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("no goals"))
		return
	}
	for _, g := range goals {
		renderGoal(w, g)
	}
}

func renderGoal(w io.Writer, g model.Goal) {
	status := "active"
	switch {
	case g.IsArchived:
		status = "archived"
	case !g.IsActive:
		status = "inactive"
	case g.IsCompleted():
		status = "completed"
	}
	var body strings.Builder
	body.WriteString(titleStyle.Render(g.Title))
	body.WriteString(" " + mutedStyle.Render(fmt.Sprintf("(%s, %s, %s)", g.Type, g.Frequency, status)))
	body.WriteString(fmt.Sprintf("\n%s %s / %s %s",
		progressBar(g.ProgressPercentage(), 20),
		trimFloat(g.CurrentProgress), trimFloat(g.Target), g.Unit))
	body.WriteString(fmt.Sprintf("\nstreak %d · days completed %d", g.Streak, g.DaysCompleted))
	body.WriteString("\n" + mutedStyle.Render("id "+g.ID))
	_, _ = fmt.Fprintln(w, boxStyle.Render(body.String()))
}

func renderHistory(w io.Writer, records []model.GoalProgressRecord) {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("no progress recorded"))
		return
	}
	for _, r := range records {
		mark := " "
		if r.IsCompleted {
			mark = "✓"
		}
		_, _ = fmt.Fprintf(w, "%s  %s  %s\n", r.Date.Local().Format("2006-01-02 15:04"), mark, trimFloat(r.ProgressValue))
	}
}

func renderDay(w io.Writer, s model.DaySummary) {
	var body strings.Builder
	body.WriteString(titleStyle.Render(s.Date))
	body.WriteString(fmt.Sprintf("  %s tracked · productivity %.0f%%", minutes(s.TotalMinutes), s.ProductivityScore))
	for _, c := range model.AllCategories {
		if m, ok := s.CategoryMinutes[c]; ok {
			body.WriteString(fmt.Sprintf("\n%s %s", categoryStyle(c).Render(fmt.Sprintf("%-12s", c.Label())), minutes(m)))
		}
	}
	for i, app := range s.Applications {
		if i == 10 {
			break
		}
		body.WriteString(fmt.Sprintf("\n  %-28s %8s  %s", app.Name, minutes(app.Minutes),
			mutedStyle.Render(fmt.Sprintf("%d sessions", app.Sessions))))
	}
	_, _ = fmt.Fprintln(w, boxStyle.Render(body.String()))
}

func renderRange(w io.Writer, s model.RangeSummary) {
	_, _ = fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s → %s", s.Start.Format(time.DateOnly), s.End.AddDate(0, 0, -1).Format(time.DateOnly))))
	_, _ = fmt.Fprintf(w, "%s tracked · productivity %.0f%%\n", minutes(s.TotalMinutes), s.ProductivityScore)
	for _, d := range s.Days {
		_, _ = fmt.Fprintf(w, "%s  %8s  %s %3.0f%%\n", d.Date, minutes(d.TotalMinutes),
			progressBar(d.ProductivityScore/100, 20), d.ProductivityScore)
	}
}

func renderHabits(w io.Writer, habits []model.Habit) {
	if len(habits) == 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("no habits detected"))
		return
	}
	sort.SliceStable(habits, func(i, j int) bool { return habits[i].DaysSeen > habits[j].DaysSeen })
	for _, h := range habits {
		_, _ = fmt.Fprintf(w, "%-28s %s  %2d days · usually around %02d:00 · %s/day\n",
			h.Name, categoryStyle(h.Category).Render(fmt.Sprintf("%-11s", h.Category.Label())),
			h.DaysSeen, h.TypicalHour, minutes(h.AvgDailyMinutes))
	}
}

func progressBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	filled := int(pct*float64(width) + 0.5)
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#34C759")).Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", width-filled))
}

func minutes(m float64) string {
	total := int(m + 0.5)
	if total < 60 {
		return fmt.Sprintf("%dm", total)
	}
	return fmt.Sprintf("%dh%02dm", total/60, total%60)
}

func trimFloat(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
