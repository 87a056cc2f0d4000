package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
)

func TestFormatDaySummary(t *testing.T) {
	summary := model.DaySummary{
		Date:         "2024-05-06",
		TotalMinutes: 180,
		CategoryMinutes: map[model.ActivityCategory]float64{
			model.CategoryProductive:  120,
			model.CategoryDistracting: 30,
			model.CategoryNeutral:     30,
		},
		Applications: []model.AppUsage{
			{Name: "Xcode", Minutes: 90},
			{Name: "<script>", Minutes: 30},
		},
		ProductivityScore: 66.67,
	}

	text := FormatDaySummary(summary)
	assert.Contains(t, text, "Activity for 2024-05-06")
	assert.Contains(t, text, "3h 00m tracked · productivity 67%")
	assert.Contains(t, text, "🟢 Productive: 2h 00m")
	assert.Contains(t, text, "🔴 Distracting: 30m")
	assert.Contains(t, text, "• Xcode — 1h 30m")
	assert.Contains(t, text, "&lt;script&gt;")
	assert.NotContains(t, text, "<script>")
}

func TestFormatDaySummary_Empty(t *testing.T) {
	text := FormatDaySummary(model.DaySummary{Date: "2024-05-06"})
	assert.Contains(t, text, "nothing tracked yet")
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "0m", formatMinutes(0))
	assert.Equal(t, "45m", formatMinutes(44.6))
	assert.Equal(t, "1h 05m", formatMinutes(65))
	assert.Equal(t, "10h 00m", formatMinutes(600))
}
