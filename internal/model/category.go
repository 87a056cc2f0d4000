package model

import (
	"fmt"
	"strings"
	"time"
)

// ActivityCategory is the productivity class assigned to an activity.
type ActivityCategory string

const (
	CategoryProductive  ActivityCategory = "productive"
	CategoryNeutral     ActivityCategory = "neutral"
	CategoryDistracting ActivityCategory = "distracting"
	CategoryCustom      ActivityCategory = "custom"
)

// AllCategories lists the built-in categories in display order.
var AllCategories = []ActivityCategory{
	CategoryProductive,
	CategoryNeutral,
	CategoryDistracting,
	CategoryCustom,
}

func (c ActivityCategory) Code() string { return string(c) }

func (c ActivityCategory) Label() string {
	switch c {
	case CategoryProductive:
		return "Productive"
	case CategoryDistracting:
		return "Distracting"
	case CategoryCustom:
		return "Custom"
	default:
		return "Neutral"
	}
}

// Color returns the default hex color used when rendering the category.
func (c ActivityCategory) Color() string {
	switch c {
	case CategoryProductive:
		return "#34C759"
	case CategoryDistracting:
		return "#FF3B30"
	case CategoryCustom:
		return "#AF52DE"
	default:
		return "#8E8E93"
	}
}

func (c ActivityCategory) Valid() bool {
	switch c {
	case CategoryProductive, CategoryNeutral, CategoryDistracting, CategoryCustom:
		return true
	}
	return false
}

func ParseActivityCategory(raw string) (ActivityCategory, error) {
	c := ActivityCategory(strings.ToLower(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", raw)
	}
	return c, nil
}

// ActivityCategoryRecord is the stored row a CategoryRule points at.
// The built-in categories are seeded with ID equal to their code.
type ActivityCategoryRecord struct {
	ID        string           `gorm:"primaryKey"`
	Kind      ActivityCategory `gorm:"index;not null"`
	Label     string           `gorm:"not null"`
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ActivityCategoryRecord) TableName() string { return "activity_categories" }

// BuiltinCategoryRecords returns the rows seeded during migration.
func BuiltinCategoryRecords() []ActivityCategoryRecord {
	records := make([]ActivityCategoryRecord, 0, len(AllCategories))
	for _, c := range AllCategories {
		records = append(records, ActivityCategoryRecord{
			ID:    c.Code(),
			Kind:  c,
			Label: c.Label(),
			Color: c.Color(),
		})
	}
	return records
}
