package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRecord is returned when an activity record breaks its invariants.
var ErrInvalidRecord = errors.New("invalid activity record")

// SourceKind describes where an activity was observed.
type SourceKind string

const (
	SourceApp     SourceKind = "app"
	SourceBrowser SourceKind = "browser"
	SourceSystem  SourceKind = "system"
)

func ParseSourceKind(raw string) (SourceKind, error) {
	switch SourceKind(raw) {
	case SourceApp, SourceBrowser, SourceSystem:
		return SourceKind(raw), nil
	case "":
		return SourceApp, nil
	}
	return "", fmt.Errorf("unknown source kind %q", raw)
}

// ActivityRecord is one contiguous interval of focus on an application or site.
type ActivityRecord struct {
	ID          string           `gorm:"primaryKey" json:"id"`
	StartTime   time.Time        `gorm:"index;not null" json:"start_time"`
	EndTime     *time.Time       `json:"end_time,omitempty"`
	SourceKind  SourceKind       `gorm:"not null" json:"source_kind"`
	Name        string           `gorm:"index;not null" json:"name"`
	WindowTitle *string          `json:"window_title,omitempty"`
	URL         *string          `json:"url,omitempty"`
	Category    ActivityCategory `gorm:"index;not null" json:"category"`
	CreatedAt   time.Time        `json:"-"`
	UpdatedAt   time.Time        `json:"-"`
}

func (ActivityRecord) TableName() string { return "activity_records" }

// Validate checks the end >= start invariant.
func (r ActivityRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRecord)
	}
	if r.StartTime.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrInvalidRecord)
	}
	if r.EndTime != nil && r.EndTime.Before(r.StartTime) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidRecord,
			r.EndTime.Format(time.RFC3339), r.StartTime.Format(time.RFC3339))
	}
	return nil
}

// IsOngoing reports whether the record has not been closed yet.
func (r ActivityRecord) IsOngoing() bool { return r.EndTime == nil }

// Duration returns the record length, measuring ongoing records up to now.
func (r ActivityRecord) Duration(now time.Time) time.Duration {
	end := now
	if r.EndTime != nil {
		end = *r.EndTime
	}
	if end.Before(r.StartTime) {
		return 0
	}
	return end.Sub(r.StartTime)
}

// Overlap returns how much of the record falls inside [start, end).
func (r ActivityRecord) Overlap(start, end, now time.Time) time.Duration {
	recEnd := now
	if r.EndTime != nil {
		recEnd = *r.EndTime
	}
	from := r.StartTime
	if from.Before(start) {
		from = start
	}
	if recEnd.After(end) {
		recEnd = end
	}
	if !recEnd.After(from) {
		return 0
	}
	return recEnd.Sub(from)
}
