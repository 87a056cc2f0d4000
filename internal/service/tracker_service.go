package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jasonzgao/accountability-partner-sub001/internal/clock"
	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
	"github.com/jasonzgao/accountability-partner-sub001/internal/repository"
)

// RawActivity is one focus change reported by an activity source.
type RawActivity struct {
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source"`
	Name        string    `json:"name"`
	WindowTitle string    `json:"window_title,omitempty"`
	URL         string    `json:"url,omitempty"`
}

// TrackerService turns focus changes into activity records. At most one
// record is open at a time; a new activity closes the previous one.
type TrackerService struct {
	activities  *repository.ActivityRepository
	categorizer *Categorizer
	clock       clock.Clock
	log         *slog.Logger
}

func NewTrackerService(activities *repository.ActivityRepository, categorizer *Categorizer, clk clock.Clock, log *slog.Logger) *TrackerService {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &TrackerService{
		activities:  activities,
		categorizer: categorizer,
		clock:       clk,
		log:         log.With("component", "tracker"),
	}
}

// RecordActivity closes the open record at raw.Timestamp and stores the new
// one. Reporting the activity that is already open changes nothing.
func (s *TrackerService) RecordActivity(ctx context.Context, raw RawActivity) (*model.ActivityRecord, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: activity name is required", model.ErrInvalidRecord)
	}
	source, err := model.ParseSourceKind(strings.ToLower(strings.TrimSpace(raw.Source)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidRecord, err)
	}
	at := raw.Timestamp
	if at.IsZero() {
		at = s.clock.Now()
	}

	open, err := s.openRecord(ctx)
	if err != nil {
		return nil, err
	}
	if open != nil && sameActivity(*open, source, name, raw.WindowTitle, raw.URL) {
		return open, nil
	}
	if open != nil {
		if err := s.close(ctx, open, at); err != nil {
			return nil, err
		}
	}

	record := &model.ActivityRecord{
		StartTime:   at,
		SourceKind:  source,
		Name:        name,
		WindowTitle: optional(raw.WindowTitle),
		URL:         optional(raw.URL),
		Category:    s.categorizer.Categorize(ctx, name, raw.URL, raw.WindowTitle),
	}
	if err := s.activities.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("record activity: %w", err)
	}
	s.log.Debug("activity recorded", "name", name, "category", record.Category, "id", record.ID)
	return record, nil
}

// Stop closes the open record at the given time. Returns nil when nothing was open.
func (s *TrackerService) Stop(ctx context.Context, at time.Time) (*model.ActivityRecord, error) {
	if at.IsZero() {
		at = s.clock.Now()
	}
	open, err := s.openRecord(ctx)
	if err != nil || open == nil {
		return nil, err
	}
	if err := s.close(ctx, open, at); err != nil {
		return nil, err
	}
	return open, nil
}

// Recategorize runs the rule engine again over a stored record and persists a
// changed category.
func (s *TrackerService) Recategorize(ctx context.Context, id string) (*model.ActivityRecord, error) {
	record, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("activity %s: %w", id, model.ErrNotFound)
	}
	category := s.categorizer.Categorize(ctx, record.Name, deref(record.URL), deref(record.WindowTitle))
	if category == record.Category {
		return record, nil
	}
	record.Category = category
	if err := s.activities.Update(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *TrackerService) openRecord(ctx context.Context) (*model.ActivityRecord, error) {
	last, err := s.activities.GetMostRecent(ctx)
	if err != nil {
		return nil, err
	}
	if last == nil || !last.IsOngoing() {
		return nil, nil
	}
	return last, nil
}

func (s *TrackerService) close(ctx context.Context, open *model.ActivityRecord, at time.Time) error {
	end := at.UTC()
	// Out-of-order events must not produce a negative interval.
	if end.Before(open.StartTime) {
		end = open.StartTime
	}
	open.EndTime = &end
	if err := s.activities.Update(ctx, open); err != nil {
		return fmt.Errorf("close activity %s: %w", open.ID, err)
	}
	return nil
}

func sameActivity(r model.ActivityRecord, source model.SourceKind, name, title, rawURL string) bool {
	return r.SourceKind == source &&
		r.Name == name &&
		deref(r.WindowTitle) == strings.TrimSpace(title) &&
		deref(r.URL) == strings.TrimSpace(rawURL)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
