package service

import (
	"context"
	"log/slog"

	"github.com/jasonzgao/accountability-partner-sub001/internal/repository"
)

// RetentionService applies the configured retention policy to activity data.
type RetentionService struct {
	activities *repository.ActivityRepository
	days       int
	log        *slog.Logger
}

// NewRetentionService keeps days of activity; zero disables the policy.
func NewRetentionService(activities *repository.ActivityRepository, days int, log *slog.Logger) *RetentionService {
	if log == nil {
		log = slog.Default()
	}
	return &RetentionService{activities: activities, days: days, log: log.With("component", "retention")}
}

func (s *RetentionService) Enabled() bool { return s.days > 0 }

// Run deletes activity older than the retention window.
func (s *RetentionService) Run(ctx context.Context) (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}
	return s.activities.ApplyRetention(ctx, s.days)
}

// Clear deletes all activity data.
func (s *RetentionService) Clear(ctx context.Context) (int64, error) {
	s.log.Warn("clearing all activity data")
	return s.activities.ClearAll(ctx)
}
