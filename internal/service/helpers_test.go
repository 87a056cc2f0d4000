package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jasonzgao/accountability-partner-sub001/internal/clock"
	"github.com/jasonzgao/accountability-partner-sub001/internal/logging"
	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
	"github.com/jasonzgao/accountability-partner-sub001/internal/repository"
)

type testStore struct {
	clock      *clock.Manual
	activities *repository.ActivityRepository
	categories *repository.CategoryRepository
	goals      *repository.GoalRepository
}

func newTestStore(t *testing.T, now time.Time) *testStore {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	clk := clock.NewManual(now)
	return &testStore{
		clock: clk,
		activities: repository.NewActivityRepository(db,
			repository.WithClock(clk),
			repository.WithLogger(logging.Discard()),
			repository.WithSyncPopulate(),
		),
		categories: repository.NewCategoryRepository(db),
		goals:      repository.NewGoalRepository(db, clk, logging.Discard()),
	}
}

func (s *testStore) addActivity(t *testing.T, name string, start time.Time, d time.Duration, category model.ActivityCategory) *model.ActivityRecord {
	t.Helper()
	r := &model.ActivityRecord{
		StartTime:  start,
		SourceKind: model.SourceApp,
		Name:       name,
		Category:   category,
	}
	if d > 0 {
		end := start.Add(d)
		r.EndTime = &end
	}
	require.NoError(t, s.activities.Save(context.Background(), r))
	return r
}

func (s *testStore) addGoal(t *testing.T, g model.Goal) *model.Goal {
	t.Helper()
	if g.StartDate.IsZero() {
		g.StartDate = s.clock.Now()
	}
	g.IsActive = true
	require.NoError(t, s.goals.Save(context.Background(), &g))
	return &g
}

func strPtr(s string) *string { return &s }

// date builds a UTC time; days of May 2024 start on Wednesday the 1st.
func date(day, hour, minute int) time.Time {
	return time.Date(2024, 5, day, hour, minute, 0, 0, time.UTC)
}
