package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jasonzgao/accountability-partner-sub001/internal/clock"
	"github.com/jasonzgao/accountability-partner-sub001/internal/logging"
	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
)

var baseTime = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestActivityRepo(t *testing.T, opts ...ActivityOption) (*ActivityRepository, *clock.Manual, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	clk := clock.NewManual(baseTime)
	all := append([]ActivityOption{
		WithClock(clk),
		WithLogger(logging.Discard()),
		WithSyncPopulate(),
	}, opts...)
	return NewActivityRepository(db, all...), clk, db
}

func activity(name string, start time.Time, d time.Duration, category model.ActivityCategory) *model.ActivityRecord {
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
	return r
}

func strPtr(s string) *string { return &s }
