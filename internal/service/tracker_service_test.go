package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonzgao/accountability-partner-sub001/internal/logging"
	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
)

func newTestTracker(t *testing.T) (*TrackerService, *testStore) {
	store := newTestStore(t, date(6, 9, 0))
	categorizer := NewCategorizer(store.categories, DefaultCategoryDefaults(), logging.Discard())
	return NewTrackerService(store.activities, categorizer, store.clock, logging.Discard()), store
}

func TestTracker_RecordClosesPreviousActivity(t *testing.T) {
	tracker, store := newTestTracker(t)
	ctx := context.Background()

	first, err := tracker.RecordActivity(ctx, RawActivity{Timestamp: date(6, 9, 0), Name: "Xcode"})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryProductive, first.Category)
	assert.True(t, first.IsOngoing())

	second, err := tracker.RecordActivity(ctx, RawActivity{
		Timestamp: date(6, 9, 45),
		Source:    "browser",
		Name:      "Safari",
		URL:       "https://www.youtube.com/watch?v=1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryDistracting, second.Category)
	assert.Equal(t, model.SourceBrowser, second.SourceKind)

	closed, err := store.activities.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.EndTime)
	assert.True(t, closed.EndTime.Equal(date(6, 9, 45)))
	assert.Equal(t, 45*time.Minute, closed.Duration(date(6, 12, 0)))
}

func TestTracker_SameActivityIsNotDuplicated(t *testing.T) {
	tracker, store := newTestTracker(t)
	ctx := context.Background()

	first, err := tracker.RecordActivity(ctx, RawActivity{Timestamp: date(6, 9, 0), Name: "Xcode", WindowTitle: "main.go"})
	require.NoError(t, err)
	again, err := tracker.RecordActivity(ctx, RawActivity{Timestamp: date(6, 9, 5), Name: "Xcode", WindowTitle: "main.go"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	all, err := store.activities.GetByApplication(ctx, "Xcode", 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTracker_OutOfOrderEventDoesNotBreakInvariant(t *testing.T) {
	tracker, store := newTestTracker(t)
	ctx := context.Background()

	first, err := tracker.RecordActivity(ctx, RawActivity{Timestamp: date(6, 10, 0), Name: "Xcode"})
	require.NoError(t, err)
	_, err = tracker.RecordActivity(ctx, RawActivity{Timestamp: date(6, 9, 0), Name: "Mail"})
	require.NoError(t, err)

	closed, err := store.activities.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.EndTime)
	assert.False(t, closed.EndTime.Before(closed.StartTime))
}

func TestTracker_Stop(t *testing.T) {
	tracker, store := newTestTracker(t)
	ctx := context.Background()

	none, err := tracker.Stop(ctx, date(6, 9, 0))
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = tracker.RecordActivity(ctx, RawActivity{Timestamp: date(6, 9, 0), Name: "Xcode"})
	require.NoError(t, err)

	store.clock.Set(date(6, 9, 30))
	stopped, err := tracker.Stop(ctx, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, stopped)
	require.NotNil(t, stopped.EndTime)
	assert.True(t, stopped.EndTime.Equal(date(6, 9, 30)))

	again, err := tracker.Stop(ctx, date(6, 10, 0))
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestTracker_RejectsBadInput(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.RecordActivity(ctx, RawActivity{Name: "  "})
	assert.ErrorIs(t, err, model.ErrInvalidRecord)

	_, err = tracker.RecordActivity(ctx, RawActivity{Name: "Xcode", Source: "satellite"})
	assert.ErrorIs(t, err, model.ErrInvalidRecord)
}

func TestTracker_RecategorizeAfterNewRule(t *testing.T) {
	tracker, store := newTestTracker(t)
	ctx := context.Background()

	rec, err := tracker.RecordActivity(ctx, RawActivity{Timestamp: date(6, 9, 0), Name: "Anki"})
	require.NoError(t, err)
	require.Equal(t, model.CategoryNeutral, rec.Category)

	require.NoError(t, store.categories.CreateRule(ctx, &model.CategoryRule{
		ApplicationNamePattern: strPtr("anki"),
		CategoryID:             "productive",
	}))

	updated, err := tracker.Recategorize(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryProductive, updated.Category)
}
