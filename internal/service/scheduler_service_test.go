package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonzgao/accountability-partner-sub001/internal/logging"
)

func TestBuildDailySpec(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "00:00", want: "0 0 0 * * *"},
		{in: "09:05", want: "0 5 9 * * *"},
		{in: "23:59", want: "0 59 23 * * *"},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "1:2:3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := buildDailySpec(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchedulerService_Register(t *testing.T) {
	s := NewSchedulerService(time.UTC, logging.Discard())
	noop := func(context.Context) error { return nil }

	_, err := s.ScheduleDaily("rollover", "00:00", noop)
	require.NoError(t, err)
	_, err = s.ScheduleDaily("broken", "7pm", noop)
	assert.Error(t, err)

	_, err = s.ScheduleInterval("sweep", 30*time.Second, noop)
	require.NoError(t, err)
	_, err = s.ScheduleInterval("never", 0, noop)
	assert.Error(t, err)

	_, err = s.ScheduleEveryMinute("reminders", noop)
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 3)
}

func TestSchedulerService_WrapBoundsAndSwallowsErrors(t *testing.T) {
	s := NewSchedulerService(time.UTC, logging.Discard())
	s.timeout = 10 * time.Millisecond

	var deadline bool
	s.wrap("slow", func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		<-ctx.Done()
		return ctx.Err()
	})()
	assert.True(t, deadline)

	assert.NotPanics(t, s.wrap("failing", func(context.Context) error {
		return errors.New("boom")
	}))
}
