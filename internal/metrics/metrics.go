package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache metrics
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_cache_lookups_total",
			Help: "Activity query cache lookups by result",
		},
		[]string{"result"}, // hit, miss, expired
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_cache_evictions_total",
			Help: "Activity query cache evictions by reason",
		},
		[]string{"reason"}, // capacity, invalidate, sweep
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "activity_cache_entries",
			Help: "Current number of cached activity queries",
		},
	)

	// Database metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "table"},
	)

	// Domain metrics
	ActivitiesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activities_recorded_total",
			Help: "Activity records saved, by category",
		},
		[]string{"category"},
	)

	GoalProgressUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goal_progress_updates_total",
			Help: "Goal progress updates by outcome",
		},
		[]string{"outcome"}, // updated, completed, missing
	)

	RetentionDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_retention_deleted_total",
			Help: "Activity records removed by the retention policy",
		},
	)
)

// TrackDBOperation times a database operation.
func TrackDBOperation(operation, table string) *prometheus.Timer {
	return prometheus.NewTimer(DBOperationDuration.WithLabelValues(operation, table))
}
