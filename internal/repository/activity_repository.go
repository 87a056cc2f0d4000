package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/jasonzgao/accountability-partner-sub001/internal/clock"
	"github.com/jasonzgao/accountability-partner-sub001/internal/metrics"
	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
)

const activityTable = "activity_records"

// ActivityRepository owns activity records: CRUD, a read cache over common
// queries, retention and a feed of newly saved records.
//
// Writes hold gate exclusively across the transaction, cache invalidation and
// publish, so a reader never sees a cache entry older than the last write and
// subscribers see records in commit order.
type ActivityRepository struct {
	db       *gorm.DB
	cache    *queryCache
	gate     sync.RWMutex
	flight   singleflight.Group
	feed     *hub[model.ActivityRecord]
	clock    clock.Clock
	log      *slog.Logger
	populate func(func())
}

// ActivityOption configures an ActivityRepository.
type ActivityOption func(*activityOptions)

type activityOptions struct {
	ttl        time.Duration
	maxEntries int
	clock      clock.Clock
	log        *slog.Logger
	populate   func(func())
}

func WithCacheTTL(ttl time.Duration) ActivityOption {
	return func(o *activityOptions) { o.ttl = ttl }
}

func WithCacheMaxEntries(n int) ActivityOption {
	return func(o *activityOptions) { o.maxEntries = n }
}

func WithClock(c clock.Clock) ActivityOption {
	return func(o *activityOptions) { o.clock = c }
}

func WithLogger(l *slog.Logger) ActivityOption {
	return func(o *activityOptions) { o.log = l }
}

// WithSyncPopulate fills the cache on the calling goroutine. Tests use it to
// make cache state deterministic.
func WithSyncPopulate() ActivityOption {
	return func(o *activityOptions) { o.populate = func(fn func()) { fn() } }
}

func NewActivityRepository(db *gorm.DB, opts ...ActivityOption) *ActivityRepository {
	o := activityOptions{
		ttl:        DefaultCacheTTL,
		maxEntries: DefaultCacheMaxEntries,
		clock:      clock.System{},
		log:        slog.Default(),
		populate:   func(fn func()) { go fn() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &ActivityRepository{
		db:       db,
		cache:    newQueryCache(o.ttl, o.maxEntries, o.clock),
		feed:     newHub(cloneRecord),
		clock:    o.clock,
		log:      o.log.With("component", "activity_repository"),
		populate: o.populate,
	}
}

// Save inserts a new record. An empty ID is replaced by a fresh UUID.
func (r *ActivityRepository) Save(ctx context.Context, record *model.ActivityRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	normalizeRecord(record)
	if err := record.Validate(); err != nil {
		return err
	}

	return r.write(ctx, "insert", func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("create activity: %w", err)
		}
		return nil
	}, func() {
		metrics.ActivitiesRecorded.WithLabelValues(string(record.Category)).Inc()
		r.feed.publish(*record)
	})
}

// Update persists the mutable fields of a record: EndTime and Category.
func (r *ActivityRepository) Update(ctx context.Context, record *model.ActivityRecord) error {
	return r.write(ctx, "update", func(tx *gorm.DB) error {
		var stored model.ActivityRecord
		err := tx.Where("id = ?", record.ID).First(&stored).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("update activity %s: %w", record.ID, model.ErrNotFound)
		case err != nil:
			return fmt.Errorf("find activity: %w", err)
		}

		stored.EndTime = record.EndTime
		stored.Category = record.Category
		normalizeRecord(&stored)
		if err := stored.Validate(); err != nil {
			return err
		}
		if err := tx.Save(&stored).Error; err != nil {
			return fmt.Errorf("update activity: %w", err)
		}
		*record = stored
		return nil
	}, nil)
}

// Delete removes a record; deleting an unknown id is a no-op.
func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	return r.write(ctx, "delete", func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Delete(&model.ActivityRecord{}).Error; err != nil {
			return fmt.Errorf("delete activity: %w", err)
		}
		return nil
	}, nil)
}

// GetByID returns nil without error when the record does not exist.
func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*model.ActivityRecord, error) {
	records, err := r.cachedQuery(ctx, byIDKey(id), func(db *gorm.DB) ([]model.ActivityRecord, error) {
		var found []model.ActivityRecord
		if err := db.Where("id = ?", id).Limit(1).Find(&found).Error; err != nil {
			return nil, fmt.Errorf("find activity: %w", err)
		}
		return found, nil
	})
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return &records[0], nil
}

// GetInRange returns records overlapping [start, end), oldest first.
// Ongoing records overlap every range that ends after their start.
func (r *ActivityRepository) GetInRange(ctx context.Context, start, end time.Time) ([]model.ActivityRecord, error) {
	start, end = start.UTC(), end.UTC()
	return r.cachedQuery(ctx, byRangeKey(start, end), func(db *gorm.DB) ([]model.ActivityRecord, error) {
		var found []model.ActivityRecord
		if err := db.Where("start_time < ? AND (end_time IS NULL OR end_time > ?)", end, start).
			Order("start_time ASC").
			Find(&found).Error; err != nil {
			return nil, fmt.Errorf("find activities in range: %w", err)
		}
		return found, nil
	})
}

// GetByCategory returns the newest records of a category; limit <= 0 means all.
func (r *ActivityRepository) GetByCategory(ctx context.Context, category model.ActivityCategory, limit int) ([]model.ActivityRecord, error) {
	return r.cachedQuery(ctx, byCategoryKey(category, limit), func(db *gorm.DB) ([]model.ActivityRecord, error) {
		var found []model.ActivityRecord
		if err := withLimit(db.Where("category = ?", category).Order("start_time DESC"), limit).
			Find(&found).Error; err != nil {
			return nil, fmt.Errorf("find activities by category: %w", err)
		}
		return found, nil
	})
}

// GetByApplication returns the newest records for an application name; limit <= 0 means all.
func (r *ActivityRepository) GetByApplication(ctx context.Context, name string, limit int) ([]model.ActivityRecord, error) {
	return r.cachedQuery(ctx, byApplicationKey(name, limit), func(db *gorm.DB) ([]model.ActivityRecord, error) {
		var found []model.ActivityRecord
		if err := withLimit(db.Where("name = ?", name).Order("start_time DESC"), limit).
			Find(&found).Error; err != nil {
			return nil, fmt.Errorf("find activities by application: %w", err)
		}
		return found, nil
	})
}

// GetMostRecent always reads the store. Returns nil when there are no records.
func (r *ActivityRepository) GetMostRecent(ctx context.Context) (*model.ActivityRecord, error) {
	timer := metrics.TrackDBOperation("most_recent", activityTable)
	defer timer.ObserveDuration()

	var found []model.ActivityRecord
	if err := r.db.WithContext(ctx).Order("start_time DESC").Limit(1).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("find most recent activity: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// ApplyRetention deletes every record that started more than retentionDays
// ago and returns how many were removed.
func (r *ActivityRepository) ApplyRetention(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 0 {
		return 0, fmt.Errorf("retention days must not be negative, got %d", retentionDays)
	}
	cutoff := r.clock.Now().UTC().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	var deleted int64
	err := r.write(ctx, "retention", func(tx *gorm.DB) error {
		res := tx.Where("start_time < ?", cutoff).Delete(&model.ActivityRecord{})
		if res.Error != nil {
			return fmt.Errorf("apply retention: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	}, nil)
	if err != nil {
		return 0, err
	}
	metrics.RetentionDeleted.Add(float64(deleted))
	r.log.Info("retention applied", "retention_days", retentionDays, "cutoff", cutoff, "deleted", deleted)
	return deleted, nil
}

// ClearAll deletes every record and returns how many were removed.
func (r *ActivityRepository) ClearAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.write(ctx, "clear", func(tx *gorm.DB) error {
		res := tx.Where("1 = 1").Delete(&model.ActivityRecord{})
		if res.Error != nil {
			return fmt.Errorf("clear activities: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	}, nil)
	if err != nil {
		return 0, err
	}
	r.log.Info("activity data cleared", "deleted", deleted)
	return deleted, nil
}

// Subscribe returns a feed of every record saved from now on.
func (r *ActivityRepository) Subscribe(buffer int) *Subscription[model.ActivityRecord] {
	return r.feed.subscribe(buffer)
}

// SweepCache evicts every cached query. Run periodically to bound staleness.
func (r *ActivityRepository) SweepCache() int {
	n := r.cache.sweep()
	if n > 0 {
		r.log.Debug("cache swept", "entries", n)
	}
	return n
}

// CacheLen reports the number of cached queries.
func (r *ActivityRepository) CacheLen() int {
	return r.cache.len()
}

func (r *ActivityRepository) write(ctx context.Context, op string, fn func(tx *gorm.DB) error, afterCommit func()) error {
	timer := metrics.TrackDBOperation(op, activityTable)
	defer timer.ObserveDuration()

	r.gate.Lock()
	defer r.gate.Unlock()

	if err := r.db.WithContext(ctx).Transaction(fn); err != nil {
		return err
	}
	r.cache.invalidateAll()
	if afterCommit != nil {
		afterCommit()
	}
	return nil
}

// cachedQuery serves key from the cache or loads it from the store. Loads for
// the same key are shared; the result is cached asynchronously.
func (r *ActivityRepository) cachedQuery(ctx context.Context, key QueryKey, load func(*gorm.DB) ([]model.ActivityRecord, error)) ([]model.ActivityRecord, error) {
	r.gate.RLock()
	defer r.gate.RUnlock()

	if records, ok := r.cache.get(key); ok {
		return records, nil
	}

	gen := r.cache.currentGeneration()
	// Detached so one caller giving up does not fail the others sharing the load.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := r.flight.Do(key.String(), func() (interface{}, error) {
		timer := metrics.TrackDBOperation("query_"+key.Kind.String(), activityTable)
		defer timer.ObserveDuration()
		return load(r.db.WithContext(loadCtx))
	})
	if err != nil {
		return nil, err
	}

	records := v.([]model.ActivityRecord)
	cached := cloneRecords(records)
	if cached == nil {
		cached = []model.ActivityRecord{}
	}
	r.populate(func() {
		defer func() {
			if p := recover(); p != nil {
				r.log.Warn("cache population failed", "key", key.String(), "panic", p)
			}
		}()
		r.cache.put(key, cached, gen)
	})
	return cloneRecords(records), nil
}

func withLimit(db *gorm.DB, limit int) *gorm.DB {
	if limit > 0 {
		return db.Limit(limit)
	}
	return db
}

// normalizeRecord stores times in UTC so SQLite's text timestamps compare in order.
func normalizeRecord(r *model.ActivityRecord) {
	r.StartTime = r.StartTime.UTC()
	if r.EndTime != nil {
		end := r.EndTime.UTC()
		r.EndTime = &end
	}
}
