package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jasonzgao/accountability-partner-sub001/internal/clock"
	"github.com/jasonzgao/accountability-partner-sub001/internal/metrics"
	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
)

const goalTable = "goals"

// GoalRepository handles goals and their append-only progress history.
// After every committed mutation subscribers receive the full active goal list.
type GoalRepository struct {
	db    *gorm.DB
	feed  *hub[[]model.Goal]
	clock clock.Clock
	log   *slog.Logger
	// mu keeps commit and publish in the same order across writers.
	mu sync.Mutex
}

func NewGoalRepository(db *gorm.DB, clk clock.Clock, log *slog.Logger) *GoalRepository {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &GoalRepository{
		db:    db,
		feed:  newHub(cloneGoals),
		clock: clk,
		log:   log.With("component", "goal_repository"),
	}
}

func (r *GoalRepository) GetAll(ctx context.Context) ([]model.Goal, error) {
	var goals []model.Goal
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

// GetActive returns goals that are active and not archived.
func (r *GoalRepository) GetActive(ctx context.Context) ([]model.Goal, error) {
	return r.getActive(r.db.WithContext(ctx))
}

func (r *GoalRepository) getActive(db *gorm.DB) ([]model.Goal, error) {
	var goals []model.Goal
	if err := db.Where("is_active = ? AND is_archived = ?", true, false).
		Order("created_at ASC, id ASC").
		Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("list active goals: %w", err)
	}
	return goals, nil
}

// GetByID returns nil when the goal does not exist.
func (r *GoalRepository) GetByID(ctx context.Context, id string) (*model.Goal, error) {
	return findGoal(r.db.WithContext(ctx), id)
}

// Save inserts or replaces a goal. An empty ID is replaced by a fresh UUID.
func (r *GoalRepository) Save(ctx context.Context, goal *model.Goal) error {
	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}
	if goal.LastUpdated.IsZero() {
		goal.LastUpdated = r.clock.Now()
	}
	normalizeGoal(goal)

	return r.mutate(ctx, "save", func(tx *gorm.DB) error {
		existing, err := findGoal(tx, goal.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			if err := tx.Omit("Progress").Create(goal).Error; err != nil {
				return fmt.Errorf("create goal: %w", err)
			}
			return nil
		}
		goal.CreatedAt = existing.CreatedAt
		if err := tx.Omit("Progress").Save(goal).Error; err != nil {
			return fmt.Errorf("update goal: %w", err)
		}
		return nil
	})
}

// Delete removes a goal together with its progress history.
func (r *GoalRepository) Delete(ctx context.Context, id string) error {
	return r.mutate(ctx, "delete", func(tx *gorm.DB) error {
		// The FK cascades too; deleting explicitly keeps databases opened
		// without foreign_keys=on consistent.
		if err := tx.Where("goal_id = ?", id).Delete(&model.GoalProgressRecord{}).Error; err != nil {
			return fmt.Errorf("delete goal progress: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&model.Goal{}).Error; err != nil {
			return fmt.Errorf("delete goal: %w", err)
		}
		return nil
	})
}

// UpdateProgress sets the goal's current progress and appends a progress
// record in one transaction. When the goal is completed and value strictly
// exceeds the target, DaysCompleted and Streak are incremented once per
// period: CompletedPeriod remembers the credited period, so dipping below the
// target and crossing it again does not count twice. Unknown ids are a silent
// no-op.
func (r *GoalRepository) UpdateProgress(ctx context.Context, id string, value float64) error {
	var missing bool
	err := r.mutate(ctx, "update_progress", func(tx *gorm.DB) error {
		goal, err := findGoal(tx, id)
		if err != nil {
			return err
		}
		if goal == nil {
			missing = true
			return nil
		}

		now := r.clock.Now().UTC()
		goal.CurrentProgress = value
		goal.LastUpdated = now
		completed := goal.IsCompleted()
		if completed && value > goal.Target && !creditedThisPeriod(*goal) {
			goal.DaysCompleted++
			goal.Streak++
			period := goal.PeriodStart.UTC()
			goal.CompletedPeriod = &period
		}
		if err := tx.Omit("Progress").Save(goal).Error; err != nil {
			return fmt.Errorf("update goal progress: %w", err)
		}

		record := model.GoalProgressRecord{
			GoalID:        id,
			Date:          now,
			ProgressValue: value,
			IsCompleted:   completed,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("append goal progress: %w", err)
		}
		if completed {
			metrics.GoalProgressUpdates.WithLabelValues("completed").Inc()
		} else {
			metrics.GoalProgressUpdates.WithLabelValues("updated").Inc()
		}
		return nil
	})
	if missing {
		metrics.GoalProgressUpdates.WithLabelValues("missing").Inc()
		r.log.Debug("progress update for unknown goal ignored", "goal_id", id)
	}
	return err
}

func creditedThisPeriod(g model.Goal) bool {
	return g.CompletedPeriod != nil && g.CompletedPeriod.Equal(g.PeriodStart)
}

// ResetPeriod starts a new period for a goal: progress goes back to zero, the
// streak is cleared when breakStreak is set and a zero progress record is
// appended. Unknown ids are a silent no-op.
func (r *GoalRepository) ResetPeriod(ctx context.Context, id string, periodStart time.Time, breakStreak bool) error {
	return r.mutate(ctx, "reset_period", func(tx *gorm.DB) error {
		goal, err := findGoal(tx, id)
		if err != nil || goal == nil {
			return err
		}
		return r.resetPeriod(tx, goal, periodStart, breakStreak)
	})
}

// PeriodRoll reports what RollPeriod did to a goal.
type PeriodRoll struct {
	Rolled bool
	// StreakLost is set when a non-zero streak was cleared.
	StreakLost bool
	// Streak is the streak before the roll.
	Streak int
}

// RollPeriod moves a goal into the period starting at periodStart. breaks is
// called with the stored row inside the transaction and decides whether the
// streak ends, so progress committed after the caller's snapshot is taken
// into account. Goals that are unknown, inactive, not yet initialized or
// already at periodStart are left alone.
func (r *GoalRepository) RollPeriod(ctx context.Context, id string, periodStart time.Time, breaks func(model.Goal) bool) (PeriodRoll, error) {
	var roll PeriodRoll
	err := r.mutate(ctx, "roll_period", func(tx *gorm.DB) error {
		goal, err := findGoal(tx, id)
		if err != nil || goal == nil {
			return err
		}
		if !goal.IsActive || goal.IsArchived || goal.PeriodStart.IsZero() || !periodStart.After(goal.PeriodStart) {
			return nil
		}
		broken := breaks(*goal)
		roll = PeriodRoll{Rolled: true, StreakLost: broken && goal.Streak > 0, Streak: goal.Streak}
		return r.resetPeriod(tx, goal, periodStart, broken)
	})
	if err != nil {
		return PeriodRoll{}, err
	}
	return roll, nil
}

func (r *GoalRepository) resetPeriod(tx *gorm.DB, goal *model.Goal, periodStart time.Time, breakStreak bool) error {
	now := r.clock.Now().UTC()
	goal.CurrentProgress = 0
	goal.PeriodStart = periodStart.UTC()
	goal.LastUpdated = now
	if breakStreak {
		goal.Streak = 0
	}
	if err := tx.Omit("Progress").Save(goal).Error; err != nil {
		return fmt.Errorf("reset goal period: %w", err)
	}
	record := model.GoalProgressRecord{GoalID: goal.ID, Date: now, ProgressValue: 0, IsCompleted: goal.IsCompleted()}
	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("append goal progress: %w", err)
	}
	return nil
}

// InitPeriod sets the period of a goal that has none yet. It reports whether
// the goal was changed.
func (r *GoalRepository) InitPeriod(ctx context.Context, id string, periodStart time.Time) (bool, error) {
	var changed bool
	err := r.mutate(ctx, "init_period", func(tx *gorm.DB) error {
		goal, err := findGoal(tx, id)
		if err != nil || goal == nil || !goal.PeriodStart.IsZero() {
			return err
		}
		changed = true
		return r.updateColumns(tx, id, map[string]any{"period_start": periodStart.UTC()})
	})
	return changed, err
}

// Deactivate clears IsActive without touching progress or streak.
func (r *GoalRepository) Deactivate(ctx context.Context, id string) error {
	return r.mutate(ctx, "deactivate", func(tx *gorm.DB) error {
		return r.updateColumns(tx, id, map[string]any{"is_active": false})
	})
}

// Archive marks a goal archived and inactive, keeping its progress and
// history.
func (r *GoalRepository) Archive(ctx context.Context, id string) error {
	return r.mutate(ctx, "archive", func(tx *gorm.DB) error {
		return r.updateColumns(tx, id, map[string]any{"is_archived": true, "is_active": false})
	})
}

// updateColumns writes only the given columns plus last_updated.
// Unknown ids fail with model.ErrNotFound.
func (r *GoalRepository) updateColumns(tx *gorm.DB, id string, columns map[string]any) error {
	columns["last_updated"] = r.clock.Now().UTC()
	res := tx.Model(&model.Goal{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return fmt.Errorf("update goal %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("goal %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// GetProgressHistory returns a goal's progress records, oldest first.
func (r *GoalRepository) GetProgressHistory(ctx context.Context, goalID string) ([]model.GoalProgressRecord, error) {
	var records []model.GoalProgressRecord
	if err := r.db.WithContext(ctx).Where("goal_id = ?", goalID).
		Order("date ASC, id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list goal progress: %w", err)
	}
	return records, nil
}

// SaveProgressRecord appends a progress record. Records are never updated.
func (r *GoalRepository) SaveProgressRecord(ctx context.Context, record *model.GoalProgressRecord) error {
	if record.ID != 0 {
		return fmt.Errorf("progress records are append-only: record %d already stored", record.ID)
	}
	if record.Date.IsZero() {
		record.Date = r.clock.Now()
	}
	record.Date = record.Date.UTC()
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("append goal progress: %w", err)
	}
	return nil
}

// GetGoals returns goals matching every non-nil field of filter.
func (r *GoalRepository) GetGoals(ctx context.Context, filter model.GoalFilter) ([]model.Goal, error) {
	q := r.db.WithContext(ctx).Model(&model.Goal{})
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}
	if filter.Frequency != nil {
		q = q.Where("frequency = ?", *filter.Frequency)
	}
	if filter.IsCompleted != nil {
		if *filter.IsCompleted {
			q = q.Where("current_progress >= target")
		} else {
			q = q.Where("current_progress < target")
		}
	}
	if filter.IsArchived != nil {
		q = q.Where("is_archived = ?", *filter.IsArchived)
	}
	if filter.Category != nil {
		q = q.Where("category_filter LIKE ?", likePattern(*filter.Category))
	}
	if filter.Application != nil {
		q = q.Where("application_filter LIKE ?", likePattern(*filter.Application))
	}
	if filter.URL != nil {
		q = q.Where("url_filter LIKE ?", likePattern(*filter.URL))
	}

	var goals []model.Goal
	if err := q.Order("created_at ASC, id ASC").Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("filter goals: %w", err)
	}
	return goals, nil
}

// Subscribe returns a feed of the active goal list, delivered after every mutation.
func (r *GoalRepository) Subscribe(buffer int) *Subscription[[]model.Goal] {
	return r.feed.subscribe(buffer)
}

func (r *GoalRepository) mutate(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	timer := metrics.TrackDBOperation(op, goalTable)
	defer timer.ObserveDuration()

	r.mu.Lock()
	defer r.mu.Unlock()

	db := r.db.WithContext(ctx)
	if err := db.Transaction(fn); err != nil {
		return err
	}
	if r.feed.size() == 0 {
		return nil
	}
	active, err := r.getActive(db)
	if err != nil {
		// The write is committed; a failed refresh only delays subscribers.
		r.log.Warn("load active goals for subscribers", "op", op, "error", err)
		return nil
	}
	r.feed.publish(active)
	return nil
}

func findGoal(db *gorm.DB, id string) (*model.Goal, error) {
	var goal model.Goal
	err := db.Where("id = ?", id).First(&goal).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("find goal: %w", err)
	}
	return &goal, nil
}

func normalizeGoal(g *model.Goal) {
	g.StartDate = g.StartDate.UTC()
	g.LastUpdated = g.LastUpdated.UTC()
	g.PeriodStart = g.PeriodStart.UTC()
	if g.EndDate != nil {
		end := g.EndDate.UTC()
		g.EndDate = &end
	}
	if g.CompletedPeriod != nil {
		period := g.CompletedPeriod.UTC()
		g.CompletedPeriod = &period
	}
}

// cloneGoals copies a goal list deep enough that subscribers can modify
// their copy without affecting each other.
func cloneGoals(in []model.Goal) []model.Goal {
	if in == nil {
		return nil
	}
	out := make([]model.Goal, len(in))
	for i, g := range in {
		g.EndDate = clonePtr(g.EndDate)
		g.CompletedPeriod = clonePtr(g.CompletedPeriod)
		g.CategoryFilter = clonePtr(g.CategoryFilter)
		g.ApplicationFilter = clonePtr(g.ApplicationFilter)
		g.URLFilter = clonePtr(g.URLFilter)
		g.ReminderTime = clonePtr(g.ReminderTime)
		if g.CustomFrequencyDays != nil {
			g.CustomFrequencyDays = append(datatypes.JSONSlice[int]{}, g.CustomFrequencyDays...)
		}
		if g.Progress != nil {
			g.Progress = append([]model.GoalProgressRecord(nil), g.Progress...)
		}
		out[i] = g
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func likePattern(s string) string {
	return "%" + s + "%"
}
