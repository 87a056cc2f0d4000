package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/jasonzgao/accountability-partner-sub001/internal/clock"
	"github.com/jasonzgao/accountability-partner-sub001/internal/config"
	"github.com/jasonzgao/accountability-partner-sub001/internal/logging"
	"github.com/jasonzgao/accountability-partner-sub001/internal/repository"
	"github.com/jasonzgao/accountability-partner-sub001/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	dbPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "partner",
		Short:         "Track where your time goes and hold yourself to your goals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides DATABASE_URL)")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newRecordCmd(opts))
	root.AddCommand(newStopCmd(opts))
	root.AddCommand(newCategorizeCmd(opts))
	root.AddCommand(newRulesCmd(opts))
	root.AddCommand(newGoalsCmd(opts))
	root.AddCommand(newStatsCmd(opts))
	root.AddCommand(newHabitsCmd(opts))
	root.AddCommand(newRolloverCmd(opts))
	root.AddCommand(newRetentionCmd(opts))
	root.AddCommand(newClearCmd(opts))
	return root
}

// app holds every wired component for one command invocation.
type app struct {
	cfg   config.Config
	log   *slog.Logger
	db    *gorm.DB
	clock clock.Clock

	activities *repository.ActivityRepository
	categories *repository.CategoryRepository
	goals      *repository.GoalRepository

	categorizer *service.Categorizer
	tracker     *service.TrackerService
	progress    *service.ProgressService
	rollover    *service.RolloverService
	stats       *service.StatsService
	habits      *service.HabitService
	goalSvc     *service.GoalService
	ruleSvc     *service.RuleService
	retention   *service.RetentionService
	reminders   *service.ReminderService
}

func loadApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if opts.dbPath != "" {
		cfg.DatabaseURL = opts.dbPath
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	db, err := repository.NewDB(cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	defaults, err := service.LoadCategoryDefaults(cfg.CategoryDefaultsFile)
	if err != nil {
		return nil, err
	}

	clk := clock.System{}
	activities := repository.NewActivityRepository(db,
		repository.WithCacheTTL(cfg.CacheTTL),
		repository.WithCacheMaxEntries(cfg.CacheMaxEntries),
		repository.WithClock(clk),
		repository.WithLogger(logger),
	)
	categories := repository.NewCategoryRepository(db)
	goals := repository.NewGoalRepository(db, clk, logger)
	categorizer := service.NewCategorizer(categories, defaults, logger)

	return &app{
		cfg:         cfg,
		log:         logger,
		db:          db,
		clock:       clk,
		activities:  activities,
		categories:  categories,
		goals:       goals,
		categorizer: categorizer,
		tracker:     service.NewTrackerService(activities, categorizer, clk, logger),
		progress:    service.NewProgressService(goals, activities, clk, logger),
		rollover:    service.NewRolloverService(goals, logger),
		stats:       service.NewStatsService(activities, clk),
		habits:      service.NewHabitService(activities),
		goalSvc:     service.NewGoalService(goals, categories, clk),
		ruleSvc:     service.NewRuleService(categories),
		retention:   service.NewRetentionService(activities, cfg.RetentionDays, logger),
		reminders:   service.NewReminderService(goals),
	}, nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// withApp loads the app, runs fn and closes the database.
func withApp(opts *rootOptions, fn func(a *app) error) error {
	a, err := loadApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// parseDay accepts YYYY-MM-DD in local time; empty means today.
func parseDay(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return day, nil
}
