package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
	"github.com/jasonzgao/accountability-partner-sub001/internal/service"
)

func newRecordCmd(opts *rootOptions) *cobra.Command {
	var raw service.RawActivity
	var at string

	cmd := &cobra.Command{
		Use:   "record <name>",
		Short: "Record a focus change to an application or site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				raw.Name = args[0]
				if at != "" {
					ts, err := time.Parse(time.RFC3339, at)
					if err != nil {
						return fmt.Errorf("invalid --at %q, expected RFC3339", at)
					}
					raw.Timestamp = ts
				}
				record, err := a.tracker.RecordActivity(cmd.Context(), raw)
				if err != nil {
					return err
				}
				renderActivity(cmd.OutOrStdout(), *record)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&raw.Source, "source", "app", "source kind: app|browser|system")
	cmd.Flags().StringVar(&raw.WindowTitle, "title", "", "window title")
	cmd.Flags().StringVar(&raw.URL, "url", "", "page URL")
	cmd.Flags().StringVar(&at, "at", "", "event time in RFC3339 (default now)")
	return cmd
}

func newStopCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Close the activity that is currently open",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app) error {
				record, err := a.tracker.Stop(cmd.Context(), a.clock.Now())
				if err != nil {
					return err
				}
				if record == nil {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("nothing to stop"))
					return nil
				}
				renderActivity(cmd.OutOrStdout(), *record)
				return nil
			})
		},
	}
}

func newCategorizeCmd(opts *rootOptions) *cobra.Command {
	var url, title string

	cmd := &cobra.Command{
		Use:   "categorize <application>",
		Short: "Show which category an activity falls into",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				c := a.categorizer.Categorize(cmd.Context(), args[0], url, title)
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), categoryStyle(c).Render(c.Label()))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "page URL")
	cmd.Flags().StringVar(&title, "title", "", "window title")
	return cmd
}

func newRulesCmd(opts *rootOptions) *cobra.Command {
	rules := &cobra.Command{Use: "rules", Short: "Manage categorization rules"}

	var input service.RuleInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a rule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app) error {
				rule, err := a.ruleSvc.Create(cmd.Context(), input)
				if err != nil {
					return err
				}
				renderRules(cmd.OutOrStdout(), []model.CategoryRule{*rule})
				return nil
			})
		},
	}
	add.Flags().StringVar(&input.Application, "app", "", "application name pattern")
	add.Flags().StringVar(&input.URL, "url", "", "URL domain pattern")
	add.Flags().StringVar(&input.Title, "title", "", "window title pattern")
	add.Flags().StringVar(&input.Category, "category", "", "category id (built-in code or a new custom id)")
	add.Flags().StringVar(&input.Label, "label", "", "label for a new custom category")
	_ = add.MarkFlagRequired("category")

	list := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app) error {
				all, err := a.ruleSvc.List(cmd.Context())
				if err != nil {
					return err
				}
				renderRules(cmd.OutOrStdout(), all)
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule id %q", args[0])
			}
			return withApp(opts, func(a *app) error {
				return a.ruleSvc.Delete(cmd.Context(), uint(id))
			})
		},
	}

	imp := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import rules from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read rules file: %w", err)
			}
			return withApp(opts, func(a *app) error {
				n, err := a.ruleSvc.Import(cmd.Context(), data)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d rules\n", n)
				return nil
			})
		},
	}

	rules.AddCommand(add, list, del, imp)
	return rules
}

func newGoalsCmd(opts *rootOptions) *cobra.Command {
	goals := &cobra.Command{Use: "goals", Short: "Manage goals"}

	var (
		input     service.GoalInput
		goalType  string
		frequency string
		days      []int
		endDate   string
	)
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Title = args[0]
			input.Type = model.GoalType(goalType)
			input.Frequency = model.GoalFrequency(frequency)
			input.CustomDays = days
			if endDate != "" {
				end, err := parseDay(endDate, time.Now())
				if err != nil {
					return err
				}
				end = end.AddDate(0, 0, 1).Add(-time.Second)
				input.EndDate = &end
			}
			return withApp(opts, func(a *app) error {
				goal, err := a.goalSvc.CreateGoal(cmd.Context(), input)
				if err != nil {
					return err
				}
				renderGoal(cmd.OutOrStdout(), *goal)
				return nil
			})
		},
	}
	add.Flags().StringVar(&goalType, "type", string(model.GoalTimeSpent), "time_spent|time_limit|activity_count|activity_ratio|completion|custom")
	add.Flags().StringVar(&frequency, "frequency", string(model.FrequencyDaily), "daily|weekdays|weekends|weekly|monthly|custom")
	add.Flags().Float64Var(&input.Target, "target", 0, "target value")
	add.Flags().StringVar(&input.Unit, "unit", "minutes", "unit label; \"hours\" measures time in hours")
	add.Flags().StringVar(&input.Category, "category", "", "only count activity of this category")
	add.Flags().StringVar(&input.ApplicationFilter, "app", "", "only count this application")
	add.Flags().StringVar(&input.URLFilter, "url", "", "only count this domain")
	add.Flags().IntSliceVar(&days, "days", nil, "ISO weekdays for custom frequency (1=Mon ... 7=Sun)")
	add.Flags().StringVar(&input.ReminderTime, "reminder", "", "daily reminder time HH:MM")
	add.Flags().StringVar(&endDate, "end", "", "last day of the goal YYYY-MM-DD")

	var showAll bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app) error {
				var filter model.GoalFilter
				if !showAll {
					active, archived := true, false
					filter.IsActive = &active
					filter.IsArchived = &archived
				}
				all, err := a.goalSvc.ListGoals(cmd.Context(), filter)
				if err != nil {
					return err
				}
				renderGoals(cmd.OutOrStdout(), all)
				return nil
			})
		},
	}
	list.Flags().BoolVar(&showAll, "all", false, "include inactive and archived goals")

	progress := &cobra.Command{
		Use:   "progress <id> [value]",
		Short: "Set manual progress, or recompute tracked progress when no value is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				var (
					goal *model.Goal
					err  error
				)
				if len(args) == 2 {
					value, perr := strconv.ParseFloat(args[1], 64)
					if perr != nil {
						return fmt.Errorf("invalid progress value %q", args[1])
					}
					goal, err = a.goalSvc.SetProgress(cmd.Context(), args[0], value)
				} else {
					goal, err = a.progress.Recompute(cmd.Context(), args[0], a.clock.Now())
				}
				if err != nil {
					return err
				}
				renderGoal(cmd.OutOrStdout(), *goal)
				return nil
			})
		},
	}

	archive := &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a goal, keeping its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				goal, err := a.goalSvc.ArchiveGoal(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				renderGoal(cmd.OutOrStdout(), *goal)
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a goal and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				return a.goalSvc.DeleteGoal(cmd.Context(), args[0])
			})
		},
	}

	history := &cobra.Command{
		Use:   "history <id>",
		Short: "Show a goal's progress history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				records, err := a.goalSvc.History(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				renderHistory(cmd.OutOrStdout(), records)
				return nil
			})
		},
	}

	goals.AddCommand(add, list, progress, archive, del, history)
	return goals
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var date string
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show where time went",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app) error {
				day, err := parseDay(date, a.clock.Now())
				if err != nil {
					return err
				}
				if days <= 1 {
					summary, err := a.stats.DailySummary(cmd.Context(), day)
					if err != nil {
						return err
					}
					renderDay(cmd.OutOrStdout(), summary)
					return nil
				}
				end := time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, day.Location())
				summary, err := a.stats.Range(cmd.Context(), end.AddDate(0, 0, -days), end)
				if err != nil {
					return err
				}
				renderRange(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to report YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&days, "days", 1, "number of days ending with --date")
	return cmd
}

func newHabitsCmd(opts *rootOptions) *cobra.Command {
	var lookback, minDays int

	cmd := &cobra.Command{
		Use:   "habits",
		Short: "Detect applications you use regularly",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app) error {
				habits, err := a.habits.Detect(cmd.Context(), a.clock.Now(), lookback, minDays)
				if err != nil {
					return err
				}
				renderHabits(cmd.OutOrStdout(), habits)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&lookback, "lookback", service.DefaultHabitLookbackDays, "days to look back")
	cmd.Flags().IntVar(&minDays, "min-days", service.DefaultHabitMinDays, "minimum distinct days of use")
	return cmd
}

func newRolloverCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rollover",
		Short: "Advance goals into the current period now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app) error {
				res, err := a.rollover.Run(cmd.Context(), a.clock.Now())
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "reset %d · streaks broken %d · deactivated %d\n",
					res.Reset, res.Broken, res.Deactivated)
				return err
			})
		},
	}
}

func newRetentionCmd(opts *rootOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "retention",
		Short: "Delete activity older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app) error {
				if !cmd.Flags().Changed("days") {
					days = a.cfg.RetentionDays
				}
				deleted, err := a.activities.ApplyRetention(cmd.Context(), days)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d records older than %d days\n", deleted, days)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention window in days (default RETENTION_DAYS)")
	return cmd
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all activity data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete all activity without --yes")
			}
			return withApp(opts, func(a *app) error {
				deleted, err := a.retention.Clear(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d records\n", deleted)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting everything")
	return cmd
}
