package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jasonzgao/accountability-partner-sub001/internal/bot"
	"github.com/jasonzgao/accountability-partner-sub001/internal/service"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var exitOnEOF bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tracker: read activity events from stdin and run background jobs",
		Long: "serve reads newline-delimited JSON activity events from stdin, e.g.\n" +
			`  {"timestamp":"2024-05-01T09:00:00Z","source":"browser","name":"Safari","url":"https://github.com"}` + "\n" +
			"and runs cache sweeps, goal rollover, retention, reminders and notifications.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(opts, func(a *app) error {
				return a.serve(ctx, cmd.InOrStdin(), exitOnEOF)
			})
		},
	}
	cmd.Flags().BoolVar(&exitOnEOF, "exit-on-eof", false, "stop when stdin is closed")
	return cmd
}

func (a *app) serve(ctx context.Context, in io.Reader, exitOnEOF bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sender bot.Sender = bot.LogSender{Log: a.log}
	var telegram *bot.Bot
	if a.cfg.TelegramToken != "" {
		b, err := bot.New(a.cfg.TelegramToken, a.cfg.TelegramChatID, a.reminders, a.stats, a.log)
		if err != nil {
			return err
		}
		telegram = b
		sender = b
	}
	notifier := bot.NewNotifier(sender, a.goals, a.reminders, a.log)

	scheduler := service.NewSchedulerService(time.Local, a.log)
	if err := a.scheduleJobs(scheduler, notifier); err != nil {
		return err
	}

	if _, err := a.rollover.Run(ctx, a.clock.Now()); err != nil {
		a.log.Warn("initial rollover", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	ready := make(chan struct{})
	g.Go(func() error { return notifier.WatchGoals(gctx, ready) })
	<-ready
	g.Go(func() error {
		a.progress.Run(gctx)
		return nil
	})
	if telegram != nil {
		g.Go(func() error { return telegram.Start(gctx) })
	}
	if a.cfg.MetricsAddr != "" {
		g.Go(func() error { return a.serveMetrics(gctx) })
	}
	g.Go(func() error {
		err := a.ingest(gctx, in)
		if err == nil && exitOnEOF {
			cancel()
		}
		return err
	})

	scheduler.Start()
	a.log.Info("partner started", "db", a.cfg.DatabaseURL)
	<-gctx.Done()
	scheduler.Stop()

	// Close the open record so ongoing time is not counted while stopped.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if _, err := a.tracker.Stop(stopCtx, a.clock.Now()); err != nil {
		a.log.Warn("close open activity", "error", err)
	}

	err := g.Wait()
	a.log.Info("shutdown complete")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *app) scheduleJobs(scheduler *service.SchedulerService, notifier *bot.Notifier) error {
	if _, err := scheduler.ScheduleInterval("cache_sweep", a.cfg.CacheSweepInterval, func(context.Context) error {
		a.activities.SweepCache()
		return nil
	}); err != nil {
		return fmt.Errorf("schedule cache sweep: %w", err)
	}

	if _, err := scheduler.ScheduleDaily("rollover", a.cfg.RolloverTime, func(ctx context.Context) error {
		_, err := a.rollover.Run(ctx, a.clock.Now())
		return err
	}); err != nil {
		return fmt.Errorf("schedule rollover: %w", err)
	}

	if a.retention.Enabled() {
		if _, err := scheduler.ScheduleDaily("retention", a.cfg.RetentionTime, func(ctx context.Context) error {
			_, err := a.retention.Run(ctx)
			return err
		}); err != nil {
			return fmt.Errorf("schedule retention: %w", err)
		}
	}

	if _, err := scheduler.ScheduleDaily("daily_summary", a.cfg.SummaryTime, func(ctx context.Context) error {
		return notifier.SendDailySummary(ctx, a.clock.Now())
	}); err != nil {
		return fmt.Errorf("schedule daily summary: %w", err)
	}

	if _, err := scheduler.ScheduleEveryMinute("progress_and_reminders", func(ctx context.Context) error {
		now := a.clock.Now()
		if err := a.progress.RecomputeAll(ctx, now); err != nil {
			a.log.Warn("recompute goal progress", "error", err)
		}
		return notifier.SendReminders(ctx, now)
	}); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}
	return nil
}

// ingest records every JSON event read from in until EOF or ctx is done.
// Malformed lines are logged and skipped.
func (a *app) ingest(ctx context.Context, in io.Reader) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read activity events: %w", err)
					}
				default:
				}
				a.log.Info("activity input closed")
				return nil
			}
			if len(line) == 0 {
				continue
			}
			var raw service.RawActivity
			if err := json.Unmarshal(line, &raw); err != nil {
				a.log.Warn("skip malformed activity event", "error", err)
				continue
			}
			if _, err := a.tracker.RecordActivity(ctx, raw); err != nil {
				a.log.Warn("record activity", "name", raw.Name, "error", err)
			}
		}
	}
}

func (a *app) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.log.Info("metrics listening", "addr", a.cfg.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
