package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
	"github.com/jasonzgao/accountability-partner-sub001/internal/repository"
	"github.com/jasonzgao/accountability-partner-sub001/internal/service"
)

// Sender delivers a pre-formatted HTML message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// LogSender writes messages to the log. Used when no Telegram token is configured.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(_ context.Context, text string) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("notification", "text", text)
	return nil
}

// Notifier turns goal changes and reminder times into messages.
type Notifier struct {
	sender    Sender
	goals     *repository.GoalRepository
	reminders *service.ReminderService
	log       *slog.Logger
}

func NewNotifier(sender Sender, goals *repository.GoalRepository, reminders *service.ReminderService, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{sender: sender, goals: goals, reminders: reminders, log: log.With("component", "notifier")}
}

// WatchGoals sends a message every time an active goal becomes completed,
// until ctx is done. The ready channel, when not nil, is closed once the
// subscription is in place.
func (n *Notifier) WatchGoals(ctx context.Context, ready chan<- struct{}) error {
	sub := n.goals.Subscribe(8)
	defer sub.Cancel()

	initial, err := n.goals.GetActive(ctx)
	if err != nil {
		if ready != nil {
			close(ready)
		}
		return fmt.Errorf("load goals: %w", err)
	}
	completed := completedSet(initial)
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case goals, ok := <-sub.C:
			if !ok {
				return nil
			}
			for _, g := range newlyCompleted(completed, goals) {
				if err := n.sender.Send(ctx, service.FormatCompleted(g)); err != nil {
					n.log.Warn("send completion", "goal_id", g.ID, "error", err)
				}
			}
			completed = completedSet(goals)
		}
	}
}

// SendReminders notifies about goals whose reminder time is now.
func (n *Notifier) SendReminders(ctx context.Context, now time.Time) error {
	due, err := n.reminders.DueReminders(ctx, now)
	if err != nil {
		return err
	}
	for _, g := range due {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := n.sender.Send(ctx, service.FormatReminder(g)); err != nil {
			n.log.Warn("send reminder", "goal_id", g.ID, "error", err)
		}
	}
	return nil
}

func (n *Notifier) SendDailySummary(ctx context.Context, now time.Time) error {
	text, err := n.reminders.DailySummary(ctx, now)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, text)
}

func completedSet(goals []model.Goal) map[string]bool {
	set := make(map[string]bool, len(goals))
	for _, g := range goals {
		set[g.ID] = g.IsCompleted()
	}
	return set
}

// newlyCompleted returns goals that completed since the previous snapshot.
// Untouched goals with a zero target do not count.
func newlyCompleted(previous map[string]bool, goals []model.Goal) []model.Goal {
	var out []model.Goal
	for _, g := range goals {
		if g.IsCompleted() && !previous[g.ID] && g.CurrentProgress > 0 {
			out = append(out, g)
		}
	}
	return out
}
