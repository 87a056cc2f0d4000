package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
	"github.com/jasonzgao/accountability-partner-sub001/internal/service"
)

const (
	menuLabelGoals = "🎯 Goals"
	menuLabelToday = "📊 Today"
	menuLabelHelp  = "ℹ️ Help"
)

// Bot talks to a single Telegram chat: it delivers notifications and answers
// a few read-only commands.
type Bot struct {
	api       *tgbotapi.BotAPI
	chatID    int64
	reminders *service.ReminderService
	stats     *service.StatsService
	log       *slog.Logger
}

func New(token string, chatID int64, reminders *service.ReminderService, stats *service.StatsService, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "bot")
	log.Info("bot authorized", "account", api.Self.UserName)

	return &Bot{
		api:       api,
		chatID:    chatID,
		reminders: reminders,
		stats:     stats,
		log:       log,
	}, nil
}

// Send delivers text to the configured chat.
func (b *Bot) Send(_ context.Context, text string) error {
	return b.sendText(b.chatID, text)
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		msg := update.Message
		if msg == nil || msg.Chat == nil || msg.Chat.ID != b.chatID {
			continue
		}
		if err := b.handleMessage(ctx, msg); err != nil {
			b.log.Warn("handle message", "error", err)
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	command := msg.Command()
	if !msg.IsCommand() {
		switch strings.TrimSpace(msg.Text) {
		case menuLabelGoals:
			command = "goals"
		case menuLabelToday:
			command = "today"
		case menuLabelHelp:
			command = "help"
		default:
			return b.sendText(msg.Chat.ID, "I did not understand that. Send /help for the list of commands.")
		}
	}

	b.log.Debug("command", "command", command, "args", msg.CommandArguments())
	switch command {
	case "start", "help":
		return b.handleHelp(msg)
	case "goals":
		return b.handleGoals(ctx, msg)
	case "today":
		return b.handleToday(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. Send /help for the list of commands.")
	}
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /goals — today's goals and their progress\n" +
		"• /today — where your time went today\n" +
		"• /help — this message"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleGoals(ctx context.Context, msg *tgbotapi.Message) error {
	text, err := b.reminders.DailySummary(ctx, time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build the goal summary: %s", html.EscapeString(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleToday(ctx context.Context, msg *tgbotapi.Message) error {
	summary, err := b.stats.DailySummary(ctx, time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build today's summary: %s", html.EscapeString(err.Error())))
	}
	return b.sendText(msg.Chat.ID, FormatDaySummary(summary))
}

// FormatDaySummary renders a day of activity as an HTML message.
func FormatDaySummary(summary model.DaySummary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 <b>Activity for %s</b>\n", summary.Date))
	if summary.TotalMinutes == 0 {
		sb.WriteString("— nothing tracked yet")
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("⏱ %s tracked · productivity %.0f%%\n\n", formatMinutes(summary.TotalMinutes), summary.ProductivityScore))

	categories := make([]model.ActivityCategory, 0, len(summary.CategoryMinutes))
	for c := range summary.CategoryMinutes {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		return summary.CategoryMinutes[categories[i]] > summary.CategoryMinutes[categories[j]]
	})
	for _, c := range categories {
		sb.WriteString(fmt.Sprintf("%s %s: %s\n", categoryIcon(c), c.Label(), formatMinutes(summary.CategoryMinutes[c])))
	}

	if len(summary.Applications) > 0 {
		sb.WriteString("\n<b>Top applications</b>\n")
		for i, app := range summary.Applications {
			if i == 5 {
				break
			}
			sb.WriteString(fmt.Sprintf("• %s — %s\n", html.EscapeString(app.Name), formatMinutes(app.Minutes)))
		}
	}
	return strings.TrimSpace(sb.String())
}

func categoryIcon(c model.ActivityCategory) string {
	switch c {
	case model.CategoryProductive:
		return "🟢"
	case model.CategoryDistracting:
		return "🔴"
	case model.CategoryCustom:
		return "🟣"
	default:
		return "⚪"
	}
}

func formatMinutes(minutes float64) string {
	total := int(minutes + 0.5)
	if total < 60 {
		return fmt.Sprintf("%dm", total)
	}
	return fmt.Sprintf("%dh %02dm", total/60, total%60)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelGoals),
			tgbotapi.NewKeyboardButton(menuLabelToday),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}
