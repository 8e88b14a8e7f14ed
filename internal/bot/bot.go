package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"plant-care/internal/service"
)

const (
	manualCycleTimeout = time.Minute
	digestTimeout      = 30 * time.Second
)

// Operations is what the admin bot can do with the scheduler.
type Operations interface {
	Start()
	Stop(ctx context.Context)
	Status() service.SchedulerStatus
	RunCycle(ctx context.Context) (service.CycleReport, bool)
}

// Stats provides overdue aggregates.
type Stats interface {
	GetOverdueTaskStats(ctx context.Context) (service.OverdueStats, error)
}

// Digests builds the daily digest text.
type Digests interface {
	DailyDigest(ctx context.Context) (string, error)
}

// Bot is the operator-facing Telegram bot. Only chats listed as admins
// may use it.
type Bot struct {
	api     *tgbotapi.BotAPI
	ops     Operations
	stats   Stats
	digests Digests
	admins  map[int64]struct{}
	log     zerolog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

func New(token string, adminChatIDs []int64, ops Operations, stats Stats, digests Digests, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info().Str("account", api.Self.UserName).Msg("bot authorized")

	admins := make(map[int64]struct{}, len(adminChatIDs))
	for _, id := range adminChatIDs {
		admins[id] = struct{}{}
	}

	return &Bot{
		api:     api,
		ops:     ops,
		stats:   stats,
		digests: digests,
		admins:  admins,
		log:     log,
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
		b.stopDigest()
	}()

	for update := range updates {
		if update.Message == nil || update.Message.Chat == nil {
			continue
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error().Err(err).Int64("chat_id", update.Message.Chat.ID).Msg("handle message")
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !msg.IsCommand() {
		return nil
	}
	if !b.isAdmin(msg.Chat.ID) {
		b.log.Warn().Int64("chat_id", msg.Chat.ID).Str("command", msg.Command()).Msg("command from non-admin chat")
		return b.sendText(msg.Chat.ID, "⛔ This bot is for operators only.")
	}

	b.log.Info().Int64("chat_id", msg.Chat.ID).Str("command", msg.Command()).Msg("admin command")
	return b.handleCommand(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		return b.sendText(chatID, helpText)
	case "status":
		return b.sendText(chatID, service.FormatStatus(b.ops.Status(), time.Now()))
	case "stats":
		return b.handleStats(ctx, chatID)
	case "trigger":
		return b.handleTrigger(ctx, chatID)
	case "pause":
		stopCtx, cancel := context.WithTimeout(ctx, manualCycleTimeout)
		defer cancel()
		b.ops.Stop(stopCtx)
		return b.sendText(chatID, "⏸ Scheduler stopped. A cycle in progress was allowed to finish.")
	case "resume":
		b.ops.Start()
		return b.sendText(chatID, "▶️ Scheduler running.")
	case "digest":
		return b.sendDigestTo(ctx, chatID)
	default:
		return b.sendText(chatID, "Unknown command. See /help.")
	}
}

const helpText = "ℹ️ <b>Plant care scheduler</b>\n" +
	"• /status — scheduler state and last cycle\n" +
	"• /stats — overdue tasks by type\n" +
	"• /trigger — run one cycle now\n" +
	"• /pause — stop the scheduler\n" +
	"• /resume — start the scheduler\n" +
	"• /digest — send the daily digest now"

func (b *Bot) handleStats(ctx context.Context, chatID int64) error {
	stats, err := b.stats.GetOverdueTaskStats(ctx)
	text := service.FormatStats(stats)
	if err != nil {
		text = fmt.Sprintf("⚠️ Overdue query failed: %s\n\n%s", escape(err.Error()), text)
	}
	return b.sendText(chatID, text)
}

func (b *Bot) handleTrigger(ctx context.Context, chatID int64) error {
	cycleCtx, cancel := context.WithTimeout(ctx, manualCycleTimeout)
	defer cancel()

	report, ran := b.ops.RunCycle(cycleCtx)
	if !ran {
		return b.sendText(chatID, "⏳ A cycle is already running; try again shortly.")
	}
	return b.sendText(chatID, "🔁 "+service.FormatCycle(report))
}

// ScheduleDailyDigest sends the digest to every admin chat daily at HH:MM
// in loc. An empty time disables the digest.
func (b *Bot) ScheduleDailyDigest(timeStr string, loc *time.Location) error {
	if strings.TrimSpace(timeStr) == "" {
		return nil
	}
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return err
	}
	if loc == nil {
		loc = time.Local
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cron != nil {
		<-b.cron.Stop().Done()
	}
	b.cron = cron.New(cron.WithLocation(loc), cron.WithSeconds())
	if _, err := b.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
		defer cancel()
		if err := b.SendDailyDigest(ctx); err != nil {
			b.log.Error().Err(err).Msg("daily digest")
		}
	}); err != nil {
		return fmt.Errorf("schedule digest: %w", err)
	}
	b.cron.Start()
	b.log.Info().Str("at", timeStr).Str("tz", loc.String()).Msg("daily digest scheduled")
	return nil
}

func (b *Bot) stopDigest() {
	b.mu.Lock()
	c := b.cron
	b.cron = nil
	b.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// SendDailyDigest sends the digest to every admin chat.
func (b *Bot) SendDailyDigest(ctx context.Context) error {
	for chatID := range b.admins {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.sendDigestTo(ctx, chatID); err != nil {
			b.log.Error().Err(err).Int64("chat_id", chatID).Msg("send digest")
		}
	}
	return nil
}

func (b *Bot) sendDigestTo(ctx context.Context, chatID int64) error {
	text, err := b.digests.DailyDigest(ctx)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not build the digest: %s", escape(err.Error())))
	}
	return b.sendText(chatID, text)
}

func (b *Bot) isAdmin(chatID int64) bool {
	_, ok := b.admins[chatID]
	return ok
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func escape(s string) string {
	return html.EscapeString(s)
}

// buildDailySpec turns HH:MM into a six-field cron spec.
func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(strings.TrimSpace(timeStr), ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
