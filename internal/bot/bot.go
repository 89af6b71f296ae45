package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"autofilter-bot/internal/config"
	"autofilter-bot/internal/delivery"
	"autofilter-bot/internal/forward"
	"autofilter-bot/internal/gate"
	"autofilter-bot/internal/shortlink"
	"autofilter-bot/internal/store"
	"autofilter-bot/internal/verify"
)

type Bot struct {
	Instance  *telego.Bot
	Transport *Transport
	Runtime   *Runtime
	Cfg       *config.Config
	Log       *slog.Logger

	Users        *store.UserStore
	Settings     *store.SettingsStore
	Media        *store.MediaStore
	ForwardRules *store.ForwardStore
	Batches      *store.BatchStore

	Gate      *gate.Gate
	Verifier  *verify.Service
	Delivery  *delivery.Scheduler
	Engine    *forward.Engine
	Shortener *shortlink.Client
}

func NewBot(cfg *config.Config, users *store.UserStore, settings *store.SettingsStore, media *store.MediaStore,
	forwardRules *store.ForwardStore, batches *store.BatchStore, log *slog.Logger) (*Bot, error) {
	tgBot, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	transport := NewTransport(tgBot)
	shortener := shortlink.NewClient()

	b := &Bot{
		Instance:     tgBot,
		Transport:    transport,
		Cfg:          cfg,
		Log:          log,
		Users:        users,
		Settings:     settings,
		Media:        media,
		ForwardRules: forwardRules,
		Batches:      batches,
		Shortener:    shortener,
	}
	return b, nil
}

// Init confirms the transport is usable, builds the process runtime and
// wires the components that need the bot identity. The log channel probe is
// fatal on purpose: a bot that cannot report to its operators should not
// come up at all.
func (b *Bot) Init(ctx context.Context) error {
	me, err := b.Instance.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot identity: %w", err)
	}

	bannedIDs, err := b.Users.BannedIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to warm banned cache: %w", err)
	}
	b.Runtime = NewRuntime(*me, b.Cfg.Admins, bannedIDs)

	b.Verifier = verify.NewService(b.Users, b.Shortener, me.Username, b.Cfg.ShortlinkURL, b.Cfg.ShortlinkAPI, b.Cfg.VerifyExpire)
	b.Gate = gate.New(b.Verifier, b.Transport, b.Cfg.IsVerify, b.Log)
	b.Delivery = delivery.NewScheduler(b.Transport, b.Batches, b.Media, b.Cfg.PMFileDeleteTime, b.Cfg.UpdatesLink, b.Cfg.SupportLink, b.Log)
	b.Engine = forward.NewEngine(b.Transport, b.Log)

	if b.Cfg.LogChannel != 0 {
		if _, err := b.Transport.SendText(ctx, b.Cfg.LogChannel, fmt.Sprintf("%s restarted!", me.FirstName), nil); err != nil {
			return fmt.Errorf("bot is not admin in the log channel: %w", err)
		}
	}

	b.Log.Info("bot initialized", "username", me.Username)
	return nil
}

// Start runs the update loop until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.Instance.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.Instance, updates)
	if err != nil {
		return fmt.Errorf("failed to create bot handler: %w", err)
	}

	b.registerStart(handler)
	b.registerSettings(handler)
	b.registerAdmin(handler)
	b.registerCallbacks(handler)
	b.registerForwarding(handler)
	b.registerSearch(handler)

	return handler.Start()
}

// logToChannel best-effort reports an event to the operator log channel.
func (b *Bot) logToChannel(ctx context.Context, text string) {
	if b.Cfg.LogChannel == 0 {
		return
	}
	if _, err := b.Transport.SendText(ctx, b.Cfg.LogChannel, text, nil); err != nil {
		b.Log.Error("failed to write to log channel", "error", err)
	}
}
