package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"autofilter-bot/internal/gate"
	"autofilter-bot/internal/models"
	"autofilter-bot/internal/store"
	"autofilter-bot/internal/verify"
)

func (b *Bot) registerStart(handler *th.BotHandler) {
	handler.Handle(b.handleStart, th.CommandEqual("start"))
	handler.Handle(b.handleMyPlan, th.CommandEqual("myplan"))
	handler.Handle(b.handleNewMembers, func(_ context.Context, update telego.Update) bool {
		return update.Message != nil && len(update.Message.NewChatMembers) > 0
	})
}

func isGroup(chat telego.Chat) bool {
	return chat.Type == telego.ChatTypeGroup || chat.Type == telego.ChatTypeSupergroup
}

func (b *Bot) handleStart(ctx *th.Context, update telego.Update) error {
	msg := update.Message

	if isGroup(msg.Chat) {
		created, err := b.Settings.Register(ctx.Context(), msg.Chat.ID, msg.Chat.Title)
		if err != nil {
			return err
		}
		if created {
			b.logToChannel(ctx.Context(), fmt.Sprintf("#NewGroup\n\nName: %s\nID: %d", msg.Chat.Title, msg.Chat.ID))
		}
		_, err = b.Transport.SendText(ctx.Context(), msg.Chat.ID,
			"Hello! I am alive here. Just type a movie name and I will find it for you.", nil)
		return err
	}

	user, created, err := b.Users.Ensure(ctx.Context(), msg.From.ID, msg.From.FirstName)
	if err != nil {
		return err
	}
	if created {
		b.logToChannel(ctx.Context(), fmt.Sprintf("#NewUser\n\nName: %s\nID: %d", msg.From.FirstName, msg.From.ID))
	}
	if b.Runtime.IsBanned(user.ID) || user.Banned {
		_, err := b.Transport.SendText(ctx.Context(), msg.From.ID, "You are banned from using me. Contact support if you think this is a mistake.", nil)
		return err
	}

	payload := startPayload(msg.Text)
	switch {
	case payload == "":
		return b.sendGreeting(ctx, msg.From)
	case payload == "plans":
		return b.sendPlans(ctx, msg.From.ID)
	case strings.HasPrefix(payload, "verify_"):
		return b.redeemVerify(ctx, user, strings.TrimPrefix(payload, "verify_"))
	case strings.HasPrefix(payload, "getfile-"):
		query := strings.ReplaceAll(strings.TrimPrefix(payload, "getfile-"), "-", " ")
		settings, err := b.Settings.Resolve(ctx.Context(), msg.From.ID)
		if err != nil {
			return err
		}
		return b.replySearchResults(ctx, msg.From.ID, msg.From.ID, settings, query)
	default:
		return b.deliverPayload(ctx, user, msg.From.ID, payload)
	}
}

func startPayload(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

func (b *Bot) sendGreeting(ctx *th.Context, from *telego.User) error {
	kb := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Add Me To Your Group").
				WithURL(fmt.Sprintf("https://t.me/%s?startgroup=true", b.Runtime.Self.Username)),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Updates").WithURL(b.Cfg.UpdatesLink),
			tu.InlineKeyboardButton("Support").WithURL(b.Cfg.SupportLink),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Buy Premium").WithCallbackData("plans"),
		),
	)
	_, err := b.Transport.SendText(ctx.Context(),
		from.ID,
		fmt.Sprintf("Hello %s!\n\nI am an advanced media search bot. Add me to a group and type any movie name, or send me a name right here.", from.FirstName),
		kb)
	return err
}

func (b *Bot) sendPlans(ctx *th.Context, chatID int64) error {
	text := "Premium plans:\n\n" +
		"- No verification\n" +
		"- No forced channel joins\n" +
		"- Files without forward protection\n\n" +
		"Contact support to purchase."
	kb := tu.InlineKeyboard(tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("Contact Support").WithURL(b.Cfg.SupportLink),
		tu.InlineKeyboardButton("Close").WithCallbackData("close_data"),
	))
	_, err := b.Transport.SendText(ctx.Context(), chatID, text, kb)
	return err
}

func (b *Bot) redeemVerify(ctx *th.Context, user *models.User, token string) error {
	pending, err := b.Verifier.Redeem(ctx.Context(), user, token)
	if errors.Is(err, verify.ErrTokenMismatch) {
		_, err := b.Transport.SendText(ctx.Context(), user.ID,
			"This verification link is invalid or already used. Request the file again to get a fresh one.", nil)
		return err
	}
	if err != nil {
		return err
	}

	var kb *telego.InlineKeyboardMarkup
	if pending != "" {
		kb = tu.InlineKeyboard(tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Get File").
				WithURL(fmt.Sprintf("https://t.me/%s?start=%s", b.Runtime.Self.Username, pending)),
		))
	}
	_, err = b.Transport.SendText(ctx.Context(), user.ID,
		fmt.Sprintf("You are verified for the next %s. Enjoy!", readableDuration(b.Verifier.Expire())), kb)
	return err
}

// parseDeepLink splits a delivery payload into its kind, group id and
// resource key. Keys may themselves contain underscores, so only the two
// leading separators split. Group id 0 is valid and means the link was
// minted outside any group.
func parseDeepLink(payload string) (kind string, groupID int64, key string, ok bool) {
	parts := strings.SplitN(payload, "_", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return "", 0, "", false
	}
	groupID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, "", false
	}
	return parts[0], groupID, parts[2], true
}

// deliverPayload resolves a file or batch deep link, runs the access gate
// and hands the delivery to the scheduler.
//
// Payload forms: all_<group>_<batchKey> and <kind>_<group>_<fileKey>,
// where kind is "file" for a plain link and "shortlink" for a link that
// already passed the per-group shortener hop.
func (b *Bot) deliverPayload(ctx *th.Context, user *models.User, chatID int64, payload string) error {
	kind, groupID, key, ok := parseDeepLink(payload)
	if !ok {
		_, err := b.Transport.SendText(ctx.Context(), chatID, "This link looks broken. Search for the file again.", nil)
		return err
	}

	// Group 0 links come from surfaces with no group behind them (the web
	// feed); they gate against the requester's defaults, the same row a
	// direct-message search uses.
	settingsID := groupID
	if settingsID == 0 {
		settingsID = user.ID
	}
	settings, err := b.Settings.Resolve(ctx.Context(), settingsID)
	if err != nil {
		return err
	}

	decision, err := b.Gate.Authorize(ctx.Context(), user, settings, payload)
	if err != nil {
		return err
	}
	if decision.Kind != gate.Allow {
		return b.renderDecision(ctx, chatID, decision, settings, payload)
	}

	if kind == "all" {
		err := b.Delivery.DeliverBatch(ctx.Context(), user, settings, groupID, key)
		if errors.Is(err, store.ErrNoSuchBatch) {
			_, err := b.Transport.SendText(ctx.Context(), chatID, "This batch link has expired. Search for the files again.", nil)
			return err
		}
		return err
	}

	// The per-group shortener is a second monetized hop on top of
	// verification. Premium users and links that already carry the
	// shortlink marker skip it.
	if settings.Shortlink && kind != "shortlink" && !user.HasPremiumAccess(time.Now()) {
		return b.sendShortlinkHop(ctx, chatID, settings, groupID, key)
	}

	rec, err := b.Media.Get(ctx.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		_, err := b.Transport.SendText(ctx.Context(), chatID, "This file is no longer available.", nil)
		return err
	}
	if err != nil {
		return err
	}
	return b.Delivery.DeliverOne(ctx.Context(), user, settings, rec, groupID)
}

func (b *Bot) sendShortlinkHop(ctx *th.Context, chatID int64, settings *models.GroupSettings, groupID int64, fileKey string) error {
	longURL := fmt.Sprintf("https://t.me/%s?start=shortlink_%d_%s", b.Runtime.Self.Username, groupID, fileKey)
	short, err := b.Shortener.Shorten(ctx.Context(), settings.ShortlinkURL, settings.ShortlinkAPI, longURL)
	if err != nil {
		return err
	}
	rows := [][]telego.InlineKeyboardButton{
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Download Now").WithURL(short)),
	}
	if settings.Tutorial != "" {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("How To Open").WithURL(settings.Tutorial),
		))
	}
	_, err = b.Transport.SendText(ctx.Context(), chatID,
		"Open the link below to get your file.", tu.InlineKeyboard(rows...))
	return err
}

// renderDecision tells a gated user what is missing before the file can go
// out. Allow never reaches here.
func (b *Bot) renderDecision(ctx *th.Context, chatID int64, decision gate.Decision, settings *models.GroupSettings, payload string) error {
	switch decision.Kind {
	case gate.Banned:
		_, err := b.Transport.SendText(ctx.Context(), chatID, "You are banned from using me.", nil)
		return err

	case gate.RequireVerification:
		rows := [][]telego.InlineKeyboardButton{
			tu.InlineKeyboardRow(tu.InlineKeyboardButton("Verify").WithURL(decision.VerifyLink)),
		}
		if settings.Tutorial != "" {
			rows = append(rows, tu.InlineKeyboardRow(
				tu.InlineKeyboardButton("How To Verify").WithURL(settings.Tutorial),
			))
		}
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Buy Premium").WithCallbackData("plans"),
		))
		_, err := b.Transport.SendText(ctx.Context(), chatID,
			fmt.Sprintf("You need to verify before I can send files. One verification lasts %s.", readableDuration(b.Verifier.Expire())),
			tu.InlineKeyboard(rows...))
		return err

	case gate.RequireSubscription:
		rows := make([][]telego.InlineKeyboardButton, 0, len(decision.MissingChannels)+1)
		for _, channelID := range decision.MissingChannels {
			title, invite := b.channelInvite(ctx.Context(), channelID)
			if invite == "" {
				continue
			}
			rows = append(rows, tu.InlineKeyboardRow(
				tu.InlineKeyboardButton("Join "+title).WithURL(invite),
			))
		}
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Try Again").WithCallbackData("checksub#"+payload),
		))
		_, err := b.Transport.SendText(ctx.Context(), chatID,
			"Join the channels below to unlock your file, then hit Try Again.",
			tu.InlineKeyboard(rows...))
		return err
	}
	return nil
}

// channelInvite resolves a channel's title and invite link for the join
// keyboard. A channel the bot cannot inspect is skipped by the caller.
func (b *Bot) channelInvite(ctx context.Context, channelID int64) (string, string) {
	chat, err := b.Instance.GetChat(ctx, &telego.GetChatParams{ChatID: tu.ID(channelID)})
	if err != nil {
		b.Log.Error("failed to resolve fsub channel", "channel", channelID, "error", err)
		return "", ""
	}
	return chat.Title, chat.InviteLink
}

func (b *Bot) handleMyPlan(ctx *th.Context, update telego.Update) error {
	user, _, err := b.Users.Ensure(ctx.Context(), update.Message.From.ID, update.Message.From.FirstName)
	if err != nil {
		return err
	}
	text := "You have no active premium plan.\n\nUse /start and hit Buy Premium to see the plans."
	if user.HasPremiumAccess(time.Now()) {
		text = fmt.Sprintf("Premium user\n\nExpires: %s", user.PremiumExpiry.Format("2006-01-02 15:04:05 MST"))
	}
	_, err = b.Transport.SendText(ctx.Context(), update.Message.Chat.ID, text, nil)
	return err
}

func (b *Bot) handleNewMembers(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if !isGroup(msg.Chat) {
		return nil
	}
	settings, err := b.Settings.Resolve(ctx.Context(), msg.Chat.ID)
	if err != nil {
		return err
	}
	if !settings.Welcome {
		return nil
	}
	for _, member := range msg.NewChatMembers {
		if member.ID == b.Runtime.Self.ID {
			continue
		}
		text := strings.NewReplacer("{mention}", member.FirstName, "{title}", msg.Chat.Title).Replace(settings.WelcomeText)
		if _, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID, text, nil); err != nil {
			b.Log.Error("failed to send welcome", "chat", msg.Chat.ID, "error", err)
		}
	}
	return nil
}
