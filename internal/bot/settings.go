package bot

import (
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/samber/lo"

	"autofilter-bot/internal/models"
)

func (b *Bot) registerSettings(handler *th.BotHandler) {
	handler.Handle(b.handleSettings, th.CommandEqual("settings"))
	handler.Handle(b.handleSetCaption, th.CommandEqual("set_caption"))
	handler.Handle(b.handleSetWelcome, th.CommandEqual("set_welcome"))
	handler.Handle(b.handleSetTutorial, th.CommandEqual("set_tutorial"))
	handler.Handle(b.handleSetShortlink, th.CommandEqual("set_shortlink"))
	handler.Handle(b.handleSetFSub, th.CommandEqual("set_fsub"))
	handler.Handle(b.handleRemoveFSub, th.CommandEqual("remove_fsub"))
	handler.Handle(b.handleCustomSettings, th.CommandEqual("get_custom_settings"))
}

// groupCommand gates a settings command: group chats only, group admins only.
// Returns the resolved settings, or nil when the command was rejected.
func (b *Bot) groupCommand(ctx *th.Context, msg *telego.Message) (*models.GroupSettings, error) {
	if !isGroup(msg.Chat) {
		_, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID, "This command works in groups only.", nil)
		return nil, err
	}
	if !b.isGroupAdmin(ctx.Context(), msg.Chat.ID, msg.From.ID) {
		_, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID, "Only group admins can change my settings.", nil)
		return nil, err
	}
	settings, err := b.Settings.Resolve(ctx.Context(), msg.Chat.ID)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func onOff(v bool) string {
	if v {
		return "On"
	}
	return "Off"
}

// settingsKeyboard renders one toggle button per boolean setting. The
// callback carries the target value so a stale keyboard cannot flip a
// setting twice.
func settingsKeyboard(s *models.GroupSettings) *telego.InlineKeyboardMarkup {
	toggle := func(label, field string, current bool) telego.InlineKeyboardButton {
		return tu.InlineKeyboardButton(fmt.Sprintf("%s: %s", label, onOff(current))).
			WithCallbackData(fmt.Sprintf("setgs#%s#%t#%d", field, !current, s.GroupID))
	}
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			toggle("Filter", "auto_filter", s.AutoFilter),
			toggle("IMDB", "imdb", s.IMDB),
		),
		tu.InlineKeyboardRow(
			toggle("Spellcheck", "spell_check", s.SpellCheck),
			toggle("Welcome", "welcome", s.Welcome),
		),
		tu.InlineKeyboardRow(
			toggle("Auto Delete", "auto_delete", s.AutoDelete),
			toggle("Shortlink", "shortlink", s.Shortlink),
		),
		tu.InlineKeyboardRow(
			toggle("Link Mode", "link_mode", s.LinkMode),
			toggle("Stream", "is_stream", s.IsStream),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Close").WithCallbackData("close_data"),
		),
	)
}

func (b *Bot) handleSettings(ctx *th.Context, update telego.Update) error {
	settings, err := b.groupCommand(ctx, update.Message)
	if settings == nil {
		return err
	}
	_, err = b.Transport.SendText(ctx.Context(), update.Message.Chat.ID,
		fmt.Sprintf("Settings for %s:", update.Message.Chat.Title), settingsKeyboard(settings))
	return err
}

func (b *Bot) handleSetCaption(ctx *th.Context, update telego.Update) error {
	settings, err := b.groupCommand(ctx, update.Message)
	if settings == nil {
		return err
	}
	caption := commandArgs(update.Message.Text)
	if caption == "" {
		_, err := b.Transport.SendText(ctx.Context(), update.Message.Chat.ID,
			"Usage: /set_caption <template>\n\nPlaceholders: {file_name}, {file_size}, {file_caption}", nil)
		return err
	}
	if err := b.Settings.UpdateField(ctx.Context(), settings.GroupID, "caption", caption); err != nil {
		return err
	}
	_, err = b.Transport.SendText(ctx.Context(), update.Message.Chat.ID, "Caption updated.", nil)
	return err
}

func (b *Bot) handleSetWelcome(ctx *th.Context, update telego.Update) error {
	settings, err := b.groupCommand(ctx, update.Message)
	if settings == nil {
		return err
	}
	text := commandArgs(update.Message.Text)
	if text == "" {
		_, err := b.Transport.SendText(ctx.Context(), update.Message.Chat.ID,
			"Usage: /set_welcome <text>\n\nPlaceholders: {mention}, {title}", nil)
		return err
	}
	if err := b.Settings.UpdateField(ctx.Context(), settings.GroupID, "welcome_text", text); err != nil {
		return err
	}
	_, err = b.Transport.SendText(ctx.Context(), update.Message.Chat.ID, "Welcome message updated.", nil)
	return err
}

func (b *Bot) handleSetTutorial(ctx *th.Context, update telego.Update) error {
	settings, err := b.groupCommand(ctx, update.Message)
	if settings == nil {
		return err
	}
	link := commandArgs(update.Message.Text)
	if !strings.HasPrefix(link, "http") {
		_, err := b.Transport.SendText(ctx.Context(), update.Message.Chat.ID, "Usage: /set_tutorial <https://...>", nil)
		return err
	}
	if err := b.Settings.UpdateField(ctx.Context(), settings.GroupID, "tutorial", link); err != nil {
		return err
	}
	_, err = b.Transport.SendText(ctx.Context(), update.Message.Chat.ID, "Tutorial link updated.", nil)
	return err
}

// handleSetShortlink validates the host and key by shortening a probe URL
// before persisting them; a typo here would otherwise break every delivery
// in the group.
func (b *Bot) handleSetShortlink(ctx *th.Context, update telego.Update) error {
	settings, err := b.groupCommand(ctx, update.Message)
	if settings == nil {
		return err
	}
	args := strings.Fields(commandArgs(update.Message.Text))
	if len(args) != 2 {
		_, err := b.Transport.SendText(ctx.Context(), update.Message.Chat.ID, "Usage: /set_shortlink <host> <api_key>", nil)
		return err
	}
	host, apiKey := args[0], args[1]

	if _, err := b.Shortener.Shorten(ctx.Context(), host, apiKey, "https://t.me/"+b.Runtime.Self.Username); err != nil {
		_, err := b.Transport.SendText(ctx.Context(), update.Message.Chat.ID,
			"That shortener rejected a test link. Check the host and API key.", nil)
		return err
	}
	if err := b.Settings.UpdateField(ctx.Context(), settings.GroupID, "shortlink_url", host); err != nil {
		return err
	}
	if err := b.Settings.UpdateField(ctx.Context(), settings.GroupID, "shortlink_api", apiKey); err != nil {
		return err
	}
	if err := b.Settings.UpdateField(ctx.Context(), settings.GroupID, "shortlink", true); err != nil {
		return err
	}
	_, err = b.Transport.SendText(ctx.Context(), update.Message.Chat.ID,
		fmt.Sprintf("Shortlink enabled with %s.", host), nil)
	return err
}

// handleSetFSub replaces the force-subscribe list. Every channel must be
// visible to the bot so the membership gate can actually be answered.
func (b *Bot) handleSetFSub(ctx *th.Context, update telego.Update) error {
	settings, err := b.groupCommand(ctx, update.Message)
	if settings == nil {
		return err
	}
	args := strings.Fields(commandArgs(update.Message.Text))
	if len(args) == 0 {
		_, err := b.Transport.SendText(ctx.Context(), update.Message.Chat.ID,
			"Usage: /set_fsub <channel_id> [channel_id ...]", nil)
		return err
	}

	channels := lo.FilterMap(args, func(s string, _ int) (int64, bool) {
		id := parseInt64(s)
		return id, id != 0
	})
	if len(channels) != len(args) {
		_, err := b.Transport.SendText(ctx.Context(), update.Message.Chat.ID, "Channel ids must be numeric.", nil)
		return err
	}

	names := make([]string, 0, len(channels))
	for _, channelID := range channels {
		chat, err := b.Instance.GetChat(ctx.Context(), &telego.GetChatParams{ChatID: tu.ID(channelID)})
		if err != nil {
			_, err := b.Transport.SendText(ctx.Context(), update.Message.Chat.ID,
				fmt.Sprintf("I cannot see channel %d. Add me there first.", channelID), nil)
			return err
		}
		names = append(names, chat.Title)
	}

	if err := b.Settings.SetFSub(ctx.Context(), settings.GroupID, channels); err != nil {
		return err
	}
	_, err = b.Transport.SendText(ctx.Context(), update.Message.Chat.ID,
		fmt.Sprintf("Force subscribe set: %s", strings.Join(names, ", ")), nil)
	return err
}

func (b *Bot) handleRemoveFSub(ctx *th.Context, update telego.Update) error {
	settings, err := b.groupCommand(ctx, update.Message)
	if settings == nil {
		return err
	}
	if err := b.Settings.SetFSub(ctx.Context(), settings.GroupID, nil); err != nil {
		return err
	}
	_, err = b.Transport.SendText(ctx.Context(), update.Message.Chat.ID, "Force subscribe disabled.", nil)
	return err
}

func (b *Bot) handleCustomSettings(ctx *th.Context, update telego.Update) error {
	settings, err := b.groupCommand(ctx, update.Message)
	if settings == nil {
		return err
	}
	fsub := "none"
	if len(settings.FSub) > 0 {
		fsub = strings.Trim(strings.Join(strings.Fields(fmt.Sprint(settings.FSub)), ", "), "[]")
	}
	shortlink := "none"
	if settings.Shortlink {
		shortlink = settings.ShortlinkURL
	}
	text := fmt.Sprintf(
		"Custom settings for %s:\n\nForce subscribe: %s\nShortlink: %s\nTutorial: %s\nCaption:\n%s",
		update.Message.Chat.Title, fsub, shortlink, settings.Tutorial, settings.Caption)
	_, err = b.Transport.SendText(ctx.Context(), update.Message.Chat.ID, text, nil)
	return err
}
