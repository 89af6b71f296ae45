package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
)

func (b *Bot) registerAdmin(handler *th.BotHandler) {
	handler.Handle(b.handleAddPremium, th.CommandEqual("add_premium"))
	handler.Handle(b.handleRemovePremium, th.CommandEqual("remove_premium"))
	handler.Handle(b.handleStats, th.CommandEqual("stats"))
	handler.Handle(b.handleDelete, th.CommandEqual("delete"))
	handler.Handle(b.handleDeleteAll, th.CommandEqual("delete_all"))
	handler.Handle(b.handleBan, th.CommandEqual("ban"))
	handler.Handle(b.handleUnban, th.CommandEqual("unban"))
}

// handleAddPremium grants timed premium: /add_premium <user_id> <duration>,
// duration in operator shorthand like 10day or 1month.
func (b *Bot) handleAddPremium(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if !b.Runtime.IsAdmin(msg.From.ID) {
		return nil
	}
	args := strings.Fields(commandArgs(msg.Text))
	if len(args) != 2 {
		_, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID,
			"Usage: /add_premium <user_id> <duration>\n\nDurations: 30min, 5hour, 10day, 1month, 1year", nil)
		return err
	}
	userID := parseInt64(args[0])
	grant, err := parseGrantDuration(args[1])
	if userID == 0 || err != nil {
		_, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID, "Could not parse the user id or duration.", nil)
		return err
	}

	expiry := time.Now().Add(grant)
	if err := b.Users.SetPremiumExpiry(ctx.Context(), userID, expiry); err != nil {
		return err
	}

	if _, err := b.Transport.SendText(ctx.Context(), userID,
		fmt.Sprintf("You are now a premium user until %s. Enjoy files without verification.",
			expiry.Format("2006-01-02 15:04 MST")), nil); err != nil {
		b.Log.Warn("failed to notify premium user", "user", userID, "error", err)
	}
	_, err = b.Transport.SendText(ctx.Context(), msg.Chat.ID,
		fmt.Sprintf("Premium granted to %d for %s.", userID, readableDuration(grant)), nil)
	return err
}

func (b *Bot) handleRemovePremium(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if !b.Runtime.IsAdmin(msg.From.ID) {
		return nil
	}
	userID := parseInt64(commandArgs(msg.Text))
	if userID == 0 {
		_, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID, "Usage: /remove_premium <user_id>", nil)
		return err
	}
	// An expiry in the past is the same as no grant.
	if err := b.Users.SetPremiumExpiry(ctx.Context(), userID, time.Unix(0, 0)); err != nil {
		return err
	}
	_, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID, fmt.Sprintf("Premium removed from %d.", userID), nil)
	return err
}

func (b *Bot) handleStats(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if !b.Runtime.IsAdmin(msg.From.ID) {
		return nil
	}
	users, err := b.Users.Count(ctx.Context())
	if err != nil {
		return err
	}
	premium, err := b.Users.PremiumCount(ctx.Context(), time.Now())
	if err != nil {
		return err
	}
	groups, err := b.Settings.Count(ctx.Context())
	if err != nil {
		return err
	}
	files, err := b.Media.Count(ctx.Context())
	if err != nil {
		return err
	}
	_, err = b.Transport.SendText(ctx.Context(), msg.Chat.ID,
		fmt.Sprintf("Stats\n\nUsers: %d\nPremium: %d\nGroups: %d\nFiles: %d", users, premium, groups, files), nil)
	return err
}

// handleDelete removes one indexed file. Used as a reply to the file
// message the bot should forget.
func (b *Bot) handleDelete(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if !b.Runtime.IsAdmin(msg.From.ID) {
		return nil
	}
	if msg.ReplyToMessage == nil {
		_, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID, "Reply to the file you want me to forget.", nil)
		return err
	}
	rec := mediaRecordFrom(msg.ReplyToMessage)
	if rec == nil {
		_, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID, "That message carries no indexable file.", nil)
		return err
	}

	n, err := b.Media.Delete(ctx.Context(), rec.FileKey, rec.FileName, rec.FileSize, rec.MimeType)
	if err != nil {
		return err
	}
	text := "File was not indexed."
	if n > 0 {
		text = fmt.Sprintf("Deleted %d indexed file(s).", n)
	}
	_, err = b.Transport.SendText(ctx.Context(), msg.Chat.ID, text, nil)
	return err
}

func (b *Bot) handleDeleteAll(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if !b.Runtime.IsAdmin(msg.From.ID) {
		return nil
	}
	kb := tu.InlineKeyboard(tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("Yes, wipe the index").WithCallbackData("delete_all_confirm"),
		tu.InlineKeyboardButton("Cancel").WithCallbackData("close_data"),
	))
	_, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID,
		"This deletes every indexed file. Are you sure?", kb)
	return err
}

func (b *Bot) handleBan(ctx *th.Context, update telego.Update) error {
	return b.setBan(ctx, update.Message, true)
}

func (b *Bot) handleUnban(ctx *th.Context, update telego.Update) error {
	return b.setBan(ctx, update.Message, false)
}

func (b *Bot) setBan(ctx *th.Context, msg *telego.Message, banned bool) error {
	if !b.Runtime.IsAdmin(msg.From.ID) {
		return nil
	}
	userID := parseInt64(commandArgs(msg.Text))
	if userID == 0 {
		usage := "/ban <user_id>"
		if !banned {
			usage = "/unban <user_id>"
		}
		_, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID, "Usage: "+usage, nil)
		return err
	}
	if err := b.Users.SetBanned(ctx.Context(), userID, banned); err != nil {
		return err
	}
	b.Runtime.SetBanned(userID, banned)

	verb := "banned"
	if !banned {
		verb = "unbanned"
	}
	_, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID, fmt.Sprintf("User %d %s.", userID, verb), nil)
	return err
}
