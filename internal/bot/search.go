package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/samber/lo"

	"autofilter-bot/internal/delivery"
	"autofilter-bot/internal/models"
)

const searchLimit = 10

func (b *Bot) registerSearch(handler *th.BotHandler) {
	handler.Handle(b.handleGroupSearch, func(_ context.Context, update telego.Update) bool {
		return update.Message != nil && isGroup(update.Message.Chat) &&
			update.Message.Text != "" && !strings.HasPrefix(update.Message.Text, "/")
	})
	handler.Handle(b.handlePMSearch, func(_ context.Context, update telego.Update) bool {
		return update.Message != nil && update.Message.Chat.Type == telego.ChatTypePrivate &&
			update.Message.Text != "" && !strings.HasPrefix(update.Message.Text, "/")
	})
}

func (b *Bot) handleGroupSearch(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	settings, err := b.Settings.Resolve(ctx.Context(), msg.Chat.ID)
	if err != nil {
		return err
	}
	if !settings.AutoFilter {
		return nil
	}
	return b.replySearchResults(ctx, msg.Chat.ID, msg.Chat.ID, settings, msg.Text)
}

func (b *Bot) handlePMSearch(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if b.Runtime.IsBanned(msg.From.ID) {
		return nil
	}
	// A direct message search behaves like a one-member group keyed by the
	// user id; defaults apply since no admin ever tuned its settings.
	settings, err := b.Settings.Resolve(ctx.Context(), msg.From.ID)
	if err != nil {
		return err
	}
	return b.replySearchResults(ctx, msg.Chat.ID, msg.From.ID, settings, msg.Text)
}

func (b *Bot) replySearchResults(ctx *th.Context, chatID, groupID int64, settings *models.GroupSettings, query string) error {
	recs, err := b.Media.Search(ctx.Context(), query, searchLimit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		if settings.SpellCheck {
			_, err := b.Transport.SendText(ctx.Context(), chatID,
				fmt.Sprintf("Nothing found for %q. Check the spelling and try again.", query), nil)
			return err
		}
		return nil
	}

	batchKey, err := b.Batches.Create(ctx.Context(), lo.Map(recs, func(r models.MediaRecord, _ int) string {
		return r.FileKey
	}))
	if err != nil {
		return err
	}
	allLink := fmt.Sprintf("https://t.me/%s?start=all_%d_%s", b.Runtime.Self.Username, groupID, batchKey)

	if settings.LinkMode {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Here is what I found for <b>%s</b>:\n\n", query)
		for _, rec := range recs {
			link := fmt.Sprintf("https://t.me/%s?start=file_%d_%s", b.Runtime.Self.Username, groupID, rec.FileKey)
			fmt.Fprintf(&sb, "<a href=\"%s\">[%s] %s</a>\n", link, delivery.HumanSize(rec.FileSize), rec.FileName)
		}
		fmt.Fprintf(&sb, "\n<a href=\"%s\">Send All Files</a>", allLink)
		_, err := b.Instance.SendMessage(ctx.Context(),
			tu.Message(tu.ID(chatID), sb.String()).WithParseMode(telego.ModeHTML))
		return err
	}

	rows := make([][]telego.InlineKeyboardButton, 0, len(recs)+1)
	for _, rec := range recs {
		link := fmt.Sprintf("https://t.me/%s?start=file_%d_%s", b.Runtime.Self.Username, groupID, rec.FileKey)
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(fmt.Sprintf("[%s] %s", delivery.HumanSize(rec.FileSize), rec.FileName)).WithURL(link),
		))
	}
	rows = append(rows, tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("Send All Files").WithURL(allLink),
	))
	_, err = b.Transport.SendText(ctx.Context(), chatID,
		fmt.Sprintf("Here is what I found for %s:", query), tu.InlineKeyboard(rows...))
	return err
}
