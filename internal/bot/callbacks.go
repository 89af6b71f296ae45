package bot

import (
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/samber/lo"
)

// Boolean settings columns a keyboard toggle may write. Callback data is
// user-controlled bytes; everything else is rejected.
var toggleColumns = []string{
	"auto_filter", "imdb", "spell_check", "welcome",
	"auto_delete", "shortlink", "link_mode", "is_stream",
}

func (b *Bot) registerCallbacks(handler *th.BotHandler) {
	handler.Handle(b.handleClose, th.CallbackDataEqual("close_data"))
	handler.Handle(b.handlePlansCallback, th.CallbackDataEqual("plans"))
	handler.Handle(b.handleDeleteAllConfirm, th.CallbackDataEqual("delete_all_confirm"))
	handler.Handle(b.handleCheckSub, th.CallbackDataPrefix("checksub#"))
	handler.Handle(b.handleGetAgain, th.CallbackDataPrefix("get_del_file#"))
	handler.Handle(b.handleGetAgain, th.CallbackDataPrefix("get_del_send_all_files#"))
	handler.Handle(b.handleToggleSetting, th.CallbackDataPrefix("setgs#"))
	handler.Handle(b.handleStream, th.CallbackDataPrefix("stream#"))
}

func (b *Bot) answer(ctx *th.Context, callbackID string) {
	_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callbackID))
}

func (b *Bot) alert(ctx *th.Context, callbackID, text string) {
	_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(),
		tu.CallbackQuery(callbackID).WithText(text).WithShowAlert())
}

func (b *Bot) handleClose(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if callback.Message != nil {
		_ = b.Transport.DeleteMessage(ctx.Context(), callback.Message.GetChat().ID, callback.Message.GetMessageID())
	}
	b.answer(ctx, callback.ID)
	return nil
}

func (b *Bot) handlePlansCallback(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	b.answer(ctx, callback.ID)
	return b.sendPlans(ctx, callback.From.ID)
}

func (b *Bot) handleDeleteAllConfirm(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if !b.Runtime.IsAdmin(callback.From.ID) {
		b.alert(ctx, callback.ID, "Admins only.")
		return nil
	}
	n, err := b.Media.DeleteAll(ctx.Context())
	if err != nil {
		return err
	}
	b.answer(ctx, callback.ID)
	if callback.Message != nil {
		_ = b.Transport.DeleteMessage(ctx.Context(), callback.Message.GetChat().ID, callback.Message.GetMessageID())
	}
	_, err = b.Transport.SendText(ctx.Context(), callback.From.ID, fmt.Sprintf("Index wiped: %d files removed.", n), nil)
	return err
}

// handleCheckSub re-runs the gate after the user claims to have joined the
// missing channels. The original deep-link payload rides in the callback
// data, so a pass lands straight on the file.
func (b *Bot) handleCheckSub(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	payload := strings.TrimPrefix(callback.Data, "checksub#")

	user, _, err := b.Users.Ensure(ctx.Context(), callback.From.ID, callback.From.FirstName)
	if err != nil {
		return err
	}
	b.answer(ctx, callback.ID)
	if callback.Message != nil {
		_ = b.Transport.DeleteMessage(ctx.Context(), callback.Message.GetChat().ID, callback.Message.GetMessageID())
	}
	return b.deliverPayload(ctx, user, callback.From.ID, payload)
}

// handleGetAgain re-delivers after the auto-delete fired. Gating runs
// again; verification may have lapsed since the original delivery.
func (b *Bot) handleGetAgain(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	parts := strings.Split(callback.Data, "#")
	if len(parts) != 3 {
		b.alert(ctx, callback.ID, "This button has gone stale.")
		return nil
	}
	kind := "file"
	if parts[0] == "get_del_send_all_files" {
		kind = "all"
	}
	payload := fmt.Sprintf("%s_%s_%s", kind, parts[1], parts[2])

	user, _, err := b.Users.Ensure(ctx.Context(), callback.From.ID, callback.From.FirstName)
	if err != nil {
		return err
	}
	b.answer(ctx, callback.ID)
	return b.deliverPayload(ctx, user, callback.From.ID, payload)
}

// handleToggleSetting flips one boolean group setting from the /settings
// keyboard and re-renders it in place.
func (b *Bot) handleToggleSetting(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	parts := strings.Split(callback.Data, "#")
	if len(parts) != 4 {
		b.alert(ctx, callback.ID, "This button has gone stale.")
		return nil
	}
	column, value, groupID := parts[1], parts[2] == "true", parseInt64(parts[3])

	if !lo.Contains(toggleColumns, column) || groupID == 0 {
		b.alert(ctx, callback.ID, "This button has gone stale.")
		return nil
	}
	if !b.isGroupAdmin(ctx.Context(), groupID, callback.From.ID) {
		b.alert(ctx, callback.ID, "Only group admins can change settings.")
		return nil
	}

	if err := b.Settings.UpdateField(ctx.Context(), groupID, column, value); err != nil {
		return err
	}
	settings, err := b.Settings.Resolve(ctx.Context(), groupID)
	if err != nil {
		return err
	}

	if callback.Message != nil {
		_, _ = ctx.Bot().EditMessageReplyMarkup(ctx.Context(), &telego.EditMessageReplyMarkupParams{
			ChatID:      tu.ID(callback.Message.GetChat().ID),
			MessageID:   callback.Message.GetMessageID(),
			ReplyMarkup: settingsKeyboard(settings),
		})
	}
	b.answer(ctx, callback.ID)
	return nil
}

func (b *Bot) handleStream(ctx *th.Context, update telego.Update) error {
	// Watch links need the companion stream server, which this deployment
	// does not run. The button stays for groups that enabled it.
	b.alert(ctx, update.CallbackQuery.ID, "Streaming is not available right now. Download the file instead.")
	return nil
}
