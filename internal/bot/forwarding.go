package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	"github.com/samber/lo"

	"autofilter-bot/internal/models"
	"autofilter-bot/internal/store"
)

func (b *Bot) registerForwarding(handler *th.BotHandler) {
	handler.Handle(b.handleSetForward, th.CommandEqual("set_forward"))
	handler.Handle(b.handleDelForward, th.CommandEqual("del_forward"))
	handler.Handle(b.handleForwardInfo, th.CommandEqual("forward_info"))
	handler.Handle(b.handleChannelPost, func(_ context.Context, update telego.Update) bool {
		return update.ChannelPost != nil
	})
}

// handleChannelPost does two independent jobs for posts in channels the bot
// sits in: index attached media for search, and relay the post through the
// forwarding rule of its source channel if one exists.
func (b *Bot) handleChannelPost(ctx *th.Context, update telego.Update) error {
	post := update.ChannelPost

	if rec := mediaRecordFrom(post); rec != nil {
		if err := b.Media.Save(ctx.Context(), rec); err != nil {
			b.Log.Error("failed to index media", "channel", post.Chat.ID, "error", err)
		} else {
			b.Log.Info("indexed media", "channel", post.Chat.ID, "file", rec.FileName)
		}
	}

	rule, err := b.ForwardRules.Get(ctx.Context(), post.Chat.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if post.Text != "" {
		b.Engine.FanoutText(ctx.Context(), rule, post.Text)
		return nil
	}
	b.Engine.FanoutMedia(ctx.Context(), rule, post.MessageID, post.Caption)
	return nil
}

// mediaRecordFrom extracts an indexable attachment. The content fingerprint
// keys the record so re-posts refresh the transport reference in place.
func mediaRecordFrom(msg *telego.Message) *models.MediaRecord {
	switch {
	case msg.Document != nil:
		return &models.MediaRecord{
			FileKey:  msg.Document.FileUniqueID,
			FileRef:  msg.Document.FileID,
			FileName: store.NormalizeName(msg.Document.FileName),
			FileSize: msg.Document.FileSize,
			MimeType: msg.Document.MimeType,
			Caption:  msg.Caption,
		}
	case msg.Video != nil:
		return &models.MediaRecord{
			FileKey:  msg.Video.FileUniqueID,
			FileRef:  msg.Video.FileID,
			FileName: store.NormalizeName(msg.Video.FileName),
			FileSize: msg.Video.FileSize,
			MimeType: msg.Video.MimeType,
			Caption:  msg.Caption,
		}
	case msg.Audio != nil:
		return &models.MediaRecord{
			FileKey:  msg.Audio.FileUniqueID,
			FileRef:  msg.Audio.FileID,
			FileName: store.NormalizeName(msg.Audio.FileName),
			FileSize: msg.Audio.FileSize,
			MimeType: msg.Audio.MimeType,
			Caption:  msg.Caption,
		}
	default:
		return nil
	}
}

// handleSetForward creates or replaces a forwarding rule:
//
//	/set_forward <source> <dest,dest,...> [old|new] [my_link] [web_link] [@username]
func (b *Bot) handleSetForward(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if !b.Runtime.IsAdmin(msg.From.ID) {
		return nil
	}
	args := strings.Fields(commandArgs(msg.Text))
	if len(args) < 2 {
		_, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID,
			"Usage: /set_forward <source_id> <dest_id,dest_id,...> [old|new] [my_link] [web_link] [@username]", nil)
		return err
	}

	sourceID := parseInt64(args[0])
	dests := lo.FilterMap(strings.Split(args[1], ","), func(s string, _ int) (int64, bool) {
		id := parseInt64(s)
		return id, id != 0
	})
	if sourceID == 0 || len(dests) == 0 {
		_, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID, "Source and destination ids must be numeric channel ids.", nil)
		return err
	}

	rule := &models.ForwardRule{SourceChannelID: sourceID, Destinations: dests}
	if len(args) > 2 {
		if old, replacement, ok := strings.Cut(args[2], "|"); ok {
			rule.OriginalText, rule.ReplaceText = old, replacement
		}
	}
	if len(args) > 3 {
		rule.MyLink = args[3]
	}
	if len(args) > 4 {
		rule.WebLink = args[4]
	}
	if len(args) > 5 {
		rule.MyUsername = args[5]
	}

	if err := b.ForwardRules.Save(ctx.Context(), rule); err != nil {
		return err
	}
	_, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID,
		fmt.Sprintf("Forwarding set: %d to %d destination(s).", sourceID, len(dests)), nil)
	return err
}

func (b *Bot) handleDelForward(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if !b.Runtime.IsAdmin(msg.From.ID) {
		return nil
	}
	sourceID := parseInt64(commandArgs(msg.Text))
	if sourceID == 0 {
		_, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID, "Usage: /del_forward <source_id>", nil)
		return err
	}
	if err := b.ForwardRules.Delete(ctx.Context(), sourceID); err != nil {
		return err
	}
	_, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID, fmt.Sprintf("Forwarding removed for %d.", sourceID), nil)
	return err
}

func (b *Bot) handleForwardInfo(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if !b.Runtime.IsAdmin(msg.From.ID) {
		return nil
	}
	sources, err := b.ForwardRules.SourceIDs(ctx.Context())
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		_, err := b.Transport.SendText(ctx.Context(), msg.Chat.ID, "No forwarding rules configured.", nil)
		return err
	}

	var sb strings.Builder
	sb.WriteString("Forwarding rules:\n")
	for _, sourceID := range sources {
		rule, err := b.ForwardRules.Get(ctx.Context(), sourceID)
		if err != nil {
			b.Log.Error("failed to load forward rule", "source", sourceID, "error", err)
			continue
		}
		fmt.Fprintf(&sb, "\n%d -> %v", rule.SourceChannelID, rule.Destinations)
		if rule.OriginalText != "" {
			fmt.Fprintf(&sb, " (%q -> %q)", rule.OriginalText, rule.ReplaceText)
		}
	}
	_, err = b.Transport.SendText(ctx.Context(), msg.Chat.ID, sb.String(), nil)
	return err
}
