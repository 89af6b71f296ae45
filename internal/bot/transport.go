package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Transport adapts the telego client to the narrow interfaces delivery,
// forwarding, scraping and the access gate consume.
type Transport struct {
	bot *telego.Bot
}

func NewTransport(bot *telego.Bot) *Transport {
	return &Transport{bot: bot}
}

// SendMedia re-sends an indexed file by its transport reference.
func (t *Transport) SendMedia(ctx context.Context, chatID int64, fileRef, caption string, protect bool, markup *telego.InlineKeyboardMarkup) (int, error) {
	msg, err := t.bot.SendDocument(ctx, &telego.SendDocumentParams{
		ChatID:         tu.ID(chatID),
		Document:       tu.FileFromID(fileRef),
		Caption:        caption,
		ProtectContent: protect,
		ReplyMarkup:    markup,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to send media to %d: %w", chatID, err)
	}
	return msg.MessageID, nil
}

func (t *Transport) SendText(ctx context.Context, chatID int64, text string, markup *telego.InlineKeyboardMarkup) (int, error) {
	params := tu.Message(tu.ID(chatID), text)
	if markup != nil {
		params = params.WithReplyMarkup(markup)
	}
	msg, err := t.bot.SendMessage(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	return msg.MessageID, nil
}

func (t *Transport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return t.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
	})
}

// IsMember reports channel membership for the force-subscribe gate.
func (t *Transport) IsMember(ctx context.Context, channelID, userID int64) (bool, error) {
	member, err := t.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.ID(channelID),
		UserID: userID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to get chat member %d of %d: %w", userID, channelID, err)
	}
	switch member.MemberStatus() {
	case telego.MemberStatusCreator, telego.MemberStatusAdministrator, telego.MemberStatusMember:
		return true, nil
	default:
		return false, nil
	}
}

// Copy re-sends a message by reference with a replacement caption.
func (t *Transport) Copy(ctx context.Context, destChatID, srcChatID int64, messageID int, caption string) error {
	params := &telego.CopyMessageParams{
		ChatID:     tu.ID(destChatID),
		FromChatID: tu.ID(srcChatID),
		MessageID:  messageID,
	}
	if caption != "" {
		params.Caption = caption
	}
	_, err := t.bot.CopyMessage(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to copy message %d to %d: %w", messageID, destChatID, err)
	}
	return nil
}

// Announce posts one scraped release to a feed's log channel.
func (t *Transport) Announce(ctx context.Context, channelID int64, title, link string) error {
	if channelID == 0 {
		return nil
	}
	text := fmt.Sprintf("#NewRelease\n\n%s\n%s", title, link)
	_, err := t.bot.SendMessage(ctx, tu.Message(tu.ID(channelID), text))
	if err != nil {
		return fmt.Errorf("failed to announce to %d: %w", channelID, err)
	}
	return nil
}
