// Package forward rewrites messages relayed from source channels and fans
// them out to the configured destinations.
package forward

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mymmrac/telego"

	"autofilter-bot/internal/models"
)

// Substitution patterns. The match set is textual and overlapping (a
// mention can sit inside a deep link), so Transform applies them in a
// fixed order: referral URL, Telegram deep link, mention, literal pair.
var (
	referralRe = regexp.MustCompile(`https?://tcvvip5\.com/#/register\?r_code=\w+`)
	deepLinkRe = regexp.MustCompile(`https?://t\.me/\S+|t\.me/\S+`)
	mentionRe  = regexp.MustCompile(`@\w+`)
)

// Relay is the slice of the messaging layer the fanout needs. Copy re-sends
// a media message by reference with a replacement caption; the file itself
// is never re-uploaded.
type Relay interface {
	Copy(ctx context.Context, destChatID, srcChatID int64, messageID int, caption string) error
	SendText(ctx context.Context, chatID int64, text string, markup *telego.InlineKeyboardMarkup) (int, error)
}

type Engine struct {
	relay Relay
	log   *slog.Logger
}

func NewEngine(relay Relay, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{relay: relay, log: log}
}

// Transform applies the rule's substitutions to one text in the fixed
// order. Unset rule fields skip their step.
func Transform(text string, rule *models.ForwardRule) string {
	if rule.WebLink != "" {
		text = referralRe.ReplaceAllString(text, rule.WebLink)
	}
	if rule.MyLink != "" {
		text = deepLinkRe.ReplaceAllString(text, rule.MyLink)
	}
	if rule.MyUsername != "" {
		text = mentionRe.ReplaceAllString(text, rule.MyUsername)
	}
	if rule.OriginalText != "" && rule.ReplaceText != "" {
		text = strings.ReplaceAll(text, rule.OriginalText, rule.ReplaceText)
	}
	return text
}

// FanoutText sends a transformed text message to every destination. Each
// destination stands alone: one failed send (bot not admin there, chat
// gone) is logged and the rest still go out.
func (e *Engine) FanoutText(ctx context.Context, rule *models.ForwardRule, text string) {
	out := Transform(text, rule)
	for _, dest := range rule.Destinations {
		if _, err := e.relay.SendText(ctx, dest, out, nil); err != nil {
			e.log.Error("failed to forward text", "source", rule.SourceChannelID, "dest", dest, "error", err)
		}
	}
}

// FanoutMedia copies a media message to every destination with the caption
// transformed, keeping the original attachment by reference.
func (e *Engine) FanoutMedia(ctx context.Context, rule *models.ForwardRule, messageID int, caption string) {
	out := ""
	if caption != "" {
		out = Transform(caption, rule)
	}
	for _, dest := range rule.Destinations {
		if err := e.relay.Copy(ctx, dest, rule.SourceChannelID, messageID, out); err != nil {
			e.log.Error("failed to forward media", "source", rule.SourceChannelID, "dest", dest, "error", err)
		}
	}
}
