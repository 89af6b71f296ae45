package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

func parseInt64(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func readableDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%d days", int(d.Hours())/24)
	case d >= time.Hour:
		return fmt.Sprintf("%d hours", int(d.Hours()))
	default:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
}

// parseGrantDuration reads operator shorthand like 10day, 5hour, 30min,
// 1month or 1year.
func parseGrantDuration(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("no number in duration %q", s)
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, fmt.Errorf("bad duration %q: %w", s, err)
	}
	switch unit := strings.TrimSuffix(s[i:], "s"); unit {
	case "min", "minute":
		return time.Duration(n) * time.Minute, nil
	case "hour", "hr":
		return time.Duration(n) * time.Hour, nil
	case "day":
		return time.Duration(n) * 24 * time.Hour, nil
	case "month":
		return time.Duration(n) * 30 * 24 * time.Hour, nil
	case "year":
		return time.Duration(n) * 365 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration unit %q", unit)
	}
}

// isGroupAdmin reports whether the user holds creator or administrator
// rights in the chat. Settings commands are restricted to these.
func (b *Bot) isGroupAdmin(ctx context.Context, chatID, userID int64) bool {
	if b.Runtime.IsAdmin(userID) {
		return true
	}
	member, err := b.Instance.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.ID(chatID),
		UserID: userID,
	})
	if err != nil {
		b.Log.Error("failed to check group admin", "chat", chatID, "user", userID, "error", err)
		return false
	}
	switch member.MemberStatus() {
	case telego.MemberStatusCreator, telego.MemberStatusAdministrator:
		return true
	default:
		return false
	}
}

// commandArgs returns everything after the command itself.
func commandArgs(text string) string {
	if i := strings.IndexByte(text, ' '); i >= 0 {
		return strings.TrimSpace(text[i+1:])
	}
	return ""
}
