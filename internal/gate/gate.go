// Package gate decides whether a user may receive a file. Checks run in a
// fixed order: premium, then verification, then force-subscribe. Premium is
// checked first because it is the cheapest and most durable grant;
// verification beats membership polling because it is a local read while
// membership costs one transport call per channel.
package gate

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"autofilter-bot/internal/models"
)

type Kind int

const (
	Allow Kind = iota
	Banned
	RequireVerification
	RequireSubscription
)

// Decision is the gating outcome. VerifyLink is set for
// RequireVerification; MissingChannels holds only the channels the user
// still needs to join for RequireSubscription, never the full fsub list.
type Decision struct {
	Kind            Kind
	VerifyLink      string
	MissingChannels []int64
}

// Verifier is the slice of the verification state machine the gate drives.
type Verifier interface {
	ExpireLazily(ctx context.Context, user *models.User) (bool, error)
	Issue(ctx context.Context, userID int64, pendingLink string) (string, error)
}

// Membership answers whether a user belongs to a channel.
type Membership interface {
	IsMember(ctx context.Context, channelID, userID int64) (bool, error)
}

type Gate struct {
	verifier     Verifier
	membership   Membership
	verifyEnable bool
	log          *slog.Logger

	now func() time.Time
}

func New(verifier Verifier, membership Membership, verifyEnabled bool, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{
		verifier:     verifier,
		membership:   membership,
		verifyEnable: verifyEnabled,
		log:          log,
		now:          time.Now,
	}
}

// Authorize runs the gating checks for one delivery request. payload is the
// deep-link payload the request carried; it becomes the pending link behind
// a newly issued verification token so the user lands back on the same file.
func (g *Gate) Authorize(ctx context.Context, user *models.User, settings *models.GroupSettings, payload string) (Decision, error) {
	if user.Banned {
		return Decision{Kind: Banned}, nil
	}

	if user.HasPremiumAccess(g.now()) {
		// Premium bypasses verification and subscription outright.
		return Decision{Kind: Allow}, nil
	}

	if g.verifyEnable {
		if _, err := g.verifier.ExpireLazily(ctx, user); err != nil {
			return Decision{}, err
		}
		if !user.IsVerified {
			link, err := g.verifier.Issue(ctx, user.ID, payload)
			if err != nil {
				return Decision{}, err
			}
			return Decision{Kind: RequireVerification, VerifyLink: link}, nil
		}
	}

	if len(settings.FSub) > 0 {
		missing := lo.Filter(settings.FSub, func(channelID int64, _ int) bool {
			member, err := g.membership.IsMember(ctx, channelID, user.ID)
			if err != nil {
				// A channel the bot cannot inspect still gates the user;
				// the operator needs to see this loudly.
				g.log.Error("membership check failed", "channel", channelID, "user", user.ID, "error", err)
				return true
			}
			return !member
		})
		if len(missing) > 0 {
			return Decision{Kind: RequireSubscription, MissingChannels: missing}, nil
		}
	}

	return Decision{Kind: Allow}, nil
}
