// Package scrape runs the background loop polling the release feeds and
// announcing items that were not seen before. The loop is supervised: a bad
// cycle is logged and retried after a recovery pause, never fatal.
package scrape

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/samber/oops"
)

// Feed is one external release source.
type Feed struct {
	Name    string
	URL     string
	Channel int64
}

// Cursor persists which item ids were already announced per feed.
type Cursor interface {
	Seen(ctx context.Context, feed, itemID string) (bool, error)
	MarkSeen(ctx context.Context, feed string, itemIDs ...string) error
}

// Announcer posts a discovered item to the feed's log channel.
type Announcer interface {
	Announce(ctx context.Context, channelID int64, title, link string) error
}

type Loop struct {
	feeds     []Feed
	cursor    Cursor
	announcer Announcer
	parser    *gofeed.Parser
	log       *slog.Logger

	interval time.Duration
	pause    time.Duration
	retry    time.Duration
}

func NewLoop(feeds []Feed, cursor Cursor, announcer Announcer, interval, pause, retry time.Duration, log *slog.Logger) *Loop {
	if log == nil {
		log = slog.Default()
	}
	return &Loop{
		feeds:     feeds,
		cursor:    cursor,
		announcer: announcer,
		parser:    gofeed.NewParser(),
		log:       log,
		interval:  interval,
		pause:     pause,
		retry:     retry,
	}
}

// Run blocks until ctx is cancelled. One cycle polls every feed with a
// short pause in between, then sleeps the long interval. Any cycle error
// only shortens the sleep to the recovery interval; stale results beat a
// dead scraper.
func (l *Loop) Run(ctx context.Context) {
	l.log.Info("scrape loop started", "feeds", len(l.feeds), "interval", l.interval)
	for {
		wait := l.interval
		if err := l.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			l.log.Error("scrape cycle failed", "error", err)
			wait = l.retry
		}
		if !sleepCtx(ctx, wait) {
			return
		}
	}
}

func (l *Loop) cycle(ctx context.Context) error {
	for i, feed := range l.feeds {
		if i > 0 && !sleepCtx(ctx, l.pause) {
			return ctx.Err()
		}
		l.log.Info("polling feed", "feed", feed.Name)
		if err := l.poll(ctx, feed); err != nil {
			return err
		}
	}
	return nil
}

// poll announces unseen items oldest-first and marks an item seen only
// after its announcement went out, so a failed send is retried next cycle
// and a sent item is never announced twice.
func (l *Loop) poll(ctx context.Context, feed Feed) error {
	parsed, err := l.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return oops.With("feed", feed.Name).With("url", feed.URL).Wrapf(err, "failed to fetch feed")
	}

	var touched []string
	for i := len(parsed.Items) - 1; i >= 0; i-- {
		item := parsed.Items[i]
		id := itemID(item)
		if id == "" {
			continue
		}

		seen, err := l.cursor.Seen(ctx, feed.Name, id)
		if err != nil {
			return oops.With("feed", feed.Name).Wrapf(err, "failed to read cursor")
		}
		if seen {
			// Re-touch below so the seen-set TTL tracks feed liveness.
			touched = append(touched, id)
			continue
		}

		if err := l.announcer.Announce(ctx, feed.Channel, item.Title, item.Link); err != nil {
			// Leave the item unmarked; it gets another try next cycle.
			l.log.Error("failed to announce item", "feed", feed.Name, "item", id, "error", err)
			continue
		}
		// Marked immediately so a later failure in this cycle can never
		// lead to the same announcement going out twice.
		if err := l.cursor.MarkSeen(ctx, feed.Name, id); err != nil {
			return oops.With("feed", feed.Name).Wrapf(err, "failed to advance cursor")
		}
		l.log.Info("announced item", "feed", feed.Name, "title", item.Title)
	}

	if err := l.cursor.MarkSeen(ctx, feed.Name, touched...); err != nil {
		return oops.With("feed", feed.Name).Wrapf(err, "failed to refresh cursor")
	}
	return nil
}

func itemID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
