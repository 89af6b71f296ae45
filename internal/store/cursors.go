package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// cursorTTL bounds the per-feed seen-sets. Every poll re-adds the ids still
// present in the feed, so the set only ages out once a feed has not carried
// an item for this long.
const cursorTTL = 7 * 24 * time.Hour

// CursorStore persists the per-feed "last seen" item ids, so a restart
// never re-announces items that already went out.
type CursorStore struct {
	rdb *redis.Client
}

func NewCursorStore(rdb *redis.Client) *CursorStore {
	return &CursorStore{rdb: rdb}
}

func cursorKey(feed string) string {
	return "scrape:seen:" + feed
}

func (s *CursorStore) Seen(ctx context.Context, feed, itemID string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, cursorKey(feed), itemID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cursor for %s: %w", feed, err)
	}
	return ok, nil
}

func (s *CursorStore) MarkSeen(ctx context.Context, feed string, itemIDs ...string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(itemIDs))
	for i, id := range itemIDs {
		members[i] = id
	}
	key := cursorKey(feed)
	if err := s.rdb.SAdd(ctx, key, members...).Err(); err != nil {
		return fmt.Errorf("failed to mark seen for %s: %w", feed, err)
	}
	if err := s.rdb.Expire(ctx, key, cursorTTL).Err(); err != nil {
		return fmt.Errorf("failed to refresh cursor ttl for %s: %w", feed, err)
	}
	return nil
}
