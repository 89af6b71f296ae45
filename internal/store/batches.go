package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BatchStore maps short-lived batch keys to the file keys of a multi-file
// delivery. Keys live in redis with a fixed TTL; a restart or expiry makes
// outstanding batch links report no-such-batch rather than half-working.
type BatchStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewBatchStore(rdb *redis.Client, ttl time.Duration) *BatchStore {
	return &BatchStore{rdb: rdb, ttl: ttl}
}

func batchKey(key string) string {
	return "batch:" + key
}

// Create stores the file keys under a fresh opaque key and returns it.
func (s *BatchStore) Create(ctx context.Context, fileKeys []string) (string, error) {
	key := strings.ReplaceAll(uuid.New().String(), "-", "")
	err := s.rdb.Set(ctx, batchKey(key), strings.Join(fileKeys, " "), s.ttl).Err()
	if err != nil {
		return "", fmt.Errorf("failed to store batch: %w", err)
	}
	return key, nil
}

// Get returns the file keys for a batch, or ErrNoSuchBatch once the key
// has been evicted.
func (s *BatchStore) Get(ctx context.Context, key string) ([]string, error) {
	val, err := s.rdb.Get(ctx, batchKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSuchBatch
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", key, err)
	}
	return strings.Fields(val), nil
}
