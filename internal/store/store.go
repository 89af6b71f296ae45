// Package store holds the typed repositories over postgres and redis. All
// cross-handler mutations go through single-round-trip upserts or
// conditional updates so concurrent handlers never race a read-then-write.
package store

import "errors"

var (
	ErrNotFound    = errors.New("record not found")
	ErrNoSuchBatch = errors.New("no such batch")
)
