package ports

import (
	"context"
	"time"
)

// KeyValueStore is a small durable key-value capability for usecases.
// Adapters may be backed by the relational store or another KV engine.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Incr atomically adds one to an integer counter (starting at 1) and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
}
