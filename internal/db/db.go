package db

import (
	"context"
	"time"
)

// Store is the database facade. The matcher only reads item documents and
// writes embedding-cache entries; consumers depend on the narrow
// sub-interfaces, not on Store itself.
type Store interface {
	Pinger
	KVStore
	JSONReader
	KeyScanner
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations (embedding cache).
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// JSONReader reads JSON documents (item records).
type JSONReader interface {
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
}

// KeyScanner enumerates keys matching a glob pattern.
type KeyScanner interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
}
