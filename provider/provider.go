// Package provider defines the storage contract used by redcache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation).
//
// Three capability levels exist:
//   - Provider: a byte map with TTLs. Enough for Cache-It, Remove-It and tokens.
//   - Store: Provider plus the atomic primitives needed by locks and counters
//     (set-if-absent, increment, compare-and-delete) and keyspace inspection.
//   - HashStore: field-addressed values grouped under one resource key.
package provider

import (
	"context"
	"errors"
	"iter"
	"time"
)

// ErrWrongType is returned when a key holds a value of another kind
// (e.g. a hash read as a plain value, or a non-numeric value incremented).
var ErrWrongType = errors.New("provider: wrong value type for key")

// Provider is a minimal byte map with TTLs.
// Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes keys and reports how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Close releases resources.
	Close(ctx context.Context) error
}

// Store is the full storage contract consumed by locks and counters.
type Store interface {
	Provider

	// SetNX writes value only if key is absent. ttl <= 0 means no expiry.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// IncrBy atomically adds delta to the integer stored at key (absent => 0)
	// and returns the new value. Existing expiry is preserved.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)

	// Exists reports whether key holds a value.
	Exists(ctx context.Context, key string) (bool, error)

	// Scan iterates keys matching a glob pattern ("" or "*" => all keys).
	// Iteration stops at the first error, which is yielded.
	Scan(ctx context.Context, match string) iter.Seq2[string, error]

	// CompareAndDelete deletes key only if its current value equals value,
	// as one indivisible operation. Reports whether the key was deleted.
	CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error)

	// Len returns the number of keys in the store scope.
	Len(ctx context.Context) (int64, error)

	// Flush removes every key in the store scope.
	Flush(ctx context.Context) error
}

// HashStore addresses values by (resource, field) inside one grouped structure.
type HashStore interface {
	HGet(ctx context.Context, resource, field string) ([]byte, bool, error)
	HSet(ctx context.Context, resource, field string, value []byte) error
	HSetNX(ctx context.Context, resource, field string, value []byte) (bool, error)
	HIncrBy(ctx context.Context, resource, field string, delta int64) (int64, error)
	HDel(ctx context.Context, resource string, fields ...string) (int64, error)
	HExists(ctx context.Context, resource, field string) (bool, error)
	HLen(ctx context.Context, resource string) (int64, error)
	HKeys(ctx context.Context, resource string) ([]string, error)
	Del(ctx context.Context, keys ...string) (int64, error)
}
