package redcache

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/unkn0wn-root/redcache/codec"
	pr "github.com/unkn0wn-root/redcache/provider"
)

// Func is the shape of a unit of work the operations wrap.
type Func[A, R any] func(ctx context.Context, args A) (R, error)

// SeqFunc produces a lazy sequence. An error ends the sequence.
type SeqFunc[A, T any] func(ctx context.Context, args A) iter.Seq2[T, error]

// lookup reads and decodes key. Absent and zero-length entries are misses.
func lookup[V any](ctx context.Context, p pr.Provider, cd codec.Codec[V], key string) (V, bool, error) {
	var zero V
	raw, ok, err := p.Get(ctx, key)
	if err != nil {
		return zero, false, fmt.Errorf("redcache: get %q: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return zero, false, nil
	}
	v, err := cd.Decode(raw)
	if err != nil {
		return zero, false, fmt.Errorf("redcache: decode %q: %w", key, err)
	}
	return v, true, nil
}

func save[V any](ctx context.Context, p pr.Provider, cd codec.Codec[V], key string, v V, ttl time.Duration) error {
	b, err := cd.Encode(v)
	if err != nil {
		return fmt.Errorf("redcache: encode %q: %w", key, err)
	}
	if err := p.Set(ctx, key, b, ttl); err != nil {
		return fmt.Errorf("redcache: set %q: %w", key, err)
	}
	return nil
}

func invalidate(ctx context.Context, p pr.Provider, key string, log Logger, hooks Hooks) error {
	if _, err := p.Del(ctx, key); err != nil {
		log.Warn("invalidate failed", Fields{"key": key, "err": err})
		return fmt.Errorf("redcache: delete %q: %w", key, err)
	}
	hooks.Invalidated(key)
	log.Debug("invalidated", Fields{"key": key})
	return nil
}
