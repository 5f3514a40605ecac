package redcache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/redcache/codec"
	pr "github.com/unkn0wn-root/redcache/provider"
)

type CacheItOptions[R any] struct {
	TTL   time.Duration  // <= 0 => entries never expire
	Codec codec.Codec[R] // nil => codec.JSON[R]

	// Force skips the lookup: the wrapped function always runs and its
	// result overwrites the entry.
	Force bool

	// Singleflight collapses concurrent misses on the same key inside this
	// process into one call of the wrapped function. The shared call runs
	// with the context of the caller that started it.
	Singleflight bool

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks
}

// CacheIt is a read-through cache around a Func: a usable entry is returned
// without calling the function, otherwise the result is computed, stored and
// returned as computed.
//
// The read-then-write pair is not atomic. Two processes missing at once both
// compute and the last write wins.
type CacheIt[A, R any] struct {
	p     pr.Provider
	key   KeyFunc[A]
	fn    Func[A, R]
	codec codec.Codec[R]
	ttl   time.Duration
	force bool
	sf    *singleflight.Group
	log   Logger
	hooks Hooks
}

func NewCacheIt[A, R any](p pr.Provider, key KeyFunc[A], fn Func[A, R], opts CacheItOptions[R]) (*CacheIt[A, R], error) {
	if p == nil {
		return nil, ErrNilProvider
	}
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, ErrNilFunc
	}
	c := &CacheIt[A, R]{
		p:     p,
		key:   key,
		fn:    fn,
		ttl:   opts.TTL,
		force: opts.Force,
		codec: coalesce[codec.Codec[R]](opts.Codec, codec.JSON[R]{}),
		log:   coalesce[Logger](opts.Logger, NopLogger{}),
		hooks: coalesce[Hooks](opts.Hooks, NopHooks{}),
	}
	if opts.Singleflight {
		c.sf = &singleflight.Group{}
	}
	return c, nil
}

// Invoke resolves the key for args and serves the call from the store when it
// can. Errors of the wrapped function are returned as is and nothing is
// written. If storing a computed result fails, that result is returned along
// with the error.
func (c *CacheIt[A, R]) Invoke(ctx context.Context, args A) (R, error) {
	key := c.key(args)
	if !c.force {
		v, ok, err := lookup(ctx, c.p, c.codec, key)
		if err != nil {
			return v, err
		}
		if ok {
			c.hooks.CacheHit(key)
			c.log.Debug("cache hit", Fields{"key": key})
			return v, nil
		}
		c.hooks.CacheMiss(key)
	}

	if c.sf == nil {
		return c.fill(ctx, key, args)
	}
	v, err, _ := c.sf.Do(key, func() (any, error) {
		r, err := c.fill(ctx, key, args)
		return r, err
	})
	r, _ := v.(R)
	return r, err
}

// Func returns Invoke with the wrapped function's shape.
func (c *CacheIt[A, R]) Func() Func[A, R] { return c.Invoke }

// Key returns the key a call with args would use.
func (c *CacheIt[A, R]) Key(args A) string { return c.key(args) }

func (c *CacheIt[A, R]) fill(ctx context.Context, key string, args A) (R, error) {
	r, err := c.fn(ctx, args)
	if err != nil {
		return r, err
	}
	if err := save(ctx, c.p, c.codec, key, r, c.ttl); err != nil {
		c.log.Warn("cache write failed", Fields{"key": key, "err": err})
		return r, err
	}
	c.log.Debug("cache set", Fields{"key": key, "ttl": c.ttl})
	return r, nil
}
