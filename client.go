package redcache

import (
	"context"
	"fmt"
	"iter"
	"time"

	pr "github.com/unkn0wn-root/redcache/provider"
	"github.com/unkn0wn-root/redcache/provider/redis"
)

// Backend is a store offering both plain keys and hashes, like Redis.
type Backend interface {
	pr.Store
	pr.HashStore
}

type ClientOptions struct {
	Store Backend // required by New; FromURL and FromConfig create it

	// DefaultTTL applies to operations built through the client whose own
	// TTL is zero. Negative TTLs passed to them still mean no expiry.
	DefaultTTL time.Duration
	Lock       LockOptions   // Logger/Hooks default to the client's
	TokenTTL   time.Duration // default for Tokens; 0 => 30m

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks
}

// Client bundles one store with shared defaults and hands out the
// operations bound to it.
type Client struct {
	store      Backend
	defaultTTL time.Duration
	tokenTTL   time.Duration
	lockOpts   LockOptions
	locker     *Locker
	log        Logger
	hooks      Hooks
}

func New(opts ClientOptions) (*Client, error) {
	if opts.Store == nil {
		return nil, ErrNilProvider
	}
	c := &Client{
		store:      opts.Store,
		defaultTTL: opts.DefaultTTL,
		tokenTTL:   opts.TokenTTL,
		log:        coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:      coalesce[Hooks](opts.Hooks, NopHooks{}),
	}
	c.lockOpts = c.inherit(opts.Lock)
	l, err := NewLocker(c.store, c.lockOpts)
	if err != nil {
		return nil, err
	}
	c.locker = l
	return c, nil
}

// FromURL connects to the Redis server at url (redis:// or rediss://).
// The client owns the connection; Close releases it.
func FromURL(url string, opts ClientOptions) (*Client, error) {
	rp, err := redis.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("redcache: %w", err)
	}
	opts.Store = rp
	c, err := New(opts)
	if err != nil {
		_ = rp.Close(context.Background())
		return nil, err
	}
	return c, nil
}

// FromConfig is FromURL driven by a Config. Logger and Hooks come from opts;
// every field the Config sets overrides its counterpart in opts.
func FromConfig(cfg Config, opts ClientOptions) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts.DefaultTTL = coalesce(cfg.DefaultTTL, opts.DefaultTTL)
	opts.TokenTTL = coalesce(cfg.Token.TTL, opts.TokenTTL)
	opts.Lock.TTL = coalesce(cfg.Lock.TTL, opts.Lock.TTL)
	opts.Lock.RetryTimes = coalesce(cfg.Lock.RetryTimes, opts.Lock.RetryTimes)
	opts.Lock.RetryDelay = coalesce(cfg.Lock.RetryDelay, opts.Lock.RetryDelay)
	return FromURL(cfg.URL, opts)
}

func (c *Client) Store() Backend            { return c.store }
func (c *Client) DefaultTTL() time.Duration { return c.defaultTTL }
func (c *Client) Locker() *Locker           { return c.locker }

// Hash returns a Provider over the fields of one hash resource, usable by
// CacheIt, RemoveIt and TokenStore.
func (c *Client) Hash(resource string) *pr.Hash { return pr.NewHash(c.store, resource) }

// NewLocker builds a Locker with its own settings over the client's store.
func (c *Client) NewLocker(opts LockOptions) (*Locker, error) {
	return NewLocker(c.store, c.inherit(opts))
}

// Lock runs fn under the client's default Locker.
func (c *Client) Lock(ctx context.Context, resource string, fn func(ctx context.Context) error) error {
	return c.locker.Do(ctx, resource, fn)
}

func (c *Client) Counter(ctx context.Context, resource string, opts CounterOptions) (*Counter, error) {
	return NewCounter(ctx, c.store, resource, opts)
}

func (c *Client) HashCounter(ctx context.Context, resource, field string, opts CounterOptions) (*HashCounter, error) {
	return NewHashCounter(ctx, c.store, resource, field, opts)
}

// Keys iterates keys matching a glob pattern.
func (c *Client) Keys(ctx context.Context, match string) iter.Seq2[string, error] {
	return c.store.Scan(ctx, match)
}

func (c *Client) Has(ctx context.Context, key string) (bool, error) {
	return c.store.Exists(ctx, key)
}

func (c *Client) Size(ctx context.Context) (int64, error) {
	return c.store.Len(ctx)
}

// Clear removes every key of the store scope (FLUSHDB on Redis).
func (c *Client) Clear(ctx context.Context) error {
	c.log.Info("clearing store", nil)
	return c.store.Flush(ctx)
}

func (c *Client) Close(ctx context.Context) error {
	return c.store.Close(ctx)
}

func (c *Client) inherit(o LockOptions) LockOptions {
	o.Logger = coalesce(o.Logger, c.log)
	o.Hooks = coalesce(o.Hooks, c.hooks)
	return o
}

func (c *Client) ttl(d time.Duration) time.Duration {
	return coalesce(d, c.defaultTTL)
}

// Cached is NewCacheIt over the client's store, filling a zero TTL with the
// client default and unset Logger/Hooks with the client's.
func Cached[A, R any](c *Client, key KeyFunc[A], fn Func[A, R], opts CacheItOptions[R]) (*CacheIt[A, R], error) {
	opts.TTL = c.ttl(opts.TTL)
	opts.Logger = coalesce(opts.Logger, c.log)
	opts.Hooks = coalesce(opts.Hooks, c.hooks)
	return NewCacheIt(c.store, key, fn, opts)
}

// Invalidate is NewRemoveIt over the client's store.
func Invalidate[A, R any](c *Client, key KeyFunc[A], fn Func[A, R]) (*RemoveIt[A, R], error) {
	return NewRemoveIt(c.store, key, fn, RemoveItOptions{Logger: c.log, Hooks: c.hooks})
}

// InvalidateByReturn is NewRemoveItByReturn over the client's store.
func InvalidateByReturn[A, R any](c *Client, key KeyFunc[R], fn Func[A, R]) (*RemoveIt[A, R], error) {
	return NewRemoveItByReturn(c.store, key, fn, RemoveItOptions{Logger: c.log, Hooks: c.hooks})
}

// Tokens is NewTokenStore over the client's store using the client's token TTL.
func Tokens[T Token](c *Client, opts TokenOptions[T]) (*TokenStore[T], error) {
	opts.TTL = coalesce(opts.TTL, c.tokenTTL)
	opts.Logger = coalesce(opts.Logger, c.log)
	opts.Hooks = coalesce(opts.Hooks, c.hooks)
	return NewTokenStore(c.store, opts)
}
