package redcache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	pr "github.com/unkn0wn-root/redcache/provider"
)

type CounterOptions struct {
	// Step is added by every Next; its sign sets the direction. 0 => 1.
	Step int64

	// Init seeds the counter at construction. Unless ForceInit is set the
	// seed is written only when the counter does not exist yet, so racing
	// constructors apply it once.
	Init      func() int64
	ForceInit bool

	// InitTTL expires the seeded counter. Only valid with Init and only for
	// plain counters.
	InitTTL time.Duration
}

// Counter is an integer slot mutated only by atomic increments.
type Counter struct {
	store    pr.Store
	resource string
	step     int64
}

func NewCounter(ctx context.Context, store pr.Store, resource string, opts CounterOptions) (*Counter, error) {
	if store == nil {
		return nil, ErrNilProvider
	}
	if resource == "" {
		return nil, fmt.Errorf("%w: empty counter resource", ErrInvalidKey)
	}
	if err := checkSeed(opts); err != nil {
		return nil, err
	}
	c := &Counter{store: store, resource: resource, step: coalesce(opts.Step, 1)}
	if opts.Init == nil {
		return c, nil
	}
	seed := []byte(strconv.FormatInt(opts.Init(), 10))
	var err error
	if opts.ForceInit {
		err = store.Set(ctx, resource, seed, opts.InitTTL)
	} else {
		_, err = store.SetNX(ctx, resource, seed, opts.InitTTL)
	}
	if err != nil {
		return nil, fmt.Errorf("redcache: seed counter %q: %w", resource, err)
	}
	return c, nil
}

func (c *Counter) Resource() string { return c.resource }
func (c *Counter) Step() int64      { return c.step }

// Next adds Step and returns the new value. A missing counter starts at 0.
func (c *Counter) Next(ctx context.Context) (int64, error) {
	return c.Add(ctx, c.step)
}

// Add adds delta regardless of Step.
func (c *Counter) Add(ctx context.Context, delta int64) (int64, error) {
	n, err := c.store.IncrBy(ctx, c.resource, delta)
	if err != nil {
		return 0, fmt.Errorf("redcache: incr %q: %w", c.resource, err)
	}
	return n, nil
}

// Value reads the current value; 0 when the counter does not exist.
func (c *Counter) Value(ctx context.Context) (int64, error) {
	b, ok, err := c.store.Get(ctx, c.resource)
	if err != nil {
		return 0, fmt.Errorf("redcache: get %q: %w", c.resource, err)
	}
	return parseCount(c.resource, b, ok)
}

// Clear deletes the counter.
func (c *Counter) Clear(ctx context.Context) error {
	_, err := c.store.Del(ctx, c.resource)
	return err
}

// HashCounter is a Counter stored as one field of a hash.
type HashCounter struct {
	hs       pr.HashStore
	resource string
	field    string
	step     int64
}

func NewHashCounter(ctx context.Context, hs pr.HashStore, resource, field string, opts CounterOptions) (*HashCounter, error) {
	if hs == nil {
		return nil, ErrNilProvider
	}
	if resource == "" || field == "" {
		return nil, fmt.Errorf("%w: empty hash counter resource or field", ErrInvalidKey)
	}
	if opts.InitTTL != 0 {
		return nil, &ConfigError{Field: "counter init ttl", Reason: "hash fields cannot expire"}
	}
	if err := checkSeed(opts); err != nil {
		return nil, err
	}
	c := &HashCounter{hs: hs, resource: resource, field: field, step: coalesce(opts.Step, 1)}
	if opts.Init == nil {
		return c, nil
	}
	seed := []byte(strconv.FormatInt(opts.Init(), 10))
	var err error
	if opts.ForceInit {
		err = hs.HSet(ctx, resource, field, seed)
	} else {
		_, err = hs.HSetNX(ctx, resource, field, seed)
	}
	if err != nil {
		return nil, fmt.Errorf("redcache: seed counter %q %q: %w", resource, field, err)
	}
	return c, nil
}

func (c *HashCounter) Resource() string { return c.resource }
func (c *HashCounter) Field() string    { return c.field }
func (c *HashCounter) Step() int64      { return c.step }

func (c *HashCounter) Next(ctx context.Context) (int64, error) {
	return c.Add(ctx, c.step)
}

func (c *HashCounter) Add(ctx context.Context, delta int64) (int64, error) {
	n, err := c.hs.HIncrBy(ctx, c.resource, c.field, delta)
	if err != nil {
		return 0, fmt.Errorf("redcache: hincrby %q %q: %w", c.resource, c.field, err)
	}
	return n, nil
}

func (c *HashCounter) Value(ctx context.Context) (int64, error) {
	b, ok, err := c.hs.HGet(ctx, c.resource, c.field)
	if err != nil {
		return 0, fmt.Errorf("redcache: hget %q %q: %w", c.resource, c.field, err)
	}
	return parseCount(c.resource, b, ok)
}

// Clear deletes the field, leaving the rest of the hash alone.
func (c *HashCounter) Clear(ctx context.Context) error {
	_, err := c.hs.HDel(ctx, c.resource, c.field)
	return err
}

func checkSeed(opts CounterOptions) error {
	if opts.Init == nil && (opts.ForceInit || opts.InitTTL != 0) {
		return &ConfigError{Field: "counter init", Reason: "ForceInit and InitTTL require Init"}
	}
	if opts.InitTTL < 0 {
		return &ConfigError{Field: "counter init ttl", Reason: "must not be negative"}
	}
	return nil
}

func parseCount(resource string, b []byte, ok bool) (int64, error) {
	if !ok || len(b) == 0 {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redcache: counter %q: %w", resource, err)
	}
	return n, nil
}
