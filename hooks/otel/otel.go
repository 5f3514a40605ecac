// Package otelhooks counts redcache events with OpenTelemetry metrics.
//
//	hooks, err := otelhooks.New(otel.Meter("redcache"))
//	cacheIt, _ := redcache.NewCacheIt(store, key, fn, redcache.CacheItOptions[User]{Hooks: hooks})
//
// Keys are not recorded as attributes (unbounded cardinality); lock
// resources are, so keep them to a small fixed set or set
// WithoutResource.
package otelhooks

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/unkn0wn-root/redcache"
)

type Hooks struct {
	lookups     metric.Int64Counter
	invalidated metric.Int64Counter
	locks       metric.Int64Counter
	attempts    metric.Int64Histogram
	released    metric.Int64Counter
	noResource  bool
}

var _ redcache.Hooks = (*Hooks)(nil)

type Option func(*Hooks)

// WithoutResource drops the lock resource attribute.
func WithoutResource() Option { return func(h *Hooks) { h.noResource = true } }

func New(meter metric.Meter, opts ...Option) (*Hooks, error) {
	h := &Hooks{}
	for _, o := range opts {
		o(h)
	}
	var err error
	if h.lookups, err = meter.Int64Counter(
		"redcache.cache.lookups",
		metric.WithDescription("Read-through lookups by result (hit or miss)"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		return nil, err
	}
	if h.invalidated, err = meter.Int64Counter(
		"redcache.cache.invalidations",
		metric.WithDescription("Keys deleted by invalidation operations"),
		metric.WithUnit("{key}"),
	); err != nil {
		return nil, err
	}
	if h.locks, err = meter.Int64Counter(
		"redcache.lock.acquisitions",
		metric.WithDescription("Lock acquisitions by outcome (acquired or failed)"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if h.attempts, err = meter.Int64Histogram(
		"redcache.lock.attempts",
		metric.WithDescription("Attempts made per lock acquisition"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, err
	}
	if h.released, err = meter.Int64Counter(
		"redcache.lock.releases",
		metric.WithDescription("Lock releases by whether the lease was still held"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Hooks) CacheHit(string) {
	h.lookups.Add(context.Background(), 1, metric.WithAttributes(attribute.String("result", "hit")))
}

func (h *Hooks) CacheMiss(string) {
	h.lookups.Add(context.Background(), 1, metric.WithAttributes(attribute.String("result", "miss")))
}

func (h *Hooks) Invalidated(string) {
	h.invalidated.Add(context.Background(), 1)
}

func (h *Hooks) LockAcquired(resource string, attempts int) {
	h.lock(resource, "acquired", attempts)
}

func (h *Hooks) LockFailed(resource string, attempts int, _ error) {
	h.lock(resource, "failed", attempts)
}

func (h *Hooks) LockReleased(resource string, released bool) {
	attrs := h.resourceAttrs(resource, attribute.Bool("held", released))
	h.released.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

func (h *Hooks) lock(resource, outcome string, attempts int) {
	ctx := context.Background()
	opt := metric.WithAttributes(h.resourceAttrs(resource, attribute.String("outcome", outcome))...)
	h.locks.Add(ctx, 1, opt)
	h.attempts.Record(ctx, int64(attempts), opt)
}

func (h *Hooks) resourceAttrs(resource string, kv attribute.KeyValue) []attribute.KeyValue {
	if h.noResource {
		return []attribute.KeyValue{kv}
	}
	return []attribute.KeyValue{attribute.String("lock.resource", resource), kv}
}
