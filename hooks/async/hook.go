// Package asynchook moves hook delivery off the hot path: events are queued
// to a fixed set of workers and dropped when the queue is full.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{CacheEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	locker, _ := redcache.NewLocker(store, redcache.LockOptions{Hooks: hooks})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/redcache"
)

type Hooks struct {
	inner   redcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
	closed  atomic.Bool
}

var _ redcache.Hooks = (*Hooks)(nil)

func New(inner redcache.Hooks, workers, qlen int) *Hooks {
	if inner == nil {
		inner = redcache.NopHooks{}
	}
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for range workers {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events sent after Close
// are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.closed.Store(true)
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	if h.closed.Load() {
		h.dropped.Add(1)
		return
	}
	defer func() {
		// lost a race with Close
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) CacheHit(k string)    { h.try(func() { h.inner.CacheHit(k) }) }
func (h *Hooks) CacheMiss(k string)   { h.try(func() { h.inner.CacheMiss(k) }) }
func (h *Hooks) Invalidated(k string) { h.try(func() { h.inner.Invalidated(k) }) }
func (h *Hooks) LockAcquired(r string, n int) {
	h.try(func() { h.inner.LockAcquired(r, n) })
}
func (h *Hooks) LockFailed(r string, n int, err error) {
	h.try(func() { h.inner.LockFailed(r, n, err) })
}
func (h *Hooks) LockReleased(r string, ok bool) {
	h.try(func() { h.inner.LockReleased(r, ok) })
}
