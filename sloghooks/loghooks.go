// Package sloghooks reports redcache events through log/slog. Cache traffic
// is sampled and keys are redacted; lock failures are always logged.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/redcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	CacheEvery      uint64
	InvalidateEvery uint64
	// LogAcquired enables lock_acquired lines, which are noisy under contention.
	LogAcquired bool
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	cacheCtr      atomic.Uint64
	invalidateCtr atomic.Uint64
}

var _ redcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) CacheHit(key string) {
	if h.l == nil || !sample(h.opts.CacheEvery, &h.cacheCtr) {
		return
	}
	h.l.Debug("redcache.cache_hit", "key", h.redact(key))
}

func (h *Hooks) CacheMiss(key string) {
	if h.l == nil || !sample(h.opts.CacheEvery, &h.cacheCtr) {
		return
	}
	h.l.Debug("redcache.cache_miss", "key", h.redact(key))
}

func (h *Hooks) Invalidated(key string) {
	if h.l == nil || !sample(h.opts.InvalidateEvery, &h.invalidateCtr) {
		return
	}
	h.l.Debug("redcache.invalidated", "key", h.redact(key))
}

func (h *Hooks) LockAcquired(resource string, attempts int) {
	if h.l == nil || !h.opts.LogAcquired {
		return
	}
	h.l.Debug("redcache.lock_acquired",
		"resource", resource,
		"attempts", attempts)
}

func (h *Hooks) LockFailed(resource string, attempts int, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("redcache.lock_failed",
		"resource", resource,
		"attempts", attempts,
		"err", err)
}

func (h *Hooks) LockReleased(resource string, released bool) {
	if h.l == nil || released {
		return
	}
	h.l.Warn("redcache.lock_lost",
		"resource", resource,
		"msg", "lease expired or was taken over before release")
}
