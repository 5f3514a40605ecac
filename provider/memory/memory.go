// Package memory provides an in-process Store backed by patrickmn/go-cache.
// It honours the full storage contract (atomic set-if-absent, increments,
// compare-and-delete, hashes) within a single process and is the default
// store for tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	pr "github.com/unkn0wn-root/redcache/provider"
)

const defaultCleanupInterval = time.Minute

// hash is the in-memory representation of a hash resource.
type hash map[string][]byte

type Memory struct {
	c *gocache.Cache
	// mu serializes every mutation so read-modify-write operations stay atomic.
	mu sync.Mutex
}

var (
	_ pr.Store     = (*Memory)(nil)
	_ pr.HashStore = (*Memory)(nil)
)

type Config struct {
	CleanupInterval time.Duration // sweep of expired items; 0 => 1m
}

func New(cfg Config) *Memory {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	return &Memory{c: gocache.New(gocache.NoExpiration, interval)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("get %q: %w", key, pr.ErrWrongType)
	}
	return clone(b), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	m.c.Set(key, clone(value), expiration(ttl))
	m.mu.Unlock()
	return nil
}

func (m *Memory) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Add fails when a live item exists; expired items are replaced.
	if err := m.c.Add(key, clone(value), expiration(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *Memory) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current int64
	ttl := gocache.NoExpiration
	if v, exp, ok := m.c.GetWithExpiration(key); ok {
		b, isBytes := v.([]byte)
		if !isBytes {
			return 0, fmt.Errorf("incr %q: %w", key, pr.ErrWrongType)
		}
		n, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("incr %q: value is not an integer: %w", key, pr.ErrWrongType)
		}
		current = n
		if !exp.IsZero() {
			ttl = time.Until(exp)
			if ttl <= 0 {
				// expired between lookup and now; start over without expiry
				current, ttl = 0, gocache.NoExpiration
			}
		}
	}
	next := current + delta
	m.c.Set(key, []byte(strconv.FormatInt(next, 10)), ttl)
	return next, nil
}

func (m *Memory) Del(_ context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.c.Get(k); ok {
			n++
		}
		m.c.Delete(k)
	}
	return n, nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.c.Get(key)
	return ok, nil
}

// Scan matches keys with path.Match glob syntax (*, ?, [..]), which covers the
// patterns Redis SCAN MATCH is typically used with. Keys are yielded sorted.
func (m *Memory) Scan(_ context.Context, match string) iter.Seq2[string, error] {
	if match == "" {
		match = "*"
	}
	return func(yield func(string, error) bool) {
		items := m.c.Items() // unexpired snapshot
		keys := make([]string, 0, len(items))
		for k := range items {
			ok, err := path.Match(match, k)
			if err != nil {
				yield("", fmt.Errorf("scan pattern %q: %w", match, err))
				return
			}
			if ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !yield(k, nil) {
				return
			}
		}
	}
}

func (m *Memory) CompareAndDelete(_ context.Context, key string, value []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.c.Get(key)
	if !ok {
		return false, nil
	}
	b, ok := v.([]byte)
	if !ok || !bytes.Equal(b, value) {
		return false, nil
	}
	m.c.Delete(key)
	return true, nil
}

func (m *Memory) Len(context.Context) (int64, error) {
	return int64(len(m.c.Items())), nil
}

func (m *Memory) Flush(context.Context) error {
	m.mu.Lock()
	m.c.Flush()
	m.mu.Unlock()
	return nil
}

func (m *Memory) HGet(_ context.Context, resource, field string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.hash(resource, false)
	if err != nil || h == nil {
		return nil, false, err
	}
	b, ok := h[field]
	if !ok {
		return nil, false, nil
	}
	return clone(b), true, nil
}

func (m *Memory) HSet(_ context.Context, resource, field string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.hash(resource, true)
	if err != nil {
		return err
	}
	h[field] = clone(value)
	return nil
}

func (m *Memory) HSetNX(_ context.Context, resource, field string, value []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.hash(resource, true)
	if err != nil {
		return false, err
	}
	if _, ok := h[field]; ok {
		return false, nil
	}
	h[field] = clone(value)
	return true, nil
}

func (m *Memory) HIncrBy(_ context.Context, resource, field string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.hash(resource, true)
	if err != nil {
		return 0, err
	}
	var current int64
	if b, ok := h[field]; ok {
		current, err = strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("hincrby %q %q: value is not an integer: %w", resource, field, pr.ErrWrongType)
		}
	}
	next := current + delta
	h[field] = []byte(strconv.FormatInt(next, 10))
	return next, nil
}

func (m *Memory) HDel(_ context.Context, resource string, fields ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.hash(resource, false)
	if err != nil || h == nil {
		return 0, err
	}
	var n int64
	for _, f := range fields {
		if _, ok := h[f]; ok {
			delete(h, f)
			n++
		}
	}
	if len(h) == 0 {
		m.c.Delete(resource)
	}
	return n, nil
}

func (m *Memory) HExists(_ context.Context, resource, field string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.hash(resource, false)
	if err != nil || h == nil {
		return false, err
	}
	_, ok := h[field]
	return ok, nil
}

func (m *Memory) HLen(_ context.Context, resource string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.hash(resource, false)
	if err != nil {
		return 0, err
	}
	return int64(len(h)), nil
}

func (m *Memory) HKeys(_ context.Context, resource string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.hash(resource, false)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(h))
	for f := range h {
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Close(context.Context) error { return nil }

// hash returns the hash stored at resource. Callers must hold m.mu.
// With create=false a missing resource yields (nil, nil).
func (m *Memory) hash(resource string, create bool) (hash, error) {
	v, ok := m.c.Get(resource)
	if !ok {
		if !create {
			return nil, nil
		}
		h := hash{}
		m.c.Set(resource, h, gocache.NoExpiration)
		return h, nil
	}
	h, ok := v.(hash)
	if !ok {
		return nil, fmt.Errorf("hash %q: %w", resource, pr.ErrWrongType)
	}
	return h, nil
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
