package redcache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/unkn0wn-root/redcache/provider/memory"
)

// spyStore counts calls, records deletions and injects failures on top of
// the in-process store.
type spyStore struct {
	*memory.Memory

	mu       sync.Mutex
	gets     int
	sets     int
	dels     int
	events   []string
	getErr   error
	setErr   error
	delErr   error
	setNXErr error
}

func newSpy() *spyStore { return &spyStore{Memory: memory.New(memory.Config{})} }

func (s *spyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	s.gets++
	err := s.getErr
	s.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return s.Memory.Get(ctx, key)
}

func (s *spyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.sets++
	err := s.setErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Memory.Set(ctx, key, value, ttl)
}

func (s *spyStore) Del(ctx context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	s.dels++
	for _, k := range keys {
		s.events = append(s.events, "del "+k)
	}
	err := s.delErr
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return s.Memory.Del(ctx, keys...)
}

func (s *spyStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	err := s.setNXErr
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	return s.Memory.SetNX(ctx, key, value, ttl)
}

func (s *spyStore) record(e string) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *spyStore) counts() (gets, sets, dels int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.sets, s.dels
}

type recHooks struct {
	NopHooks
	mu          sync.Mutex
	hits        int
	misses      int
	invalidated []string
	acquired    int
	failed      int
	released    []bool
}

func (h *recHooks) CacheHit(string)  { h.mu.Lock(); h.hits++; h.mu.Unlock() }
func (h *recHooks) CacheMiss(string) { h.mu.Lock(); h.misses++; h.mu.Unlock() }
func (h *recHooks) Invalidated(k string) {
	h.mu.Lock()
	h.invalidated = append(h.invalidated, k)
	h.mu.Unlock()
}
func (h *recHooks) LockAcquired(string, int)      { h.mu.Lock(); h.acquired++; h.mu.Unlock() }
func (h *recHooks) LockFailed(string, int, error) { h.mu.Lock(); h.failed++; h.mu.Unlock() }
func (h *recHooks) LockReleased(_ string, ok bool) {
	h.mu.Lock()
	h.released = append(h.released, ok)
	h.mu.Unlock()
}

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func userKey(id int) string { return Join("u", strconv.Itoa(id)) }
