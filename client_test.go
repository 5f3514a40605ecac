package redcache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/unkn0wn-root/redcache/provider/memory"
	"github.com/unkn0wn-root/redcache/provider/redis"
)

func newTestClient(t *testing.T, opts ClientOptions) *Client {
	t.Helper()
	if opts.Store == nil {
		opts.Store = memory.New(memory.Config{})
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func TestClientKeyspace(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, ClientOptions{})
	st := c.Store()
	_ = st.Set(ctx, "u:1", []byte("a"), 0)
	_ = st.Set(ctx, "u:2", []byte("b"), 0)
	_ = st.Set(ctx, "g:1", []byte("c"), 0)

	var keys []string
	for k, err := range c.Keys(ctx, "u:*") {
		if err != nil {
			t.Fatalf("Keys: %v", err)
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if !slices.Equal(keys, []string{"u:1", "u:2"}) {
		t.Fatalf("Keys = %v", keys)
	}
	if ok, _ := c.Has(ctx, "g:1"); !ok {
		t.Fatalf("Has g:1 = false")
	}
	if n, _ := c.Size(ctx); n != 3 {
		t.Fatalf("Size = %d", n)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := c.Size(ctx); n != 0 {
		t.Fatalf("Size after Clear = %d", n)
	}
}

func TestClientCachedUsesDefaults(t *testing.T) {
	ctx := context.Background()
	h := &recHooks{}
	c := newTestClient(t, ClientOptions{DefaultTTL: 50 * time.Millisecond, Hooks: h})

	calls := 0
	get, err := Cached(c, KeyFunc[int](userKey), Func[int, user](func(_ context.Context, id int) (user, error) {
		calls++
		return user{ID: id}, nil
	}), CacheItOptions[user]{})
	if err != nil {
		t.Fatalf("Cached: %v", err)
	}
	_, _ = get.Invoke(ctx, 1)
	_, _ = get.Invoke(ctx, 1)
	if calls != 1 || h.hits != 1 {
		t.Fatalf("calls=%d hits=%d", calls, h.hits)
	}
	time.Sleep(120 * time.Millisecond)
	_, _ = get.Invoke(ctx, 1)
	if calls != 2 {
		t.Fatalf("client default TTL not applied, calls=%d", calls)
	}

	del, err := Invalidate(c, KeyFunc[int](userKey), Func[int, int](func(_ context.Context, id int) (int, error) {
		return id, nil
	}))
	if err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	_, _ = del.Invoke(ctx, 1)
	if !slices.Equal(h.invalidated, []string{"u:1"}) {
		t.Fatalf("invalidated = %v", h.invalidated)
	}

	byRet, err := InvalidateByReturn(c, KeyFunc[user](byID), Func[int, user](func(_ context.Context, id int) (user, error) {
		return user{ID: id}, nil
	}))
	if err != nil || !byRet.ByReturn() {
		t.Fatalf("InvalidateByReturn: %v", err)
	}
}

func TestClientLockCounterHashTokens(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, ClientOptions{TokenTTL: time.Hour, Lock: LockOptions{RetryTimes: -1}})

	err := c.Lock(ctx, "job", func(ctx context.Context) error {
		if _, err := c.Locker().Acquire(ctx, "job"); !errors.Is(err, ErrLockNotAcquired) {
			t.Errorf("nested Acquire should fail, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	other, err := c.NewLocker(LockOptions{TTL: time.Second})
	if err != nil || other.TTL() != time.Second {
		t.Fatalf("NewLocker: %v", err)
	}

	cnt, _ := c.Counter(ctx, "visits", CounterOptions{})
	if n, _ := cnt.Next(ctx); n != 1 {
		t.Fatalf("Counter.Next = %d", n)
	}
	hc, _ := c.HashCounter(ctx, "stats", "views", CounterOptions{Step: 2})
	if n, _ := hc.Next(ctx); n != 2 {
		t.Fatalf("HashCounter.Next = %d", n)
	}

	h := c.Hash("profiles")
	cached, err := NewCacheIt(h, KeyFunc[int](func(id int) string { return strings.Repeat("x", id) }),
		Func[int, int](func(_ context.Context, id int) (int, error) { return id, nil }), CacheItOptions[int]{})
	if err != nil {
		t.Fatalf("NewCacheIt over hash: %v", err)
	}
	_, _ = cached.Invoke(ctx, 2)
	if fields, _ := h.Fields(ctx); !slices.Equal(fields, []string{"xx"}) {
		t.Fatalf("hash fields = %v", fields)
	}

	ts, err := Tokens(c, TokenOptions[session]{})
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	if ts.TTL() != time.Hour {
		t.Fatalf("token ttl = %v, want client default", ts.TTL())
	}
}

func TestClientRequiresStore(t *testing.T) {
	if _, err := New(ClientOptions{}); !errors.Is(err, ErrNilProvider) {
		t.Fatalf("got %v", err)
	}
	var ce *ConfigError
	if _, err := New(ClientOptions{Store: memory.New(memory.Config{}), Lock: LockOptions{TTL: -1}}); !errors.As(err, &ce) {
		t.Fatalf("invalid lock options: %v", err)
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
url: redis://localhost:6379/2
default_ttl: 10m
lock:
  ttl: 30s
  retry_times: 5
  retry_delay: 50ms
token:
  ttl: 1h
`))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.URL != "redis://localhost:6379/2" || cfg.DefaultTTL != 10*time.Minute || cfg.Token.TTL != time.Hour {
		t.Fatalf("cfg = %+v", cfg)
	}
	lo := cfg.LockOptions()
	if lo.TTL != 30*time.Second || lo.RetryTimes != 5 || lo.RetryDelay != 50*time.Millisecond {
		t.Fatalf("lock options = %+v", lo)
	}

	var ce *ConfigError
	if _, err := ParseConfig([]byte("default_ttl: 1m\n")); !errors.As(err, &ce) || ce.Field != "url" {
		t.Fatalf("missing url: %v", err)
	}
	if _, err := ParseConfig([]byte("url: redis://x\nlock:\n  retry_times: -3\n")); !errors.As(err, &ce) {
		t.Fatalf("bad retry_times: %v", err)
	}
	if _, err := ParseConfig([]byte("url: [")); err == nil {
		t.Fatalf("malformed yaml should fail")
	}
}

func TestLoadConfigAndFromConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	path := filepath.Join(t.TempDir(), "redcache.yaml")
	body := "url: redis://" + mr.Addr() + "/0\ndefault_ttl: 1m\nlock:\n  retry_times: -1\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	c, err := FromConfig(cfg, ClientOptions{})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	defer c.Close(context.Background())

	if c.DefaultTTL() != time.Minute {
		t.Fatalf("DefaultTTL = %v", c.DefaultTTL())
	}
	ctx := context.Background()
	if err := c.Lock(ctx, "job", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Lock over redis: %v", err)
	}
	cnt, _ := c.Counter(ctx, "n", CounterOptions{Init: seed(9)})
	if n, _ := cnt.Next(ctx); n != 10 {
		t.Fatalf("Next = %d", n)
	}
	if !mr.Exists("n") {
		t.Fatalf("counter not stored in redis")
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("missing file should fail")
	}
	if _, err := FromURL("://bad", ClientOptions{}); err == nil {
		t.Fatalf("bad url should fail")
	}
}

func TestCacheItWritesTTLToRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rp, err := redis.NewFromURL("redis://" + mr.Addr() + "/0")
	if err != nil {
		t.Fatalf("NewFromURL: %v", err)
	}
	defer rp.Close(ctx)

	calls := 0
	get, err := NewCacheIt(rp, KeyFunc[int](userKey), Func[int, user](func(_ context.Context, id int) (user, error) {
		calls++
		return user{ID: id, Name: "ada"}, nil
	}), CacheItOptions[user]{TTL: 60 * time.Second})
	if err != nil {
		t.Fatalf("NewCacheIt: %v", err)
	}
	if _, err := get.Invoke(ctx, 1); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if ttl := mr.TTL("u:1"); ttl != 60*time.Second {
		t.Fatalf("TTL(u:1) = %v, want 60s", ttl)
	}
	got, err := get.Invoke(ctx, 1)
	if err != nil || got.Name != "ada" || calls != 1 {
		t.Fatalf("second Invoke = %+v %v calls=%d", got, err, calls)
	}
}
