// Package providertest holds backend-agnostic contract suites for the
// storage interfaces in package provider. Store implementations run them
// from their own tests.
package providertest

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	pr "github.com/unkn0wn-root/redcache/provider"
)

type Options struct {
	// Prefix namespaces keys so suites can share a backend. Defaults to t.Name().
	Prefix string
	// TTL is the expiry used by expiry checks. Defaults to 50ms.
	TTL time.Duration
	// Advance moves the backend's clock past TTL. Defaults to time.Sleep;
	// fake servers pass their fast-forward function.
	Advance func(time.Duration)
	// SkipFlush disables Flush/Len checks for shared backends.
	SkipFlush bool
	// Settle is called after writes for providers that apply them
	// asynchronously (e.g. Ristretto's Wait).
	Settle func()
}

func (o Options) withDefaults(t *testing.T) Options {
	if o.Prefix == "" {
		o.Prefix = strings.NewReplacer("/", "-", " ", "-").Replace(t.Name())
	}
	if o.TTL <= 0 {
		o.TTL = 50 * time.Millisecond
	}
	if o.Advance == nil {
		o.Advance = time.Sleep
	}
	if o.Settle == nil {
		o.Settle = func() {}
	}
	return o
}

// RunStoreContract checks the byte map, atomic primitives and keyspace
// operations of s.
func RunStoreContract(t *testing.T, s pr.Store, opts Options) {
	t.Helper()
	opts = opts.withDefaults(t)
	ctx := context.Background()
	key := func(k string) string { return opts.Prefix + ":" + k }

	// Get/Set round trip, bytes returned unchanged.
	payload := []byte{0, 1, 2, 0xff}
	if err := s.Set(ctx, key("raw"), payload, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := s.Get(ctx, key("raw"))
	if err != nil || !ok || !slices.Equal(got, payload) {
		t.Fatalf("Get = %v %v %v", got, ok, err)
	}
	if _, ok, err := s.Get(ctx, key("absent")); ok || err != nil {
		t.Fatalf("Get absent = %v %v", ok, err)
	}

	// Expiry.
	_ = s.Set(ctx, key("ttl"), []byte("v"), opts.TTL)
	opts.Advance(opts.TTL * 3)
	if _, ok, _ := s.Get(ctx, key("ttl")); ok {
		t.Fatalf("entry with ttl should expire")
	}

	// Del counts existing keys only.
	_ = s.Set(ctx, key("d1"), []byte("1"), 0)
	_ = s.Set(ctx, key("d2"), []byte("2"), 0)
	n, err := s.Del(ctx, key("d1"), key("d2"), key("d3"))
	if err != nil || n != 2 {
		t.Fatalf("Del = %d %v, want 2", n, err)
	}

	// SetNX.
	if ok, err := s.SetNX(ctx, key("nx"), []byte("first"), 0); err != nil || !ok {
		t.Fatalf("SetNX on absent key = %v %v", ok, err)
	}
	if ok, _ := s.SetNX(ctx, key("nx"), []byte("second"), 0); ok {
		t.Fatalf("SetNX overwrote an existing key")
	}
	if v, _, _ := s.Get(ctx, key("nx")); string(v) != "first" {
		t.Fatalf("SetNX value = %q", v)
	}
	_, _ = s.SetNX(ctx, key("nx-ttl"), []byte("x"), opts.TTL)
	opts.Advance(opts.TTL * 3)
	if ok, _ := s.SetNX(ctx, key("nx-ttl"), []byte("y"), 0); !ok {
		t.Fatalf("SetNX should succeed once the previous entry expired")
	}

	// IncrBy.
	if v, err := s.IncrBy(ctx, key("ctr"), 5); err != nil || v != 5 {
		t.Fatalf("IncrBy absent = %d %v", v, err)
	}
	if v, _ := s.IncrBy(ctx, key("ctr"), -7); v != -2 {
		t.Fatalf("IncrBy = %d, want -2", v)
	}
	_ = s.Set(ctx, key("ctr-ttl"), []byte("10"), opts.TTL)
	if v, _ := s.IncrBy(ctx, key("ctr-ttl"), 1); v != 11 {
		t.Fatalf("IncrBy seeded = %d", v)
	}
	opts.Advance(opts.TTL * 3)
	if ok, _ := s.Exists(ctx, key("ctr-ttl")); ok {
		t.Fatalf("IncrBy must keep the existing expiry")
	}
	_ = s.Set(ctx, key("text"), []byte("abc"), 0)
	if _, err := s.IncrBy(ctx, key("text"), 1); err == nil {
		t.Fatalf("IncrBy on a non-integer should fail")
	}

	// Exists.
	if ok, err := s.Exists(ctx, key("nx")); err != nil || !ok {
		t.Fatalf("Exists = %v %v", ok, err)
	}

	// CompareAndDelete.
	_ = s.Set(ctx, key("lock"), []byte("token-a"), 0)
	if ok, err := s.CompareAndDelete(ctx, key("lock"), []byte("token-b")); err != nil || ok {
		t.Fatalf("CompareAndDelete with wrong value = %v %v", ok, err)
	}
	if ok, err := s.CompareAndDelete(ctx, key("lock"), []byte("token-a")); err != nil || !ok {
		t.Fatalf("CompareAndDelete = %v %v", ok, err)
	}
	if ok, _ := s.CompareAndDelete(ctx, key("lock"), []byte("token-a")); ok {
		t.Fatalf("CompareAndDelete on absent key reported a deletion")
	}

	// Scan.
	for _, k := range []string{"scan:a", "scan:b", "scan:c"} {
		_ = s.Set(ctx, key(k), []byte("1"), 0)
	}
	var keys []string
	for k, err := range s.Scan(ctx, key("scan:*")) {
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if want := []string{key("scan:a"), key("scan:b"), key("scan:c")}; !slices.Equal(keys, want) {
		t.Fatalf("Scan = %v, want %v", keys, want)
	}
	seen := 0
	for range s.Scan(ctx, key("scan:*")) {
		seen++
		break
	}
	if seen != 1 {
		t.Fatalf("Scan must stop when the consumer does")
	}

	if opts.SkipFlush {
		return
	}
	if n, err := s.Len(ctx); err != nil || n == 0 {
		t.Fatalf("Len = %d %v", n, err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n, _ := s.Len(ctx); n != 0 {
		t.Fatalf("Len after Flush = %d", n)
	}
}

// RunHashContract checks field-addressed storage of hs.
func RunHashContract(t *testing.T, hs pr.HashStore, opts Options) {
	t.Helper()
	opts = opts.withDefaults(t)
	ctx := context.Background()
	res := opts.Prefix + ":hash"

	if _, ok, err := hs.HGet(ctx, res, "a"); ok || err != nil {
		t.Fatalf("HGet on absent hash = %v %v", ok, err)
	}
	if err := hs.HSet(ctx, res, "a", []byte("1")); err != nil {
		t.Fatalf("HSet: %v", err)
	}
	if ok, _ := hs.HSetNX(ctx, res, "a", []byte("2")); ok {
		t.Fatalf("HSetNX overwrote a field")
	}
	if ok, _ := hs.HSetNX(ctx, res, "b", []byte("2")); !ok {
		t.Fatalf("HSetNX on absent field failed")
	}
	if v, ok, _ := hs.HGet(ctx, res, "a"); !ok || string(v) != "1" {
		t.Fatalf("HGet = %q %v", v, ok)
	}
	if n, _ := hs.HIncrBy(ctx, res, "b", 3); n != 5 {
		t.Fatalf("HIncrBy = %d, want 5", n)
	}
	if n, _ := hs.HIncrBy(ctx, res, "c", -1); n != -1 {
		t.Fatalf("HIncrBy absent = %d", n)
	}
	if ok, _ := hs.HExists(ctx, res, "c"); !ok {
		t.Fatalf("HExists c = false")
	}
	if n, _ := hs.HLen(ctx, res); n != 3 {
		t.Fatalf("HLen = %d", n)
	}
	fields, _ := hs.HKeys(ctx, res)
	slices.Sort(fields)
	if !slices.Equal(fields, []string{"a", "b", "c"}) {
		t.Fatalf("HKeys = %v", fields)
	}
	if n, _ := hs.HDel(ctx, res, "a", "zz"); n != 1 {
		t.Fatalf("HDel = %d, want 1", n)
	}
	if n, err := hs.Del(ctx, res); err != nil || n != 1 {
		t.Fatalf("Del hash = %d %v", n, err)
	}
	if n, _ := hs.HLen(ctx, res); n != 0 {
		t.Fatalf("HLen after Del = %d", n)
	}

	// A plain value at the resource is not a hash.
	if s, ok := hs.(pr.Store); ok {
		_ = s.Set(ctx, res, []byte("plain"), 0)
		if _, _, err := hs.HGet(ctx, res, "a"); err == nil {
			t.Fatalf("HGet on a plain key should fail")
		}
		_, _ = s.Del(ctx, res)
	}
}

// RunProviderContract checks the minimal byte map shared by every provider.
func RunProviderContract(t *testing.T, p pr.Provider, opts Options) {
	t.Helper()
	opts = opts.withDefaults(t)
	ctx := context.Background()
	k := opts.Prefix + ":p"

	if err := p.Set(ctx, k, []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	opts.Settle()
	if v, ok, err := p.Get(ctx, k); err != nil || !ok || string(v) != "v1" {
		t.Fatalf("Get = %q %v %v", v, ok, err)
	}
	if n, err := p.Del(ctx, k); err != nil || n != 1 {
		t.Fatalf("Del = %d %v", n, err)
	}
	opts.Settle()
	if _, ok, err := p.Get(ctx, k); ok || err != nil {
		t.Fatalf("Get after Del = %v %v", ok, err)
	}
	if err := p.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
