package redcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLocker(t *testing.T, s *spyStore, opts LockOptions) *Locker {
	t.Helper()
	l, err := NewLocker(s, opts)
	if err != nil {
		t.Fatalf("NewLocker: %v", err)
	}
	return l
}

func TestLockAcquireRelease(t *testing.T) {
	ctx := context.Background()
	s := newSpy()
	h := &recHooks{}
	l := newTestLocker(t, s, LockOptions{Hooks: h})

	lease, err := l.Acquire(ctx, "job")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	raw, ok, _ := s.Memory.Get(ctx, "job")
	if !ok || string(raw) != lease.Token() {
		t.Fatalf("lock record = %q, want token %q", raw, lease.Token())
	}
	if held, err := lease.Held(ctx); err != nil || !held {
		t.Fatalf("Held = %v %v", held, err)
	}
	if !lease.Release(ctx) {
		t.Fatalf("Release should succeed")
	}
	if ok, _ := s.Exists(ctx, "job"); ok {
		t.Fatalf("lock record should be gone")
	}
	if lease.Release(ctx) {
		t.Fatalf("second Release should report false")
	}
	if h.acquired != 1 || len(h.released) != 1 || !h.released[0] {
		t.Fatalf("hooks acquired=%d released=%v", h.acquired, h.released)
	}
}

func TestLockTokensAreUnique(t *testing.T) {
	ctx := context.Background()
	l := newTestLocker(t, newSpy(), LockOptions{})
	a, _ := l.Acquire(ctx, "a")
	b, _ := l.Acquire(ctx, "b")
	if a.Token() == "" || a.Token() == b.Token() {
		t.Fatalf("tokens %q %q", a.Token(), b.Token())
	}
}

func TestLockContendedFailsAfterRetries(t *testing.T) {
	ctx := context.Background()
	s := newSpy()
	h := &recHooks{}
	l := newTestLocker(t, s, LockOptions{RetryTimes: 2, RetryDelay: -1, Hooks: h})

	if _, err := l.Acquire(ctx, "job"); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	_, err := l.Acquire(ctx, "job")
	if !errors.Is(err, ErrLockNotAcquired) {
		t.Fatalf("want ErrLockNotAcquired, got %v", err)
	}
	var le *LockError
	if !errors.As(err, &le) || le.Attempts != 3 || le.Resource != "job" {
		t.Fatalf("LockError = %+v", le)
	}
	if h.failed != 1 {
		t.Fatalf("LockFailed hooks = %d", h.failed)
	}
}

func TestLockNoRetries(t *testing.T) {
	ctx := context.Background()
	l := newTestLocker(t, newSpy(), LockOptions{RetryTimes: -1})
	_, _ = l.Acquire(ctx, "job")
	start := time.Now()
	_, err := l.Acquire(ctx, "job")
	var le *LockError
	if !errors.As(err, &le) || le.Attempts != 1 {
		t.Fatalf("want a single attempt, got %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatalf("no backoff expected without retries")
	}
}

func TestLockStoreErrorsCountAsFailedAttempts(t *testing.T) {
	s := newSpy()
	down := errors.New("store down")
	s.setNXErr = down
	l := newTestLocker(t, s, LockOptions{RetryTimes: 1, RetryDelay: time.Millisecond})

	_, err := l.Acquire(context.Background(), "job")
	if !errors.Is(err, ErrLockNotAcquired) || !errors.Is(err, down) {
		t.Fatalf("want lock error wrapping store error, got %v", err)
	}
	var le *LockError
	if !errors.As(err, &le) || le.Attempts != 2 {
		t.Fatalf("want 2 attempts, got %v", err)
	}
}

func TestLockBackoffHonoursContext(t *testing.T) {
	l := newTestLocker(t, newSpy(), LockOptions{RetryTimes: 5, RetryDelay: 10 * time.Second})
	_, _ = l.Acquire(context.Background(), "job")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := l.Acquire(ctx, "job")
	if !errors.Is(err, ErrLockNotAcquired) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("backoff ignored cancellation")
	}
}

func TestLockDeadlineBoundsRetries(t *testing.T) {
	s := newSpy()
	holder := newTestLocker(t, s, LockOptions{TTL: 10 * time.Second})
	if _, err := holder.Acquire(context.Background(), "job"); err != nil {
		t.Fatalf("holder Acquire: %v", err)
	}

	// Acquisition stops once the contender's own TTL has elapsed, long
	// before the retry budget runs out.
	contender := newTestLocker(t, s, LockOptions{TTL: 40 * time.Millisecond, RetryTimes: 1000, RetryDelay: 5 * time.Millisecond})
	start := time.Now()
	_, err := contender.Acquire(context.Background(), "job")
	var le *LockError
	if !errors.As(err, &le) || le.Attempts >= 1000 {
		t.Fatalf("got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("acquisition outlived its deadline")
	}
}

func TestLockLeaseExpiryRecovers(t *testing.T) {
	ctx := context.Background()
	l := newTestLocker(t, newSpy(), LockOptions{TTL: 50 * time.Millisecond, RetryTimes: -1})

	crashed, err := l.Acquire(ctx, "job")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	next, err := l.Acquire(ctx, "job")
	if err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
	// The stale holder must not delete the new holder's record.
	if crashed.Release(ctx) {
		t.Fatalf("expired lease released someone else's lock")
	}
	if held, _ := next.Held(ctx); !held {
		t.Fatalf("new holder lost the lock")
	}
	if held, _ := crashed.Held(ctx); held {
		t.Fatalf("expired lease still reports held")
	}
}

func TestLockMutualExclusion(t *testing.T) {
	l := newTestLocker(t, newSpy(), LockOptions{TTL: 5 * time.Second, RetryTimes: 10000, RetryDelay: time.Millisecond})

	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		maxSeen atomic.Int32
		done    atomic.Int32
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Do(context.Background(), "shared", func(context.Context) error {
				n := inside.Add(1)
				if n > maxSeen.Load() {
					maxSeen.Store(n)
				}
				time.Sleep(2 * time.Millisecond)
				inside.Add(-1)
				done.Add(1)
				return nil
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
		}()
	}
	wg.Wait()
	if maxSeen.Load() != 1 {
		t.Fatalf("observed %d concurrent holders", maxSeen.Load())
	}
	if done.Load() != 8 {
		t.Fatalf("completed %d critical sections, want 8", done.Load())
	}
}

func TestLockDoReleasesAndReturnsError(t *testing.T) {
	ctx := context.Background()
	s := newSpy()
	l := newTestLocker(t, s, LockOptions{})
	boom := errors.New("boom")

	err := l.Do(ctx, "job", func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if ok, _ := s.Exists(ctx, "job"); ok {
		t.Fatalf("lock must be released after fn fails")
	}
}

func TestLockDoSkipsWorkWhenBusy(t *testing.T) {
	ctx := context.Background()
	l := newTestLocker(t, newSpy(), LockOptions{RetryTimes: -1})
	_, _ = l.Acquire(ctx, "job")

	ran := false
	err := l.Do(ctx, "job", func(context.Context) error { ran = true; return nil })
	if !errors.Is(err, ErrLockNotAcquired) || ran {
		t.Fatalf("err=%v ran=%v", err, ran)
	}
}

func TestLockedDecorator(t *testing.T) {
	ctx := context.Background()
	s := newSpy()
	l := newTestLocker(t, s, LockOptions{RetryTimes: -1})

	var sawHeld bool
	work := Func[int, string](func(ctx context.Context, id int) (string, error) {
		sawHeld, _ = s.Exists(ctx, Join("lock", userKey(id)))
		return "done", nil
	})
	f, err := Locked(l, KeyFunc[int](func(id int) string { return Join("lock", userKey(id)) }), work)
	if err != nil {
		t.Fatalf("Locked: %v", err)
	}
	res, err := f(ctx, 3)
	if err != nil || res != "done" || !sawHeld {
		t.Fatalf("res=%q err=%v held=%v", res, err, sawHeld)
	}
	if ok, _ := s.Exists(ctx, "lock:u:3"); ok {
		t.Fatalf("lock should be released")
	}
}

func TestLockOptionsValidation(t *testing.T) {
	if _, err := NewLocker(nil, LockOptions{}); !errors.Is(err, ErrNilProvider) {
		t.Fatalf("nil store: %v", err)
	}
	var ce *ConfigError
	if _, err := NewLocker(newSpy(), LockOptions{TTL: -time.Second}); !errors.As(err, &ce) {
		t.Fatalf("negative ttl: %v", err)
	}
	if _, err := NewLocker(newSpy(), LockOptions{RetryTimes: -2}); !errors.As(err, &ce) {
		t.Fatalf("retry times -2: %v", err)
	}
	l := newTestLocker(t, newSpy(), LockOptions{})
	if l.TTL() != defaultLockTTL || l.retryTimes != defaultLockRetryTimes || l.retryDelay != defaultLockRetryDelay {
		t.Fatalf("defaults not applied: %+v", l)
	}
	if _, err := l.Acquire(context.Background(), ""); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("empty resource: %v", err)
	}
}
