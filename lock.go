package redcache

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	pr "github.com/unkn0wn-root/redcache/provider"
)

type LockOptions struct {
	// TTL is the lease length and also bounds how long Acquire keeps trying.
	// 0 => 100s. Negative is invalid.
	TTL time.Duration

	// RetryTimes is the number of retries after the first attempt.
	// 0 => 3, -1 => no retries.
	RetryTimes int

	// RetryDelay is the upper bound of the random pause between attempts.
	// 0 => 200ms, negative => retry immediately.
	RetryDelay time.Duration

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks
}

// Locker hands out leases on named resources. A lease is a single store
// entry resource -> owner token written with set-if-absent and a TTL, so a
// crashed holder blocks others for at most one TTL. Only the holder of the
// token can delete the entry.
type Locker struct {
	store      pr.Store
	ttl        time.Duration
	retryTimes int
	retryDelay time.Duration
	log        Logger
	hooks      Hooks
}

func NewLocker(store pr.Store, opts LockOptions) (*Locker, error) {
	if store == nil {
		return nil, ErrNilProvider
	}
	if opts.TTL < 0 {
		return nil, &ConfigError{Field: "lock ttl", Reason: "must not be negative"}
	}
	if opts.RetryTimes < -1 {
		return nil, &ConfigError{Field: "lock retry times", Reason: "must be -1 (disabled) or greater"}
	}
	l := &Locker{
		store:      store,
		ttl:        coalesce(opts.TTL, defaultLockTTL),
		retryTimes: coalesce(opts.RetryTimes, defaultLockRetryTimes),
		retryDelay: coalesce(opts.RetryDelay, defaultLockRetryDelay),
		log:        coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:      coalesce[Hooks](opts.Hooks, NopHooks{}),
	}
	if l.retryTimes < 0 {
		l.retryTimes = 0
	}
	if l.retryDelay < 0 {
		l.retryDelay = 0
	}
	return l, nil
}

func (l *Locker) TTL() time.Duration { return l.ttl }

// Acquire tries to take resource with a fresh owner token. It makes at most
// RetryTimes+1 attempts and stops once TTL has elapsed since the call
// started. Store errors count as failed attempts. Every failure is a
// *LockError matching ErrLockNotAcquired.
func (l *Locker) Acquire(ctx context.Context, resource string) (*Lease, error) {
	if resource == "" {
		return nil, fmt.Errorf("%w: empty lock resource", ErrInvalidKey)
	}
	token := uuid.NewString()
	deadline := time.Now().Add(l.ttl)

	var (
		attempts int
		lastErr  error
	)
	for {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		attempts++
		ok, err := l.store.SetNX(ctx, resource, []byte(token), l.ttl)
		if err != nil {
			lastErr = err
			l.log.Debug("lock attempt failed", Fields{"resource": resource, "attempt": attempts, "err": err})
		} else if ok {
			l.hooks.LockAcquired(resource, attempts)
			l.log.Debug("lock acquired", Fields{"resource": resource, "attempts": attempts})
			return &Lease{locker: l, resource: resource, token: token, expires: time.Now().Add(l.ttl)}, nil
		}
		if attempts > l.retryTimes || !time.Now().Before(deadline) {
			break
		}
		if err := l.backoff(ctx); err != nil {
			lastErr = err
			break
		}
	}

	lerr := &LockError{Resource: resource, Attempts: attempts, Err: lastErr}
	l.hooks.LockFailed(resource, attempts, lerr)
	l.log.Debug("lock not acquired", Fields{"resource": resource, "attempts": attempts, "err": lastErr})
	return nil, lerr
}

// Do runs fn while holding resource. The lease is released after fn returns
// or panics, even if ctx was cancelled meanwhile. fn's error is returned
// unchanged.
func (l *Locker) Do(ctx context.Context, resource string, fn func(ctx context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	lease, err := l.Acquire(ctx, resource)
	if err != nil {
		return err
	}
	defer lease.Release(context.WithoutCancel(ctx))
	return fn(ctx)
}

// backoff sleeps a uniformly random duration in [0, retryDelay].
func (l *Locker) backoff(ctx context.Context) error {
	if l.retryDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(rand.Int64N(int64(l.retryDelay) + 1)))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Lease is one successful acquisition.
type Lease struct {
	locker   *Locker
	resource string
	token    string
	expires  time.Time
	released atomic.Bool
}

func (l *Lease) Resource() string { return l.resource }

// Token is the owner token written to the store.
func (l *Lease) Token() string { return l.token }

// Expires is the local estimate of when the store drops the lease.
func (l *Lease) Expires() time.Time { return l.expires }

// Held reports whether the store still maps the resource to this lease's token.
func (l *Lease) Held(ctx context.Context) (bool, error) {
	b, ok, err := l.locker.store.Get(ctx, l.resource)
	if err != nil || !ok {
		return false, err
	}
	return string(b) == l.token, nil
}

// Release deletes the lock entry only if it still holds this lease's token.
// It never fails: false means the lease had expired or been taken over, was
// already released, or the store could not be reached (logged as a warning).
func (l *Lease) Release(ctx context.Context) bool {
	if l.released.Swap(true) {
		return false
	}
	lk := l.locker
	ok, err := lk.store.CompareAndDelete(ctx, l.resource, []byte(l.token))
	if err != nil {
		lk.log.Warn("lock release failed", Fields{"resource": l.resource, "err": err})
		ok = false
	} else if !ok {
		lk.log.Warn("lock lost before release", Fields{"resource": l.resource})
	} else {
		lk.log.Debug("lock released", Fields{"resource": l.resource})
	}
	lk.hooks.LockReleased(l.resource, ok)
	return ok
}

// Locked wraps fn so every call runs under the lock named by key(args).
// When the lock cannot be taken fn is not called and the *LockError is
// returned.
func Locked[A, R any](l *Locker, key KeyFunc[A], fn Func[A, R]) (Func[A, R], error) {
	if l == nil {
		return nil, ErrNilProvider
	}
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, ErrNilFunc
	}
	return func(ctx context.Context, args A) (R, error) {
		var res R
		err := l.Do(ctx, key(args), func(ctx context.Context) error {
			var err error
			res, err = fn(ctx, args)
			return err
		})
		return res, err
	}, nil
}
