package redcache

import (
	"errors"
	"fmt"
)

var (
	// ErrLockNotAcquired is matched (errors.Is) by every acquisition failure.
	ErrLockNotAcquired = errors.New("redcache: lock not acquired")
	// ErrInvalidKey reports a missing or empty key resolver.
	ErrInvalidKey = errors.New("redcache: invalid key resolver")
	// ErrNilProvider reports a missing provider/store dependency.
	ErrNilProvider = errors.New("redcache: provider is required")
	// ErrNilFunc reports a missing wrapped function.
	ErrNilFunc = errors.New("redcache: wrapped function is required")
)

// LockError is returned when a lock could not be acquired: retries were
// exhausted, the acquisition deadline passed, or the context ended while
// backing off. Err holds the last store error or the context error, if any.
type LockError struct {
	Resource string
	Attempts int
	Err      error
}

func (e *LockError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("redcache: lock %q not acquired after %d attempt(s): %v", e.Resource, e.Attempts, e.Err)
	}
	return fmt.Sprintf("redcache: lock %q not acquired after %d attempt(s)", e.Resource, e.Attempts)
}

func (e *LockError) Unwrap() []error {
	errs := make([]error, 0, 2)
	errs = append(errs, ErrLockNotAcquired)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ConfigError reports an invalid option detected at construction time.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("redcache: invalid %s: %s", e.Field, e.Reason)
}
