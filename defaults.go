package redcache

import "time"

const (
	defaultLockTTL        = 100 * time.Second
	defaultLockRetryTimes = 3
	defaultLockRetryDelay = 200 * time.Millisecond
	defaultTokenTTL       = 30 * time.Minute
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
