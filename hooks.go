package redcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The operations call them on hot paths.
type Hooks interface {
	// A read-through lookup found a usable entry.
	CacheHit(key string)
	// A read-through lookup missed (absent or empty entry). Forced writes
	// skip the lookup and report nothing.
	CacheMiss(key string)
	// A key was deleted by an invalidation operation.
	Invalidated(key string)

	// A lock was acquired after the given number of attempts.
	LockAcquired(resource string, attempts int)
	// Acquisition gave up; err is the *LockError returned to the caller.
	LockFailed(resource string, attempts int, err error)
	// Release finished; released=false means the lease was no longer ours
	// (expired, taken over) or the store could not be reached.
	LockReleased(resource string, released bool)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) CacheHit(string)               {}
func (NopHooks) CacheMiss(string)              {}
func (NopHooks) Invalidated(string)            {}
func (NopHooks) LockAcquired(string, int)      {}
func (NopHooks) LockFailed(string, int, error) {}
func (NopHooks) LockReleased(string, bool)     {}
