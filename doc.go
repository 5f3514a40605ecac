// Package redcache implements caching, invalidation, counter and locking
// patterns over a shared key-value store (Redis first). Every pattern stays
// correct when independent processes race against the same store.
//
// Components:
//   - Provider / Store / HashStore: the storage contract (see package provider).
//   - KeyFunc[A]: resolves the resource key of one call from its arguments.
//   - CacheIt: read-through cache around a Func.
//   - RemoveIt / StreamRemoveIt: invalidation after a Func or while a sequence
//     is consumed, keyed by arguments or by returned values.
//   - Locker / Lease: lease-based mutual exclusion with jittered retries and
//     ownership-checked release.
//   - Counter / HashCounter: atomic counters with optional one-time seeding.
//   - TokenStore[T]: identity-keyed objects ("prefix:id") cached as a whole.
//
// Operation objects are built once around the function they wrap and are
// invoked in its place:
//
//	getUser, _ := redcache.NewCacheIt(store, redcache.KeyFunc[int](userKey), loadUser,
//	    redcache.CacheItOptions[User]{TTL: time.Minute})
//	u, err := getUser.Invoke(ctx, 42)
//
// Caveat: a cached payload of zero length is indistinguishable from a miss;
// the wrapped function runs again and the entry is rewritten.
package redcache
