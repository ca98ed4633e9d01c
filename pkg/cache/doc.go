// Package cache provides a generic, thread-safe cache with per-entry expiry.
//
// TTLCache stores values until an expiry instant fixed at insertion time
// (now + ttl). An entry is returned by Get strictly before that instant and is
// treated as absent afterwards. The cache is bounded: once capacity is
// reached, the least recently used entry is evicted.
//
// The cache has no push invalidation. Callers that change the data behind
// cached values call InvalidateAll, after which every Get misses until the key
// is set again.
//
// # Usage
//
//	decisions := cache.NewTTLCache[string, bool](10000)
//
//	decisions.Set("beta/production", true, 30*time.Second)
//	if enabled, ok := decisions.Get("beta/production"); ok {
//		// served from cache
//	}
//
//	decisions.InvalidateAll()
//
// A custom clock makes expiry testable:
//
//	c := cache.NewTTLCache[string, bool](10, cache.WithClock(clock.Now))
//
// # Concurrency
//
// All methods take a single mutex, so Get, Set and InvalidateAll may be called
// from any number of goroutines without caller-side locking.
package cache
