// Package cache provides the expiring key/value store behind the activity
// aggregates.
//
// Store is the only type callers use directly. It serialises values into an
// envelope carrying the entry's expiry time and hands the bytes to a Backend:
//
//   - MemoryBackend: process-local map, expiry against an injected clock
//   - LRUBackend: bounded expirable LRU that may evict entries at any time
//   - RedisBackend: Redis shared across processes, behind a circuit breaker
//
// Expiry is decided by Store against the reference time passed by the caller,
// so an entry is treated the same regardless of which backend holds it. Backend
// TTLs only reclaim space.
//
// Store never fails a request: Get degrades every backend error to a miss and
// Put logs and drops write failures. A backend that silently discards an entry
// simply causes the next Get to miss.
package cache
