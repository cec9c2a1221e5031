// Package activity computes and serves the trailing-24h forum activity figures
// shown on the board index: users active in the last day, distinct guests, and
// new posts, topics and registrations.
//
// # Overview
//
// Three pieces are composed at request time:
//
//   - Engine: stateless aggregation over a DataSource and a reference time.
//   - cache.Store: key/value store with per-entry expiry over a pluggable backend.
//   - Service: one cache line per aggregate. A miss computes through the Engine
//     and stores the result with the line's TTL; a hit returns the stored value.
//
// # Cache Lines
//
//	| aggregate        | key                       | TTL  |
//	|------------------|---------------------------|------|
//	| active users     | _24hour_users             | 1h   |
//	| activity summary | _24hour_activity          | 1h   |
//	| guest count      | _total_guests_online_24   | 5m   |
//
// Lines are independent. A failed computation is returned to the caller and
// never written to the cache, so the next request retries it.
//
// # Usage Example
//
//	engine := activity.NewEngine(source)
//	store := cache.NewStore(cache.NewMemoryBackend(clock), logger, metrics)
//	svc := activity.NewService(engine, store, activity.ServiceConfig{Clock: clock})
//
//	payload, err := svc.Snapshot(ctx)
//	if err != nil {
//		return err
//	}
//	fmt.Printf("%d users, %d guests\n", payload.UsersTotal, payload.Guests)
//
// # Time
//
// The package never reads the wall clock on its own. Every Get takes the
// reference time explicitly; Snapshot and Refresh read the injected clock once
// and use that value for all three lines.
package activity
