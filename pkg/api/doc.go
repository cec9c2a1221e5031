// Package api exposes the trailing 24 hour activity aggregates over HTTP.
//
// Routes are mounted on a gorilla/mux router under /api/v1/activity:
//
//	GET  /api/v1/activity          combined landing payload
//	GET  /api/v1/activity/users    active users as display rows
//	GET  /api/v1/activity/summary  new posts, topics and registrations
//	GET  /api/v1/activity/guests   distinct guest count
//	POST /api/v1/activity/refresh  drop and recompute every cache line
//
// Data source failures map to 503 (unavailable) and 502 (malformed); any
// other failure is a 500. Every response carries an X-Request-ID header.
package api
