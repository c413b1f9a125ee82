// Package cache keeps rendered API responses in Redis.
//
// Only the company and store analytics routes are cached. Keys embed the
// dataset version and the API policy generation, so a dataset swap or a
// threshold reload makes every older entry unreachable without an explicit
// flush; stale keys age out through their TTL.
// The cache fails open: a Redis error is logged and counted, and the request
// is served from the engine.
package cache
