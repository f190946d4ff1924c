// Package analytics accumulates cache usage statistics: hit/miss/put
// counters, stored bytes, and per-key access data for "most accessed",
// "most recent" and "largest item" queries.
//
// The collector is purely observational. It is never consulted for
// eviction or expiry decisions and can be rebuilt from the primary store
// if lost. Counters can optionally be mirrored to OpenTelemetry
// instruments.
package analytics
