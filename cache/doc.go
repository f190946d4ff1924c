// Package cache implements a policy-driven caching engine over pluggable
// key-value storage adapters.
//
// The engine adds expiration, sliding expiry, staleness-aware refresh,
// priority-aware eviction, tag-based invalidation, transparent
// compression/encryption, background cleanup, and usage analytics on top
// of the narrow storage.Adapter contract.
package cache
