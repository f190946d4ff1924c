package cache

import (
	"hash/fnv"
	"sync"
)

// lockShards is the number of key-mutex shards. Writes to keys in
// different shards proceed in parallel; a single shard serializes only
// the keys that hash to it.
const lockShards = 64

// keyMutex is a sharded per-key mutation guard. It is the engine's own
// serialization layer in front of the storage adapter: the adapter is
// never assumed safe for unsynchronized writes to the same key.
type keyMutex struct {
	shards [lockShards]sync.Mutex
}

// index returns the shard index for key.
func (k *keyMutex) index(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % lockShards
}

// Lock acquires the shard guarding key.
func (k *keyMutex) Lock(key string) uint32 {
	idx := k.index(key)
	k.shards[idx].Lock()
	return idx
}

// TryLock attempts to acquire the shard guarding key without blocking.
// Used by the sweeper and by cross-key eviction, where blocking on a
// shard held elsewhere could deadlock or stall foreground callers.
func (k *keyMutex) TryLock(key string) (uint32, bool) {
	idx := k.index(key)
	return idx, k.shards[idx].TryLock()
}

// Unlock releases a shard by index.
func (k *keyMutex) Unlock(idx uint32) {
	k.shards[idx].Unlock()
}
