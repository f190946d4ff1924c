// Package eviction picks cache entries to remove under capacity pressure.
//
// It provides LRU, LFU, FIFO and TTL victim ordering with priority-aware
// tie-breaking. Selection is greedy and minimal: victims accumulate only
// until the requested capacity is freed.
package eviction
