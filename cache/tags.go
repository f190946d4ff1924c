package cache

import "sync"

// tagIndex is the in-memory secondary index from tag to key set. It is
// rebuilt from the storage adapter on startup and maintained inline by
// every mutation, so tag lookups never scan the store.
type tagIndex struct {
	mu   sync.RWMutex
	tags map[string]map[string]struct{}
}

func newTagIndex() *tagIndex {
	return &tagIndex{tags: make(map[string]map[string]struct{})}
}

// add registers key under each tag.
func (t *tagIndex) add(key string, tags []string) {
	if len(tags) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tag := range tags {
		set, ok := t.tags[tag]
		if !ok {
			set = make(map[string]struct{})
			t.tags[tag] = set
		}
		set[key] = struct{}{}
	}
}

// remove drops key from each tag, deleting tag buckets that empty out.
func (t *tagIndex) remove(key string, tags []string) {
	if len(tags) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tag := range tags {
		set, ok := t.tags[tag]
		if !ok {
			continue
		}
		delete(set, key)
		if len(set) == 0 {
			delete(t.tags, tag)
		}
	}
}

// replace swaps key's tag membership from old to new in one pass.
func (t *tagIndex) replace(key string, old, new []string) {
	t.remove(key, old)
	t.add(key, new)
}

// keys returns a snapshot of the keys registered under tag.
func (t *tagIndex) keys(tag string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	set, ok := t.tags[tag]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

// keysAny returns the union of keys registered under any of the tags.
func (t *tagIndex) keysAny(tags []string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, tag := range tags {
		for k := range t.tags[tag] {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	return out
}

// clear discards every tag bucket.
func (t *tagIndex) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tags = make(map[string]map[string]struct{})
}
