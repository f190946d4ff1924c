package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Liv-Coder/data-cache-x-sub001/eviction"
	"github.com/Liv-Coder/data-cache-x-sub001/storage"
	"github.com/Liv-Coder/data-cache-x-sub001/transform"
)

func newTestEngine(t *testing.T, cfg Config, opts ...Option) *Engine {
	t.Helper()
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = -1
	}
	e, err := New(storage.NewMemory(), cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestNew_NilAdapter(t *testing.T) {
	_, err := New(nil, Config{})
	if !errors.Is(err, ErrNilAdapter) {
		t.Errorf("New(nil) error = %v, want ErrNilAdapter", err)
	}
}

func TestNew_UnknownDefaultCodec(t *testing.T) {
	_, err := New(storage.NewMemory(), Config{DefaultCodec: "bogus", CleanupInterval: -1})
	if err == nil {
		t.Fatal("New() with unknown default codec succeeded")
	}
}

func TestEngine_PutGet(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	if err := e.Put(ctx, "greeting", "hello"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := e.Get(ctx, "greeting")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "hello" {
		t.Errorf("Get() = %v, want %q", got, "hello")
	}
	if e.Len() != 1 {
		t.Errorf("Len() = %d, want 1", e.Len())
	}
	if e.Size() <= 0 {
		t.Errorf("Size() = %d, want > 0", e.Size())
	}
}

func TestEngine_GetMissing(t *testing.T) {
	e := newTestEngine(t, Config{})

	_, err := e.Get(context.Background(), "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if s := e.Stats(); s.Misses != 1 {
		t.Errorf("Misses = %d, want 1", s.Misses)
	}
}

func TestEngine_GetUndecodableDropsEntry(t *testing.T) {
	adapter := storage.NewMemory()
	e, err := New(adapter, Config{CleanupInterval: -1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	ctx := context.Background()

	if err := e.Put(ctx, "mangled", "value"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Corrupt the stored payload behind the engine's back. The size is
	// left intact so the byte accounting must balance after the drop.
	rec, ok, err := adapter.Get(ctx, "mangled")
	if err != nil || !ok {
		t.Fatalf("adapter.Get() = %v, %v", ok, err)
	}
	rec.Payload = []byte("not a real frame")
	rec.Compressed = true
	if err := adapter.Put(ctx, "mangled", rec); err != nil {
		t.Fatalf("adapter.Put() error = %v", err)
	}

	if _, err := e.Get(ctx, "mangled"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	if e.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after drop", e.Len())
	}
	s := e.Stats()
	if s.Misses != 1 {
		t.Errorf("Misses = %d, want 1", s.Misses)
	}
	if s.Deletes != 1 {
		t.Errorf("Deletes = %d, want 1", s.Deletes)
	}
	if s.StoredBytes != 0 {
		t.Errorf("StoredBytes = %d, want 0", s.StoredBytes)
	}
	if s.TrackedKeys != 0 {
		t.Errorf("TrackedKeys = %d, want 0", s.TrackedKeys)
	}
}

func TestEngine_Expiry(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	pol := Policy{Expiry: time.Nanosecond}
	if err := e.PutWith(ctx, "flash", "gone", pol); err != nil {
		t.Fatalf("PutWith() error = %v", err)
	}
	time.Sleep(time.Millisecond)

	_, err := e.Get(ctx, "flash")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	if e.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after lazy expiry", e.Len())
	}
	s := e.Stats()
	if s.Expirations != 1 {
		t.Errorf("Expirations = %d, want 1", s.Expirations)
	}
	if s.Misses != 1 {
		t.Errorf("Misses = %d, want 1", s.Misses)
	}
}

func TestEngine_NoExpiry(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	if err := e.PutWith(ctx, "pinned", "stays", Policy{}); err != nil {
		t.Fatalf("PutWith() error = %v", err)
	}
	md, err := e.Metadata(ctx, "pinned")
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if !md.ExpireAt.IsZero() {
		t.Errorf("ExpireAt = %v, want zero for no expiry", md.ExpireAt)
	}
}

func TestEngine_InvalidKey(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	if err := e.Put(ctx, "", "v"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Put() error = %v, want ErrInvalidKey", err)
	}
	if _, err := e.Get(ctx, "  "); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Get() error = %v, want ErrInvalidKey", err)
	}
	long := strings.Repeat("k", MaxKeyLength+1)
	if err := e.Delete(ctx, long); !errors.Is(err, ErrKeyTooLong) {
		t.Errorf("Delete() error = %v, want ErrKeyTooLong", err)
	}
}

func TestEngine_Delete(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	if err := e.Put(ctx, "k", "v"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := e.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := e.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	// Deleting again is not an error.
	if err := e.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete() second call error = %v", err)
	}
	if e.Len() != 0 || e.Size() != 0 {
		t.Errorf("Len/Size = %d/%d, want 0/0", e.Len(), e.Size())
	}
}

func TestEngine_UpdateExistingKey(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	if err := e.PutWith(ctx, "k", "short", Policy{Tags: []string{"old"}}); err != nil {
		t.Fatalf("PutWith() error = %v", err)
	}
	if err := e.PutWith(ctx, "k", strings.Repeat("longer", 10), Policy{Tags: []string{"new"}}); err != nil {
		t.Fatalf("PutWith() overwrite error = %v", err)
	}

	if e.Len() != 1 {
		t.Errorf("Len() = %d, want 1", e.Len())
	}
	md, err := e.Metadata(ctx, "k")
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if e.Size() != md.Size {
		t.Errorf("Size() = %d, want %d", e.Size(), md.Size)
	}
	if keys, _ := e.KeysByTag(ctx, "old"); len(keys) != 0 {
		t.Errorf("KeysByTag(old) = %v, want empty", keys)
	}
	if keys, _ := e.KeysByTag(ctx, "new"); len(keys) != 1 {
		t.Errorf("KeysByTag(new) = %v, want one key", keys)
	}
}

func TestEngine_MaxSizeRejected(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	pol := Policy{MaxSize: 10, Compression: transform.ModeNever}
	err := e.PutWith(ctx, "big", strings.Repeat("x", 100), pol)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("PutWith() error = %v, want ErrCapacityExceeded", err)
	}
	if e.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after rejected put", e.Len())
	}
}

func TestEngine_ValueLargerThanCache(t *testing.T) {
	e := newTestEngine(t, Config{MaxBytes: 16})
	ctx := context.Background()

	err := e.PutWith(ctx, "big", strings.Repeat("x", 100), Policy{Compression: transform.ModeNever})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("PutWith() error = %v, want ErrCapacityExceeded", err)
	}
}

func TestEngine_LRUEviction(t *testing.T) {
	e := newTestEngine(t, Config{MaxItems: 2, Strategy: eviction.LRU})
	ctx := context.Background()

	mustPut(t, e, "x", "1")
	time.Sleep(2 * time.Millisecond)
	mustPut(t, e, "y", "2")
	time.Sleep(2 * time.Millisecond)

	// Touch x so y becomes the least recently used entry.
	if _, err := e.Get(ctx, "x"); err != nil {
		t.Fatalf("Get(x) error = %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	mustPut(t, e, "z", "3")

	if _, err := e.Get(ctx, "y"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(y) error = %v, want ErrNotFound after eviction", err)
	}
	if _, err := e.Get(ctx, "x"); err != nil {
		t.Errorf("Get(x) error = %v, want survivor", err)
	}
	if _, err := e.Get(ctx, "z"); err != nil {
		t.Errorf("Get(z) error = %v, want survivor", err)
	}
	if s := e.Stats(); s.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", s.Evictions)
	}
	if e.Len() != 2 {
		t.Errorf("Len() = %d, want 2", e.Len())
	}
}

func TestEngine_LFUEviction(t *testing.T) {
	e := newTestEngine(t, Config{MaxItems: 2, Strategy: eviction.LFU})
	ctx := context.Background()

	mustPut(t, e, "hot", "1")
	mustPut(t, e, "cold", "2")

	for range 3 {
		if _, err := e.Get(ctx, "hot"); err != nil {
			t.Fatalf("Get(hot) error = %v", err)
		}
	}

	mustPut(t, e, "new", "3")

	if _, err := e.Get(ctx, "cold"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(cold) error = %v, want ErrNotFound after eviction", err)
	}
	if _, err := e.Get(ctx, "hot"); err != nil {
		t.Errorf("Get(hot) error = %v, want survivor", err)
	}
}

func TestEngine_FIFOEviction(t *testing.T) {
	e := newTestEngine(t, Config{MaxItems: 2, Strategy: eviction.FIFO})
	ctx := context.Background()

	mustPut(t, e, "first", "1")
	mustPut(t, e, "second", "2")

	// Recency must not matter for FIFO.
	if _, err := e.Get(ctx, "first"); err != nil {
		t.Fatalf("Get(first) error = %v", err)
	}

	mustPut(t, e, "third", "3")

	if _, err := e.Get(ctx, "first"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(first) error = %v, want ErrNotFound after eviction", err)
	}
	if _, err := e.Get(ctx, "second"); err != nil {
		t.Errorf("Get(second) error = %v, want survivor", err)
	}
}

func TestEngine_CriticalExemptFromEviction(t *testing.T) {
	e := newTestEngine(t, Config{MaxItems: 1})
	ctx := context.Background()

	if err := e.PutWith(ctx, "vital", "keep", Policy{Priority: eviction.Critical}); err != nil {
		t.Fatalf("PutWith() error = %v", err)
	}

	err := e.Put(ctx, "extra", "nope")
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Put() error = %v, want ErrCapacityExceeded", err)
	}
	if _, err := e.Get(ctx, "vital"); err != nil {
		t.Errorf("Get(vital) error = %v, critical entry must survive", err)
	}
	if e.Len() != 1 {
		t.Errorf("Len() = %d, want 1", e.Len())
	}
}

func TestEngine_MaxBytesEviction(t *testing.T) {
	e := newTestEngine(t, Config{MaxBytes: 64, Strategy: eviction.FIFO})
	ctx := context.Background()

	pol := Policy{Compression: transform.ModeNever, Codec: "string"}
	if err := e.PutWith(ctx, "a", strings.Repeat("a", 30), pol); err != nil {
		t.Fatalf("PutWith(a) error = %v", err)
	}
	if err := e.PutWith(ctx, "b", strings.Repeat("b", 30), pol); err != nil {
		t.Fatalf("PutWith(b) error = %v", err)
	}
	if err := e.PutWith(ctx, "c", strings.Repeat("c", 30), pol); err != nil {
		t.Fatalf("PutWith(c) error = %v", err)
	}

	if _, err := e.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(a) error = %v, want oldest evicted", err)
	}
	if e.Size() > 64 {
		t.Errorf("Size() = %d, want <= 64", e.Size())
	}
}

func TestEngine_SlidingExpiry(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	pol := Policy{SlidingExpiry: 120 * time.Millisecond}
	if err := e.PutWith(ctx, "session", "alive", pol); err != nil {
		t.Fatalf("PutWith() error = %v", err)
	}

	// Each read inside the window renews the expiry.
	for range 2 {
		time.Sleep(70 * time.Millisecond)
		if _, err := e.Get(ctx, "session"); err != nil {
			t.Fatalf("Get() within window error = %v", err)
		}
	}

	time.Sleep(200 * time.Millisecond)
	if _, err := e.Get(ctx, "session"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after idle window error = %v, want ErrNotFound", err)
	}
}

func TestEngine_CompressionAuto(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	small := "tiny"
	large := strings.Repeat("the same sentence again and again ", 2000)

	if err := e.Put(ctx, "small", small); err != nil {
		t.Fatalf("Put(small) error = %v", err)
	}
	if err := e.Put(ctx, "large", large); err != nil {
		t.Fatalf("Put(large) error = %v", err)
	}

	md, err := e.Metadata(ctx, "small")
	if err != nil {
		t.Fatalf("Metadata(small) error = %v", err)
	}
	if md.Compressed {
		t.Error("small value was compressed below threshold")
	}

	md, err = e.Metadata(ctx, "large")
	if err != nil {
		t.Fatalf("Metadata(large) error = %v", err)
	}
	if !md.Compressed {
		t.Error("large repetitive value was not compressed")
	}
	if md.Size >= int64(len(large)) {
		t.Errorf("stored size %d not smaller than raw %d", md.Size, len(large))
	}

	got, err := e.Get(ctx, "large")
	if err != nil {
		t.Fatalf("Get(large) error = %v", err)
	}
	if got != large {
		t.Error("Get(large) did not round-trip the compressed value")
	}
}

func TestEngine_CompressionNever(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	large := strings.Repeat("abc", 2000)
	pol := Policy{Compression: transform.ModeNever}
	if err := e.PutWith(ctx, "raw", large, pol); err != nil {
		t.Fatalf("PutWith() error = %v", err)
	}
	md, err := e.Metadata(ctx, "raw")
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if md.Compressed {
		t.Error("value compressed despite never mode")
	}
}

func TestEngine_Encryption(t *testing.T) {
	key := transform.StaticKey(strings.Repeat("k", 32))
	e := newTestEngine(t, Config{EncryptionKeys: key})
	ctx := context.Background()

	pol := Policy{Encrypt: true}
	if err := e.PutWith(ctx, "secret", "hunter2", pol); err != nil {
		t.Fatalf("PutWith() error = %v", err)
	}

	md, err := e.Metadata(ctx, "secret")
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if !md.Encrypted {
		t.Error("entry not marked encrypted")
	}

	got, err := e.Get(ctx, "secret")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "hunter2" {
		t.Errorf("Get() = %v, want decrypted original", got)
	}
}

func TestEngine_EncryptionWithoutKey(t *testing.T) {
	e := newTestEngine(t, Config{})

	err := e.PutWith(context.Background(), "secret", "v", Policy{Encrypt: true})
	if !errors.Is(err, transform.ErrNoKey) {
		t.Errorf("PutWith() error = %v, want transform.ErrNoKey", err)
	}
}

func TestEngine_DeleteByTag(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	mustPutTagged(t, e, "u:1", "alice", "users")
	mustPutTagged(t, e, "u:2", "bob", "users")
	mustPutTagged(t, e, "s:1", "cart", "sessions")

	n, err := e.DeleteByTag(ctx, "users")
	if err != nil {
		t.Fatalf("DeleteByTag() error = %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteByTag() = %d, want 2", n)
	}
	if _, err := e.Get(ctx, "u:1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(u:1) error = %v, want ErrNotFound", err)
	}
	if _, err := e.Get(ctx, "s:1"); err != nil {
		t.Errorf("Get(s:1) error = %v, other tags must survive", err)
	}

	// A second invalidation of the same tag is a no-op.
	n, err = e.DeleteByTag(ctx, "users")
	if err != nil || n != 0 {
		t.Errorf("DeleteByTag() second call = (%d, %v), want (0, nil)", n, err)
	}
}

func TestEngine_KeysByTag(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	mustPutTagged(t, e, "a", "1", "grp")
	mustPutTagged(t, e, "b", "2", "grp")

	keys, err := e.KeysByTag(ctx, "grp")
	if err != nil {
		t.Fatalf("KeysByTag() error = %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("KeysByTag() = %v, want 2 keys", keys)
	}
	keys, err = e.KeysByTag(ctx, "nothing")
	if err != nil || len(keys) != 0 {
		t.Errorf("KeysByTag(nothing) = (%v, %v), want empty", keys, err)
	}
}

func TestEngine_Clear(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	mustPut(t, e, "a", "1")
	mustPut(t, e, "b", "2")
	if _, err := e.Get(ctx, "a"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if err := e.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if e.Len() != 0 || e.Size() != 0 {
		t.Errorf("Len/Size = %d/%d after clear, want 0/0", e.Len(), e.Size())
	}

	s := e.Stats()
	if s.Puts != 2 || s.Hits != 1 {
		t.Errorf("counters = %d puts / %d hits, want history kept across clear", s.Puts, s.Hits)
	}
	if s.StoredBytes != 0 {
		t.Errorf("StoredBytes = %d after clear, want 0", s.StoredBytes)
	}
}

func TestEngine_ContainsKey(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	mustPut(t, e, "live", "v")
	if err := e.PutWith(ctx, "dead", "v", Policy{Expiry: time.Nanosecond}); err != nil {
		t.Fatalf("PutWith() error = %v", err)
	}
	time.Sleep(time.Millisecond)

	before := e.Stats()

	if ok, err := e.ContainsKey(ctx, "live"); err != nil || !ok {
		t.Errorf("ContainsKey(live) = (%v, %v), want (true, nil)", ok, err)
	}
	if ok, err := e.ContainsKey(ctx, "dead"); err != nil || ok {
		t.Errorf("ContainsKey(dead) = (%v, %v), want (false, nil)", ok, err)
	}
	if ok, err := e.ContainsKey(ctx, "absent"); err != nil || ok {
		t.Errorf("ContainsKey(absent) = (%v, %v), want (false, nil)", ok, err)
	}

	after := e.Stats()
	if after.Hits != before.Hits || after.Misses != before.Misses {
		t.Error("ContainsKey affected hit/miss counters")
	}
}

func TestEngine_Metadata(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	pol := Policy{
		Expiry:   time.Hour,
		Priority: eviction.High,
		Tags:     []string{"meta"},
	}
	if err := e.PutWith(ctx, "k", "v", pol); err != nil {
		t.Fatalf("PutWith() error = %v", err)
	}

	md, err := e.Metadata(ctx, "k")
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if md.Key != "k" {
		t.Errorf("Key = %q, want %q", md.Key, "k")
	}
	if md.Kind != "msgpack" {
		t.Errorf("Kind = %q, want msgpack", md.Kind)
	}
	if md.Priority != eviction.High {
		t.Errorf("Priority = %v, want high", md.Priority)
	}
	if len(md.Tags) != 1 || md.Tags[0] != "meta" {
		t.Errorf("Tags = %v, want [meta]", md.Tags)
	}
	if md.ExpireAt.IsZero() {
		t.Error("ExpireAt is zero, want set")
	}

	if _, err := e.Metadata(ctx, "absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Metadata(absent) error = %v, want ErrNotFound", err)
	}
}

func TestEngine_RebuildFromStore(t *testing.T) {
	adapter := storage.NewMemory()
	ctx := context.Background()

	first, err := New(adapter, Config{CleanupInterval: -1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := first.PutWith(ctx, "a", "1", Policy{Tags: []string{"grp"}}); err != nil {
		t.Fatalf("PutWith() error = %v", err)
	}
	if err := first.PutWith(ctx, "b", "2", Policy{Tags: []string{"grp"}}); err != nil {
		t.Fatalf("PutWith() error = %v", err)
	}

	second, err := New(adapter, Config{CleanupInterval: -1})
	if err != nil {
		t.Fatalf("New() on populated adapter error = %v", err)
	}
	defer second.Close()

	if second.Len() != 2 {
		t.Errorf("Len() = %d after rebuild, want 2", second.Len())
	}
	if second.Size() != first.Size() {
		t.Errorf("Size() = %d after rebuild, want %d", second.Size(), first.Size())
	}
	if keys, _ := second.KeysByTag(ctx, "grp"); len(keys) != 2 {
		t.Errorf("KeysByTag() = %v after rebuild, want 2 keys", keys)
	}
}

func TestEngine_Close(t *testing.T) {
	e, err := New(storage.NewMemory(), Config{CleanupInterval: -1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("Close() second call error = %v", err)
	}

	ctx := context.Background()
	if err := e.Put(ctx, "k", "v"); !errors.Is(err, ErrClosed) {
		t.Errorf("Put() after close error = %v, want ErrClosed", err)
	}
	if _, err := e.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get() after close error = %v, want ErrClosed", err)
	}
	if err := e.Delete(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Delete() after close error = %v, want ErrClosed", err)
	}
}

func TestEngine_HitRate(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	mustPut(t, e, "k", "v")
	for range 3 {
		if _, err := e.Get(ctx, "k"); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	}
	if _, err := e.Get(ctx, "absent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(absent) error = %v", err)
	}

	s := e.Stats()
	if s.Hits != 3 || s.Misses != 1 {
		t.Fatalf("hits/misses = %d/%d, want 3/1", s.Hits, s.Misses)
	}
	if s.HitRate != 0.75 {
		t.Errorf("HitRate = %v, want 0.75", s.HitRate)
	}
}

func mustPut(t *testing.T, e *Engine, key, value string) {
	t.Helper()
	if err := e.Put(context.Background(), key, value); err != nil {
		t.Fatalf("Put(%q) error = %v", key, err)
	}
}

func mustPutTagged(t *testing.T, e *Engine, key, value, tag string) {
	t.Helper()
	pol := *e.cfg.DefaultPolicy
	pol.Tags = []string{tag}
	if err := e.PutWith(context.Background(), key, value, pol); err != nil {
		t.Fatalf("PutWith(%q) error = %v", key, err)
	}
}
