package storage

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func testRecord(payload string, tags ...string) Record {
	now := time.Now()
	return Record{
		Payload:        []byte(payload),
		Kind:           "raw",
		CreatedAt:      now,
		LastAccessedAt: now,
		Tags:           tags,
		Size:           int64(len(payload)),
	}
}

func TestMemory_PutGetDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, ok, err := m.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get on empty adapter = (%v, %v), want miss", ok, err)
	}

	rec := testRecord("value")
	if err := m.Put(ctx, "k", rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := m.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get after Put = (%v, %v), want hit", ok, err)
	}
	if !bytes.Equal(got.Payload, rec.Payload) {
		t.Errorf("payload = %q, want %q", got.Payload, rec.Payload)
	}

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("Get after Delete should miss")
	}

	// Idempotent delete
	if err := m.Delete(ctx, "k"); err != nil {
		t.Errorf("repeat Delete should not error, got %v", err)
	}
}

func TestMemory_KeysPaging(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, k := range []string{"c", "a", "b", "e", "d"} {
		if err := m.Put(ctx, k, testRecord(k)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	page, err := m.Keys(ctx, 2, 0)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(page) != 2 || page[0] != "a" || page[1] != "b" {
		t.Errorf("first page = %v, want [a b]", page)
	}

	page, err = m.Keys(ctx, 2, 4)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(page) != 1 || page[0] != "e" {
		t.Errorf("last page = %v, want [e]", page)
	}

	page, err = m.Keys(ctx, 2, 10)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(page) != 0 {
		t.Errorf("out-of-range page = %v, want empty", page)
	}
}

func TestMemory_BatchOps(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	recs := map[string]Record{
		"a": testRecord("1"),
		"b": testRecord("2"),
	}
	if err := m.PutAll(ctx, recs); err != nil {
		t.Fatalf("PutAll failed: %v", err)
	}

	got, err := m.GetAll(ctx, []string{"a", "b", "ghost"})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("GetAll returned %d records, want 2", len(got))
	}

	present, err := m.ContainsKeys(ctx, []string{"a", "ghost"})
	if err != nil {
		t.Fatalf("ContainsKeys failed: %v", err)
	}
	if !present["a"] || present["ghost"] {
		t.Errorf("ContainsKeys = %v", present)
	}

	if err := m.DeleteAll(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if n, _ := m.Count(ctx); n != 0 {
		t.Errorf("Count after DeleteAll = %d, want 0", n)
	}
}

func TestMemory_TagQueries(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Put(ctx, "u1", testRecord("x", "users"))
	m.Put(ctx, "u2", testRecord("y", "users", "admins"))
	m.Put(ctx, "p1", testRecord("z", "posts"))

	keys, err := m.KeysByTag(ctx, "users", 0, 0)
	if err != nil {
		t.Fatalf("KeysByTag failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "u1" || keys[1] != "u2" {
		t.Errorf("KeysByTag(users) = %v, want [u1 u2]", keys)
	}

	keys, err = m.KeysByTags(ctx, []string{"admins", "posts"})
	if err != nil {
		t.Fatalf("KeysByTags failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "p1" || keys[1] != "u2" {
		t.Errorf("KeysByTags = %v, want [p1 u2]", keys)
	}
}

func TestMemory_Closed(t *testing.T) {
	m := NewMemory()
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ctx := context.Background()
	if err := m.Put(ctx, "k", testRecord("v")); !errors.Is(err, ErrClosed) {
		t.Errorf("Put after Close error = %v, want ErrClosed", err)
	}
	if _, _, err := m.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close error = %v, want ErrClosed", err)
	}
}

func TestRecord_ExpiryAndStaleness(t *testing.T) {
	now := time.Now()

	rec := Record{ExpireAt: now.Add(time.Hour), StaleAt: now.Add(time.Minute)}
	if rec.Expired(now) {
		t.Error("record should not be expired before ExpireAt")
	}
	if rec.Stale(now) {
		t.Error("record should not be stale before StaleAt")
	}
	if !rec.Stale(now.Add(2 * time.Minute)) {
		t.Error("record should be stale after StaleAt")
	}
	if !rec.Expired(now.Add(2 * time.Hour)) {
		t.Error("record should be expired after ExpireAt")
	}
	// Past hard expiry a record is expired, not stale.
	if rec.Stale(now.Add(2 * time.Hour)) {
		t.Error("expired record must not report stale")
	}

	// Zero times mean never.
	var forever Record
	if forever.Expired(now) || forever.Stale(now) {
		t.Error("zero-valued expiry fields must mean no expiry")
	}
}
