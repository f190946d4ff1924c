// Package badgerstore implements the storage.Adapter contract on BadgerDB,
// giving the cache a durable embedded backend. Expiry and eviction stay
// with the engine; Badger only provides the key-value persistence.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Liv-Coder/data-cache-x-sub001/storage"
)

// Store is a BadgerDB-backed storage.Adapter.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a Badger database at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", storage.ErrBackend, path, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a non-persistent Badger instance. Intended for tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open in-memory: %v", storage.ErrBackend, err)
	}
	return &Store{db: db}, nil
}

// Put stores or overwrites a record.
func (s *Store) Put(ctx context.Context, key string, rec storage.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode record %q: %v", storage.ErrBackend, key, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("%w: put %q: %v", storage.ErrBackend, key, err)
	}
	return nil
}

// Get retrieves a record. Returns (zero, false, nil) on miss.
func (s *Store) Get(ctx context.Context, key string) (storage.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return storage.Record{}, false, err
	}
	var rec storage.Record
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return storage.Record{}, false, fmt.Errorf("%w: get %q: %v", storage.ErrBackend, key, err)
	}
	return rec, found, nil
}

// Delete removes a record. Idempotent.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("%w: delete %q: %v", storage.ErrBackend, key, err)
	}
	return nil
}

// Clear removes all records.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("%w: clear: %v", storage.ErrBackend, err)
	}
	return nil
}

// Contains reports raw presence.
func (s *Store) Contains(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: contains %q: %v", storage.ErrBackend, key, err)
	}
	return found, nil
}

// Keys returns a sorted page of keys. Badger iterates in key order, so
// pages are stable across calls.
func (s *Store) Keys(ctx context.Context, limit, offset int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		skipped := 0
		for it.Rewind(); it.Valid(); it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if limit > 0 && len(keys) >= limit {
				break
			}
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: keys: %v", storage.ErrBackend, err)
	}
	return keys, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", storage.ErrBackend, err)
	}
	return count, nil
}

// PutAll stores multiple records in one transaction per batch.
func (s *Store) PutAll(ctx context.Context, recs map[string]storage.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for key, rec := range recs {
		data, err := msgpack.Marshal(rec)
		if err != nil {
			return fmt.Errorf("%w: encode record %q: %v", storage.ErrBackend, key, err)
		}
		if err := wb.Set([]byte(key), data); err != nil {
			return fmt.Errorf("%w: batch put %q: %v", storage.ErrBackend, key, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("%w: batch flush: %v", storage.ErrBackend, err)
	}
	return nil
}

// GetAll retrieves the present subset of keys.
func (s *Store) GetAll(ctx context.Context, keys []string) (map[string]storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]storage.Record, len(keys))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get([]byte(key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var rec storage.Record
			if err := item.Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out[key] = rec
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get all: %v", storage.ErrBackend, err)
	}
	return out, nil
}

// DeleteAll removes multiple records.
func (s *Store) DeleteAll(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range keys {
		if err := wb.Delete([]byte(key)); err != nil {
			return fmt.Errorf("%w: batch delete %q: %v", storage.ErrBackend, key, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("%w: batch flush: %v", storage.ErrBackend, err)
	}
	return nil
}

// ContainsKeys reports raw presence per key.
func (s *Store) ContainsKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(keys))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			_, err := txn.Get([]byte(key))
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
				out[key] = false
			case err != nil:
				return err
			default:
				out[key] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: contains keys: %v", storage.ErrBackend, err)
	}
	return out, nil
}

// KeysByTag returns a sorted page of keys carrying the tag. Badger has no
// secondary indexes, so this scans records and filters on the decoded tags.
func (s *Store) KeysByTag(ctx context.Context, tag string, limit, offset int) ([]string, error) {
	keys, err := s.keysMatching(ctx, func(rec storage.Record) bool {
		return rec.HasTag(tag)
	})
	if err != nil {
		return nil, err
	}
	if offset >= len(keys) {
		return nil, nil
	}
	keys = keys[offset:]
	if limit > 0 && limit < len(keys) {
		keys = keys[:limit]
	}
	return keys, nil
}

// KeysByTags returns the sorted keys carrying any of the tags.
func (s *Store) KeysByTags(ctx context.Context, tags []string) ([]string, error) {
	return s.keysMatching(ctx, func(rec storage.Record) bool {
		for _, tag := range tags {
			if rec.HasTag(tag) {
				return true
			}
		}
		return false
	})
}

func (s *Store) keysMatching(ctx context.Context, match func(storage.Record) bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var rec storage.Record
			if err := item.Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			if match(rec) {
				keys = append(keys, string(item.KeyCopy(nil)))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: tag scan: %v", storage.ErrBackend, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", storage.ErrBackend, err)
	}
	return nil
}

// Ensure Store implements the storage contracts.
var (
	_ storage.Adapter    = (*Store)(nil)
	_ storage.TagQuerier = (*Store)(nil)
)
