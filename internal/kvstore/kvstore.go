// Package kvstore is the on-disk KVStore (spec §4.4): a single embedded
// database file holding one bucket per Index variant, each keyed by the
// index's term key and valued with a snappy-compressed serialized posting
// list.
//
// The bucket layout (one table per index variant, addressed by name) mirrors
// the teacher's per-table configuration registry; the backing engine is
// bbolt rather than the teacher's mdbx, since bbolt's bucket/cursor API is
// the one the example corpus actually exercises (see DESIGN.md).
package kvstore

import (
	"bytes"
	"fmt"

	"github.com/golang/snappy"
	arc "github.com/hashicorp/golang-lru/arc/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/fredrikaaa/chronoidx/internal/xerr"
)

// Store wraps a bbolt database, providing put/get/range-scan plus a
// bulk-load mode for the WRITING phase of index generation.
type Store struct {
	db        *bolt.DB
	readCache *arc.ARCCache[cacheKey, []byte]
	bulkLoad  bool
}

type cacheKey struct {
	bucket string
	key    string
}

// Options configures Store's construction.
type Options struct {
	// ReadCacheSize is the number of decompressed values cached via an ARC
	// policy (hashicorp/golang-lru/arc/v2), shared across all buckets. Zero
	// disables the cache.
	ReadCacheSize int
}

// Open opens (creating if absent) the KVStore file at path.
func Open(path string, opts Options) (*Store, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{})
	if err != nil {
		return nil, xerr.New(xerr.KindStoreRead, "kvstore.Open", err)
	}
	s := &Store{db: db}
	if opts.ReadCacheSize > 0 {
		cache, err := arc.NewARC[cacheKey, []byte](opts.ReadCacheSize)
		if err != nil {
			return nil, fmt.Errorf("kvstore: construct read cache: %w", err)
		}
		s.readCache = cache
	}
	return s, nil
}

// Close releases the underlying file.
func (s *Store) Close() error { return s.db.Close() }

// EnsureBucket creates bucket (an Index variant's table) if absent.
func (s *Store) EnsureBucket(bucket string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		return xerr.New(xerr.KindStoreWrite, "kvstore.EnsureBucket", err)
	}
	return nil
}

// BeginBulkLoad switches every bucket to a fill-percent tuned for
// sequential, monotonically increasing key inserts (the WRITING phase
// streams keys in sorted order off the ExternalMerger), mirroring the
// teacher's sequential-append table flag.
func (s *Store) BeginBulkLoad() { s.bulkLoad = true }

// EndBulkLoad restores normal fill behavior for subsequent random access.
func (s *Store) EndBulkLoad() { s.bulkLoad = false }

// Put stores value (already the caller's serialized posting list bytes)
// under key in bucket, snappy-compressing it on write.
func (s *Store) Put(bucket, key string, value []byte) error {
	compressed := snappy.Encode(nil, value)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucket)
		}
		if s.bulkLoad {
			b.FillPercent = 0.95
		}
		return b.Put([]byte(key), compressed)
	})
	if err != nil {
		return xerr.New(xerr.KindStoreWrite, "kvstore.Put", err)
	}
	if s.readCache != nil {
		s.readCache.Remove(cacheKey{bucket, key})
	}
	return nil
}

// WriteBatch stores every (key, value) pair in entries within a single
// transaction, the bulk unit the IndexGenerator's WRITING phase uses to
// drain a merged run into the store.
func (s *Store) WriteBatch(bucket string, entries map[string][]byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucket)
		}
		if s.bulkLoad {
			b.FillPercent = 0.95
		}
		for k, v := range entries {
			if err := b.Put([]byte(k), snappy.Encode(nil, v)); err != nil {
				return fmt.Errorf("put %q: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return xerr.New(xerr.KindStoreWrite, "kvstore.WriteBatch", err)
	}
	return nil
}

// Get returns the decompressed value for key in bucket, or ok=false if
// absent.
func (s *Store) Get(bucket, key string) ([]byte, bool, error) {
	if s.readCache != nil {
		if v, ok := s.readCache.Get(cacheKey{bucket, key}); ok {
			return v, true, nil
		}
	}

	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, xerr.New(xerr.KindStoreRead, "kvstore.Get", err)
	}
	if raw == nil {
		return nil, false, nil
	}
	value, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, false, xerr.New(xerr.KindCorruptPosting, "kvstore.Get", err)
	}
	if s.readCache != nil {
		s.readCache.Add(cacheKey{bucket, key}, value)
	}
	return value, true, nil
}

// RangeScan invokes fn for every key in bucket with the given prefix, in
// ascending key order, stopping early if fn returns an error.
func (s *Store) RangeScan(bucket string, prefix []byte, fn func(key string, value []byte) error) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			value, err := snappy.Decode(nil, v)
			if err != nil {
				return xerr.New(xerr.KindCorruptPosting, "kvstore.RangeScan", fmt.Errorf("key %q: %w", k, err))
			}
			if err := fn(string(k), value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if xe, ok := err.(*xerr.Error); ok {
			return xe
		}
		return xerr.New(xerr.KindStoreRead, "kvstore.RangeScan", err)
	}
	return nil
}

// RecordCount returns the number of keys in bucket, used by the verify
// subcommand to check a manifest's record_count.
func (s *Store) RecordCount(bucket string) (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		n = b.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, xerr.New(xerr.KindStoreRead, "kvstore.RecordCount", err)
	}
	return n, nil
}
