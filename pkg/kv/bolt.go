package kv

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// DB opens the directory node's embedded bbolt database and hands out
// named Trees backed by top-level buckets.
type DB struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the bbolt database at path.
func Open(path string) (*DB, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open kv database: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database file.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping opens and immediately discards a read transaction, confirming
// the database file is still readable. Used by the operational HTTP
// surface's readiness check.
func (d *DB) Ping() error {
	return d.db.View(func(tx *bolt.Tx) error { return nil })
}

// Tree returns a Tree backed by the named bucket, creating it if this is
// the first use of that name.
func (d *DB) Tree(name string) (Tree, error) {
	bucket := []byte(name)
	err := d.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket %q: %w", name, err)
	}
	return &boltTree{db: d.db, bucket: bucket}, nil
}

type boltTree struct {
	db     *bolt.DB
	bucket []byte
}

func (t *boltTree) Get(key []byte) ([]byte, error) {
	var value []byte
	err := t.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.bucket)
		if v := b.Get(key); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	return value, err
}

func (t *boltTree) Put(key, value []byte) error {
	return t.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(t.bucket).Put(key, value)
	})
}

func (t *boltTree) Delete(key []byte) error {
	return t.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(t.bucket).Delete(key)
	})
}

func (t *boltTree) ForEach(fn func(key, value []byte) error) error {
	return t.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(t.bucket).ForEach(fn)
	})
}

func (t *boltTree) ScanPrefix(prefix []byte, fn func(key, value []byte) error) error {
	return t.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(t.bucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			if err := fn(k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Merge runs the read-modify-write under a single write transaction.
// bbolt serializes writers, so this gives atomic, commutative-per-key
// merge semantics without a separate lock around the tree.
func (t *boltTree) Merge(key []byte, fn func(old []byte) ([]byte, error)) error {
	return t.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(t.bucket)
		old := b.Get(key)
		var oldCopy []byte
		if old != nil {
			oldCopy = append([]byte(nil), old...)
		}
		newValue, err := fn(oldCopy)
		if err != nil {
			return err
		}
		if newValue == nil {
			return b.Delete(key)
		}
		return b.Put(key, newValue)
	})
}

func (t *boltTree) Clear() error {
	return t.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(t.bucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(t.bucket)
		return err
	})
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}
