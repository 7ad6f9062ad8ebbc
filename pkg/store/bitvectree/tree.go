// Package bitvectree implements the bitvector tree: an ordered map from
// opaque key bytes to a Bitvector of document indices, with an atomic
// "set bit i" merge. This is component A of the indexing layer — the
// primitive every inverted index (tags, fields, owner masks) is built on.
package bitvectree

import (
	"fmt"

	"github.com/menmos/menmosd/pkg/bitvector"
	"github.com/menmos/menmosd/pkg/kv"
)

// Tree is a bitvector tree over a single kv.Tree.
type Tree struct {
	kv kv.Tree
}

// New wraps kv as a bitvector tree.
func New(kv kv.Tree) *Tree {
	return &Tree{kv: kv}
}

// Insert atomically merges docIndex into the bitvector stored under key.
// Concurrent inserts to the same key never lose bits: the read-modify-
// write happens inside kv.Tree's Merge, a single KV transaction.
func (t *Tree) Insert(key []byte, docIndex uint32) error {
	return t.kv.Merge(key, func(old []byte) ([]byte, error) {
		bv, err := bitvector.FromBytes(old)
		if err != nil {
			// Corrupt deserialization is fatal: every value in this
			// tree was written by this component.
			panic(fmt.Sprintf("bitvectree: corrupt value for key %q: %v", key, err))
		}
		bv.Set(docIndex)
		return bv.Bytes()
	})
}

// Load returns the bitvector stored under key, or an empty one if key is
// absent.
func (t *Tree) Load(key []byte) (*bitvector.Bitvector, error) {
	raw, err := t.kv.Get(key)
	if err != nil {
		return nil, err
	}
	bv, err := bitvector.FromBytes(raw)
	if err != nil {
		panic(fmt.Sprintf("bitvectree: corrupt value for key %q: %v", key, err))
	}
	return bv, nil
}

// PurgeKey clears docIndex's bit under key. If the resulting bitvector is
// empty, the key is deleted. No-op if the key was already absent.
func (t *Tree) PurgeKey(key []byte, docIndex uint32) error {
	return t.kv.Merge(key, func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, nil
		}
		bv, err := bitvector.FromBytes(old)
		if err != nil {
			panic(fmt.Sprintf("bitvectree: corrupt value for key %q: %v", key, err))
		}
		bv.Clear(docIndex)
		if bv.IsEmpty() {
			return nil, nil
		}
		return bv.Bytes()
	})
}

// Purge clears docIndex's bit across every key in the tree. O(n_keys).
func (t *Tree) Purge(docIndex uint32) error {
	var keys [][]byte
	if err := t.kv.ForEach(func(k, v []byte) error {
		keys = append(keys, append([]byte(nil), k...))
		return nil
	}); err != nil {
		return err
	}
	for _, key := range keys {
		if err := t.PurgeKey(key, docIndex); err != nil {
			return err
		}
	}
	return nil
}

// Iter calls fn for every (key, bitvector) pair in the tree.
func (t *Tree) Iter(fn func(key []byte, bv *bitvector.Bitvector) error) error {
	return t.kv.ForEach(func(k, v []byte) error {
		bv, err := bitvector.FromBytes(v)
		if err != nil {
			panic(fmt.Sprintf("bitvectree: corrupt value for key %q: %v", k, err))
		}
		return fn(k, bv)
	})
}

// ScanPrefix calls fn for every (key, bitvector) pair whose key starts
// with prefix, in ordered-map order.
func (t *Tree) ScanPrefix(prefix []byte, fn func(key []byte, bv *bitvector.Bitvector) error) error {
	return t.kv.ScanPrefix(prefix, func(k, v []byte) error {
		bv, err := bitvector.FromBytes(v)
		if err != nil {
			panic(fmt.Sprintf("bitvectree: corrupt value for key %q: %v", k, err))
		}
		return fn(k, bv)
	})
}

// Clear removes every entry in the tree.
func (t *Tree) Clear() error {
	return t.kv.Clear()
}

// Flush is a no-op placeholder: bbolt commits every Insert/PurgeKey
// durably as it happens, so there is nothing buffered here. Kept so
// callers that flush several trees concurrently have a uniform method
// to call across the store layer.
func (t *Tree) Flush() error {
	return nil
}
