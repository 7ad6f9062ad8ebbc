// Package idmap implements the ID map: an ordered map from arbitrary
// byte keys to dense u32 ids, with recycling of freed ids. This is
// component B of the indexing layer, underlying both the document store
// and the metadata store's field-name interner.
package idmap

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/menmos/menmosd/pkg/kv"
)

// Map is an ID map backed by three kv.Trees: forward (key -> id),
// reverse (id -> key) and recycling (ordered set of freed ids).
type Map struct {
	fwd       kv.Tree
	rev       kv.Tree
	recycling kv.Tree

	// mu serializes get_or_assign/delete so allocation and recycling
	// decisions are made against a consistent view; the individual kv
	// operations are already safe, but the allocate-or-recycle decision
	// spans more than one of them.
	mu     sync.Mutex
	nextID uint32
}

// Open constructs a Map over the given trees, seeding the next-id counter
// from the highest key present in the reverse tree at open.
func Open(fwd, rev, recycling kv.Tree) (*Map, error) {
	m := &Map{fwd: fwd, rev: rev, recycling: recycling}

	var maxID uint32
	var sawAny bool
	if err := rev.ForEach(func(k, v []byte) error {
		id := decodeID(k)
		if !sawAny || id > maxID {
			maxID = id
			sawAny = true
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to scan reverse tree: %w", err)
	}

	if sawAny {
		m.nextID = maxID + 1
	}
	return m, nil
}

func encodeID(id uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, id)
	return buf
}

func decodeID(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf)
}

// smallestRecycled pops and returns the smallest id in the recycling set,
// or (0, false) if it is empty.
func (m *Map) smallestRecycled() (uint32, bool, error) {
	var found bool
	var smallest uint32
	var smallestKey []byte
	if err := m.recycling.ForEach(func(k, v []byte) error {
		id := decodeID(k)
		if !found || id < smallest {
			found = true
			smallest = id
			smallestKey = append([]byte(nil), k...)
		}
		return nil
	}); err != nil {
		return 0, false, err
	}
	if !found {
		return 0, false, nil
	}
	if err := m.recycling.Delete(smallestKey); err != nil {
		return 0, false, err
	}
	return smallest, true, nil
}

// GetOrAssign returns the existing id for key, or allocates a new one:
// the smallest recycled id if any exist, otherwise the next unused id.
func (m *Map) GetOrAssign(key []byte) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if raw, err := m.fwd.Get(key); err != nil {
		return 0, err
	} else if raw != nil {
		return decodeID(raw), nil
	}

	id, recycled, err := m.smallestRecycled()
	if err != nil {
		return 0, err
	}
	if !recycled {
		id = m.nextID
		m.nextID++
	}

	if err := m.fwd.Put(key, encodeID(id)); err != nil {
		return 0, err
	}
	if err := m.rev.Put(encodeID(id), key); err != nil {
		return 0, err
	}
	return id, nil
}

// Get looks up key without allocating.
func (m *Map) Get(key []byte) (uint32, bool, error) {
	raw, err := m.fwd.Get(key)
	if err != nil {
		return 0, false, err
	}
	if raw == nil {
		return 0, false, nil
	}
	return decodeID(raw), true, nil
}

// Lookup returns the key associated with id, if any.
func (m *Map) Lookup(id uint32) ([]byte, bool, error) {
	raw, err := m.rev.Get(encodeID(id))
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	return raw, true, nil
}

// Delete removes key from both directions and recycles its id.
func (m *Map) Delete(key []byte) (uint32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := m.fwd.Get(key)
	if err != nil {
		return 0, false, err
	}
	if raw == nil {
		return 0, false, nil
	}
	id := decodeID(raw)

	if err := m.fwd.Delete(key); err != nil {
		return 0, false, err
	}
	if err := m.rev.Delete(encodeID(id)); err != nil {
		return 0, false, err
	}
	if err := m.recycling.Put(encodeID(id), []byte{1}); err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// IDCount returns the number of ids ever issued (next_id).
func (m *Map) IDCount() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextID
}

// Clear removes every entry from all three backing trees and resets the
// next-id counter.
func (m *Map) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range []kv.Tree{m.fwd, m.rev, m.recycling} {
		if err := t.Clear(); err != nil {
			return err
		}
	}
	m.nextID = 0
	return nil
}
