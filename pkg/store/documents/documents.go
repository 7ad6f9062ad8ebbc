// Package documents implements the document store: the bidirectional
// blob-id <-> doc-index allocation built on one idmap.Map named
// "document", plus the "all live documents" mask used by the query
// evaluator as the universe for NOT. This is component C of the
// indexing layer.
package documents

import (
	"github.com/menmos/menmosd/pkg/bitvector"
	"github.com/menmos/menmosd/pkg/store/idmap"
)

// Store is the document store.
type Store struct {
	ids *idmap.Map
}

// New wraps an idmap.Map as a document store.
func New(ids *idmap.Map) *Store {
	return &Store{ids: ids}
}

// Insert assigns (or returns the existing) DocIndex for blobID.
func (s *Store) Insert(blobID string) (uint32, error) {
	return s.ids.GetOrAssign([]byte(blobID))
}

// Get looks up blobID's DocIndex without allocating.
func (s *Store) Get(blobID string) (uint32, bool, error) {
	return s.ids.Get([]byte(blobID))
}

// Lookup returns the blob id assigned to a DocIndex, if any.
func (s *Store) Lookup(idx uint32) (string, bool, error) {
	key, ok, err := s.ids.Lookup(idx)
	if err != nil || !ok {
		return "", ok, err
	}
	return string(key), true, nil
}

// Delete removes blobID and recycles its DocIndex.
func (s *Store) Delete(blobID string) (uint32, bool, error) {
	return s.ids.Delete([]byte(blobID))
}

// Clear removes every document.
func (s *Store) Clear() error {
	return s.ids.Clear()
}

// Flush is a no-op placeholder maintained for interface symmetry with the
// other stores the indexer flushes concurrently; bbolt commits durably on
// every Update, so there is nothing buffered to flush here.
func (s *Store) Flush() error {
	return nil
}

// GetAllDocumentsMask returns a bitvector over the indices below
// id_count() with a 1 bit at every live DocIndex and 0 at every recycled
// one. It serves as
// the universe the query evaluator uses for NOT.
func (s *Store) GetAllDocumentsMask() (*bitvector.Bitvector, error) {
	mask := bitvector.New()
	count := s.ids.IDCount()
	for i := uint32(0); i < count; i++ {
		if _, ok, err := s.Lookup(i); err != nil {
			return nil, err
		} else if ok {
			mask.Set(i)
		}
	}
	return mask, nil
}
