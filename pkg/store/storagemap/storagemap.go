// Package storagemap implements the storage-mapping store (component E):
// the persistent blob-id -> storage-node-id assignment, plus the
// in-memory registry of known storage nodes and when they last checked
// in. The registry is a plain mutex-guarded map rather than the
// lock-free structure the original runtime used, since Go's blocking KV
// calls never need to yield to an async scheduler the way that design
// did.
package storagemap

import (
	"sort"
	"sync"
	"time"

	"github.com/menmos/menmosd/pkg/kv"
	"github.com/menmos/menmosd/pkg/types"
)

// Store maps blob ids to the storage node holding them, and tracks the
// set of storage nodes known to the directory.
type Store struct {
	blobNode kv.Tree // blob_id -> storage_node_id

	mu    sync.Mutex
	nodes map[string]nodeEntry
}

type nodeEntry struct {
	info     types.StorageNodeInfo
	lastSeen time.Time
}

// New wraps blobNode as a storage-mapping store with an empty node
// registry.
func New(blobNode kv.Tree) *Store {
	return &Store{
		blobNode: blobNode,
		nodes:    make(map[string]nodeEntry),
	}
}

// GetNodeForBlob returns the storage node id holding blobID, if known.
func (s *Store) GetNodeForBlob(blobID string) (string, bool, error) {
	raw, err := s.blobNode.Get([]byte(blobID))
	if err != nil {
		return "", false, err
	}
	if raw == nil {
		return "", false, nil
	}
	return string(raw), true, nil
}

// SetNodeForBlob assigns blobID to nodeID, returning the previous
// assignment if any. Used by the indexer to roll back a failed move.
func (s *Store) SetNodeForBlob(blobID, nodeID string) (string, bool, error) {
	prev, hadPrev, err := s.GetNodeForBlob(blobID)
	if err != nil {
		return "", false, err
	}
	if err := s.blobNode.Put([]byte(blobID), []byte(nodeID)); err != nil {
		return "", false, err
	}
	return prev, hadPrev, nil
}

// DeleteBlob removes blobID's storage assignment.
func (s *Store) DeleteBlob(blobID string) error {
	return s.blobNode.Delete([]byte(blobID))
}

// WriteNode records or refreshes a storage node's check-in, stamping its
// last-seen time as now.
func (s *Store) WriteNode(info types.StorageNodeInfo, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[info.ID] = nodeEntry{info: info, lastSeen: now}
}

// DeleteNode forgets a storage node entirely.
func (s *Store) DeleteNode(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, nodeID)
}

// GetNode returns a storage node's last known info and check-in time.
func (s *Store) GetNode(nodeID string) (types.StorageNodeInfo, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.nodes[nodeID]
	return e.info, e.lastSeen, ok
}

// GetAllNodes returns every known storage node, ordered by id for
// deterministic snapshots (the rebuild queue in particular relies on a
// stable order across calls). The slice is a snapshot; mutating the
// registry afterward does not affect it.
func (s *Store) GetAllNodes() []types.StorageNodeInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.StorageNodeInfo, 0, len(s.nodes))
	for _, e := range s.nodes {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Clear removes every blob assignment and every registered node.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.nodes = make(map[string]nodeEntry)
	s.mu.Unlock()
	return s.blobNode.Clear()
}

// Flush is a no-op; bbolt commits every SetNodeForBlob/DeleteBlob
// durably as it happens. The in-memory node registry is never
// persisted, per §4.E.
func (s *Store) Flush() error {
	return nil
}
