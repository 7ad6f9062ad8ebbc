package router

import (
	"sync"

	"github.com/menmos/menmosd/pkg/types"
)

// LeastFilled is the Policy that always picks the node with the most
// available space.
type LeastFilled struct {
	mu        sync.Mutex
	available map[string]uint64
}

// NewLeastFilled returns an empty least-filled policy.
func NewLeastFilled() *LeastFilled {
	return &LeastFilled{available: make(map[string]uint64)}
}

// AddNode records the node's available space.
func (p *LeastFilled) AddNode(info types.StorageNodeInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.available[info.ID] = info.AvailableSpace
}

// UpdateNode overwrites the node's available space.
func (p *LeastFilled) UpdateNode(info types.StorageNodeInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.available[info.ID] = info.AvailableSpace
}

// GetCandidate returns the node with the most available space.
func (p *LeastFilled) GetCandidate() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.argmaxLocked()
}

// PruneLast deletes the current argmax — the same node GetCandidate
// would currently return.
func (p *LeastFilled) PruneLast() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.argmaxLocked()
	if !ok {
		return "", false
	}
	delete(p.available, id)
	return id, true
}

func (p *LeastFilled) argmaxLocked() (string, bool) {
	var bestID string
	var bestSpace uint64
	var found bool
	for id, space := range p.available {
		if !found || space > bestSpace {
			bestID = id
			bestSpace = space
			found = true
		}
	}
	return bestID, found
}
