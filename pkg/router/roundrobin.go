package router

import (
	"sync"

	"github.com/menmos/menmosd/pkg/types"
)

// RoundRobin is the Policy that maintains an ordered ring of node ids,
// rotating through them on every GetCandidate call.
type RoundRobin struct {
	mu   sync.Mutex
	ring []string
}

// NewRoundRobin returns an empty round-robin policy.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// AddNode appends the node to the ring if it is not already present.
// Re-registration of a known node is a no-op.
func (p *RoundRobin) AddNode(info types.StorageNodeInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range p.ring {
		if id == info.ID {
			return
		}
	}
	p.ring = append(p.ring, info.ID)
}

// UpdateNode is a no-op: the round-robin ring carries no per-node state
// beyond membership and position.
func (p *RoundRobin) UpdateNode(info types.StorageNodeInfo) {}

// GetCandidate pops the front of the ring and pushes it to the back,
// returning the id that was at the front.
func (p *RoundRobin) GetCandidate() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.ring) == 0 {
		return "", false
	}
	id := p.ring[0]
	p.ring = append(p.ring[1:], id)
	return id, true
}

// PruneLast removes the id most recently returned by GetCandidate — it
// was rotated to the back of the ring, so that is where it is found.
func (p *RoundRobin) PruneLast() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.ring) == 0 {
		return "", false
	}
	last := len(p.ring) - 1
	id := p.ring[last]
	p.ring = p.ring[:last]
	return id, true
}
