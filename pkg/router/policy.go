package router

import "github.com/menmos/menmosd/pkg/types"

// Policy picks a candidate storage node id from among the nodes it has
// been told about. It knows nothing about freshness or the registry;
// Router layers that on top.
type Policy interface {
	// AddNode registers a newly seen node with the policy.
	AddNode(info types.StorageNodeInfo)

	// UpdateNode refreshes a previously registered node's policy-relevant
	// state (e.g. available space for LeastFilled).
	UpdateNode(info types.StorageNodeInfo)

	// GetCandidate returns the policy's current pick, if it has any
	// nodes at all.
	GetCandidate() (string, bool)

	// PruneLast removes the node most recently returned by GetCandidate,
	// used by Router when that candidate turns out to be stale or gone
	// from the registry.
	PruneLast() (string, bool)
}
