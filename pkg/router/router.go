package router

import (
	"time"

	"github.com/menmos/menmosd/pkg/menmoserr"
	"github.com/menmos/menmosd/pkg/types"
)

// ForgetDuration is the fixed interval after which a storage node that
// has not checked in is considered stale, per §3's node lifecycle.
const ForgetDuration = 60 * time.Second

// Registry is the storage-node registry Router checks candidates
// against. storagemap.Store satisfies it.
type Registry interface {
	GetNode(nodeID string) (types.StorageNodeInfo, time.Time, bool)
}

// Router composes a selection Policy with a freshness filter over a
// node Registry: it never returns a node whose last check-in is older
// than ForgetDuration.
type Router struct {
	policy         Policy
	registry       Registry
	forgetDuration time.Duration

	// Now returns the current time; overridable in tests.
	Now func() time.Time
}

// New constructs a Router over policy and registry, using the fixed
// 60s forget duration.
func New(policy Policy, registry Registry) *Router {
	return &Router{
		policy:         policy,
		registry:       registry,
		forgetDuration: ForgetDuration,
		Now:            time.Now,
	}
}

// NewWithForgetDuration is like New but overrides the forget duration,
// for configuration or tests.
func NewWithForgetDuration(policy Policy, registry Registry, forgetDuration time.Duration) *Router {
	r := New(policy, registry)
	r.forgetDuration = forgetDuration
	return r
}

func (r *Router) isFresh(lastSeen time.Time) bool {
	return r.Now().Sub(lastSeen) < r.forgetDuration
}

// AddNode registers info with the underlying policy.
func (r *Router) AddNode(info types.StorageNodeInfo) {
	r.policy.AddNode(info)
}

// UpdateNode refreshes info with the underlying policy.
func (r *Router) UpdateNode(info types.StorageNodeInfo) {
	r.policy.UpdateNode(info)
}

// RouteBlob asks the policy for a candidate, retrying with PruneLast
// whenever the candidate is missing from the registry or stale. Fails
// with NoStorageNode once the policy runs out of candidates.
func (r *Router) RouteBlob() (string, error) {
	for {
		candidate, ok := r.policy.GetCandidate()
		if !ok {
			return "", menmoserr.New(menmoserr.NoStorageNode, "no storage node available")
		}
		if _, lastSeen, found := r.registry.GetNode(candidate); found && r.isFresh(lastSeen) {
			return candidate, nil
		}
		r.policy.PruneLast()
	}
}

// GetNode returns nodeID's registration if it is known and fresh.
func (r *Router) GetNode(nodeID string) (types.StorageNodeInfo, bool) {
	info, lastSeen, found := r.registry.GetNode(nodeID)
	if !found || !r.isFresh(lastSeen) {
		return types.StorageNodeInfo{}, false
	}
	return info, true
}
