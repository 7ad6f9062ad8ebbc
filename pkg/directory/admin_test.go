package directory

import (
	"testing"

	"github.com/menmos/menmosd/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarioRoundRobinRouting is scenario S4.
func TestScenarioRoundRobinRouting(t *testing.T) {
	h := newTestHarness(t)
	h.registerNode("N1")
	h.registerNode("N2")
	h.registerNode("N3")

	var picks []string
	for i := 0; i < 4; i++ {
		node, err := h.indexer.PickNodeForBlob("irrelevant", blobInfo("nobody", nil, nil))
		require.NoError(t, err)
		picks = append(picks, node)
	}
	assert.Equal(t, []string{"N1", "N2", "N3", "N1"}, picks)
}

// TestScenarioMoveRequestEmission is scenario S6.
func TestScenarioMoveRequestEmission(t *testing.T) {
	h := newTestHarness(t)
	h.registerNode("N1")
	h.registerNode("N2")

	_, err := h.indexer.IndexBlob("b1", blobInfo("alice", nil, map[string]string{"city": "paris"}), "N1")
	require.NoError(t, err)

	require.NoError(t, h.routing.Set("alice", types.RoutingConfig{
		RoutingKey: "city",
		Routes:     map[string]string{"paris": "N2"},
	}))

	moveRequests, err := h.admin.GetMoveRequests("N1")
	require.NoError(t, err)
	require.Len(t, moveRequests, 1)
	assert.Equal(t, types.MoveRequest{BlobID: "b1", OwnerUsername: "alice", DestinationNode: "N2"}, moveRequests[0])

	state, err := h.routing.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, types.RoutingDirty, state.State)

	// Simulate the move completing: blob now lives on N2.
	_, _, err = h.storageMapping.SetNodeForBlob("b1", "N2")
	require.NoError(t, err)

	moveRequests, err = h.admin.GetMoveRequests("N1")
	require.NoError(t, err)
	assert.Empty(t, moveRequests)

	state, err = h.routing.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, types.RoutingClean, state.State)
}

// TestRegisterStorageNodeMakesNodeRoutable guards against the check-in
// path updating only the router's policy and leaving the storage-node
// registry (the source of truth RouteBlob's freshness filter reads)
// untouched, which would make every freshly registered node look stale
// and immediately pruned.
func TestRegisterStorageNodeMakesNodeRoutable(t *testing.T) {
	h := newTestHarness(t)

	assert.False(t, h.admin.RegisterStorageNode(types.StorageNodeInfo{ID: "N1"}))

	node, err := h.indexer.PickNodeForBlob("b1", blobInfo("alice", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, "N1", node)
}

func TestRebuildFlagProtocol(t *testing.T) {
	h := newTestHarness(t)
	h.registerNode("N1")
	h.registerNode("N2")

	require.NoError(t, h.admin.StartRebuild())

	assert.True(t, h.admin.RegisterStorageNode(types.StorageNodeInfo{ID: "N1"}))
	assert.False(t, h.admin.RegisterStorageNode(types.StorageNodeInfo{ID: "N2"}))

	h.admin.RebuildComplete("N1")
	assert.True(t, h.admin.RegisterStorageNode(types.StorageNodeInfo{ID: "N2"}))
}
