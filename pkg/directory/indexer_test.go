package directory

import (
	"testing"

	"github.com/menmos/menmosd/pkg/kv"
	"github.com/menmos/menmosd/pkg/menmoserr"
	"github.com/menmos/menmosd/pkg/router"
	"github.com/menmos/menmosd/pkg/store/documents"
	"github.com/menmos/menmosd/pkg/store/idmap"
	"github.com/menmos/menmosd/pkg/store/metadata"
	"github.com/menmos/menmosd/pkg/store/routing"
	"github.com/menmos/menmosd/pkg/store/storagemap"
	"github.com/menmos/menmosd/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testHarness struct {
	documents      *documents.Store
	metadata       *metadata.Store
	storageMapping *storagemap.Store
	routing        *routing.Store
	router         *router.Router
	query          *QueryService
	indexer        *IndexerService
	admin          *AdminService
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	db, err := kv.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tree := func(name string) kv.Tree {
		tr, err := db.Tree(name)
		require.NoError(t, err)
		return tr
	}

	docIDs, err := idmap.Open(tree("document-fwd"), tree("document-rev"), tree("document-recycling"))
	require.NoError(t, err)
	docStore := documents.New(docIDs)

	fieldIDs, err := idmap.Open(tree("field-fwd"), tree("field-rev"), tree("field-recycling"))
	require.NoError(t, err)
	metaStore := metadata.New(tree("meta"), tree("tags"), tree("fields"), tree("user-mask"), fieldIDs)

	storageMapping := storagemap.New(tree("dispatch"))
	routingStore := routing.New(tree("routing"))

	policy := router.NewRoundRobin()
	r := router.New(policy, storageMapping)

	queryService := NewQueryService(docStore, metaStore, storageMapping)
	indexer := NewIndexerService(docStore, metaStore, storageMapping, routingStore, r)
	admin := NewAdminService(indexer, routingStore, queryService, r, storageMapping)

	return &testHarness{
		documents:      docStore,
		metadata:       metaStore,
		storageMapping: storageMapping,
		routing:        routingStore,
		router:         r,
		query:          queryService,
		indexer:        indexer,
		admin:          admin,
	}
}

// registerNode drives the same check-in path a real storage node's
// registration call would (AdminService.RegisterStorageNode), rather
// than poking the registry and policy directly, so every scenario test
// exercises the production wiring between the two.
func (h *testHarness) registerNode(id string) {
	h.admin.RegisterStorageNode(types.StorageNodeInfo{ID: id})
}

func blobInfo(owner string, tags []string, fields map[string]string) types.BlobInfo {
	return types.BlobInfo{
		Owner: owner,
		Meta: types.BlobMeta{
			Tags:   tags,
			Fields: fields,
		},
	}
}

// TestScenarioInsertQueryDelete is scenario S1 from the design's
// testable properties.
func TestScenarioInsertQueryDelete(t *testing.T) {
	h := newTestHarness(t)
	h.registerNode("nodeX")

	node, err := h.indexer.PickNodeForBlob("b1", blobInfo("alice", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, "nodeX", node)

	_, err = h.indexer.IndexBlob("b1", blobInfo("alice", []string{"photo", "beach"}, map[string]string{"year": "2024"}), node)
	require.NoError(t, err)

	resp, err := h.query.Query(types.Query{Expression: "photo && year=2024", Size: 30}, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, resp.Count)
	assert.EqualValues(t, 1, resp.Total)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "b1", resp.Hits[0].ID)

	resp, err = h.query.Query(types.Query{Expression: "photo", Size: 30}, "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 0, resp.Count)
	assert.EqualValues(t, 0, resp.Total)
	assert.Empty(t, resp.Hits)

	_, err = h.indexer.DeleteBlob("b1", "nodeX")
	require.NoError(t, err)

	resp, err = h.query.Query(types.Query{Expression: "photo && year=2024", Size: 30}, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 0, resp.Count)
}

// TestScenarioDiffPurgeOnUpdate is scenario S2.
func TestScenarioDiffPurgeOnUpdate(t *testing.T) {
	h := newTestHarness(t)
	h.registerNode("nodeX")

	_, err := h.indexer.IndexBlob("b1", blobInfo("alice", []string{"a", "b"}, nil), "nodeX")
	require.NoError(t, err)
	_, err = h.indexer.IndexBlob("b1", blobInfo("alice", []string{"a", "c"}, nil), "nodeX")
	require.NoError(t, err)

	bv, err := h.metadata.LoadTag("b")
	require.NoError(t, err)
	assert.EqualValues(t, 0, bv.PopCount())

	bv, err = h.metadata.LoadTag("a")
	require.NoError(t, err)
	assert.EqualValues(t, 1, bv.PopCount())

	bv, err = h.metadata.LoadTag("c")
	require.NoError(t, err)
	assert.EqualValues(t, 1, bv.PopCount())
}

// TestScenarioNotWithRecycling is scenario S3.
func TestScenarioNotWithRecycling(t *testing.T) {
	h := newTestHarness(t)
	h.registerNode("nodeX")

	for _, id := range []string{"b1", "b2", "b3"} {
		_, err := h.indexer.IndexBlob(id, blobInfo("alice", nil, nil), "nodeX")
		require.NoError(t, err)
	}
	_, err := h.indexer.DeleteBlob("b2", "nodeX")
	require.NoError(t, err)

	resp, err := h.query.Query(types.Query{Expression: "!bogus", Size: 30}, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 2, resp.Total)
	var ids []string
	for _, hit := range resp.Hits {
		ids = append(ids, hit.ID)
	}
	assert.ElementsMatch(t, []string{"b1", "b3"}, ids)
}

func TestIndexBlobRollsBackOnInvalidMetadata(t *testing.T) {
	h := newTestHarness(t)
	h.registerNode("nodeX")

	_, err := h.indexer.IndexBlob("b1", blobInfo("alice", []string{"has$dollar"}, nil), "nodeX")
	require.Error(t, err)
	assert.True(t, menmoserr.Is(err, menmoserr.InvalidArgument))

	// The storage-mapping write must have been rolled back: no node
	// assignment should remain for a blob whose metadata insert failed.
	_, ok, err := h.storageMapping.GetNodeForBlob("b1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetBlobMetaHidesOtherOwners(t *testing.T) {
	h := newTestHarness(t)
	h.registerNode("nodeX")

	_, err := h.indexer.IndexBlob("b1", blobInfo("alice", nil, nil), "nodeX")
	require.NoError(t, err)

	info, err := h.indexer.GetBlobMeta("b1", "alice")
	require.NoError(t, err)
	require.NotNil(t, info)

	info, err = h.indexer.GetBlobMeta("b1", "bob")
	require.NoError(t, err)
	assert.Nil(t, info)

	info, err = h.indexer.GetBlobMeta("nonexistent", "alice")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestDeleteBlobWrongNodeFails(t *testing.T) {
	h := newTestHarness(t)
	h.registerNode("nodeX")
	h.registerNode("nodeY")

	_, err := h.indexer.IndexBlob("b1", blobInfo("alice", nil, nil), "nodeX")
	require.NoError(t, err)

	_, err = h.indexer.DeleteBlob("b1", "nodeY")
	require.Error(t, err)
	assert.True(t, menmoserr.Is(err, menmoserr.WrongNode))
}
