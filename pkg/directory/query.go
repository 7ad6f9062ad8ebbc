package directory

import (
	"fmt"

	"github.com/menmos/menmosd/pkg/bitvector"
	"github.com/menmos/menmosd/pkg/metrics"
	"github.com/menmos/menmosd/pkg/query"
	"github.com/menmos/menmosd/pkg/store/documents"
	"github.com/menmos/menmosd/pkg/store/metadata"
	"github.com/menmos/menmosd/pkg/store/storagemap"
	"github.com/menmos/menmosd/pkg/types"
)

// QueryService implements the query evaluator (component G): parsing,
// evaluating and assembling a paginated, faceted response over the
// document and metadata stores, scoped to a caller's owner mask.
type QueryService struct {
	documents      *documents.Store
	metadata       *metadata.Store
	storageMapping *storagemap.Store
}

// NewQueryService wires a query service over the given stores.
func NewQueryService(d *documents.Store, m *metadata.Store, s *storagemap.Store) *QueryService {
	return &QueryService{documents: d, metadata: m, storageMapping: s}
}

func (q *QueryService) resolver() query.Resolver {
	return &storeResolver{documents: q.documents, metadata: q.metadata}
}

// evaluateScoped evaluates expr and ANDs the result with username's
// owner mask: owner scoping is applied here, once, rather than at every
// leaf, per §4.G.
func (q *QueryService) evaluateScoped(expr query.Expression, username string) (*bitvector.Bitvector, error) {
	matched, err := query.Evaluate(expr, q.resolver())
	if err != nil {
		return nil, err
	}
	userMask, err := q.metadata.LoadUserMask(username)
	if err != nil {
		return nil, err
	}
	return bitvector.And(matched, userMask), nil
}

// Query parses qr.Expression, evaluates it scoped to username, and
// assembles the paginated, optionally faceted response.
func (q *QueryService) Query(qr types.Query, username string) (types.QueryResponse, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.QueryDuration)

	expr, err := query.Parse(qr.Expression)
	if err != nil {
		return types.QueryResponse{}, err
	}

	result, err := q.evaluateScoped(expr, username)
	if err != nil {
		return types.QueryResponse{}, err
	}

	total := result.PopCount()
	metrics.QueryHitsTotal.Observe(float64(total))
	if total == 0 {
		return types.QueryResponse{Hits: []types.Hit{}}, nil
	}

	indices := result.ToSlice()
	from := uint64(qr.From)
	size := uint64(qr.Size)

	start := from
	if start > total-1 {
		start = total - 1
	}
	end := start + size
	if end > total {
		end = total
	}
	page := indices[start:end]

	hits := make([]types.Hit, 0, len(page))
	for _, idx := range page {
		info, err := q.metadata.Get(idx)
		if err != nil {
			return types.QueryResponse{}, err
		}
		if info == nil {
			panic(fmt.Sprintf("directory: set bit %d has no metadata record", idx))
		}
		blobID, ok, err := q.documents.Lookup(idx)
		if err != nil {
			return types.QueryResponse{}, err
		}
		if !ok {
			panic(fmt.Sprintf("directory: set bit %d has no document mapping", idx))
		}
		hits = append(hits, types.Hit{ID: blobID, Meta: info.Meta})
	}

	if qr.SortOrder == types.SortCreationDescending {
		for i, j := 0, len(hits)-1; i < j; i, j = i+1, j-1 {
			hits[i], hits[j] = hits[j], hits[i]
		}
	}

	var facets *types.FacetResponse
	if qr.Facets {
		tags, err := q.metadata.ListAllTags(result)
		if err != nil {
			return types.QueryResponse{}, err
		}
		meta, err := q.metadata.ListAllKVFields(nil, result)
		if err != nil {
			return types.QueryResponse{}, err
		}
		facets = &types.FacetResponse{Tags: tags, Meta: meta}
	}

	return types.QueryResponse{
		Count:  uint32(end - start),
		Total:  uint32(total),
		Hits:   hits,
		Facets: facets,
	}, nil
}

// QueryMoveRequests evaluates expr scoped to username, then returns the
// blob ids among the hits whose current storage-node assignment equals
// srcNode.
func (q *QueryService) QueryMoveRequests(expr query.Expression, username, srcNode string) ([]string, error) {
	result, err := q.evaluateScoped(expr, username)
	if err != nil {
		return nil, err
	}

	var blobIDs []string
	for _, idx := range result.ToSlice() {
		blobID, ok, err := q.documents.Lookup(idx)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		node, ok, err := q.storageMapping.GetNodeForBlob(blobID)
		if err != nil {
			return nil, err
		}
		if ok && node == srcNode {
			blobIDs = append(blobIDs, blobID)
		}
	}
	return blobIDs, nil
}
