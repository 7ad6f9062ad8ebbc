package directory

import (
	"errors"
	"sync"
	"time"

	"github.com/menmos/menmosd/pkg/log"
	"github.com/menmos/menmosd/pkg/metrics"
	"github.com/menmos/menmosd/pkg/query"
	"github.com/menmos/menmosd/pkg/router"
	"github.com/menmos/menmosd/pkg/store/routing"
	"github.com/menmos/menmosd/pkg/store/storagemap"
	"github.com/menmos/menmosd/pkg/types"
)

// MoveRequestBatchSize is the default cap on how many MoveRequests
// GetMoveRequests returns per call, per §5's backpressure note. A
// deployment may override it via Config.Rebuild.BatchSize.
const MoveRequestBatchSize = 10

var errBatchFull = errors.New("directory: move-request batch full")

// AdminService implements component J: the rebuild and move-request
// controller. It detects dirty per-user routing configs, computes move
// lists per source node, and tracks the rebuild queue storage nodes
// drain from on check-in.
//
// There is no "registered_users" tree distinct from the routing store:
// every user with a routing configuration already has an entry there,
// and only those users can ever owe move requests, so the routing
// store's keyspace doubles as the user enumeration the rebuild loop
// needs.
type AdminService struct {
	indexer        *IndexerService
	routing        *routing.Store
	query          *QueryService
	router         *router.Router
	storageMapping *storagemap.Store

	batchSize int

	// Now returns the current time, stamped on every storage-node
	// check-in; overridable in tests.
	Now func() time.Time

	mu           sync.Mutex
	rebuildQueue []types.StorageNodeInfo
}

// NewAdminService wires an admin service over the indexer and its
// backing stores, using the default MoveRequestBatchSize cap.
func NewAdminService(
	indexer *IndexerService,
	rt *routing.Store,
	qs *QueryService,
	rtr *router.Router,
	sm *storagemap.Store,
) *AdminService {
	return NewAdminServiceWithBatchSize(indexer, rt, qs, rtr, sm, MoveRequestBatchSize)
}

// NewAdminServiceWithBatchSize is like NewAdminService but overrides the
// move-request batch size, per Config.Rebuild.BatchSize.
func NewAdminServiceWithBatchSize(
	indexer *IndexerService,
	rt *routing.Store,
	qs *QueryService,
	rtr *router.Router,
	sm *storagemap.Store,
	batchSize int,
) *AdminService {
	if batchSize <= 0 {
		batchSize = MoveRequestBatchSize
	}
	return &AdminService{
		indexer:        indexer,
		routing:        rt,
		query:          qs,
		router:         rtr,
		storageMapping: sm,
		batchSize:      batchSize,
		Now:            time.Now,
	}
}

// GetMoveRequests computes the MoveRequests storage node srcNode should
// act on: for every user with a dirty routing config whose routes send
// blobs away from srcNode, the blobs currently on srcNode that match
// that route. A user's config is marked Clean only when none of its
// routes has out-of-place blobs on srcNode. Capped at the service's
// batch size (MoveRequestBatchSize unless overridden) per call.
func (s *AdminService) GetMoveRequests(srcNode string) ([]types.MoveRequest, error) {
	var moveRequests []types.MoveRequest
	// usernames to mark Clean once iteration over the routing store's
	// read transaction has finished: routing.Iter holds a bbolt read
	// transaction open for its whole duration, and MarkClean opens a
	// write transaction on the same DB, which deadlocks if invoked from
	// inside the Iter callback.
	var toMarkClean []string

	err := s.routing.Iter(func(username string, state types.RoutingConfigState) error {
		if state.State == types.RoutingClean {
			return nil
		}

		anyOutOfPlace := false
		for fieldValue, dstNodeID := range state.Config.Routes {
			if dstNodeID == srcNode {
				continue
			}
			if _, fresh := s.router.GetNode(dstNodeID); !fresh {
				continue
			}

			expr := query.KeyValue{Key: state.Config.RoutingKey, Value: fieldValue}
			blobIDs, err := s.query.QueryMoveRequests(expr, username, srcNode)
			if err != nil {
				return err
			}
			if len(blobIDs) == 0 {
				continue
			}
			anyOutOfPlace = true

			for _, blobID := range blobIDs {
				moveRequests = append(moveRequests, types.MoveRequest{
					BlobID:          blobID,
					OwnerUsername:   username,
					DestinationNode: dstNodeID,
				})
				if len(moveRequests) >= s.batchSize {
					return errBatchFull
				}
			}
		}

		if !anyOutOfPlace {
			toMarkClean = append(toMarkClean, username)
		}
		return nil
	})
	if err != nil && !errors.Is(err, errBatchFull) {
		return nil, err
	}

	for _, username := range toMarkClean {
		if markErr := s.routing.MarkClean(username); markErr != nil {
			return nil, markErr
		}
	}

	metrics.MoveRequestsEmittedTotal.Add(float64(len(moveRequests)))
	return moveRequests, nil
}

// StartRebuild clears the entire index and snapshots the current
// storage-node list into the rebuild queue.
func (s *AdminService) StartRebuild() error {
	nodes := s.storageMapping.GetAllNodes()

	if err := s.indexer.Clear(); err != nil {
		return err
	}

	s.mu.Lock()
	s.rebuildQueue = append([]types.StorageNodeInfo(nil), nodes...)
	s.mu.Unlock()

	metrics.RebuildQueueDepth.Set(float64(len(nodes)))
	log.WithComponent("directory").Info().Int("queued_nodes", len(nodes)).Msg("rebuild started")
	return nil
}

// RegisterStorageNode records a storage node's check-in — refreshing its
// registry entry (the source of the freshness the router relies on) and
// feeding the policy — and reports whether it is owed a full re-scan:
// true exactly when it is at the head of the rebuild queue.
func (s *AdminService) RegisterStorageNode(info types.StorageNodeInfo) bool {
	s.storageMapping.WriteNode(info, s.Now())
	s.router.AddNode(info)
	s.router.UpdateNode(info)

	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rebuildQueue) > 0 && s.rebuildQueue[0].ID == info.ID
}

// RebuildComplete removes every queue entry for nodeID, acknowledging
// that its re-scan finished.
func (s *AdminService) RebuildComplete(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := s.rebuildQueue[:0]
	for _, n := range s.rebuildQueue {
		if n.ID != nodeID {
			filtered = append(filtered, n)
		}
	}
	s.rebuildQueue = filtered
	metrics.RebuildQueueDepth.Set(float64(len(s.rebuildQueue)))
}
