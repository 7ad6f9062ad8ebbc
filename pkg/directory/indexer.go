package directory

import (
	"fmt"
	"sync"

	"github.com/menmos/menmosd/pkg/log"
	"github.com/menmos/menmosd/pkg/menmoserr"
	"github.com/menmos/menmosd/pkg/metrics"
	"github.com/menmos/menmosd/pkg/router"
	"github.com/menmos/menmosd/pkg/store/documents"
	"github.com/menmos/menmosd/pkg/store/metadata"
	"github.com/menmos/menmosd/pkg/store/routing"
	"github.com/menmos/menmosd/pkg/store/storagemap"
	"github.com/menmos/menmosd/pkg/types"
)

// IndexerService implements component I: it orchestrates the document,
// metadata and storage-mapping stores under transactional rollback
// semantics, and drives the per-write routing decision.
type IndexerService struct {
	documents      *documents.Store
	metadata       *metadata.Store
	storageMapping *storagemap.Store
	routing        *routing.Store
	router         *router.Router
}

// NewIndexerService wires an indexer over its backing stores and router.
func NewIndexerService(
	d *documents.Store,
	m *metadata.Store,
	s *storagemap.Store,
	rt *routing.Store,
	rtr *router.Router,
) *IndexerService {
	return &IndexerService{
		documents:      d,
		metadata:       m,
		storageMapping: s,
		routing:        rt,
		router:         rtr,
	}
}

// PickNodeForBlob resolves the storage node a new blob should be
// written to: the owner's routing config if one applies, otherwise the
// router's default policy, per §4.I.
func (s *IndexerService) PickNodeForBlob(blobID string, info types.BlobInfo) (string, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RouteBlobDuration)

	state, err := s.routing.Get(info.Owner)
	if err != nil {
		return "", err
	}
	if state != nil {
		if value, ok := info.Meta.Fields[state.Config.RoutingKey]; ok {
			if nodeID, ok := state.Config.Routes[value]; ok {
				if _, fresh := s.router.GetNode(nodeID); fresh {
					return nodeID, nil
				}
			}
		}
	}
	return s.router.RouteBlob()
}

// IndexBlob records blobID's storage-node assignment and metadata,
// rolling back the storage-mapping write if document allocation fails or
// metadata.Insert rejects the input with InvalidArgument (e.g. a tag
// containing '$'). Any other metadata.Insert failure is treated as fatal:
// partial rollback past that point is intractable because concurrent
// readers may already have observed the new state.
func (s *IndexerService) IndexBlob(blobID string, info types.BlobInfo, storageNodeID string) (uint32, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.IndexInsertDuration)

	oldNode, hadOld, err := s.storageMapping.SetNodeForBlob(blobID, storageNodeID)
	if err != nil {
		return 0, err
	}

	needsRollback := !hadOld || oldNode != storageNodeID
	rollback := func() {
		if !needsRollback {
			return
		}
		if hadOld {
			_, _, _ = s.storageMapping.SetNodeForBlob(blobID, oldNode)
		} else {
			_ = s.storageMapping.DeleteBlob(blobID)
		}
	}

	docIdx, err := s.documents.Insert(blobID)
	if err != nil {
		rollback()
		return 0, err
	}

	if err := s.metadata.Insert(docIdx, info); err != nil {
		if menmoserr.Is(err, menmoserr.InvalidArgument) {
			// Not yet durable beyond the raw write path; still safe to
			// roll back and report to the caller as a normal error.
			rollback()
			return 0, err
		}
		log.WithComponent("directory").Error().
			Str("blob_id", blobID).
			Uint32("doc_index", docIdx).
			Err(err).
			Msg("metadata insert failed after document allocation; index is now inconsistent")
		panic(fmt.Sprintf("directory: metadata insert failed for blob %q after document allocation: %v", blobID, err))
	}

	metrics.DocumentsIndexedTotal.Inc()
	return docIdx, nil
}

// GetBlobMeta returns blobID's BlobInfo if it exists and is owned by
// username. Existence of blobs the caller does not own is never
// observable: both "not found" and "wrong owner" return (nil, nil).
func (s *IndexerService) GetBlobMeta(blobID, username string) (*types.BlobInfo, error) {
	idx, ok, err := s.documents.Get(blobID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	info, err := s.metadata.Get(idx)
	if err != nil {
		return nil, err
	}
	if info == nil || info.Owner != username {
		return nil, nil
	}
	return info, nil
}

// DeleteBlob removes blobID from the index and returns the storage node
// that physically holds its bytes, so the caller can forward the
// physical delete. Fails with WrongNode if storageNodeID does not match
// the blob's current assignment.
func (s *IndexerService) DeleteBlob(blobID, storageNodeID string) (types.StorageNodeInfo, error) {
	currentNode, hadCurrent, err := s.storageMapping.GetNodeForBlob(blobID)
	if err != nil {
		return types.StorageNodeInfo{}, err
	}
	if hadCurrent && currentNode != storageNodeID {
		return types.StorageNodeInfo{}, menmoserr.New(menmoserr.WrongNode,
			fmt.Sprintf("blob %q is assigned to node %q, not %q", blobID, currentNode, storageNodeID))
	}
	if !hadCurrent {
		log.WithComponent("directory").Warn().Str("blob_id", blobID).Msg("deleting blob with no recorded storage-node mapping")
	}

	if err := s.storageMapping.DeleteBlob(blobID); err != nil {
		return types.StorageNodeInfo{}, err
	}

	docIdx, hadDoc, err := s.documents.Delete(blobID)
	if err != nil {
		return types.StorageNodeInfo{}, err
	}
	if hadDoc {
		if err := s.metadata.Purge(docIdx); err != nil {
			panic(fmt.Sprintf("directory: metadata purge failed for doc index %d: %v", docIdx, err))
		}
	}
	metrics.DocumentsDeletedTotal.Inc()

	nodeInfo, ok := s.router.GetNode(storageNodeID)
	if !ok {
		return types.StorageNodeInfo{}, menmoserr.New(menmoserr.NotFound,
			fmt.Sprintf("storage node %q is not registered or is stale", storageNodeID))
	}
	return nodeInfo, nil
}

// Clear wipes the metadata, document and storage-mapping stores, in
// that order.
func (s *IndexerService) Clear() error {
	if err := s.metadata.Clear(); err != nil {
		return err
	}
	if err := s.documents.Clear(); err != nil {
		return err
	}
	return s.storageMapping.Clear()
}

// Flush flushes the metadata, document and storage-mapping stores
// concurrently.
func (s *IndexerService) Flush() error {
	var wg sync.WaitGroup
	errs := make([]error, 3)
	flushers := []func() error{s.metadata.Flush, s.documents.Flush, s.storageMapping.Flush}
	wg.Add(len(flushers))
	for i, flush := range flushers {
		i, flush := i, flush
		go func() {
			defer wg.Done()
			errs[i] = flush()
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
