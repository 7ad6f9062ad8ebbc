package directory

import (
	"fmt"

	"github.com/menmos/menmosd/pkg/config"
	"github.com/menmos/menmosd/pkg/kv"
	"github.com/menmos/menmosd/pkg/router"
	"github.com/menmos/menmosd/pkg/store/documents"
	"github.com/menmos/menmosd/pkg/store/idmap"
	"github.com/menmos/menmosd/pkg/store/metadata"
	"github.com/menmos/menmosd/pkg/store/routing"
	"github.com/menmos/menmosd/pkg/store/storagemap"
)

// Persisted tree names, kept stable across versions per §6.
const (
	treeDocumentFwd       = "document"
	treeDocumentRev       = "document-rev"
	treeDocumentRecycling = "id-recycle"
	treeMetadata          = "metadata"
	treeTags              = "tags"
	treeFields            = "fields"
	treeFieldFwd          = "idmap-fields-fwd"
	treeFieldRev          = "idmap-fields-rev"
	treeFieldRecycling    = "idmap-fields-recycling"
	treeUserMask          = "users"
	treeDispatch          = "dispatch"
	treeRouting           = "routing_keys"
)

// App bundles every store and service that makes up the directory
// node's indexing layer, wired over one bbolt database.
type App struct {
	DB *kv.DB

	Documents      *documents.Store
	Metadata       *metadata.Store
	StorageMapping *storagemap.Store
	Routing        *routing.Store
	Router         *router.Router
	Query          *QueryService
	Indexer        *IndexerService
	Admin          *AdminService
}

// Open opens the bbolt database under cfg.DataDir and wires every
// store and service component A through J over it.
func Open(cfg config.Config) (*App, error) {
	db, err := kv.Open(cfg.DataDir + "/menmosd.db")
	if err != nil {
		return nil, err
	}

	tree := func(name string) (kv.Tree, error) { return db.Tree(name) }

	docFwd, err := tree(treeDocumentFwd)
	if err != nil {
		return nil, err
	}
	docRev, err := tree(treeDocumentRev)
	if err != nil {
		return nil, err
	}
	docRecycling, err := tree(treeDocumentRecycling)
	if err != nil {
		return nil, err
	}
	docIDs, err := idmap.Open(docFwd, docRev, docRecycling)
	if err != nil {
		return nil, fmt.Errorf("failed to open document id map: %w", err)
	}
	documentStore := documents.New(docIDs)

	metaTree, err := tree(treeMetadata)
	if err != nil {
		return nil, err
	}
	tagTree, err := tree(treeTags)
	if err != nil {
		return nil, err
	}
	fieldTree, err := tree(treeFields)
	if err != nil {
		return nil, err
	}
	userMaskTree, err := tree(treeUserMask)
	if err != nil {
		return nil, err
	}
	fieldFwd, err := tree(treeFieldFwd)
	if err != nil {
		return nil, err
	}
	fieldRev, err := tree(treeFieldRev)
	if err != nil {
		return nil, err
	}
	fieldRecycling, err := tree(treeFieldRecycling)
	if err != nil {
		return nil, err
	}
	fieldIDs, err := idmap.Open(fieldFwd, fieldRev, fieldRecycling)
	if err != nil {
		return nil, fmt.Errorf("failed to open field id map: %w", err)
	}
	metadataStore := metadata.New(metaTree, tagTree, fieldTree, userMaskTree, fieldIDs)

	dispatchTree, err := tree(treeDispatch)
	if err != nil {
		return nil, err
	}
	storageMapping := storagemap.New(dispatchTree)

	routingTree, err := tree(treeRouting)
	if err != nil {
		return nil, err
	}
	routingStore := routing.New(routingTree)

	var policy router.Policy
	switch cfg.Router.Policy {
	case config.PolicyLeastFilled:
		policy = router.NewLeastFilled()
	default:
		policy = router.NewRoundRobin()
	}
	nodeRouter := router.NewWithForgetDuration(policy, storageMapping, cfg.Router.ForgetDuration)

	queryService := NewQueryService(documentStore, metadataStore, storageMapping)
	indexer := NewIndexerService(documentStore, metadataStore, storageMapping, routingStore, nodeRouter)
	admin := NewAdminServiceWithBatchSize(indexer, routingStore, queryService, nodeRouter, storageMapping, cfg.Rebuild.BatchSize)

	return &App{
		DB:             db,
		Documents:      documentStore,
		Metadata:       metadataStore,
		StorageMapping: storageMapping,
		Routing:        routingStore,
		Router:         nodeRouter,
		Query:          queryService,
		Indexer:        indexer,
		Admin:          admin,
	}, nil
}

// Close closes the underlying database.
func (a *App) Close() error {
	return a.DB.Close()
}
