package directory

import (
	"github.com/menmos/menmosd/pkg/bitvector"
	"github.com/menmos/menmosd/pkg/store/documents"
	"github.com/menmos/menmosd/pkg/store/metadata"
)

// storeResolver adapts the document and metadata stores to
// query.Resolver, so the evaluator never talks to a kv.Tree directly.
type storeResolver struct {
	documents *documents.Store
	metadata  *metadata.Store
}

func (r *storeResolver) LoadTag(tag string) (*bitvector.Bitvector, error) {
	return r.metadata.LoadTag(tag)
}

func (r *storeResolver) LoadKeyValue(key, value string) (*bitvector.Bitvector, error) {
	return r.metadata.LoadKeyValue(key, value)
}

func (r *storeResolver) LoadKey(key string) (*bitvector.Bitvector, error) {
	return r.metadata.LoadKey(key)
}

func (r *storeResolver) Universe() (*bitvector.Bitvector, error) {
	return r.documents.GetAllDocumentsMask()
}
