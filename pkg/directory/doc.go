// Package directory implements the indexer service (component I) and
// the rebuild / move-request controller (component J): the layer that
// composes the document, metadata, storage-mapping and routing stores
// under transactional semantics and drives routing decisions.
package directory
