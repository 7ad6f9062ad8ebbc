// Package types defines the data model shared by the directory node's
// index, query and routing layers: blob metadata, storage node
// descriptors, routing configuration and query request/response shapes.
package types
