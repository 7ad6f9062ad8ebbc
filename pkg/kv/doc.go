// Package kv realizes the ordered-KV-store contract the indexing layer is
// specified against (§6 of the design notes): byte-keyed, ordered-by-key
// maps called "trees", with get/put/delete/iteration and an atomic
// merge operation. It is backed by go.etcd.io/bbolt, the same embedded
// store the rest of this codebase has always used.
package kv
