// Package router implements the storage-node router (component H): a
// pluggable selection Policy (round-robin or least-filled) composed
// with a freshness filter over the storage-node registry. Router is the
// only type callers interact with directly; Policy implementations hold
// no notion of freshness themselves.
package router
