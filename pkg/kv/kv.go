package kv

// Tree is an ordered byte-keyed map, as the indexing layer's design notes
// describe: get/put/delete, full and prefix iteration, and an atomic
// merge used to implement "set bit i" without losing concurrent writers.
type Tree interface {
	// Get returns the value for key, or nil if absent.
	Get(key []byte) ([]byte, error)

	// Put stores value under key, overwriting any previous value.
	Put(key, value []byte) error

	// Delete removes key. It is a no-op if key is absent.
	Delete(key []byte) error

	// ForEach calls fn for every entry in key order. Returning an error
	// from fn stops the iteration and is propagated.
	ForEach(fn func(key, value []byte) error) error

	// ScanPrefix calls fn for every entry whose key starts with prefix,
	// in key order.
	ScanPrefix(prefix []byte, fn func(key, value []byte) error) error

	// Merge atomically reads the current value for key (nil if absent),
	// passes it to fn, and writes back fn's result. If fn returns a nil
	// new value, the key is deleted. The whole read-modify-write happens
	// under one write transaction, so concurrent merges on different
	// keys never observe a torn read.
	Merge(key []byte, fn func(old []byte) (newValue []byte, err error)) error

	// Clear removes every entry in the tree.
	Clear() error
}
