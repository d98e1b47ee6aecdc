// Package engine describes the boundary between handlekv and an embedded
// ordered key-value storage engine.
//
// The protocol mirrors the C API of LevelDB: every resource the engine hands
// out is an opaque Handle that has to be released through the matching
// destroy/close/free call exactly once. Failures are reported as a handle to an
// engine-allocated message string rather than as Go errors, so the layer above
// decides how the message is marshalled and when it is released.
//
// Implementations must be safe for concurrent use; handlekv releases leaked
// handles from cleanup goroutines.
package engine

// Handle is an opaque reference to a resource owned by an engine.
type Handle uintptr

// Nil is the absent handle.
const Nil Handle = 0

// Options is the open-time policy of a store.
type Options struct {
	CreateIfMissing bool
	ErrorIfExists   bool
	ParanoidChecks  bool
}

// ReadOptions is the policy applied to point lookups.
type ReadOptions struct {
	VerifyChecksums bool
	FillCache       bool
}

// WriteOptions is the policy applied to batch writes.
type WriteOptions struct {
	Sync bool
}

// Engine is the native storage engine protocol.
type Engine interface {
	// Name identifies the engine in logs, metrics and configuration.
	Name() string

	// NewOptions allocates a configuration object. It panics if the engine
	// cannot allocate it.
	NewOptions(o Options) Handle
	DestroyOptions(opts Handle)
	NewReadOptions(o ReadOptions) Handle
	DestroyReadOptions(opts Handle)
	NewWriteOptions(o WriteOptions) Handle
	DestroyWriteOptions(opts Handle)

	// Open creates or opens the store at path. Exactly one of the returned
	// handles is non-nil.
	Open(opts Handle, path string) (db Handle, errstr Handle)
	// Close releases every resource held for db.
	Close(db Handle)

	NewWriteBatch() Handle
	// WriteBatchPut appends a copy of key and value to the batch.
	WriteBatchPut(batch Handle, key, value []byte)
	WriteBatchClear(batch Handle)
	DestroyWriteBatch(batch Handle)

	// Write applies the batch atomically. It does not clear the batch.
	Write(db, wopts, batch Handle) (errstr Handle)
	// Get looks key up. A miss returns Nil, 0, Nil. On success val must be
	// released with Free, even when vallen is zero.
	Get(db, ropts Handle, key []byte) (val Handle, vallen int, errstr Handle)

	// View exposes n bytes of an engine-allocated value without copying. The
	// slice is valid until the value is freed.
	View(val Handle, n int) []byte
	// Message reads an engine-allocated error string.
	Message(errstr Handle) string
	// Free releases a value or an error string.
	Free(p Handle)

	// Live reports the handles currently outstanding.
	Live() Counts
}
