package handlekv

// Reader looks up single keys.
type Reader interface {
	// Get returns the value stored for key; a missing key yields an empty
	// result, not an error.
	Get(key []byte) (*Octets, error)
}

// Writer applies batches atomically.
type Writer interface {
	// NewWriteBatch creates a batch the writer can apply
	NewWriteBatch() *WriteBatch
	// Write applies and clears the batch
	Write(b *WriteBatch) error
}

// Store is an open key-value store.
type Store interface {
	Reader
	Writer
	// Close releases the store
	Close()
}
