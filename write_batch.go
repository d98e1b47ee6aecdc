package handlekv

import (
	"runtime"

	"github.com/rawbytedev/handlekv/engine"
	"github.com/rawbytedev/handlekv/log"
)

// WriteBatch collects puts that Write applies atomically. Entries for the
// same key are all kept in order, so the last one wins.
//
// The native batch is allocated by the first Put and kept across Clear and
// Write until Destroy. A WriteBatch must not be used from two goroutines at
// once.
type WriteBatch struct {
	noCopy noCopy

	eng     engine.Engine
	h       engine.Handle
	n       int
	cleanup runtime.Cleanup
}

// NewWriteBatch returns an empty batch for the default engine.
func NewWriteBatch() *WriteBatch {
	return NewWriteBatchOn(DefaultEngine())
}

// NewWriteBatchOn returns an empty batch for e.
func NewWriteBatchOn(e engine.Engine) *WriteBatch {
	return &WriteBatch{eng: e}
}

func destroyLeakedBatch(v owned) {
	log.Store().Warn().Str("engine", v.eng.Name()).Msg("write batch dropped without Destroy")
	v.eng.DestroyWriteBatch(v.h)
}

// Put appends key and value. Both are copied, so the caller may reuse them
// as soon as Put returns. Empty keys and values are accepted.
func (b *WriteBatch) Put(key, value []byte) {
	if b.h == engine.Nil {
		b.h = b.eng.NewWriteBatch()
		b.cleanup = runtime.AddCleanup(b, destroyLeakedBatch, owned{eng: b.eng, h: b.h})
	}
	b.eng.WriteBatchPut(b.h, key, value)
	b.n++
}

// Clear drops the pending entries and keeps the native batch for reuse.
func (b *WriteBatch) Clear() {
	if b.h == engine.Nil {
		return
	}
	b.eng.WriteBatchClear(b.h)
	b.n = 0
}

// Destroy releases the native batch. The batch can still be used afterwards;
// the next Put allocates a new one.
func (b *WriteBatch) Destroy() {
	if b.h == engine.Nil {
		return
	}
	b.cleanup.Stop()
	b.eng.DestroyWriteBatch(b.h)
	b.h = engine.Nil
	b.n = 0
}

// Len is the number of pending entries.
func (b *WriteBatch) Len() int { return b.n }

// Allocated reports whether the native batch exists.
func (b *WriteBatch) Allocated() bool { return b.h != engine.Nil }

// noCopy lets go vet's copylocks check flag copies of owning types.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
