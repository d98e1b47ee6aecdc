package engine

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// Arena hands out handles for engines whose resources live on the Go heap.
//
// It plays the role of the native allocator: dereferencing or releasing a
// handle that is not live, or that was allocated with a different kind, is a
// crash (a panic), never an error.
type Arena struct {
	mu    sync.RWMutex
	base  Handle
	next  Handle
	slots map[Handle]slot
	live  [numKinds]int
}

type slot struct {
	kind Kind
	obj  any
}

// NewArena returns an arena whose handles start right after base. Distinct
// bases keep the handles of stacked engines apart.
func NewArena(base Handle) *Arena {
	return &Arena{
		base:  base,
		next:  base,
		slots: make(map[Handle]slot),
	}
}

// Alloc registers obj and returns its handle.
func (a *Arena) Alloc(k Kind, obj any) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	h := a.next
	a.slots[h] = slot{kind: k, obj: obj}
	a.live[k]++
	return h
}

// Get returns the object behind a live handle of kind k.
func (a *Arena) Get(h Handle, k Kind) any {
	a.mu.RLock()
	s, ok := a.slots[h]
	a.mu.RUnlock()
	if !ok {
		panic(errors.AssertionFailedf("engine: use of released or unknown %s handle %#x", k, uintptr(h)))
	}
	if s.kind != k {
		panic(errors.AssertionFailedf("engine: handle %#x is a %s, not a %s", uintptr(h), s.kind, k))
	}
	return s.obj
}

// Release removes a live handle of kind k and returns its object.
func (a *Arena) Release(h Handle, k Kind) any {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.slots[h]
	if !ok {
		panic(errors.AssertionFailedf("engine: double free of %s handle %#x", k, uintptr(h)))
	}
	if s.kind != k {
		panic(errors.AssertionFailedf("engine: handle %#x is a %s, not a %s", uintptr(h), s.kind, k))
	}
	delete(a.slots, h)
	a.live[k]--
	return s.obj
}

// KindOf reports the kind of a live handle.
func (a *Arena) KindOf(h Handle) (Kind, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.slots[h]
	return s.kind, ok
}

// Owns reports whether h lies in the range this arena has handed out.
func (a *Arena) Owns(h Handle) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return h > a.base && h <= a.next
}

// Counts snapshots the live handles per kind.
func (a *Arena) Counts() Counts {
	a.mu.RLock()
	defer a.mu.RUnlock()
	c := make(Counts, numKinds)
	for k := Kind(0); k < numKinds; k++ {
		c[k] = a.live[k]
	}
	return c
}

// Deref is Get with the type assertion folded in.
func Deref[T any](a *Arena, h Handle, k Kind) T {
	return a.Get(h, k).(T)
}

// Take is Release with the type assertion folded in.
func Take[T any](a *Arena, h Handle, k Kind) T {
	return a.Release(h, k).(T)
}
