package enginetest

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/handlekv/engine"
)

// faultBase sits above every user-space address, so the error strings of a
// Faulty engine never collide with the handles of the engine it wraps, native
// pointers included.
const faultBase engine.Handle = 1 << 48

// Op names an engine call a Faulty engine can fail.
type Op int

const (
	OpOpen Op = iota
	OpWrite
	OpGet
)

// Faulty wraps an engine and makes selected calls report a failure instead of
// reaching the wrapped engine.
type Faulty struct {
	engine.Engine

	arena *engine.Arena
	mu    sync.Mutex
	armed map[Op]string
	calls map[Op]int
}

var _ engine.Engine = (*Faulty)(nil)

// NewFaulty wraps e.
func NewFaulty(e engine.Engine) *Faulty {
	return &Faulty{
		Engine: e,
		arena:  engine.NewArena(faultBase),
		armed:  make(map[Op]string),
		calls:  make(map[Op]int),
	}
}

// Fail makes the next call to op fail with msg.
func (f *Faulty) Fail(op Op, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed[op] = msg
}

// Calls reports how many calls to op reached the wrapped engine.
func (f *Faulty) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Faulty) trip(op Op) engine.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.armed[op]
	if !ok {
		f.calls[op]++
		return engine.Nil
	}
	delete(f.armed, op)
	return f.arena.NewErrString(errors.New(msg))
}

func (f *Faulty) Open(opts engine.Handle, path string) (engine.Handle, engine.Handle) {
	if errstr := f.trip(OpOpen); errstr != engine.Nil {
		return engine.Nil, errstr
	}
	return f.Engine.Open(opts, path)
}

func (f *Faulty) Write(db, wopts, batch engine.Handle) engine.Handle {
	if errstr := f.trip(OpWrite); errstr != engine.Nil {
		return errstr
	}
	return f.Engine.Write(db, wopts, batch)
}

func (f *Faulty) Get(db, ropts engine.Handle, key []byte) (engine.Handle, int, engine.Handle) {
	if errstr := f.trip(OpGet); errstr != engine.Nil {
		return engine.Nil, 0, errstr
	}
	return f.Engine.Get(db, ropts, key)
}

func (f *Faulty) Message(h engine.Handle) string {
	if f.arena.Owns(h) {
		return f.arena.Message(h)
	}
	return f.Engine.Message(h)
}

func (f *Faulty) Free(h engine.Handle) {
	if f.arena.Owns(h) {
		f.arena.Free(h)
		return
	}
	f.Engine.Free(h)
}

// Live adds the injected error strings still outstanding to the wrapped
// engine's counts.
func (f *Faulty) Live() engine.Counts {
	c := f.Engine.Live()
	for k, n := range f.arena.Counts() {
		c[k] += n
	}
	return c
}
