package enginetest

import (
	"sync"

	"github.com/rawbytedev/handlekv/engine"
)

// Poison is the byte a Scribbling engine fills freed values with.
const Poison = 0xee

// Scribbling wraps an engine and overwrites every value buffer when it is
// freed, the way a native allocator reusing the memory would. A slice that
// still points into a freed value then reads as Poison bytes.
type Scribbling struct {
	engine.Engine

	mu    sync.Mutex
	views map[engine.Handle][]byte
}

var _ engine.Engine = (*Scribbling)(nil)

func NewScribbling(e engine.Engine) *Scribbling {
	return &Scribbling{Engine: e, views: make(map[engine.Handle][]byte)}
}

func (s *Scribbling) View(h engine.Handle, n int) []byte {
	v := s.Engine.View(h, n)
	s.mu.Lock()
	s.views[h] = v
	s.mu.Unlock()
	return v
}

func (s *Scribbling) Free(h engine.Handle) {
	s.mu.Lock()
	v, ok := s.views[h]
	delete(s.views, h)
	s.mu.Unlock()
	if ok {
		for i := range v {
			v[i] = Poison
		}
	}
	s.Engine.Free(h)
}
