package handlekv

import (
	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/handlekv/engine"
)

// ErrEngineFailure matches every *Error with errors.Is.
var ErrEngineFailure = errors.New("engine failure")

// Error is a failure reported by the storage engine. Message is the engine's
// text, unchanged.
type Error struct {
	Engine  string
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool { return target == ErrEngineFailure }

// newError takes ownership of the engine error string h. The message is copied
// out and the native string released before returning.
func newError(e engine.Engine, h engine.Handle) *Error {
	if h == engine.Nil {
		panic(errors.AssertionFailedf("handlekv: %s reported a failure without a message", e.Name()))
	}
	defer e.Free(h)
	return &Error{Engine: e.Name(), Message: e.Message(h)}
}

func misuse(format string, args ...interface{}) {
	panic(errors.AssertionFailedf("handlekv: "+format, args...))
}
