package engine

// ErrString is the payload of a KindErrString handle in an Arena.
type ErrString string

// NewErrString allocates an error string carrying err's message. Engines backed
// by Go libraries use it to report failures through the handle protocol.
func (a *Arena) NewErrString(err error) Handle {
	return a.Alloc(KindErrString, ErrString(err.Error()))
}

// Message reads an error string allocated with NewErrString.
func (a *Arena) Message(h Handle) string {
	return string(Deref[ErrString](a, h, KindErrString))
}

// Buffer is the payload of a KindValue handle in an Arena.
type Buffer []byte

// NewBuffer allocates a value handle over b. The arena takes ownership of b.
func (a *Arena) NewBuffer(b []byte) Handle {
	return a.Alloc(KindValue, Buffer(b))
}

// View returns the first n bytes of a value allocated with NewBuffer.
func (a *Arena) View(h Handle, n int) []byte {
	b := Deref[Buffer](a, h, KindValue)
	return b[:n:n]
}

// Free releases a value or an error string.
func (a *Arena) Free(h Handle) {
	k, ok := a.KindOf(h)
	if !ok {
		// Let Release report the double free.
		k = KindValue
	}
	switch k {
	case KindValue, KindErrString:
		a.Release(h, k)
	default:
		a.Release(h, KindValue)
	}
}
