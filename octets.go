package handlekv

import (
	"bytes"
	"encoding/hex"

	"github.com/rawbytedev/handlekv/engine"
	"github.com/zeebo/xxh3"
)

// Octets is a value returned by Get.
//
// The engine's buffer is copied onto the Go heap and released before Get
// returns, so the bytes stay valid for as long as anything references them,
// whether or not the Octets itself is still reachable.
//
// A miss is an empty Octets with no backing allocation; it cannot be told
// apart from a stored empty value.
type Octets struct {
	buf []byte
}

// newOctets takes ownership of the engine value h of length n. The bytes are
// copied out and the native buffer released before returning.
func newOctets(e engine.Engine, h engine.Handle, n int) *Octets {
	defer e.Free(h)
	buf := make([]byte, n)
	copy(buf, e.View(h, n))
	return &Octets{buf: buf}
}

// Bytes returns the contents. The slice may be modified in place but not
// grown.
func (o *Octets) Bytes() []byte {
	if o == nil {
		return nil
	}
	return o.buf
}

func (o *Octets) Len() int { return len(o.Bytes()) }

func (o *Octets) IsEmpty() bool { return o.Len() == 0 }

// Equal reports whether o and other hold the same bytes.
func (o *Octets) Equal(other *Octets) bool {
	return bytes.Equal(o.Bytes(), other.Bytes())
}

func (o *Octets) EqualBytes(b []byte) bool {
	return bytes.Equal(o.Bytes(), b)
}

// Compare orders by contents, as bytes.Compare does.
func (o *Octets) Compare(other *Octets) int {
	return bytes.Compare(o.Bytes(), other.Bytes())
}

// Hash is a content hash; equal values hash equal.
func (o *Octets) Hash() uint64 {
	return xxh3.Hash(o.Bytes())
}

// Clone returns a copy of the contents that is independent of o.
func (o *Octets) Clone() []byte {
	return bytes.Clone(o.Bytes())
}

func (o *Octets) String() string {
	return hex.EncodeToString(o.Bytes())
}

// Close drops o's reference to the contents; o reads as empty afterwards.
// Slices obtained from Bytes remain valid. Calling it again does nothing.
func (o *Octets) Close() {
	if o == nil {
		return
	}
	o.buf = nil
}
