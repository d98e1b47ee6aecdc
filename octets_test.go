package handlekv_test

import (
	"runtime"
	"testing"

	"github.com/rawbytedev/handlekv"
	"github.com/rawbytedev/handlekv/engine"
	"github.com/rawbytedev/handlekv/engine/enginetest"
	"github.com/rawbytedev/handlekv/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupOctets(t *testing.T) *handlekv.Database {
	t.Helper()
	db := helpers.SetupDB(t, "pebbledb")
	b := db.NewWriteBatch()
	defer b.Destroy()
	b.Put([]byte("a"), []byte{7, 7, 8})
	b.Put([]byte("b"), []byte{7, 7, 8})
	b.Put([]byte("c"), []byte{7, 7, 9})
	b.Put([]byte("empty"), []byte{})
	require.NoError(t, db.Write(b))
	return db
}

func mustGet(t *testing.T, db *handlekv.Database, key string) *handlekv.Octets {
	t.Helper()
	o, err := db.Get([]byte(key))
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o
}

func TestOctetsEquality(t *testing.T) {
	db := setupOctets(t)
	a, b, c := mustGet(t, db, "a"), mustGet(t, db, "b"), mustGet(t, db, "c")
	empty, miss := mustGet(t, db, "empty"), mustGet(t, db, "missing")

	tests := []struct {
		name    string
		x, y    *handlekv.Octets
		equal   bool
		compare int
	}{
		{name: "same_contents", x: a, y: b, equal: true, compare: 0},
		{name: "different_contents", x: a, y: c, equal: false, compare: -1},
		{name: "reversed", x: c, y: a, equal: false, compare: 1},
		{name: "empty_value_vs_miss", x: empty, y: miss, equal: true, compare: 0},
		{name: "value_vs_miss", x: a, y: miss, equal: false, compare: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.equal, tc.x.Equal(tc.y))
			assert.Equal(t, tc.compare, tc.x.Compare(tc.y))
			if tc.equal {
				assert.Equal(t, tc.x.Hash(), tc.y.Hash())
			}
		})
	}

	assert.True(t, a.EqualBytes([]byte{7, 7, 8}))
	assert.True(t, miss.EqualBytes(nil))
	assert.Equal(t, "070708", a.String())
	assert.Equal(t, "", miss.String())
}

func TestOctetsMutableView(t *testing.T) {
	db := setupOctets(t)
	o := mustGet(t, db, "a")
	v := o.Bytes()
	require.Len(t, v, 3)
	assert.Equal(t, 3, cap(v), "the view cannot grow past the buffer")

	v[0] = 1
	assert.Equal(t, []byte{1, 7, 8}, o.Bytes())
	assert.Equal(t, 3, o.Len())

	// The stored value is untouched.
	assert.Equal(t, []byte{7, 7, 8}, mustGet(t, db, "a").Bytes())
}

func TestOctetsClose(t *testing.T) {
	db := setupOctets(t)
	e := db.Engine()

	o, err := db.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, 0, e.Live()[engine.KindValue], "the engine buffer is released by Get")

	view := o.Bytes()
	o.Close()
	assert.True(t, o.IsEmpty())
	assert.Equal(t, []byte{7, 7, 8}, view, "views stay valid after Close")
	o.Close()

	// A stored empty value is still an engine buffer and must be freed.
	empty, err := db.Get([]byte("empty"))
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, 0, e.Live()[engine.KindValue])
	empty.Close()

	miss, err := db.Get([]byte("missing"))
	require.NoError(t, err)
	assert.Equal(t, 0, e.Live()[engine.KindValue])
	miss.Close()
}

// A view must survive both the engine reusing the freed buffer and the Octets
// becoming garbage.
func TestOctetsViewOutlivesOwner(t *testing.T) {
	for _, name := range helpers.Engines {
		t.Run(name, func(t *testing.T) {
			e := enginetest.NewScribbling(helpers.NewEngine(t, name))
			db := helpers.OpenOn(t, e)
			b := db.NewWriteBatch()
			defer b.Destroy()
			b.Put([]byte("k"), []byte("value"))
			require.NoError(t, db.Write(b))

			view := func() []byte {
				o, err := db.Get([]byte("k"))
				require.NoError(t, err)
				return o.Bytes()
			}()
			for range 3 {
				runtime.GC()
			}
			assert.Equal(t, []byte("value"), view)

			o, err := db.Get([]byte("k"))
			require.NoError(t, err)
			closed := o.Bytes()
			o.Close()
			runtime.GC()
			assert.Equal(t, []byte("value"), closed)
			assert.Equal(t, 0, e.Live()[engine.KindValue])
		})
	}
}

func TestOctetsNil(t *testing.T) {
	var o *handlekv.Octets
	assert.Nil(t, o.Bytes())
	assert.True(t, o.IsEmpty())
	o.Close()
}
