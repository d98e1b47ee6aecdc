// Package enginetest checks that an engine.Engine honours the handle protocol.
package enginetest

import (
	"path/filepath"
	"testing"

	"github.com/rawbytedev/handlekv/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Features describes deviations an engine is allowed to have.
type Features struct {
	// RejectsEmptyKey is set for engines that refuse zero-length keys.
	RejectsEmptyKey bool
}

var (
	defaultOptions = engine.Options{CreateIfMissing: true, ParanoidChecks: true}
	readOptions    = engine.ReadOptions{FillCache: true}
	writeOptions   = engine.WriteOptions{}
)

// Run runs the conformance suite. newEngine must return a fresh engine for
// every call.
func Run(t *testing.T, newEngine func(t *testing.T) engine.Engine, f Features) {
	tests := []struct {
		name string
		fn   func(t *testing.T, e engine.Engine, f Features)
	}{
		{name: "options_lifecycle", fn: testOptionsLifecycle},
		{name: "open_close", fn: testOpenClose},
		{name: "get_miss", fn: testGetMiss},
		{name: "write_then_get", fn: testWriteThenGet},
		{name: "last_write_wins", fn: testLastWriteWins},
		{name: "write_does_not_clear", fn: testWriteDoesNotClear},
		{name: "cleared_batch_writes_nothing", fn: testClearedBatch},
		{name: "error_if_exists", fn: testErrorIfExists},
		{name: "missing_without_create", fn: testMissingWithoutCreate},
		{name: "empty_key", fn: testEmptyKey},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEngine(t)
			before := e.Live()
			tc.fn(t, e, f)
			assert.Equal(t, before, e.Live(), "handles leaked")
		})
	}
}

type store struct {
	e                  engine.Engine
	opts, ropts, wopts engine.Handle
	db                 engine.Handle
}

func openStore(t *testing.T, e engine.Engine, dir string) *store {
	t.Helper()
	s := &store{
		e:     e,
		opts:  e.NewOptions(defaultOptions),
		ropts: e.NewReadOptions(readOptions),
		wopts: e.NewWriteOptions(writeOptions),
	}
	db, errstr := e.Open(s.opts, dir)
	if errstr != engine.Nil {
		msg := e.Message(errstr)
		e.Free(errstr)
		s.destroyOptions()
		t.Fatalf("open %s: %s", dir, msg)
	}
	s.db = db
	return s
}

func (s *store) close() {
	s.e.Close(s.db)
	s.destroyOptions()
}

func (s *store) destroyOptions() {
	s.e.DestroyOptions(s.opts)
	s.e.DestroyReadOptions(s.ropts)
	s.e.DestroyWriteOptions(s.wopts)
}

func (s *store) write(t *testing.T, batch engine.Handle) {
	t.Helper()
	if errstr := s.e.Write(s.db, s.wopts, batch); errstr != engine.Nil {
		msg := s.e.Message(errstr)
		s.e.Free(errstr)
		t.Fatalf("write: %s", msg)
	}
}

// get returns nil on a miss and a copy of the value otherwise.
func (s *store) get(t *testing.T, key []byte) []byte {
	t.Helper()
	val, n, errstr := s.e.Get(s.db, s.ropts, key)
	if errstr != engine.Nil {
		msg := s.e.Message(errstr)
		s.e.Free(errstr)
		t.Fatalf("get: %s", msg)
	}
	if val == engine.Nil {
		require.Zero(t, n)
		return nil
	}
	out := append([]byte{}, s.e.View(val, n)...)
	s.e.Free(val)
	return out
}

func testOptionsLifecycle(t *testing.T, e engine.Engine, _ Features) {
	before := e.Live()
	o := e.NewOptions(defaultOptions)
	r := e.NewReadOptions(readOptions)
	w := e.NewWriteOptions(writeOptions)
	require.NotEqual(t, engine.Nil, o)
	require.NotEqual(t, engine.Nil, r)
	require.NotEqual(t, engine.Nil, w)

	live := e.Live()
	assert.Equal(t, before[engine.KindOptions]+1, live[engine.KindOptions])
	assert.Equal(t, before[engine.KindReadOptions]+1, live[engine.KindReadOptions])
	assert.Equal(t, before[engine.KindWriteOptions]+1, live[engine.KindWriteOptions])

	e.DestroyOptions(o)
	e.DestroyReadOptions(r)
	e.DestroyWriteOptions(w)
}

func testOpenClose(t *testing.T, e engine.Engine, _ Features) {
	s := openStore(t, e, t.TempDir())
	assert.Equal(t, 1, e.Live()[engine.KindDatabase])
	s.close()
	assert.Equal(t, 0, e.Live()[engine.KindDatabase])
}

func testGetMiss(t *testing.T, e engine.Engine, _ Features) {
	s := openStore(t, e, t.TempDir())
	defer s.close()

	val, n, errstr := e.Get(s.db, s.ropts, []byte{9})
	assert.Equal(t, engine.Nil, val)
	assert.Zero(t, n)
	assert.Equal(t, engine.Nil, errstr)
}

func testWriteThenGet(t *testing.T, e engine.Engine, _ Features) {
	s := openStore(t, e, t.TempDir())
	defer s.close()

	batch := e.NewWriteBatch()
	defer e.DestroyWriteBatch(batch)

	key, value := []byte("key"), []byte("value")
	e.WriteBatchPut(batch, key, value)
	// The engine owns a copy; the caller's buffers are free to change.
	key[0], value[0] = 'x', 'x'
	e.WriteBatchPut(batch, []byte{4}, []byte{})
	s.write(t, batch)

	assert.Equal(t, []byte("value"), s.get(t, []byte("key")))
	assert.Nil(t, s.get(t, []byte("xey")))

	// A stored empty value is present, with a zero length.
	val, n, errstr := e.Get(s.db, s.ropts, []byte{4})
	require.Equal(t, engine.Nil, errstr)
	require.NotEqual(t, engine.Nil, val)
	assert.Zero(t, n)
	assert.Empty(t, e.View(val, n))
	e.Free(val)
}

func testLastWriteWins(t *testing.T, e engine.Engine, _ Features) {
	s := openStore(t, e, t.TempDir())
	defer s.close()

	batch := e.NewWriteBatch()
	defer e.DestroyWriteBatch(batch)
	e.WriteBatchPut(batch, []byte{1, 2, 3}, []byte{})
	e.WriteBatchPut(batch, []byte{4}, []byte{5, 6})
	e.WriteBatchPut(batch, []byte{1, 2, 3}, []byte{7, 7, 8})
	s.write(t, batch)

	assert.Equal(t, []byte{7, 7, 8}, s.get(t, []byte{1, 2, 3}))
	assert.Equal(t, []byte{5, 6}, s.get(t, []byte{4}))
	assert.Nil(t, s.get(t, []byte{9}))
}

func testWriteDoesNotClear(t *testing.T, e engine.Engine, _ Features) {
	dir := t.TempDir()
	s := openStore(t, e, dir)
	defer s.close()

	batch := e.NewWriteBatch()
	defer e.DestroyWriteBatch(batch)
	e.WriteBatchPut(batch, []byte("a"), []byte("1"))
	s.write(t, batch)

	// Replaying the batch must rewrite "a" over the newer value.
	other := e.NewWriteBatch()
	defer e.DestroyWriteBatch(other)
	e.WriteBatchPut(other, []byte("a"), []byte("2"))
	s.write(t, other)
	s.write(t, batch)

	assert.Equal(t, []byte("1"), s.get(t, []byte("a")))
}

func testClearedBatch(t *testing.T, e engine.Engine, _ Features) {
	s := openStore(t, e, t.TempDir())
	defer s.close()

	batch := e.NewWriteBatch()
	defer e.DestroyWriteBatch(batch)
	e.WriteBatchPut(batch, []byte("gone"), []byte("1"))
	e.WriteBatchClear(batch)
	e.WriteBatchClear(batch)
	e.WriteBatchPut(batch, []byte("kept"), []byte("2"))
	s.write(t, batch)

	assert.Nil(t, s.get(t, []byte("gone")))
	assert.Equal(t, []byte("2"), s.get(t, []byte("kept")))
}

func testErrorIfExists(t *testing.T, e engine.Engine, _ Features) {
	dir := t.TempDir()
	s := openStore(t, e, dir)
	batch := e.NewWriteBatch()
	e.WriteBatchPut(batch, []byte("k"), []byte("v"))
	s.write(t, batch)
	e.DestroyWriteBatch(batch)
	s.close()

	opts := e.NewOptions(engine.Options{CreateIfMissing: true, ErrorIfExists: true})
	defer e.DestroyOptions(opts)
	db, errstr := e.Open(opts, dir)
	require.Equal(t, engine.Nil, db)
	require.NotEqual(t, engine.Nil, errstr)
	assert.NotEmpty(t, e.Message(errstr))
	e.Free(errstr)
}

func testMissingWithoutCreate(t *testing.T, e engine.Engine, _ Features) {
	opts := e.NewOptions(engine.Options{CreateIfMissing: false})
	defer e.DestroyOptions(opts)
	db, errstr := e.Open(opts, filepath.Join(t.TempDir(), "missing"))
	require.Equal(t, engine.Nil, db)
	require.NotEqual(t, engine.Nil, errstr)
	assert.NotEmpty(t, e.Message(errstr))
	e.Free(errstr)
}

func testEmptyKey(t *testing.T, e engine.Engine, f Features) {
	s := openStore(t, e, t.TempDir())
	defer s.close()

	batch := e.NewWriteBatch()
	defer e.DestroyWriteBatch(batch)
	e.WriteBatchPut(batch, []byte{}, []byte("empty"))

	errstr := e.Write(s.db, s.wopts, batch)
	if f.RejectsEmptyKey {
		require.NotEqual(t, engine.Nil, errstr)
		e.Free(errstr)
		return
	}
	require.Equal(t, engine.Nil, errstr)
	assert.Equal(t, []byte("empty"), s.get(t, []byte{}))
}
