package handlekv_test

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rawbytedev/handlekv"
	"github.com/rawbytedev/handlekv/engine"
	"github.com/rawbytedev/handlekv/engine/enginetest"
	"github.com/rawbytedev/handlekv/helpers"
	"github.com/rawbytedev/handlekv/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type test struct {
	name string
	fn   func(t *testing.T, name string)
}

// Badger and bbolt refuse empty keys at write time.
var rejectsEmptyKey = map[string]bool{"badgerdb": true, "boltdb": true}

func TestDatabase(t *testing.T) {
	tests := []test{
		{name: "OpenClose", fn: testOpenClose},
		{name: "OpenTwicePanics", fn: testOpenTwicePanics},
		{name: "ReopenAfterClose", fn: testReopenAfterClose},
		{name: "OpenFailure", fn: testOpenFailure},
		{name: "UnopenedPanics", fn: testUnopenedPanics},
		{name: "WriteThenRead", fn: testWriteThenRead},
		{name: "MissIsNotError", fn: testMissIsNotError},
		{name: "LastWriteWins", fn: testLastWriteWins},
		{name: "ConcreteScenario", fn: testConcreteScenario},
		{name: "EmptyBatchWrite", fn: testEmptyBatchWrite},
		{name: "BatchClearedAfterWrite", fn: testBatchClearedAfterWrite},
		{name: "EmptyKey", fn: testEmptyKey},
		{name: "Persistence", fn: testPersistence},
		{name: "ConcurrentUse", fn: testConcurrentUse},
		{name: "NoLeaks", fn: testNoLeaks},
	}
	for _, name := range helpers.Engines {
		for _, tc := range tests {
			t.Run(fmt.Sprintf("%s/%s", name, tc.name), func(t *testing.T) {
				tc.fn(t, name)
			})
		}
	}
}

// assertMisuse checks that fn panics with an assertion failure.
func assertMisuse(t *testing.T, fn func()) {
	t.Helper()
	var r any
	func() {
		defer func() { r = recover() }()
		fn()
	}()
	require.NotNil(t, r, "expected a panic")
	err, ok := r.(error)
	require.True(t, ok, "panic value %v is not an error", r)
	assert.True(t, errors.HasAssertionFailure(err), "panic %v is not an assertion failure", err)
}

func get(t *testing.T, db *handlekv.Database, key []byte) []byte {
	t.Helper()
	v, err := handlekv.Get(db, key)
	require.NoError(t, err)
	defer v.Close()
	return v.Clone()
}

func testOpenClose(t *testing.T, name string) {
	e := helpers.NewEngine(t, name)
	db := handlekv.NewDatabaseOn(e)
	assert.False(t, db.IsOpen())
	assert.Same(t, e, db.Engine())

	dir := t.TempDir()
	require.NoError(t, db.Open(dir))
	assert.True(t, db.IsOpen())
	assert.Equal(t, dir, db.Path())
	assert.Equal(t, 1, e.Live()[engine.KindDatabase])

	db.Close()
	assert.False(t, db.IsOpen())
	assert.Equal(t, 0, e.Live().Transient())
	db.Close()
	db.Close()
}

func testOpenTwicePanics(t *testing.T, name string) {
	db := helpers.SetupDB(t, name)
	assertMisuse(t, func() { _ = db.Open(t.TempDir()) })
	assert.True(t, db.IsOpen())
	assert.Equal(t, 1, db.Engine().Live()[engine.KindDatabase])
}

func testReopenAfterClose(t *testing.T, name string) {
	e := helpers.NewEngine(t, name)
	db := handlekv.NewDatabaseOn(e)
	require.NoError(t, db.Open(t.TempDir()))
	db.Close()
	require.NoError(t, db.Open(t.TempDir()))
	db.Close()
	assert.Equal(t, 0, e.Live().Transient())
}

func testOpenFailure(t *testing.T, name string) {
	e := helpers.NewEngine(t, name)
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	db := handlekv.NewDatabaseOn(e)
	err := db.Open(file)
	require.Error(t, err)
	assert.True(t, errors.Is(err, handlekv.ErrEngineFailure))

	var engErr *handlekv.Error
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, name, engErr.Engine)
	assert.NotEmpty(t, engErr.Message)
	assert.Equal(t, engErr.Message, err.Error())

	assert.False(t, db.IsOpen())
	assert.Equal(t, 0, e.Live().Transient(), "the error string must be released")
}

func testUnopenedPanics(t *testing.T, name string) {
	e := helpers.NewEngine(t, name)
	db := handlekv.NewDatabaseOn(e)
	b := db.NewWriteBatch()
	defer b.Destroy()
	b.Put([]byte("k"), []byte("v"))

	assertMisuse(t, func() { _, _ = handlekv.Get(db, []byte("k")) })
	assertMisuse(t, func() { _ = handlekv.Write(db, b) })

	require.NoError(t, db.Open(t.TempDir()))
	db.Close()
	assertMisuse(t, func() { _, _ = db.Get([]byte("k")) })
	assertMisuse(t, func() { _ = db.Write(b) })
	assert.Equal(t, 1, b.Len(), "a rejected write leaves the batch alone")
}

func testWriteThenRead(t *testing.T, name string) {
	db := helpers.SetupDB(t, name)
	values := map[string][]byte{
		"empty":  {},
		"small":  []byte("v"),
		"binary": {0, 1, 2, 0xff},
		"random": helpers.RandomBytes(4096),
	}

	b := db.NewWriteBatch()
	defer b.Destroy()
	key := make([]byte, 0, 16)
	for k, v := range values {
		key = append(key[:0], k...)
		buf := append([]byte(nil), v...)
		b.Put(key, buf)
		// The batch holds its own copy.
		for i := range buf {
			buf[i] ^= 0xff
		}
	}
	require.Equal(t, len(values), b.Len())
	require.NoError(t, handlekv.Write(db, b))

	for k, v := range values {
		o, err := db.Get([]byte(k))
		require.NoError(t, err)
		assert.True(t, o.EqualBytes(v), "key %s", k)
		assert.Equal(t, len(v), o.Len())
		o.Close()
	}
}

func testMissIsNotError(t *testing.T, name string) {
	db := helpers.SetupDB(t, name)
	before := testutil.ToFloat64(metrics.Operations.WithLabelValues(name, "get", metrics.ResultMiss))

	o, err := handlekv.Get(db, []byte("never written"))
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.True(t, o.IsEmpty())
	assert.Empty(t, o.Bytes())
	o.Close()

	after := testutil.ToFloat64(metrics.Operations.WithLabelValues(name, "get", metrics.ResultMiss))
	assert.Equal(t, before+1, after)
}

func testLastWriteWins(t *testing.T, name string) {
	db := helpers.SetupDB(t, name)
	b := db.NewWriteBatch()
	defer b.Destroy()
	b.Put([]byte("k"), []byte("v1"))
	b.Put([]byte("k"), []byte("v2"))
	assert.Equal(t, 2, b.Len(), "duplicate keys are kept")
	require.NoError(t, handlekv.Write(db, b))
	assert.Equal(t, []byte("v2"), get(t, db, []byte("k")))
}

func testConcreteScenario(t *testing.T, name string) {
	db := helpers.SetupDB(t, name)
	assert.Empty(t, get(t, db, []byte{1, 2, 3}))

	b := db.NewWriteBatch()
	defer b.Destroy()
	b.Put([]byte{1, 2, 3}, []byte{})
	b.Put([]byte{4}, []byte{5, 6})
	b.Put([]byte{1, 2, 3}, []byte{7, 7, 8})
	require.NoError(t, handlekv.Write(db, b))

	assert.Equal(t, []byte{7, 7, 8}, get(t, db, []byte{1, 2, 3}))
	assert.Equal(t, []byte{5, 6}, get(t, db, []byte{4}))
	assert.Empty(t, get(t, db, []byte{9}))
}

func testEmptyBatchWrite(t *testing.T, name string) {
	db := helpers.SetupDB(t, name)
	b := db.NewWriteBatch()
	require.NoError(t, handlekv.Write(db, b))
	assert.False(t, b.Allocated(), "writing an empty batch allocates nothing")
	assert.Equal(t, 0, db.Engine().Live()[engine.KindWriteBatch])

	// A cleared batch still goes to the engine and writes nothing.
	b.Put([]byte("k"), []byte("v"))
	b.Clear()
	require.NoError(t, handlekv.Write(db, b))
	assert.Empty(t, get(t, db, []byte("k")))
	b.Destroy()
}

func testBatchClearedAfterWrite(t *testing.T, name string) {
	f := enginetest.NewFaulty(helpers.NewEngine(t, name))
	db := helpers.OpenOn(t, f)
	b := db.NewWriteBatch()
	defer b.Destroy()

	b.Put([]byte("first"), []byte("1"))
	require.NoError(t, handlekv.Write(db, b))
	assert.Equal(t, 0, b.Len())
	assert.True(t, b.Allocated(), "the native batch is kept for reuse")

	b.Put([]byte("lost"), []byte("2"))
	f.Fail(enginetest.OpWrite, "disk full")
	err := handlekv.Write(db, b)
	require.Error(t, err)
	assert.Equal(t, "disk full", err.Error())
	assert.True(t, errors.Is(err, handlekv.ErrEngineFailure))
	assert.Equal(t, 0, b.Len(), "a failed write still clears the batch")
	assert.True(t, b.Allocated())

	b.Put([]byte("second"), []byte("3"))
	require.NoError(t, handlekv.Write(db, b))
	assert.Equal(t, 2, f.Calls(enginetest.OpWrite))

	assert.Equal(t, []byte("1"), get(t, db, []byte("first")))
	assert.Empty(t, get(t, db, []byte("lost")), "failed entries must not be replayed")
	assert.Equal(t, []byte("3"), get(t, db, []byte("second")))

	f.Fail(enginetest.OpGet, "read error")
	o, err := handlekv.Get(db, []byte("first"))
	require.Error(t, err)
	assert.Nil(t, o, "a failed get returns no buffer")
	assert.Equal(t, "read error", err.Error())
	assert.Equal(t, 0, f.Live()[engine.KindErrString])
}

func testEmptyKey(t *testing.T, name string) {
	db := helpers.SetupDB(t, name)
	b := db.NewWriteBatch()
	defer b.Destroy()
	b.Put(nil, []byte("empty key"))
	err := handlekv.Write(db, b)
	assert.Equal(t, 0, b.Len())

	if rejectsEmptyKey[name] {
		require.Error(t, err)
		assert.True(t, errors.Is(err, handlekv.ErrEngineFailure))
		return
	}
	require.NoError(t, err)
	assert.Equal(t, []byte("empty key"), get(t, db, []byte{}))
}

func testPersistence(t *testing.T, name string) {
	e := helpers.NewEngine(t, name)
	dir := t.TempDir()

	db := handlekv.NewDatabaseOn(e)
	require.NoError(t, db.Open(dir))
	b := db.NewWriteBatch()
	b.Put([]byte("durable"), []byte("yes"))
	require.NoError(t, db.Write(b))
	b.Destroy()
	db.Close()

	db = handlekv.NewDatabaseOn(e)
	require.NoError(t, db.Open(dir), "existing stores are reopened")
	defer db.Close()
	assert.Equal(t, []byte("yes"), get(t, db, []byte("durable")))
}

func testConcurrentUse(t *testing.T, name string) {
	db := helpers.SetupDB(t, name)
	var wg sync.WaitGroup
	for w := range 4 {
		wg.Go(func() {
			b := db.NewWriteBatch()
			defer b.Destroy()
			for i := range 25 {
				b.Put(fmt.Appendf(nil, "w%d-%d", w, i), fmt.Appendf(nil, "%d", i))
				if err := handlekv.Write(db, b); err != nil {
					t.Error(err)
					return
				}
				o, err := handlekv.Get(db, fmt.Appendf(nil, "w%d-%d", w, i))
				if err != nil {
					t.Error(err)
					return
				}
				if !o.EqualBytes(fmt.Appendf(nil, "%d", i)) {
					t.Errorf("w%d-%d: got %q", w, i, o.Bytes())
				}
				o.Close()
			}
		})
	}
	wg.Wait()
}

func testNoLeaks(t *testing.T, name string) {
	e := helpers.NewEngine(t, name)
	db := handlekv.NewDatabaseOn(e)
	require.NoError(t, db.Open(t.TempDir()))

	b := db.NewWriteBatch()
	for i := range 10 {
		b.Put(fmt.Appendf(nil, "k%d", i), helpers.RandomBytes(64))
	}
	require.NoError(t, handlekv.Write(db, b))
	for i := range 10 {
		o, err := handlekv.Get(db, fmt.Appendf(nil, "k%d", i))
		require.NoError(t, err)
		o.Close()
		o.Close()
	}
	b.Clear()
	b.Destroy()
	b.Destroy()
	db.Close()

	live := e.Live()
	assert.Equal(t, 0, live.Transient(), "live handles: %v", live)
}

func TestScopeExitReleases(t *testing.T) {
	e := helpers.NewEngine(t, "pebbledb")
	dir := t.TempDir()

	func() {
		db := handlekv.NewDatabaseOn(e)
		require.NoError(t, db.Open(dir))
		b := db.NewWriteBatch()
		b.Put([]byte("k"), []byte("v"))
		require.NoError(t, handlekv.Write(db, b))
		_, err := handlekv.Get(db, []byte("k"))
		require.NoError(t, err)
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		return e.Live().Transient() == 0
	}, 5*time.Second, 10*time.Millisecond, "dropped handles were not released")

	// The store lock was dropped with the database.
	db := handlekv.NewDatabaseOn(e)
	require.NoError(t, db.Open(dir))
	db.Close()
}

func TestDefaultEngine(t *testing.T) {
	db := handlekv.NewDatabase()
	assert.Equal(t, "pebbledb", db.Engine().Name())
	assert.Same(t, handlekv.DefaultEngine(), db.Engine())

	require.NoError(t, db.Open(t.TempDir()))
	defer db.Close()

	b := handlekv.NewWriteBatch()
	defer b.Destroy()
	b.Put([]byte("k"), []byte("v"))
	require.NoError(t, db.Write(b))
	assert.Equal(t, []byte("v"), get(t, db, []byte("k")))
}

func TestForeignBatchPanics(t *testing.T) {
	db := helpers.SetupDB(t, "pebbledb")
	other := handlekv.NewWriteBatchOn(helpers.NewEngine(t, "pebbledb"))
	defer other.Destroy()
	other.Put([]byte("k"), []byte("v"))
	assertMisuse(t, func() { _ = handlekv.Write(db, other) })
	assert.Equal(t, 1, other.Len())
}
