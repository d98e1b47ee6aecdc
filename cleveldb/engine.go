//go:build darwin || linux

package cleveldb

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/handlekv/engine"
)

// CLevelDB implements engine.Engine over the native library.
type CLevelDB struct {
	lib *lib

	mu   sync.Mutex
	live map[engine.Handle]engine.Kind
}

var _ engine.Engine = (*CLevelDB)(nil)

// Load binds the native library found at path. An empty path falls back to
// $HANDLEKV_LEVELDB_LIB and then to the platform's default library names.
func Load(path string) (engine.Engine, error) {
	l, err := loadLib(path)
	if err != nil {
		return nil, err
	}
	return &CLevelDB{lib: l, live: make(map[engine.Handle]engine.Kind)}, nil
}

func (c *CLevelDB) Name() string { return Name }

func (c *CLevelDB) track(p uintptr, k engine.Kind) engine.Handle {
	if p == 0 {
		panic(errors.AssertionFailedf("cleveldb: leveldb returned a null %s", k))
	}
	h := engine.Handle(p)
	c.mu.Lock()
	c.live[h] = k
	c.mu.Unlock()
	return h
}

func (c *CLevelDB) check(h engine.Handle, k engine.Kind) uintptr {
	c.mu.Lock()
	got, ok := c.live[h]
	c.mu.Unlock()
	if !ok || got != k {
		panic(errors.AssertionFailedf("cleveldb: %#x is not a live %s", uintptr(h), k))
	}
	return uintptr(h)
}

func (c *CLevelDB) untrack(h engine.Handle, k engine.Kind) uintptr {
	c.mu.Lock()
	defer c.mu.Unlock()
	got, ok := c.live[h]
	if !ok {
		panic(errors.AssertionFailedf("cleveldb: double free of %s %#x", k, uintptr(h)))
	}
	if got != k {
		panic(errors.AssertionFailedf("cleveldb: %#x is a %s, not a %s", uintptr(h), got, k))
	}
	delete(c.live, h)
	return uintptr(h)
}

func (c *CLevelDB) NewOptions(o engine.Options) engine.Handle {
	p := c.lib.optionsCreate()
	h := c.track(p, engine.KindOptions)
	c.lib.optionsSetCreateIfMissing(p, cbool(o.CreateIfMissing))
	c.lib.optionsSetErrorIfExists(p, cbool(o.ErrorIfExists))
	c.lib.optionsSetParanoidChecks(p, cbool(o.ParanoidChecks))
	return h
}

func (c *CLevelDB) DestroyOptions(h engine.Handle) {
	c.lib.optionsDestroy(c.untrack(h, engine.KindOptions))
}

func (c *CLevelDB) NewReadOptions(o engine.ReadOptions) engine.Handle {
	p := c.lib.readoptionsCreate()
	h := c.track(p, engine.KindReadOptions)
	c.lib.readoptionsSetVerifyChecksums(p, cbool(o.VerifyChecksums))
	c.lib.readoptionsSetFillCache(p, cbool(o.FillCache))
	return h
}

func (c *CLevelDB) DestroyReadOptions(h engine.Handle) {
	c.lib.readoptionsDestroy(c.untrack(h, engine.KindReadOptions))
}

func (c *CLevelDB) NewWriteOptions(o engine.WriteOptions) engine.Handle {
	p := c.lib.writeoptionsCreate()
	h := c.track(p, engine.KindWriteOptions)
	c.lib.writeoptionsSetSync(p, cbool(o.Sync))
	return h
}

func (c *CLevelDB) DestroyWriteOptions(h engine.Handle) {
	c.lib.writeoptionsDestroy(c.untrack(h, engine.KindWriteOptions))
}

func (c *CLevelDB) Open(opts engine.Handle, path string) (engine.Handle, engine.Handle) {
	var errptr uintptr
	db := c.lib.open(c.check(opts, engine.KindOptions), path, &errptr)
	if errptr != 0 {
		return engine.Nil, c.track(errptr, engine.KindErrString)
	}
	return c.track(db, engine.KindDatabase), engine.Nil
}

func (c *CLevelDB) Close(h engine.Handle) {
	c.lib.close(c.untrack(h, engine.KindDatabase))
}

func (c *CLevelDB) NewWriteBatch() engine.Handle {
	return c.track(c.lib.writebatchCreate(), engine.KindWriteBatch)
}

// WriteBatchPut relies on leveldb_writebatch_put copying both slices before
// it returns.
func (c *CLevelDB) WriteBatchPut(h engine.Handle, key, value []byte) {
	c.lib.writebatchPut(c.check(h, engine.KindWriteBatch),
		slicePtr(key), uintptr(len(key)),
		slicePtr(value), uintptr(len(value)))
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)
}

func (c *CLevelDB) WriteBatchClear(h engine.Handle) {
	c.lib.writebatchClear(c.check(h, engine.KindWriteBatch))
}

func (c *CLevelDB) DestroyWriteBatch(h engine.Handle) {
	c.lib.writebatchDestroy(c.untrack(h, engine.KindWriteBatch))
}

func (c *CLevelDB) Write(db, wopts, batch engine.Handle) engine.Handle {
	var errptr uintptr
	c.lib.write(c.check(db, engine.KindDatabase),
		c.check(wopts, engine.KindWriteOptions),
		c.check(batch, engine.KindWriteBatch),
		&errptr)
	if errptr != 0 {
		return c.track(errptr, engine.KindErrString)
	}
	return engine.Nil
}

// Get returns the buffer leveldb malloc'd for the value. leveldb allocates
// even for an empty value, so a present empty value has a non-nil handle.
func (c *CLevelDB) Get(db, ropts engine.Handle, key []byte) (engine.Handle, int, engine.Handle) {
	var errptr, vallen uintptr
	val := c.lib.get(c.check(db, engine.KindDatabase),
		c.check(ropts, engine.KindReadOptions),
		slicePtr(key), uintptr(len(key)),
		&vallen, &errptr)
	runtime.KeepAlive(key)
	if errptr != 0 {
		if val != 0 {
			c.lib.free(val)
		}
		return engine.Nil, 0, c.track(errptr, engine.KindErrString)
	}
	if val == 0 {
		return engine.Nil, 0, engine.Nil
	}
	return c.track(val, engine.KindValue), int(vallen), engine.Nil
}

func (c *CLevelDB) View(h engine.Handle, n int) []byte {
	p := c.check(h, engine.KindValue)
	if n == 0 {
		return []byte{}
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), n)[:n:n]
}

func (c *CLevelDB) Message(h engine.Handle) string {
	return cString(c.check(h, engine.KindErrString))
}

func (c *CLevelDB) Free(h engine.Handle) {
	c.mu.Lock()
	k, ok := c.live[h]
	c.mu.Unlock()
	if !ok {
		panic(errors.AssertionFailedf("cleveldb: double free of %#x", uintptr(h)))
	}
	if k != engine.KindValue && k != engine.KindErrString {
		panic(errors.AssertionFailedf("cleveldb: free of a %s, use its destroy call", k))
	}
	c.lib.free(c.untrack(h, k))
}

func (c *CLevelDB) Live() engine.Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(engine.Counts, len(engine.Kinds()))
	for _, k := range engine.Kinds() {
		counts[k] = 0
	}
	for _, k := range c.live {
		counts[k]++
	}
	return counts
}

// slicePtr returns a pointer to the first element of a byte slice.
// For empty slices, returns a dummy non-null pointer; leveldb never reads it.
func slicePtr(s []byte) uintptr {
	if len(s) == 0 {
		return uintptr(unsafe.Pointer(&struct{}{}))
	}
	return uintptr(unsafe.Pointer(&s[0]))
}

// cString copies a NUL-terminated C string.
func cString(p uintptr) string {
	base := unsafe.Pointer(p)
	n := 0
	for *(*byte)(unsafe.Add(base, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(base), n))
}
