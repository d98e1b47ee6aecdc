//go:build darwin || linux

package cleveldb

import (
	"os"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/ebitengine/purego"
)

// Note: slice parameters are passed as uintptr because purego on ARM64 does
// not support slices.
type lib struct {
	optionsCreate             func() uintptr
	optionsSetCreateIfMissing func(opts uintptr, v uint8)
	optionsSetErrorIfExists   func(opts uintptr, v uint8)
	optionsSetParanoidChecks  func(opts uintptr, v uint8)
	optionsDestroy            func(opts uintptr)

	readoptionsCreate             func() uintptr
	readoptionsSetVerifyChecksums func(opts uintptr, v uint8)
	readoptionsSetFillCache       func(opts uintptr, v uint8)
	readoptionsDestroy            func(opts uintptr)

	writeoptionsCreate  func() uintptr
	writeoptionsSetSync func(opts uintptr, v uint8)
	writeoptionsDestroy func(opts uintptr)

	open  func(opts uintptr, name string, errptr *uintptr) uintptr
	close func(db uintptr)

	writebatchCreate  func() uintptr
	writebatchClear   func(batch uintptr)
	writebatchDestroy func(batch uintptr)
	writebatchPut     func(batch uintptr, key uintptr, klen uintptr, val uintptr, vlen uintptr)

	write func(db uintptr, wopts uintptr, batch uintptr, errptr *uintptr)
	get   func(db uintptr, ropts uintptr, key uintptr, keylen uintptr, vallen *uintptr, errptr *uintptr) uintptr
	free  func(p uintptr)
}

func defaultLibraryNames() []string {
	if runtime.GOOS == "darwin" {
		return []string{
			"libleveldb.dylib",
			"/opt/homebrew/lib/libleveldb.dylib",
			"/usr/local/lib/libleveldb.dylib",
		}
	}
	return []string{"libleveldb.so", "libleveldb.so.1"}
}

// loadLib opens the shared library at path, or the first default location
// that works when path is empty, and binds every function the engine uses.
func loadLib(path string) (*lib, error) {
	if path == "" {
		path = os.Getenv(EnvLibrary)
	}
	candidates := []string{path}
	if path == "" {
		candidates = defaultLibraryNames()
	}

	var (
		handle uintptr
		errs   error
	)
	for _, name := range candidates {
		h, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			handle = h
			break
		}
		errs = errors.CombineErrors(errs, errors.Wrapf(err, "dlopen %s", name))
	}
	if handle == 0 {
		return nil, errors.Mark(errors.Wrap(errs, "cleveldb"), ErrUnavailable)
	}

	l := &lib{}
	symbols := []struct {
		fptr any
		name string
	}{
		{&l.optionsCreate, "leveldb_options_create"},
		{&l.optionsSetCreateIfMissing, "leveldb_options_set_create_if_missing"},
		{&l.optionsSetErrorIfExists, "leveldb_options_set_error_if_exists"},
		{&l.optionsSetParanoidChecks, "leveldb_options_set_paranoid_checks"},
		{&l.optionsDestroy, "leveldb_options_destroy"},
		{&l.readoptionsCreate, "leveldb_readoptions_create"},
		{&l.readoptionsSetVerifyChecksums, "leveldb_readoptions_set_verify_checksums"},
		{&l.readoptionsSetFillCache, "leveldb_readoptions_set_fill_cache"},
		{&l.readoptionsDestroy, "leveldb_readoptions_destroy"},
		{&l.writeoptionsCreate, "leveldb_writeoptions_create"},
		{&l.writeoptionsSetSync, "leveldb_writeoptions_set_sync"},
		{&l.writeoptionsDestroy, "leveldb_writeoptions_destroy"},
		{&l.open, "leveldb_open"},
		{&l.close, "leveldb_close"},
		{&l.writebatchCreate, "leveldb_writebatch_create"},
		{&l.writebatchClear, "leveldb_writebatch_clear"},
		{&l.writebatchDestroy, "leveldb_writebatch_destroy"},
		{&l.writebatchPut, "leveldb_writebatch_put"},
		{&l.write, "leveldb_write"},
		{&l.get, "leveldb_get"},
		{&l.free, "leveldb_free"},
	}
	for _, s := range symbols {
		if _, err := purego.Dlsym(handle, s.name); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "cleveldb: missing symbol %s", s.name), ErrUnavailable)
		}
		purego.RegisterLibFunc(s.fptr, handle, s.name)
	}
	return l, nil
}

func cbool(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
