// Package cleveldb binds the C API of the native LevelDB library.
//
// The library is loaded at runtime with purego, so no C toolchain is needed at
// build time. Handles are the library's own pointers: misuse is not caught by
// the library, it corrupts the process. The engine therefore keeps a table of
// the pointers it handed out and panics on a double free before the library
// sees it.
package cleveldb

import (
	"github.com/cockroachdb/errors"
)

// Name is the registry name of this engine.
const Name = "cleveldb"

// EnvLibrary names the environment variable consulted by Load when no path is
// given.
const EnvLibrary = "HANDLEKV_LEVELDB_LIB"

// ErrUnavailable is returned by Load when the native library cannot be used.
var ErrUnavailable = errors.New("cleveldb: native leveldb library unavailable")
