//go:build !(darwin || linux)

package cleveldb

import (
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/handlekv/engine"
)

// Load always fails: runtime loading is only wired up for linux and darwin.
func Load(path string) (engine.Engine, error) {
	return nil, errors.Wrapf(ErrUnavailable, "unsupported platform %s", runtime.GOOS)
}
