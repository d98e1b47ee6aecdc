// Package helpers builds engines and databases for tests.
package helpers

import (
	"crypto/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/handlekv"
	"github.com/rawbytedev/handlekv/cleveldb"
	"github.com/rawbytedev/handlekv/configs"
	"github.com/rawbytedev/handlekv/dbs"
	"github.com/rawbytedev/handlekv/engine"
	"github.com/stretchr/testify/require"
)

// Engines lists the engines tests run against. cleveldb is included and
// skipped where the native library is missing.
var Engines = []string{"pebbledb", "badgerdb", "leveldb", "boltdb", "cleveldb"}

func RandomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

// TestConfig is a store configuration for name sized for tests.
func TestConfig(name, dir string) configs.StoreConfig {
	cfg := configs.Default()
	cfg.Engine = name
	cfg.Default.Dir = dir
	cfg.Badger = configs.BadgerTuning{
		MemTableSize:     16 << 20,
		ValueLogFileSize: 16 << 20,
		BlockCacheSize:   8 << 20,
	}
	return cfg
}

// NewEngine returns a fresh engine named name, skipping the test when the
// engine cannot run on this machine.
func NewEngine(t *testing.T, name string) engine.Engine {
	t.Helper()
	e, err := dbs.NewEngine(TestConfig(name, ""))
	if errors.Is(err, cleveldb.ErrUnavailable) {
		t.Skipf("%s: %v", name, err)
	}
	require.NoError(t, err)
	return e
}

// SetupDB opens a database on a fresh engine in a temporary directory. The
// database is closed when the test ends.
func SetupDB(t *testing.T, name string) *handlekv.Database {
	t.Helper()
	return OpenOn(t, NewEngine(t, name))
}

// OpenOn opens a database on e in a temporary directory.
func OpenOn(t *testing.T, e engine.Engine) *handlekv.Database {
	t.Helper()
	db := handlekv.NewDatabaseOn(e)
	require.NoError(t, db.Open(t.TempDir()))
	t.Cleanup(db.Close)
	return db
}
