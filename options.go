package handlekv

import (
	"sync"

	"github.com/rawbytedev/handlekv/engine"
	"github.com/rawbytedev/handlekv/log"
	"github.com/rawbytedev/handlekv/pebbledb"
)

// Fixed engine policy. Stores are created on demand, reopening an existing
// store is allowed and every open runs the engine's integrity checks.
var (
	openPolicy  = engine.Options{CreateIfMissing: true, ErrorIfExists: false, ParanoidChecks: true}
	readPolicy  = engine.ReadOptions{VerifyChecksums: false, FillCache: true}
	writePolicy = engine.WriteOptions{Sync: false}
)

// nativeConfig holds the configuration objects of one engine. They are built
// on first use and live until the process exits.
type nativeConfig struct {
	once  sync.Once
	opts  engine.Handle
	ropts engine.Handle
	wopts engine.Handle
}

// nativeConfigs maps engine.Engine -> *nativeConfig. Entries are never
// removed: an engine used by a Database stays reachable, with its options,
// until the process exits. Keys are engine values, not names, because option
// handles are only valid in the arena that issued them.
var nativeConfigs sync.Map

func configFor(e engine.Engine) *nativeConfig {
	v, _ := nativeConfigs.LoadOrStore(e, &nativeConfig{})
	c := v.(*nativeConfig)
	c.once.Do(func() {
		c.opts = e.NewOptions(openPolicy)
		c.ropts = e.NewReadOptions(readPolicy)
		c.wopts = e.NewWriteOptions(writePolicy)
		log.Store().Debug().Str("engine", e.Name()).Msg("engine configuration initialised")
	})
	return c
}

// DefaultEngine returns the process-wide pebble engine used by NewDatabase
// and NewWriteBatch.
var DefaultEngine = sync.OnceValue(func() engine.Engine {
	return pebbledb.NewPebbleDB(pebbledb.DefaultOptions())
})
