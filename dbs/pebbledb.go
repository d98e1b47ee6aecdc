package dbs

import (
	"github.com/rawbytedev/handlekv/configs"
	"github.com/rawbytedev/handlekv/engine"
	"github.com/rawbytedev/handlekv/pebbledb"
)

// newPebbledb builds the Pebble engine from the pebble section of cfg.
func newPebbledb(cfg configs.StoreConfig) (engine.Engine, error) {
	return pebbledb.NewPebbleDB(pebbledb.Config{PebbleConfigs: cfg.PebbleOptions()}), nil
}
