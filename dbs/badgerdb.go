package dbs

import (
	"github.com/rawbytedev/handlekv/badgerdb"
	"github.com/rawbytedev/handlekv/configs"
	"github.com/rawbytedev/handlekv/engine"
)

// newBadgerdb builds the Badger engine from the badger section of cfg.
func newBadgerdb(cfg configs.StoreConfig) (engine.Engine, error) {
	return badgerdb.NewBadgerDB(badgerdb.Config{BadgerConfigs: cfg.BadgerOptions()}), nil
}
