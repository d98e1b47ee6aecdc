package dbs

import (
	"github.com/rawbytedev/handlekv/boltdb"
	"github.com/rawbytedev/handlekv/configs"
	"github.com/rawbytedev/handlekv/engine"
)

func newBoltdb(cfg configs.StoreConfig) (engine.Engine, error) {
	return boltdb.NewBoltDB(boltdb.Config{BoltConfigs: cfg.BoltOptions()}), nil
}
