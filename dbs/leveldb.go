package dbs

import (
	"github.com/rawbytedev/handlekv/cleveldb"
	"github.com/rawbytedev/handlekv/configs"
	"github.com/rawbytedev/handlekv/engine"
	"github.com/rawbytedev/handlekv/goleveldb"
)

func newLeveldb(cfg configs.StoreConfig) (engine.Engine, error) {
	return goleveldb.NewLevelDB(goleveldb.Config{LevelDBConfigs: cfg.LevelDBConfigs}), nil
}

// newCleveldb loads the native library; it fails when the library is missing.
func newCleveldb(cfg configs.StoreConfig) (engine.Engine, error) {
	return cleveldb.Load(cfg.LevelDBLibrary)
}
