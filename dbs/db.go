// Package dbs builds storage engines by name.
package dbs

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/handlekv/configs"
	"github.com/rawbytedev/handlekv/engine"
)

// constructor builds one engine from the store configuration.
type constructor func(cfg configs.StoreConfig) (engine.Engine, error)

var constructors = map[string]constructor{
	"pebbledb": newPebbledb,
	"badgerdb": newBadgerdb,
	"boltdb":   newBoltdb,
	"leveldb":  newLeveldb,
	"cleveldb": newCleveldb,
}

// NewEngine returns the engine cfg.Engine names. An empty name selects
// configs.DefaultEngine.
func NewEngine(cfg configs.StoreConfig) (engine.Engine, error) {
	name := cfg.Engine
	if name == "" {
		name = configs.DefaultEngine
	}
	ctor, ok := constructors[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEngine, "%q (known: %v)", name, Names())
	}
	e, err := ctor(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "engine %s", name)
	}
	return e, nil
}

// Names lists the registered engines.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
