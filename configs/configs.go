package configs

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/dgraph-io/badger/v4"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"go.etcd.io/bbolt"
	"gopkg.in/yaml.v3"
)

// DefaultEngine is used when a config names no engine.
const DefaultEngine = "pebbledb"

type StoreConfig struct {
	Engine  string          `yaml:"engine"`
	Default *DefaultOptions `yaml:"default"`
	// Shared library for the cleveldb engine; empty means the platform default.
	LevelDBLibrary string       `yaml:"leveldb_library"`
	Log            LogOptions   `yaml:"log"`
	Pebble         PebbleTuning `yaml:"pebble"`
	Badger         BadgerTuning `yaml:"badger"`
	Bolt           BoltTuning   `yaml:"bolt"`

	// Typed options win over the YAML tuning when set.
	BadgerConfigs  *badger.Options `yaml:"-"`
	PebbleConfigs  *pebble.Options `yaml:"-"`
	LevelDBConfigs *opt.Options    `yaml:"-"`
	BoltConfigs    *bbolt.Options  `yaml:"-"`
}

type DefaultOptions struct {
	Dir string `yaml:"dir"` // some databases may require to specify the storage directory seperatly
}

type LogOptions struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

type PebbleTuning struct {
	MemTableSize uint64 `yaml:"memtable_size"`
	MaxOpenFiles int    `yaml:"max_open_files"`
}

type BadgerTuning struct {
	MemTableSize     int64 `yaml:"memtable_size"`
	ValueLogFileSize int64 `yaml:"value_log_file_size"`
	BlockCacheSize   int64 `yaml:"block_cache_size"`
}

type BoltTuning struct {
	Timeout    time.Duration `yaml:"timeout"`
	NoSync     *bool         `yaml:"no_sync"`
	NoGrowSync bool          `yaml:"no_grow_sync"`
}

// Default returns the configuration used when no file is given.
func Default() StoreConfig {
	return StoreConfig{
		Engine:  DefaultEngine,
		Default: &DefaultOptions{},
		Log:     LogOptions{Level: "info", Format: "console"},
	}
}

// Load reads a YAML file on top of Default.
func Load(path string) (StoreConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	if cfg.Engine == "" {
		cfg.Engine = DefaultEngine
	}
	if cfg.Default == nil {
		cfg.Default = &DefaultOptions{}
	}
	return cfg, cfg.Validate()
}

// Validate rejects negative sizes and unknown log formats.
func (c StoreConfig) Validate() error {
	if c.Pebble.MaxOpenFiles < 0 {
		return errors.Newf("pebble.max_open_files must not be negative, got %d", c.Pebble.MaxOpenFiles)
	}
	if c.Badger.MemTableSize < 0 || c.Badger.ValueLogFileSize < 0 || c.Badger.BlockCacheSize < 0 {
		return errors.New("badger sizes must not be negative")
	}
	if c.Bolt.Timeout < 0 {
		return errors.Newf("bolt.timeout must not be negative, got %s", c.Bolt.Timeout)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return errors.Newf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// Dir returns the storage directory, or "" when none is set.
func (c StoreConfig) Dir() string {
	if c.Default == nil {
		return ""
	}
	return c.Default.Dir
}

// PebbleOptions returns the base pebble options, or nil for pebble defaults.
func (c StoreConfig) PebbleOptions() *pebble.Options {
	if c.PebbleConfigs != nil {
		return c.PebbleConfigs
	}
	if c.Pebble == (PebbleTuning{}) {
		return nil
	}
	return &pebble.Options{
		MemTableSize: c.Pebble.MemTableSize,
		MaxOpenFiles: c.Pebble.MaxOpenFiles,
	}
}

// BadgerOptions returns the base badger options, or nil for badger defaults.
func (c StoreConfig) BadgerOptions() *badger.Options {
	if c.BadgerConfigs != nil {
		return c.BadgerConfigs
	}
	if c.Badger == (BadgerTuning{}) {
		return nil
	}
	opts := badger.DefaultOptions(c.Dir())
	if c.Badger.MemTableSize > 0 {
		opts = opts.WithMemTableSize(c.Badger.MemTableSize)
	}
	if c.Badger.ValueLogFileSize > 0 {
		opts = opts.WithValueLogFileSize(c.Badger.ValueLogFileSize)
	}
	if c.Badger.BlockCacheSize > 0 {
		opts = opts.WithBlockCacheSize(c.Badger.BlockCacheSize)
	}
	return &opts
}

// BoltOptions returns the base bbolt options, or nil for the engine defaults.
func (c StoreConfig) BoltOptions() *bbolt.Options {
	if c.BoltConfigs != nil {
		return c.BoltConfigs
	}
	if c.Bolt == (BoltTuning{}) {
		return nil
	}
	opts := &bbolt.Options{Timeout: c.Bolt.Timeout, NoSync: true, NoGrowSync: c.Bolt.NoGrowSync}
	if c.Bolt.NoSync != nil {
		opts.NoSync = *c.Bolt.NoSync
	}
	return opts
}
