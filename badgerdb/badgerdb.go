package badgerdb

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/rawbytedev/handlekv/engine"
	"github.com/rawbytedev/handlekv/log"
)

// Name is the registry name of this engine.
const Name = "badgerdb"

// BadgerDB implements engine.Engine on top of Badger.
type BadgerDB struct {
	cfg   Config
	arena *engine.Arena
}

type badgerOptions struct {
	policy engine.Options
}

type badgerBatch struct {
	keys   [][]byte
	values [][]byte
}

var _ engine.Engine = (*BadgerDB)(nil)

// NewBadgerDB returns a Badger-backed engine.
func NewBadgerDB(cfg Config) *BadgerDB {
	return &BadgerDB{
		cfg:   cfg,
		arena: engine.NewArena(engine.Nil),
	}
}

func (b *BadgerDB) Name() string { return Name }

func (b *BadgerDB) NewOptions(o engine.Options) engine.Handle {
	return b.arena.Alloc(engine.KindOptions, &badgerOptions{policy: o})
}

func (b *BadgerDB) DestroyOptions(h engine.Handle) {
	b.arena.Release(h, engine.KindOptions)
}

func (b *BadgerDB) NewReadOptions(o engine.ReadOptions) engine.Handle {
	return b.arena.Alloc(engine.KindReadOptions, o)
}

func (b *BadgerDB) DestroyReadOptions(h engine.Handle) {
	b.arena.Release(h, engine.KindReadOptions)
}

func (b *BadgerDB) NewWriteOptions(o engine.WriteOptions) engine.Handle {
	return b.arena.Alloc(engine.KindWriteOptions, o)
}

func (b *BadgerDB) DestroyWriteOptions(h engine.Handle) {
	b.arena.Release(h, engine.KindWriteOptions)
}

// badgerOpts builds the badger options for one open.
func (b *BadgerDB) badgerOpts(policy engine.Options, path string) badger.Options {
	var opts badger.Options
	if b.cfg.BadgerConfigs != nil {
		opts = *b.cfg.BadgerConfigs
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithDir(path).WithValueDir(path).
		WithLogger(zerologger{path: path})
	if policy.ParanoidChecks {
		opts = opts.WithVerifyValueChecksum(true).
			WithChecksumVerificationMode(options.OnTableAndBlockRead)
	}
	return opts
}

// Open opens the store at path. Badger always creates missing directories
// and never refuses an existing store, so both policies are checked here.
func (b *BadgerDB) Open(opts engine.Handle, path string) (engine.Handle, engine.Handle) {
	o := engine.Deref[*badgerOptions](b.arena, opts, engine.KindOptions)

	if !o.policy.CreateIfMissing {
		if _, err := os.Stat(path); err != nil {
			return engine.Nil, b.arena.NewErrString(errors.Wrapf(err, "badger: %s does not exist (create_if_missing is false)", path))
		}
	}
	if o.policy.ErrorIfExists {
		if _, err := os.Stat(filepath.Join(path, badger.ManifestFilename)); err == nil {
			return engine.Nil, b.arena.NewErrString(errors.Newf("badger: %s exists (error_if_exists is true)", path))
		}
	}

	db, err := badger.Open(b.badgerOpts(o.policy, path))
	if err != nil {
		return engine.Nil, b.arena.NewErrString(err)
	}
	return b.arena.Alloc(engine.KindDatabase, db), engine.Nil
}

// Close closes the BadgerDB instance and releases all resources.
func (b *BadgerDB) Close(h engine.Handle) {
	db := engine.Take[*badger.DB](b.arena, h, engine.KindDatabase)
	if err := db.Close(); err != nil {
		log.ForEngine(Name).Error().Err(err).Msg("close")
	}
}

func (b *BadgerDB) NewWriteBatch() engine.Handle {
	return b.arena.Alloc(engine.KindWriteBatch, &badgerBatch{})
}

func (b *BadgerDB) WriteBatchPut(h engine.Handle, key, value []byte) {
	batch := engine.Deref[*badgerBatch](b.arena, h, engine.KindWriteBatch)
	batch.keys = append(batch.keys, bytes.Clone(nonNil(key)))
	batch.values = append(batch.values, bytes.Clone(nonNil(value)))
}

func (b *BadgerDB) WriteBatchClear(h engine.Handle) {
	batch := engine.Deref[*badgerBatch](b.arena, h, engine.KindWriteBatch)
	clear(batch.keys)
	clear(batch.values)
	batch.keys = batch.keys[:0]
	batch.values = batch.values[:0]
}

func (b *BadgerDB) DestroyWriteBatch(h engine.Handle) {
	b.arena.Release(h, engine.KindWriteBatch)
}

// Write applies the batch in a single read-write transaction. Later sets of a
// key replace earlier pending ones inside the transaction, so the last put
// wins. Badger syncs per database, not per write, so Sync forces a flush of
// the value log after the commit.
func (b *BadgerDB) Write(dbh, wopts, bh engine.Handle) engine.Handle {
	db := engine.Deref[*badger.DB](b.arena, dbh, engine.KindDatabase)
	wo := engine.Deref[engine.WriteOptions](b.arena, wopts, engine.KindWriteOptions)
	batch := engine.Deref[*badgerBatch](b.arena, bh, engine.KindWriteBatch)

	err := db.Update(func(txn *badger.Txn) error {
		for i := range batch.keys {
			if err := txn.Set(batch.keys[i], batch.values[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil && wo.Sync {
		err = db.Sync()
	}
	if err != nil {
		return b.arena.NewErrString(err)
	}
	return engine.Nil
}

func (b *BadgerDB) Get(dbh, ropts engine.Handle, key []byte) (engine.Handle, int, engine.Handle) {
	db := engine.Deref[*badger.DB](b.arena, dbh, engine.KindDatabase)
	engine.Deref[engine.ReadOptions](b.arena, ropts, engine.KindReadOptions)

	var data []byte
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return engine.Nil, 0, engine.Nil
	}
	if err != nil {
		return engine.Nil, 0, b.arena.NewErrString(err)
	}
	data = nonNil(data)
	return b.arena.NewBuffer(data), len(data), engine.Nil
}

func (b *BadgerDB) View(h engine.Handle, n int) []byte { return b.arena.View(h, n) }

func (b *BadgerDB) Message(h engine.Handle) string { return b.arena.Message(h) }

func (b *BadgerDB) Free(h engine.Handle) { b.arena.Free(h) }

func (b *BadgerDB) Live() engine.Counts { return b.arena.Counts() }

func nonNil(v []byte) []byte {
	if v == nil {
		return []byte{}
	}
	return v
}
