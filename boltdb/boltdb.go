// Package boltdb exposes go.etcd.io/bbolt through the engine protocol. The
// store is a single B+tree file inside the open directory; every key lives in
// one bucket.
package boltdb

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/handlekv/engine"
	"github.com/rawbytedev/handlekv/log"
	"go.etcd.io/bbolt"
)

// Name is the registry name of this engine.
const Name = "boltdb"

// FileName is the data file created inside the store directory.
const FileName = "data.bolt"

var defaultBucket = []byte("_")

// BoltDB implements engine.Engine on top of bbolt.
type BoltDB struct {
	cfg   Config
	arena *engine.Arena
}

var _ engine.Engine = (*BoltDB)(nil)

// Config tunes the bbolt engine.
type Config struct {
	// Base options for every open. Timeout defaults to one second so a store
	// locked by another process fails the open instead of blocking it.
	BoltConfigs *bbolt.Options
}

type boltOptions struct {
	policy engine.Options
	bolt   bbolt.Options
}

// boltBatch keeps copies of the pending puts in order.
type boltBatch struct {
	keys   [][]byte
	values [][]byte
}

func NewBoltDB(cfg Config) *BoltDB {
	return &BoltDB{
		cfg:   cfg,
		arena: engine.NewArena(engine.Nil),
	}
}

func (b *BoltDB) Name() string { return Name }

func (b *BoltDB) NewOptions(o engine.Options) engine.Handle {
	opts := &boltOptions{policy: o, bolt: bbolt.Options{Timeout: time.Second, NoSync: true}}
	if b.cfg.BoltConfigs != nil {
		opts.bolt = *b.cfg.BoltConfigs
		if opts.bolt.Timeout == 0 {
			opts.bolt.Timeout = time.Second
		}
	}
	return b.arena.Alloc(engine.KindOptions, opts)
}

func (b *BoltDB) DestroyOptions(h engine.Handle) {
	b.arena.Release(h, engine.KindOptions)
}

// bbolt has no block cache and checksums pages on its own; read options only
// exist for the protocol.
func (b *BoltDB) NewReadOptions(o engine.ReadOptions) engine.Handle {
	return b.arena.Alloc(engine.KindReadOptions, o)
}

func (b *BoltDB) DestroyReadOptions(h engine.Handle) {
	b.arena.Release(h, engine.KindReadOptions)
}

func (b *BoltDB) NewWriteOptions(o engine.WriteOptions) engine.Handle {
	return b.arena.Alloc(engine.KindWriteOptions, o)
}

func (b *BoltDB) DestroyWriteOptions(h engine.Handle) {
	b.arena.Release(h, engine.KindWriteOptions)
}

func (b *BoltDB) Open(opts engine.Handle, path string) (engine.Handle, engine.Handle) {
	o := engine.Deref[*boltOptions](b.arena, opts, engine.KindOptions)
	file := filepath.Join(path, FileName)

	_, statErr := os.Stat(file)
	switch {
	case statErr == nil && o.policy.ErrorIfExists:
		return engine.Nil, b.arena.NewErrString(errors.Newf("bolt: %s exists (error_if_exists is true)", path))
	case statErr != nil && !o.policy.CreateIfMissing:
		return engine.Nil, b.arena.NewErrString(errors.Wrapf(statErr, "bolt: %s does not exist (create_if_missing is false)", path))
	}
	if o.policy.CreateIfMissing {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return engine.Nil, b.arena.NewErrString(errors.Wrapf(err, "bolt: create %s", path))
		}
	}

	bolt := o.bolt
	db, err := bbolt.Open(file, 0o600, &bolt)
	if err != nil {
		return engine.Nil, b.arena.NewErrString(errors.Wrapf(err, "bolt: open %s", file))
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(defaultBucket)
		return err
	})
	if err == nil && o.policy.ParanoidChecks {
		err = check(db)
	}
	if err != nil {
		if cerr := db.Close(); cerr != nil {
			log.ForEngine(Name).Error().Err(cerr).Str("path", path).Msg("close after failed open")
		}
		return engine.Nil, b.arena.NewErrString(err)
	}
	return b.arena.Alloc(engine.KindDatabase, db), engine.Nil
}

// check walks every page and returns the first inconsistency.
func check(db *bbolt.DB) error {
	return db.View(func(tx *bbolt.Tx) error {
		var first error
		for err := range tx.Check() {
			if first == nil {
				first = errors.Wrap(err, "bolt: consistency check")
			}
		}
		return first
	})
}

func (b *BoltDB) Close(h engine.Handle) {
	db := engine.Take[*bbolt.DB](b.arena, h, engine.KindDatabase)
	if err := db.Close(); err != nil {
		log.ForEngine(Name).Error().Err(err).Msg("close")
	}
}

func (b *BoltDB) NewWriteBatch() engine.Handle {
	return b.arena.Alloc(engine.KindWriteBatch, &boltBatch{})
}

func (b *BoltDB) WriteBatchPut(h engine.Handle, key, value []byte) {
	batch := engine.Deref[*boltBatch](b.arena, h, engine.KindWriteBatch)
	batch.keys = append(batch.keys, append([]byte{}, key...))
	batch.values = append(batch.values, append([]byte{}, value...))
}

func (b *BoltDB) WriteBatchClear(h engine.Handle) {
	batch := engine.Deref[*boltBatch](b.arena, h, engine.KindWriteBatch)
	clear(batch.keys)
	clear(batch.values)
	batch.keys = batch.keys[:0]
	batch.values = batch.values[:0]
}

func (b *BoltDB) DestroyWriteBatch(h engine.Handle) {
	b.arena.Release(h, engine.KindWriteBatch)
}

// Write applies the batch in one read-write transaction. The store is opened
// without fsync on commit, so Sync forces one after the commit.
func (b *BoltDB) Write(dbh, wopts, bh engine.Handle) engine.Handle {
	db := engine.Deref[*bbolt.DB](b.arena, dbh, engine.KindDatabase)
	wo := engine.Deref[engine.WriteOptions](b.arena, wopts, engine.KindWriteOptions)
	batch := engine.Deref[*boltBatch](b.arena, bh, engine.KindWriteBatch)

	err := db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(defaultBucket)
		for i := range batch.keys {
			if err := bucket.Put(batch.keys[i], batch.values[i]); err != nil {
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

// Get copies the value out; bbolt's slices are only valid inside the
// transaction.
func (b *BoltDB) Get(dbh, ropts engine.Handle, key []byte) (engine.Handle, int, engine.Handle) {
	db := engine.Deref[*bbolt.DB](b.arena, dbh, engine.KindDatabase)
	engine.Deref[engine.ReadOptions](b.arena, ropts, engine.KindReadOptions)

	var (
		val   []byte
		found bool
	)
	err := db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(defaultBucket).Get(key)
		if v == nil {
			return nil
		}
		found = true
		val = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		return engine.Nil, 0, b.arena.NewErrString(err)
	}
	if !found {
		return engine.Nil, 0, engine.Nil
	}
	return b.arena.NewBuffer(val), len(val), engine.Nil
}

func (b *BoltDB) View(h engine.Handle, n int) []byte { return b.arena.View(h, n) }

func (b *BoltDB) Message(h engine.Handle) string { return b.arena.Message(h) }

func (b *BoltDB) Free(h engine.Handle) { b.arena.Free(h) }

func (b *BoltDB) Live() engine.Counts { return b.arena.Counts() }
