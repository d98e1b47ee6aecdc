// Package goleveldb exposes github.com/syndtr/goleveldb, the pure Go port of
// LevelDB, through the engine protocol.
package goleveldb

import (
	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/handlekv/engine"
	"github.com/rawbytedev/handlekv/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Name is the registry name of this engine.
const Name = "leveldb"

// LevelDB implements engine.Engine on top of goleveldb.
type LevelDB struct {
	cfg   Config
	arena *engine.Arena
}

var _ engine.Engine = (*LevelDB)(nil)

// Config tunes the goleveldb engine.
type Config struct {
	// Base options for every open; the open-time policy fields are replaced.
	LevelDBConfigs *opt.Options
}

func NewLevelDB(cfg Config) *LevelDB {
	return &LevelDB{
		cfg:   cfg,
		arena: engine.NewArena(engine.Nil),
	}
}

func (l *LevelDB) Name() string { return Name }

func (l *LevelDB) NewOptions(o engine.Options) engine.Handle {
	opts := &opt.Options{}
	if l.cfg.LevelDBConfigs != nil {
		copied := *l.cfg.LevelDBConfigs
		opts = &copied
	}
	opts.ErrorIfMissing = !o.CreateIfMissing
	opts.ErrorIfExist = o.ErrorIfExists
	if o.ParanoidChecks {
		opts.Strict = opt.StrictAll
	}
	return l.arena.Alloc(engine.KindOptions, opts)
}

func (l *LevelDB) DestroyOptions(h engine.Handle) {
	l.arena.Release(h, engine.KindOptions)
}

func (l *LevelDB) NewReadOptions(o engine.ReadOptions) engine.Handle {
	ro := &opt.ReadOptions{DontFillCache: !o.FillCache}
	if o.VerifyChecksums {
		ro.Strict = opt.StrictBlockChecksum
	}
	return l.arena.Alloc(engine.KindReadOptions, ro)
}

func (l *LevelDB) DestroyReadOptions(h engine.Handle) {
	l.arena.Release(h, engine.KindReadOptions)
}

func (l *LevelDB) NewWriteOptions(o engine.WriteOptions) engine.Handle {
	return l.arena.Alloc(engine.KindWriteOptions, &opt.WriteOptions{Sync: o.Sync})
}

func (l *LevelDB) DestroyWriteOptions(h engine.Handle) {
	l.arena.Release(h, engine.KindWriteOptions)
}

func (l *LevelDB) Open(opts engine.Handle, path string) (engine.Handle, engine.Handle) {
	o := engine.Deref[*opt.Options](l.arena, opts, engine.KindOptions)
	db, err := leveldb.OpenFile(path, o)
	if err != nil {
		return engine.Nil, l.arena.NewErrString(errors.Wrapf(err, "open %s", path))
	}
	return l.arena.Alloc(engine.KindDatabase, db), engine.Nil
}

func (l *LevelDB) Close(h engine.Handle) {
	db := engine.Take[*leveldb.DB](l.arena, h, engine.KindDatabase)
	if err := db.Close(); err != nil {
		log.ForEngine(Name).Error().Err(err).Msg("close")
	}
}

// goleveldb batches stand alone, like the native ones: Put copies into the
// batch's own buffer and Reset keeps that buffer for reuse.
func (l *LevelDB) NewWriteBatch() engine.Handle {
	return l.arena.Alloc(engine.KindWriteBatch, new(leveldb.Batch))
}

func (l *LevelDB) WriteBatchPut(h engine.Handle, key, value []byte) {
	engine.Deref[*leveldb.Batch](l.arena, h, engine.KindWriteBatch).Put(key, value)
}

func (l *LevelDB) WriteBatchClear(h engine.Handle) {
	engine.Deref[*leveldb.Batch](l.arena, h, engine.KindWriteBatch).Reset()
}

func (l *LevelDB) DestroyWriteBatch(h engine.Handle) {
	l.arena.Release(h, engine.KindWriteBatch)
}

func (l *LevelDB) Write(dbh, wopts, bh engine.Handle) engine.Handle {
	db := engine.Deref[*leveldb.DB](l.arena, dbh, engine.KindDatabase)
	wo := engine.Deref[*opt.WriteOptions](l.arena, wopts, engine.KindWriteOptions)
	batch := engine.Deref[*leveldb.Batch](l.arena, bh, engine.KindWriteBatch)
	if err := db.Write(batch, wo); err != nil {
		return l.arena.NewErrString(err)
	}
	return engine.Nil
}

// Get hands out the slice goleveldb returns; it is already a private copy.
func (l *LevelDB) Get(dbh, ropts engine.Handle, key []byte) (engine.Handle, int, engine.Handle) {
	db := engine.Deref[*leveldb.DB](l.arena, dbh, engine.KindDatabase)
	ro := engine.Deref[*opt.ReadOptions](l.arena, ropts, engine.KindReadOptions)

	val, err := db.Get(key, ro)
	if errors.Is(err, leveldb.ErrNotFound) {
		return engine.Nil, 0, engine.Nil
	}
	if err != nil {
		return engine.Nil, 0, l.arena.NewErrString(err)
	}
	if val == nil {
		val = []byte{}
	}
	return l.arena.NewBuffer(val), len(val), engine.Nil
}

func (l *LevelDB) View(h engine.Handle, n int) []byte { return l.arena.View(h, n) }

func (l *LevelDB) Message(h engine.Handle) string { return l.arena.Message(h) }

func (l *LevelDB) Free(h engine.Handle) { l.arena.Free(h) }

func (l *LevelDB) Live() engine.Counts { return l.arena.Counts() }
