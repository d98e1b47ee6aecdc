package pebbledb

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/rawbytedev/handlekv/engine"
	"github.com/rawbytedev/handlekv/log"
	"github.com/rs/zerolog"
)

// Name is the registry name of this engine.
const Name = "pebbledb"

// PebbleDB implements engine.Engine on top of Pebble.
// Every handle it hands out lives in an engine.Arena.
type PebbleDB struct {
	cfg   Config
	arena *engine.Arena
}

type pebbleOptions struct {
	opts     *pebble.Options
	paranoid bool
}

type pebbleBatch struct {
	keys   [][]byte
	values [][]byte
}

var _ engine.Engine = (*PebbleDB)(nil)

// NewPebbleDB returns a Pebble-backed engine.
func NewPebbleDB(cfg Config) *PebbleDB {
	return &PebbleDB{
		cfg:   cfg,
		arena: engine.NewArena(engine.Nil),
	}
}

func (p *PebbleDB) Name() string { return Name }

// --- Configuration objects ---

func (p *PebbleDB) NewOptions(o engine.Options) engine.Handle {
	opts := &pebble.Options{}
	if p.cfg.PebbleConfigs != nil {
		opts = p.cfg.PebbleConfigs.Clone()
	}
	if opts.Logger == nil {
		opts.Logger = pebbleLogger{}
	}
	opts.ErrorIfExists = o.ErrorIfExists
	opts.ErrorIfNotExists = !o.CreateIfMissing
	return p.arena.Alloc(engine.KindOptions, &pebbleOptions{opts: opts, paranoid: o.ParanoidChecks})
}

func (p *PebbleDB) DestroyOptions(h engine.Handle) {
	p.arena.Release(h, engine.KindOptions)
}

// Pebble verifies block checksums on every read and has no cache bypass for
// point lookups, so read options carry no state.
func (p *PebbleDB) NewReadOptions(o engine.ReadOptions) engine.Handle {
	return p.arena.Alloc(engine.KindReadOptions, o)
}

func (p *PebbleDB) DestroyReadOptions(h engine.Handle) {
	p.arena.Release(h, engine.KindReadOptions)
}

func (p *PebbleDB) NewWriteOptions(o engine.WriteOptions) engine.Handle {
	wo := pebble.NoSync
	if o.Sync {
		wo = pebble.Sync
	}
	return p.arena.Alloc(engine.KindWriteOptions, wo)
}

func (p *PebbleDB) DestroyWriteOptions(h engine.Handle) {
	p.arena.Release(h, engine.KindWriteOptions)
}

// --- Database lifecycle ---

// Open opens the store at path. With paranoid checks on, every level is
// verified before the handle is returned.
func (p *PebbleDB) Open(opts engine.Handle, path string) (engine.Handle, engine.Handle) {
	o := engine.Deref[*pebbleOptions](p.arena, opts, engine.KindOptions)
	db, err := pebble.Open(path, o.opts.Clone())
	if err != nil {
		return engine.Nil, p.arena.NewErrString(err)
	}
	if o.paranoid {
		if err := db.CheckLevels(nil); err != nil {
			if cerr := db.Close(); cerr != nil {
				log.ForEngine(Name).Warn().Err(cerr).Str("path", path).Msg("close after failed check")
			}
			return engine.Nil, p.arena.NewErrString(errors.Wrap(err, "paranoid check"))
		}
	}
	return p.arena.Alloc(engine.KindDatabase, db), engine.Nil
}

// Close closes the database. Pebble reports leaked iterators or snapshots as a
// close error; there is nobody to return it to, so it is logged.
func (p *PebbleDB) Close(h engine.Handle) {
	db := engine.Take[*pebble.DB](p.arena, h, engine.KindDatabase)
	if err := db.Close(); err != nil {
		log.ForEngine(Name).Error().Err(err).Msg("close")
	}
}

// --- Batch operations ---

func (p *PebbleDB) NewWriteBatch() engine.Handle {
	return p.arena.Alloc(engine.KindWriteBatch, &pebbleBatch{})
}

func (p *PebbleDB) WriteBatchPut(h engine.Handle, key, value []byte) {
	b := engine.Deref[*pebbleBatch](p.arena, h, engine.KindWriteBatch)
	b.keys = append(b.keys, bytes.Clone(nonNil(key)))
	b.values = append(b.values, bytes.Clone(nonNil(value)))
}

func (p *PebbleDB) WriteBatchClear(h engine.Handle) {
	b := engine.Deref[*pebbleBatch](p.arena, h, engine.KindWriteBatch)
	clear(b.keys)
	clear(b.values)
	b.keys = b.keys[:0]
	b.values = b.values[:0]
}

func (p *PebbleDB) DestroyWriteBatch(h engine.Handle) {
	p.arena.Release(h, engine.KindWriteBatch)
}

// Write commits the accumulated entries as one pebble batch, in insertion
// order, so the last put of a key wins.
func (p *PebbleDB) Write(dbh, wopts, bh engine.Handle) engine.Handle {
	db := engine.Deref[*pebble.DB](p.arena, dbh, engine.KindDatabase)
	wo := engine.Deref[*pebble.WriteOptions](p.arena, wopts, engine.KindWriteOptions)
	b := engine.Deref[*pebbleBatch](p.arena, bh, engine.KindWriteBatch)

	batch := db.NewBatch()
	defer batch.Close()
	for i := range b.keys {
		if err := batch.Set(b.keys[i], b.values[i], nil); err != nil {
			return p.arena.NewErrString(err)
		}
	}
	if err := batch.Commit(wo); err != nil {
		return p.arena.NewErrString(err)
	}
	return engine.Nil
}

// --- Point lookups ---

// Get copies the value out of Pebble's memory: callers may mutate the bytes
// they get back, Pebble's own slice must stay untouched.
func (p *PebbleDB) Get(dbh, ropts engine.Handle, key []byte) (engine.Handle, int, engine.Handle) {
	db := engine.Deref[*pebble.DB](p.arena, dbh, engine.KindDatabase)
	engine.Deref[engine.ReadOptions](p.arena, ropts, engine.KindReadOptions)

	val, closer, err := db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return engine.Nil, 0, engine.Nil
	}
	if err != nil {
		return engine.Nil, 0, p.arena.NewErrString(err)
	}
	defer closer.Close()
	buf := bytes.Clone(nonNil(val))
	return p.arena.NewBuffer(buf), len(buf), engine.Nil
}

func (p *PebbleDB) View(h engine.Handle, n int) []byte { return p.arena.View(h, n) }

func (p *PebbleDB) Message(h engine.Handle) string { return p.arena.Message(h) }

func (p *PebbleDB) Free(h engine.Handle) { p.arena.Free(h) }

func (p *PebbleDB) Live() engine.Counts { return p.arena.Counts() }

// bytes.Clone keeps nil as nil; a stored empty value must read back as present.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// pebbleLogger routes Pebble's own logging to the current engine logger.
type pebbleLogger struct{}

func (pebbleLogger) Infof(format string, args ...interface{}) {
	log.ForEngine(Name).Debug().Msgf(format, args...)
}

func (pebbleLogger) Errorf(format string, args ...interface{}) {
	log.ForEngine(Name).Error().Msgf(format, args...)
}

// Fatalf must not return.
func (pebbleLogger) Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.ForEngine(Name).WithLevel(zerolog.FatalLevel).Msg(msg)
	panic(msg)
}
