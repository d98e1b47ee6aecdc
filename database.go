package handlekv

import (
	"runtime"

	"github.com/rawbytedev/handlekv/engine"
	"github.com/rawbytedev/handlekv/log"
	"github.com/rawbytedev/handlekv/metrics"
)

// Database owns an open store. The zero state is unopened; Open binds a store
// and Close releases it.
//
// Once open, Write and Get may be called from many goroutines; the engine
// serialises them itself. Open and Close must not race with anything.
type Database struct {
	noCopy noCopy

	eng     engine.Engine
	h       engine.Handle
	path    string
	cleanup runtime.Cleanup
}

var _ Store = (*Database)(nil)

// NewDatabase returns an unopened database on the default engine.
func NewDatabase() *Database {
	return NewDatabaseOn(DefaultEngine())
}

// NewDatabaseOn returns an unopened database on e.
func NewDatabaseOn(e engine.Engine) *Database {
	return &Database{eng: e}
}

// owned is what a runtime cleanup needs to release a handle. It must not
// reference the owner, or the owner would never become unreachable.
type owned struct {
	eng engine.Engine
	h   engine.Handle
}

func closeLeakedDatabase(v owned) {
	log.Store().Warn().Str("engine", v.eng.Name()).Msg("database dropped without Close")
	v.eng.Close(v.h)
}

// Open creates or opens the store in the directory path. It panics if the
// database is already open.
func (db *Database) Open(path string) error {
	if db.h != engine.Nil {
		misuse("open %s: database already open at %s", path, db.path)
	}
	h, errstr := db.eng.Open(configFor(db.eng).opts, path)
	if errstr != engine.Nil {
		err := newError(db.eng, errstr)
		metrics.Observe(db.eng.Name(), "open", metrics.ResultError)
		log.Store().Warn().Str("engine", db.eng.Name()).Str("path", path).
			Str("error", err.Message).Msg("open failed")
		return err
	}
	db.h = h
	db.path = path
	db.cleanup = runtime.AddCleanup(db, closeLeakedDatabase, owned{eng: db.eng, h: h})
	metrics.Observe(db.eng.Name(), "open", metrics.ResultOK)
	log.Store().Debug().Str("engine", db.eng.Name()).Str("path", path).Msg("database opened")
	return nil
}

// Close releases the store. Closing an unopened database does nothing.
func (db *Database) Close() {
	if db.h == engine.Nil {
		return
	}
	db.cleanup.Stop()
	db.eng.Close(db.h)
	log.Store().Debug().Str("engine", db.eng.Name()).Str("path", db.path).Msg("database closed")
	db.h = engine.Nil
	db.path = ""
}

func (db *Database) IsOpen() bool { return db.h != engine.Nil }

// Engine returns the engine the database runs on.
func (db *Database) Engine() engine.Engine { return db.eng }

// Path is the directory of the open store, or "" when unopened.
func (db *Database) Path() string { return db.path }

// NewWriteBatch returns an empty batch on the database's engine.
func (db *Database) NewWriteBatch() *WriteBatch {
	return NewWriteBatchOn(db.eng)
}

func (db *Database) Write(b *WriteBatch) error { return Write(db, b) }

func (db *Database) Get(key []byte) (*Octets, error) { return Get(db, key) }

func (db *Database) mustBeOpen(op string) {
	if db.h == engine.Nil {
		misuse("%s on a database that is not open", op)
	}
}

// Write applies the pending entries of b to db in one atomic engine write.
//
// b is cleared afterwards whether the write succeeded or not, so a failed
// batch is never resubmitted by accident; callers that want to retry must put
// the entries again. The native batch is kept. Writing a batch that never had
// a Put is a no-op.
//
// Write panics if db is not open or b belongs to another engine.
func Write(db *Database, b *WriteBatch) error {
	db.mustBeOpen("write")
	if !b.Allocated() {
		return nil
	}
	if b.eng != db.eng {
		misuse("write of a %s batch to a %s database", b.eng.Name(), db.eng.Name())
	}
	errstr := db.eng.Write(db.h, configFor(db.eng).wopts, b.h)
	n := b.Len()
	b.Clear()
	if errstr != engine.Nil {
		err := newError(db.eng, errstr)
		metrics.Observe(db.eng.Name(), "write", metrics.ResultError)
		log.Store().Warn().Str("engine", db.eng.Name()).Int("entries", n).
			Str("error", err.Message).Msg("write failed, batch discarded")
		return err
	}
	metrics.Observe(db.eng.Name(), "write", metrics.ResultOK)
	return nil
}

// Get looks key up in db. A missing key is not an error: the result is then
// an empty Octets. The caller owns the result and should Close it.
//
// Get panics if db is not open.
func Get(db *Database, key []byte) (*Octets, error) {
	db.mustBeOpen("get")
	val, n, errstr := db.eng.Get(db.h, configFor(db.eng).ropts, key)
	if errstr != engine.Nil {
		if val != engine.Nil {
			db.eng.Free(val)
		}
		err := newError(db.eng, errstr)
		metrics.Observe(db.eng.Name(), "get", metrics.ResultError)
		log.Store().Warn().Str("engine", db.eng.Name()).Str("error", err.Message).Msg("get failed")
		return nil, err
	}
	if val == engine.Nil {
		metrics.Observe(db.eng.Name(), "get", metrics.ResultMiss)
		return &Octets{}, nil
	}
	metrics.Observe(db.eng.Name(), "get", metrics.ResultOK)
	return newOctets(db.eng, val, n), nil
}
