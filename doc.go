// Package handlekv is a safe access layer over an embedded ordered key-value
// engine.
//
// Every native resource the engine hands out is released exactly once. The
// open store and write batches are owned by a Database and a WriteBatch, which
// release them on Close or Destroy, or from a runtime cleanup when the owner
// becomes unreachable first. Configuration objects live for the whole
// process. Returned values and error messages are copied onto the Go heap and
// the engine's buffers freed before Get or Open returns, so no slice handed to
// the caller ever points into engine memory.
//
// A typical session:
//
//	db := handlekv.NewDatabase()
//	if err := db.Open(dir); err != nil {
//		return err
//	}
//	defer db.Close()
//
//	b := db.NewWriteBatch()
//	defer b.Destroy()
//	b.Put([]byte("k"), []byte("v"))
//	if err := handlekv.Write(db, b); err != nil {
//		return err
//	}
//
//	v, err := handlekv.Get(db, []byte("k"))
//	if err != nil {
//		return err
//	}
//	defer v.Close()
//
// Engine failures are returned as *Error. Misuse of the API (opening an open
// database, reading or writing through a closed one) panics.
package handlekv
