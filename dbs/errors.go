package dbs

import "github.com/cockroachdb/errors"

var (
	ErrUnknownEngine = errors.New("unknown engine")
)
