package badgerdb

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/rawbytedev/handlekv/log"
	"github.com/rs/zerolog"
)

// specific badgerdb options
type Config struct {
	// Base options for every open. Dir and ValueDir are replaced by the open
	// path; checksum settings follow the paranoid flag.
	BadgerConfigs *badger.Options
}

func DefaultOptions() Config {
	return Config{}
}

// zerologger adapts zerolog to badger.Logger. Badger is chatty at info level,
// so info is demoted to debug.
type zerologger struct {
	path string
}

func (z zerologger) logger() *zerolog.Logger {
	l := log.ForEngine(Name).With().Str("path", z.path).Logger()
	return &l
}

var _ badger.Logger = zerologger{}

func (z zerologger) Errorf(format string, args ...interface{}) {
	z.logger().Error().Msgf(format, args...)
}

func (z zerologger) Warningf(format string, args ...interface{}) {
	z.logger().Warn().Msgf(format, args...)
}

func (z zerologger) Infof(format string, args ...interface{}) {
	z.logger().Debug().Msgf(format, args...)
}

func (z zerologger) Debugf(format string, args ...interface{}) {
	z.logger().Trace().Msgf(format, args...)
}
