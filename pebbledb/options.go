package pebbledb

import "github.com/cockroachdb/pebble"

// specific pebbledb options
type Config struct {
	// Base options cloned for every open. Open-time policy fields
	// (ErrorIfExists, ErrorIfNotExists) are overwritten.
	PebbleConfigs *pebble.Options
}

func DefaultOptions() Config {
	return Config{}
}
