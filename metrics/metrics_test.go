package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rawbytedev/handlekv/engine"
	"github.com/rawbytedev/handlekv/pebbledb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	before := testutil.ToFloat64(Operations.WithLabelValues("test", "get", ResultMiss))
	Observe("test", "get", ResultMiss)
	Observe("test", "get", ResultMiss)
	after := testutil.ToFloat64(Operations.WithLabelValues("test", "get", ResultMiss))
	assert.Equal(t, before+2, after)
}

func TestHandleCollector(t *testing.T) {
	e := pebbledb.NewPebbleDB(pebbledb.DefaultOptions())
	opts := e.NewOptions(engine.Options{CreateIfMissing: true})
	defer e.DestroyOptions(opts)
	batch := e.NewWriteBatch()
	defer e.DestroyWriteBatch(batch)

	c := NewHandleCollector(e)
	assert.Equal(t, len(engine.Kinds()), testutil.CollectAndCount(c))

	expected := `
# HELP handlekv_live_handles Native handles currently held, by engine and kind.
# TYPE handlekv_live_handles gauge
handlekv_live_handles{engine="pebbledb",kind="database"} 0
handlekv_live_handles{engine="pebbledb",kind="error_string"} 0
handlekv_live_handles{engine="pebbledb",kind="options"} 1
handlekv_live_handles{engine="pebbledb",kind="read_options"} 0
handlekv_live_handles{engine="pebbledb",kind="value"} 0
handlekv_live_handles{engine="pebbledb",kind="write_batch"} 1
handlekv_live_handles{engine="pebbledb",kind="write_options"} 0
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))
}

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := pebbledb.NewPebbleDB(pebbledb.DefaultOptions())
	require.NoError(t, Register(reg, e))
	// The shared counters are already there; a second collector for the same
	// engine name is a duplicate.
	assert.Error(t, Register(reg, e))
}
