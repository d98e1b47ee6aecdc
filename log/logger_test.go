package log

import (
	"bytes"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetLog(t *testing.T) {
	t.Cleanup(func() { Init(Options{LogLevel: zerolog.Disabled, Output: io.Discard}) })
}

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{LogLevel: zerolog.DebugLevel, Type: JSONLogger, Output: &buf})
	resetLog(t)

	l := ForEngine("pebbledb")
	l.Debug().Msg("opened")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "engine", line["component"])
	assert.Equal(t, "pebbledb", line["engine"])
	assert.Equal(t, "opened", line["message"])
}

func TestInitConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{LogLevel: zerolog.WarnLevel, Type: ConsoleLogger, Output: &buf})
	resetLog(t)

	Store().Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	Store().Warn().Msg("kept")
	assert.Contains(t, buf.String(), "| WARN  |")
	assert.Contains(t, buf.String(), `message: "kept"`)
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestStoreFollowsInit(t *testing.T) {
	before := Store()
	assert.Equal(t, zerolog.Disabled, before.GetLevel())

	var buf bytes.Buffer
	Init(Options{LogLevel: zerolog.InfoLevel, Type: JSONLogger, Output: &buf})
	resetLog(t)

	// Looking the logger up again after Init picks up the new output.
	Store().Info().Msg("after init")
	assert.Contains(t, buf.String(), `"message":"after init"`)
	assert.Contains(t, buf.String(), `"component":"store"`)
}

func TestInitWhileLogging(t *testing.T) {
	resetLog(t)
	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			for range 100 {
				ForEngine("pebbledb").Debug().Msg("busy")
				Store().Debug().Msg("busy")
			}
		})
	}
	for range 10 {
		Init(Options{LogLevel: zerolog.Disabled, Type: JSONLogger, Output: io.Discard})
	}
	wg.Wait()
}
