package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type LoggerType uint8

const (
	ConsoleLogger LoggerType = iota
	JSONLogger
)

// Component loggers. They discard everything until Init is called, and are
// looked up on every use so that values built before Init still log.
var (
	root   atomic.Pointer[zerolog.Logger]
	store  atomic.Pointer[zerolog.Logger]
	engine atomic.Pointer[zerolog.Logger]
)

func init() {
	nop := zerolog.Nop()
	root.Store(&nop)
	store.Store(&nop)
	engine.Store(&nop)
}

// Options for Logger
type Options struct {
	// Default Info
	LogLevel zerolog.Level
	Type     LoggerType
	// Output defaults to os.Stderr
	Output io.Writer
}

func ParseLogLevel(loglevel string) (zerolog.Level, error) {
	return zerolog.ParseLevel(loglevel)
}

// Init replaces the component loggers. It is safe to call while other
// goroutines are logging.
func Init(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var r zerolog.Logger
	switch opts.Type {
	case ConsoleLogger:
		r = zerolog.New(newConsoleWriter(out)).Level(opts.LogLevel).
			With().Timestamp().Logger()
	default:
		r = zerolog.New(out).Level(opts.LogLevel).
			With().Timestamp().Logger()
	}
	s := r.With().Str("component", "store").Logger()
	e := r.With().Str("component", "engine").Logger()
	root.Store(&r)
	store.Store(&s)
	engine.Store(&e)
}

func Root() *zerolog.Logger { return root.Load() }

// Store logs handle lifecycle events.
func Store() *zerolog.Logger { return store.Load() }

func Engine() *zerolog.Logger { return engine.Load() }

// ForEngine returns the current engine logger tagged with the engine name.
func ForEngine(name string) *zerolog.Logger {
	l := Engine().With().Str("engine", name).Logger()
	return &l
}

func newConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	cw := zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: time.RFC3339}

	cw.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}

	cw.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("message: \"%s\" |", i)
	}

	cw.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("\"%s\": ", i)
	}

	cw.FormatFieldValue = func(i interface{}) string {
		return fmt.Sprintf("\"%s\" |", i)
	}

	cw.FormatErrFieldValue = func(i interface{}) string {
		return fmt.Sprintf(" %s |", i)
	}
	return cw
}
