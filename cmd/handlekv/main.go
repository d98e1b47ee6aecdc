// Command handlekv puts and gets values in a local store.
//
//	handlekv -dir /tmp/store put name=alice city=paris
//	handlekv -dir /tmp/store get name city
package main

import (
	"bytes"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rawbytedev/handlekv"
	"github.com/rawbytedev/handlekv/configs"
	"github.com/rawbytedev/handlekv/dbs"
	"github.com/rawbytedev/handlekv/log"
	"github.com/rawbytedev/handlekv/metrics"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "handlekv: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("handlekv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML store configuration")
	engineName := fs.String("engine", "", "storage engine, overrides the configuration")
	dir := fs.String("dir", "", "store directory, overrides the configuration")
	useHex := fs.Bool("hex", false, "keys and values are hex encoded")
	logLevel := fs.String("log-level", "", "log level, overrides the configuration")
	dumpMetrics := fs.Bool("metrics", false, "print metrics to stderr on exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := configs.Default()
	if *configPath != "" {
		var err error
		if cfg, err = configs.Load(*configPath); err != nil {
			return err
		}
	}
	if *engineName != "" {
		cfg.Engine = *engineName
	}
	if *dir != "" {
		cfg.Default.Dir = *dir
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if cfg.Dir() == "" {
		return errors.New("no store directory, use -dir or default.dir")
	}
	if err := initLog(cfg.Log, stderr); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return errors.New("usage: handlekv [flags] put key=value... | get key...")
	}

	e, err := dbs.NewEngine(cfg)
	if err != nil {
		return err
	}
	if *dumpMetrics {
		reg := prometheus.NewRegistry()
		if err := metrics.Register(reg, e); err != nil {
			return err
		}
		defer writeMetrics(reg, stderr)
	}

	db := handlekv.NewDatabaseOn(e)
	if err := db.Open(cfg.Dir()); err != nil {
		return errors.Wrapf(err, "open %s", cfg.Dir())
	}
	defer db.Close()

	c := codec{hex: *useHex}
	switch cmd, operands := rest[0], rest[1:]; cmd {
	case "put":
		return put(db, c, operands)
	case "get":
		return get(db, c, operands, stdout)
	default:
		return errors.Newf("unknown command %q", cmd)
	}
}

func initLog(opts configs.LogOptions, out io.Writer) error {
	level, err := log.ParseLogLevel(opts.Level)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	typ := log.ConsoleLogger
	if opts.Format == "json" {
		typ = log.JSONLogger
	}
	log.Init(log.Options{LogLevel: level, Type: typ, Output: out})
	return nil
}

// put writes every key=value operand in one batch.
func put(w handlekv.Writer, c codec, operands []string) error {
	if len(operands) == 0 {
		return errors.New("put: no key=value pairs")
	}
	b := w.NewWriteBatch()
	defer b.Destroy()
	for _, op := range operands {
		k, v, ok := bytes.Cut([]byte(op), []byte("="))
		if !ok {
			return errors.Newf("put: %q is not key=value", op)
		}
		key, err := c.decode(k)
		if err != nil {
			return errors.Wrapf(err, "put: key %q", k)
		}
		value, err := c.decode(v)
		if err != nil {
			return errors.Wrapf(err, "put: value %q", v)
		}
		b.Put(key, value)
	}
	return w.Write(b)
}

// get prints one line per key; a missing key prints an empty line.
func get(r handlekv.Reader, c codec, keys []string, out io.Writer) error {
	for _, k := range keys {
		key, err := c.decode([]byte(k))
		if err != nil {
			return errors.Wrapf(err, "get: key %q", k)
		}
		v, err := r.Get(key)
		if err != nil {
			return errors.Wrapf(err, "get %q", k)
		}
		_, err = fmt.Fprintln(out, c.encode(v.Bytes()))
		v.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

type codec struct {
	hex bool
}

func (c codec) decode(s []byte) ([]byte, error) {
	if !c.hex {
		return s, nil
	}
	out := make([]byte, hex.DecodedLen(len(s)))
	n, err := hex.Decode(out, s)
	return out[:n], err
}

func (c codec) encode(b []byte) string {
	if c.hex {
		return hex.EncodeToString(b)
	}
	return string(b)
}

func writeMetrics(g prometheus.Gatherer, out io.Writer) {
	mfs, err := g.Gather()
	if err != nil {
		fmt.Fprintf(out, "gather metrics: %v\n", err)
		return
	}
	enc := expfmt.NewEncoder(out, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			fmt.Fprintf(out, "encode metrics: %v\n", err)
			return
		}
	}
}
