// Package metrics exposes handlekv activity to Prometheus.
package metrics

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rawbytedev/handlekv/engine"
)

const namespace = "handlekv"

// Operation results.
const (
	ResultOK    = "ok"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Operations counts database operations by engine, operation and result.
var Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "operations_total",
	Help:      "Database operations by engine, operation and result.",
}, []string{"engine", "op", "result"})

// Observe records one operation.
func Observe(engineName, op, result string) {
	Operations.WithLabelValues(engineName, op, result).Inc()
}

// HandleCollector reports the native handles each engine has outstanding.
type HandleCollector struct {
	engines []engine.Engine
	desc    *prometheus.Desc
}

var _ prometheus.Collector = (*HandleCollector)(nil)

func NewHandleCollector(engines ...engine.Engine) *HandleCollector {
	return &HandleCollector{
		engines: engines,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "live_handles"),
			"Native handles currently held, by engine and kind.",
			[]string{"engine", "kind"}, nil,
		),
	}
}

func (c *HandleCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *HandleCollector) Collect(ch chan<- prometheus.Metric) {
	for _, e := range c.engines {
		live := e.Live()
		for _, k := range engine.Kinds() {
			ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue,
				float64(live[k]), e.Name(), k.String())
		}
	}
}

// Register adds the operation counters and a handle collector for engines
// to reg.
func Register(reg prometheus.Registerer, engines ...engine.Engine) error {
	if err := reg.Register(Operations); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return err
		}
	}
	return reg.Register(NewHandleCollector(engines...))
}
