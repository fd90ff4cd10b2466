// Package metrics exposes Prometheus metrics for table construction and
// encoding.
//
// # Basic Usage
//
//	collector := metrics.Default() // global registry
//	tbl, err := table.New(m)
//	collector.RecordBuild(rowsOf(tbl), err)
//
//	timer := metrics.NewTimer()
//	n, _ := encode(tbl)
//	collector.RecordEncoded("arrow", n, timer.Stop())
//
// # Metric Types
//
// Counter: tables built by outcome, bytes encoded per format.
// Histogram: rows per table, encode latency per format.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "resultset"

// Outcome label values for TablesBuilt.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
)

// Collector owns one set of metrics registered against a registerer.
// It is safe for concurrent use.
type Collector struct {
	tablesBuilt    *prometheus.CounterVec
	tableRows      prometheus.Histogram
	encodedBytes   *prometheus.CounterVec
	encodeDuration *prometheus.HistogramVec
	gatherer       prometheus.Gatherer
}

var (
	defaultOnce      sync.Once
	defaultCollector *Collector
)

// Default returns the collector registered with the global Prometheus
// registry. It is created on first use.
func Default() *Collector {
	defaultOnce.Do(func() {
		defaultCollector = NewCollector(prometheus.DefaultRegisterer)
	})
	return defaultCollector
}

// NewCollector registers the metrics with reg. A nil reg gets a private
// registry, which is what tests want.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	collector := metrics.NewCollector(reg)
//	collector.RecordBuild(100, nil)
func NewCollector(reg prometheus.Registerer) *Collector {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	factory := promauto.With(reg)

	return &Collector{
		tablesBuilt: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tables_built_total",
				Help:      "Tables constructed, by outcome",
			},
			[]string{"outcome"},
		),
		tableRows: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "table_rows",
				Help:      "Row count of successfully constructed tables",
				Buckets:   prometheus.ExponentialBuckets(1, 10, 8), // 1 .. 10M
			},
		),
		encodedBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "encoded_bytes_total",
				Help:      "Bytes produced by table encoders, by format",
			},
			[]string{"format"},
		),
		encodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "encode_duration_seconds",
				Help:      "Time spent encoding tables, by format",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"format"},
		),
		gatherer: gatherer,
	}
}

// RecordBuild counts one table construction. rows is ignored when err is set.
func (c *Collector) RecordBuild(rows int, err error) {
	if err != nil {
		c.tablesBuilt.WithLabelValues(OutcomeRejected).Inc()
		return
	}
	c.tablesBuilt.WithLabelValues(OutcomeOK).Inc()
	c.tableRows.Observe(float64(rows))
}

// RecordEncoded adds n bytes and one latency sample for format.
func (c *Collector) RecordEncoded(format string, n int64, d time.Duration) {
	c.encodedBytes.WithLabelValues(format).Add(float64(n))
	c.encodeDuration.WithLabelValues(format).Observe(d.Seconds())
}

// Sample is one gathered counter or histogram series.
type Sample struct {
	Name   string
	Labels map[string]string
	// Value is the counter value, or the sample count for histograms.
	Value float64
	// Sum is the histogram sum; zero for counters.
	Sum float64
}

// Snapshot gathers the collector's registry and returns the resultset
// series sorted by name.
func (c *Collector) Snapshot() ([]Sample, error) {
	families, err := c.gatherer.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		name := mf.GetName()
		if len(name) < len(namespace) || name[:len(namespace)] != namespace {
			continue
		}
		for _, m := range mf.GetMetric() {
			s := Sample{Name: name, Labels: make(map[string]string, len(m.GetLabel()))}
			for _, lp := range m.GetLabel() {
				s.Labels[lp.GetName()] = lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				s.Value = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				s.Value = float64(m.GetHistogram().GetSampleCount())
				s.Sum = m.GetHistogram().GetSampleSum()
			case m.GetGauge() != nil:
				s.Value = m.GetGauge().GetValue()
			}
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration since creation. It may be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
