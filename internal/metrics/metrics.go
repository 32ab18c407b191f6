// Package metrics exports Prometheus counters about query executions and
// store mutations, and a gauge of the rows held per collection.
package metrics

import (
	"context"
	"net/http"

	"github.com/maruel/portalemu/internal/query"
	"github.com/maruel/portalemu/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements store.Observer and query.Tracer.
//
// Each Collector owns its registry so several can coexist in tests.
type Collector struct {
	reg *prometheus.Registry

	queries   *prometheus.CounterVec
	rows      *prometheus.CounterVec
	mutations *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// New returns a Collector with its metrics registered.
func New() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Collector{
		reg: reg,
		queries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portalemu_queries_total",
				Help: "Total number of builder executions",
			},
			[]string{"collection", "op"},
		),
		rows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portalemu_rows_returned_total",
				Help: "Total number of rows returned to callers",
			},
			[]string{"collection"},
		),
		mutations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portalemu_mutations_total",
				Help: "Total number of rows appended, updated or deleted",
			},
			[]string{"collection", "kind"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portalemu_query_duration_seconds",
				Help:    "Builder execution latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
			},
			[]string{"op"},
		),
	}
}

// OnExecute implements query.Tracer.
func (c *Collector) OnExecute(_ context.Context, e query.Execution) {
	c.queries.WithLabelValues(e.Collection, string(e.Op)).Inc()
	c.rows.WithLabelValues(e.Collection).Add(float64(e.Returned))
	c.duration.WithLabelValues(string(e.Op)).Observe(e.Duration.Seconds())
}

// OnAppend implements store.Observer.
func (c *Collector) OnAppend(collection string, _ store.Record) {
	c.mutations.WithLabelValues(collection, "append").Inc()
}

// OnUpdate implements store.Observer.
func (c *Collector) OnUpdate(collection string, _, _ store.Record) {
	c.mutations.WithLabelValues(collection, "update").Inc()
}

// OnDelete implements store.Observer.
func (c *Collector) OnDelete(collection string, _ store.Record) {
	c.mutations.WithLabelValues(collection, "delete").Inc()
}

// TrackStore exports portalemu_collection_rows, read from s at scrape time,
// so fixture reloads show up without any mutation being observed.
func (c *Collector) TrackStore(s *store.Store) {
	c.reg.MustRegister(&rowsCollector{
		s: s,
		desc: prometheus.NewDesc(
			"portalemu_collection_rows",
			"Number of rows currently held per collection",
			[]string{"collection"}, nil,
		),
	})
}

// rowsCollector reports one gauge sample per collection in a store.
type rowsCollector struct {
	s    *store.Store
	desc *prometheus.Desc
}

func (r *rowsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- r.desc
}

func (r *rowsCollector) Collect(ch chan<- prometheus.Metric) {
	for _, name := range r.s.Names() {
		ch <- prometheus.MustNewConstMetric(r.desc, prometheus.GaugeValue, float64(r.s.Len(name)), name)
	}
}

// Registry returns the registry holding the metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.reg
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
