// Package metrics exposes per-junction counters as Prometheus gauges,
// following the collector pattern used by the go-tcpinfo exporters: a
// mutex-guarded map of tracked objects, Describe/Collect, and an Add/Remove
// lifecycle driven by the owner.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot is the set of counters a junction reports for one scrape.
type Snapshot struct {
	Waiting   float64
	Unique    float64
	Duplicate float64
	Pong      float64
	Sent      float64
	Received  float64
	Rejected  float64
	Links     float64
}

// Source supplies a point-in-time Snapshot; satisfied by junction.Junction.
type Source interface {
	MetricsSnapshot() Snapshot
}

// JunctionCollector reports the §6.4 observability counters for every
// junction registered with it, labeled by junction id.
type JunctionCollector struct {
	mu      sync.Mutex
	sources map[string]Source
	descs   map[string]*prometheus.Desc
}

var counterNames = []string{"waiting", "unique", "duplicate", "pong", "sent", "received", "rejected", "links"}

// NewJunctionCollector builds a collector with no junctions registered yet.
func NewJunctionCollector() *JunctionCollector {
	descs := make(map[string]*prometheus.Desc, len(counterNames))
	for _, name := range counterNames {
		descs[name] = prometheus.NewDesc(
			"slowmesh_junction_"+name,
			"slowmesh junction counter: "+name,
			[]string{"junction_id"},
			nil,
		)
	}
	return &JunctionCollector{
		sources: make(map[string]Source),
		descs:   descs,
	}
}

// Add registers junctionID's counters for scraping.
func (c *JunctionCollector) Add(junctionID string, src Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[junctionID] = src
}

// Remove stops scraping junctionID, e.g. after the junction is closed.
func (c *JunctionCollector) Remove(junctionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, junctionID)
}

// Describe implements prometheus.Collector.
func (c *JunctionCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *JunctionCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, src := range c.sources {
		snap := src.MetricsSnapshot()
		emit := func(name string, v float64) {
			ch <- prometheus.MustNewConstMetric(c.descs[name], prometheus.GaugeValue, v, id)
		}
		emit("waiting", snap.Waiting)
		emit("unique", snap.Unique)
		emit("duplicate", snap.Duplicate)
		emit("pong", snap.Pong)
		emit("sent", snap.Sent)
		emit("received", snap.Received)
		emit("rejected", snap.Rejected)
		emit("links", snap.Links)
	}
}
