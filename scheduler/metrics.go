package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports scheduler and ledger state as Prometheus metrics.
// It snapshots Manager.Stats on every scrape, so it needs no callbacks
// wired into the hot path.
type Collector struct {
	manager *Manager

	inUse      *prometheus.Desc
	capacity   *prometheus.Desc
	queueDepth *prometheus.Desc
	oldestWait *prometheus.Desc
	admitted   *prometheus.Desc
	queued     *prometheus.Desc
	timedOut   *prometheus.Desc
	completed  *prometheus.Desc
	failed     *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a Prometheus collector for the given manager.
// An empty namespace defaults to "mcpimage".
func NewCollector(m *Manager, namespace string) *Collector {
	if namespace == "" {
		namespace = "mcpimage"
	}
	fqName := func(name string) string {
		return prometheus.BuildFQName(namespace, "scheduler", name)
	}
	dims := []string{"dimension"}

	return &Collector{
		manager: m,
		inUse: prometheus.NewDesc(fqName("resource_in_use"),
			"Current aggregate resource consumption per dimension.", dims, nil),
		capacity: prometheus.NewDesc(fqName("resource_capacity"),
			"Configured resource ceiling per dimension.", dims, nil),
		queueDepth: prometheus.NewDesc(fqName("queue_depth"),
			"Number of operations waiting for admission.", nil, nil),
		oldestWait: prometheus.NewDesc(fqName("oldest_wait_seconds"),
			"Age of the longest-waiting queued operation.", nil, nil),
		admitted: prometheus.NewDesc(fqName("admitted_total"),
			"Total operations admitted.", nil, nil),
		queued: prometheus.NewDesc(fqName("queued_total"),
			"Total operations that had to queue for admission.", nil, nil),
		timedOut: prometheus.NewDesc(fqName("timeouts_total"),
			"Total operations that timed out waiting for admission.", nil, nil),
		completed: prometheus.NewDesc(fqName("completed_total"),
			"Total operations completed successfully.", nil, nil),
		failed: prometheus.NewDesc(fqName("failed_total"),
			"Total operations that failed during execution.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.inUse
	ch <- c.capacity
	ch <- c.queueDepth
	ch <- c.oldestWait
	ch <- c.admitted
	ch <- c.queued
	ch <- c.timedOut
	ch <- c.completed
	ch <- c.failed
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.manager.Stats()

	gauge := func(desc *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, labels...)
	}
	counter := func(desc *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, v)
	}

	gauge(c.inUse, float64(s.InUse.MemoryBytes), "memory_bytes")
	gauge(c.inUse, s.InUse.CPUPercent, "cpu_percent")
	gauge(c.inUse, float64(s.InUse.NetworkBytesPerSec), "network_bytes_per_sec")
	gauge(c.inUse, float64(s.InUse.Connections), "connections")

	gauge(c.capacity, float64(s.Capacity.MemoryBytes), "memory_bytes")
	gauge(c.capacity, s.Capacity.CPUPercent, "cpu_percent")
	gauge(c.capacity, float64(s.Capacity.NetworkBytesPerSec), "network_bytes_per_sec")
	gauge(c.capacity, float64(s.Capacity.MaxConnections), "connections")

	gauge(c.queueDepth, float64(s.QueueDepth))
	gauge(c.oldestWait, s.OldestWait.Seconds())

	counter(c.admitted, float64(s.Admitted))
	counter(c.queued, float64(s.Queued))
	counter(c.timedOut, float64(s.TimedOut))
	counter(c.completed, float64(s.Completed))
	counter(c.failed, float64(s.Failed))
}
