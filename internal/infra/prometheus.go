package infra

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector exports a Metrics snapshot to Prometheus on every scrape.
type MetricsCollector struct {
	m *Metrics

	instructions *prometheus.Desc
	sales        *prometheus.Desc
	errors       *prometheus.Desc
	avgLatency   *prometheus.Desc
	connections  *prometheus.Desc
	publisher    *prometheus.Desc
}

// NewMetricsCollector creates a collector reading from m.
func NewMetricsCollector(namespace string, m *Metrics) *MetricsCollector {
	return &MetricsCollector{
		m:            m,
		instructions: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "instructions_total"), "Committed instructions.", nil, nil),
		sales:        prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "sales_total"), "Completed service purchases.", nil, nil),
		errors:       prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "errors_total"), "Rejected instructions and infrastructure failures.", nil, nil),
		avgLatency:   prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "instruction_latency_avg_seconds"), "Average instruction latency.", nil, nil),
		connections:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "feed_connections"), "Open event feed connections.", nil, nil),
		publisher:    prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "publisher_down"), "1 if the last broker publish failed.", nil, nil),
	}
}

func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.instructions
	ch <- c.sales
	ch <- c.errors
	ch <- c.avgLatency
	ch <- c.connections
	ch <- c.publisher
}

func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.m.Snapshot()

	down := 0.0
	if snap.PublisherDown {
		down = 1
	}

	ch <- prometheus.MustNewConstMetric(c.instructions, prometheus.CounterValue, float64(snap.InstructionsProcessed))
	ch <- prometheus.MustNewConstMetric(c.sales, prometheus.CounterValue, float64(snap.SalesCompleted))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(snap.ErrorsTotal))
	ch <- prometheus.MustNewConstMetric(c.avgLatency, prometheus.GaugeValue, float64(snap.AvgLatencyNs)/1e9)
	ch <- prometheus.MustNewConstMetric(c.connections, prometheus.GaugeValue, float64(snap.ActiveConnections))
	ch <- prometheus.MustNewConstMetric(c.publisher, prometheus.GaugeValue, down)
}
