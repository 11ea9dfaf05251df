package metric

import "github.com/prometheus/client_golang/prometheus"

// RecordCounter is implemented by backends that can count stored records
// cheaply. The memory backend does.
type RecordCounter interface {
	Count() int
}

// Collector reports the number of records a backend holds at scrape time.
type Collector struct {
	source RecordCounter
	desc   *prometheus.Desc
}

// NewCollector creates a collector for the named backend.
func NewCollector(backend string, source RecordCounter) *Collector {
	return &Collector{
		source: source,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "storage", "records"),
			"Records currently held by the storage backend.",
			nil,
			prometheus.Labels{"backend": backend},
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(c.source.Count()))
}
