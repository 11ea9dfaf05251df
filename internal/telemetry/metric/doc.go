// Package metric provides Prometheus metrics for ssess.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: the application registry, session metrics and the
//     HTTP handler
//   - collector.go: a custom collector for backend record counts
//
// Metrics include:
//
//   - Session operation counters by operation and result
//   - Lock wait latency histogram
//   - Fixation and decrypt failure counters
//   - HTTP request counters and latency
//
// Registry implements session.Metrics so a Handler can report into it.
// Metrics are exposed at /metrics in Prometheus format.
package metric
