// Package badger provides a durable session storage backend on the Badger
// embedded key-value store.
//
// Each record is a JSON value under <prefix><identifier>. A background loop
// runs value-log GC so space from destroyed and overwritten sessions is
// reclaimed. Size gauges can be exported to Prometheus with RegisterMetrics.
package badger
