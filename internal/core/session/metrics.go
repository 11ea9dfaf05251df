package session

import "time"

// Operation names reported to Metrics.
const (
	OpOpen    = "open"
	OpRead    = "read"
	OpWrite   = "write"
	OpDestroy = "destroy"
	OpGC      = "gc"
)

// Operation results reported to Metrics.
const (
	ResultOK      = "ok"
	ResultMiss    = "miss"
	ResultError   = "error"
	ResultTimeout = "timeout"
)

// Metrics receives handler events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveOperation(op, result string)
	ObserveLockWait(d time.Duration)
	IncFixationRejected()
	IncDecryptFailure()
	AddGCRemoved(n int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(string, string) {}
func (nopMetrics) ObserveLockWait(time.Duration)   {}
func (nopMetrics) IncFixationRejected()            {}
func (nopMetrics) IncDecryptFailure()              {}
func (nopMetrics) AddGCRemoved(int)                {}
