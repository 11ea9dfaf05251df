package session

import (
	"strings"
	"time"

	"github.com/yndnr/ssess-go/internal/core/domain"
	"github.com/yndnr/ssess-go/internal/telemetry/logger"
)

// Defaults for the Open lock loop.
const (
	DefaultLockRetryInterval = time.Millisecond
	DefaultLockTimeout       = 10 * time.Second
)

// ReadFailurePolicy decides what Read does when a stored session exists but
// cannot be used. It is set separately for envelopes that cannot be fetched
// from storage and for envelopes that do not decrypt under the session's key.
type ReadFailurePolicy int

const (
	// ReadFailurePropagate returns the error (ErrUnableToFetch or
	// ErrUnableToDecrypt) to the caller.
	ReadFailurePropagate ReadFailurePolicy = iota

	// ReadFailureEmpty logs the failure and reads the session as empty.
	ReadFailureEmpty
)

// String returns the config name of the policy.
func (p ReadFailurePolicy) String() string {
	switch p {
	case ReadFailurePropagate:
		return "propagate"
	case ReadFailureEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// ParseReadFailurePolicy parses "propagate" or "empty" (case-insensitive).
// An empty name selects ReadFailurePropagate.
func ParseReadFailurePolicy(name string) (ReadFailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "propagate":
		return ReadFailurePropagate, nil
	case "empty":
		return ReadFailureEmpty, nil
	default:
		return 0, domain.ErrInvalidArgument.WithDetails("read failure policy must be propagate or empty, got " + name)
	}
}

type options struct {
	allowInsecure     bool
	lockRetryInterval time.Duration
	lockTimeout       time.Duration
	decryptPolicy     ReadFailurePolicy
	fetchPolicy       ReadFailurePolicy
	logger            logger.Logger
	metrics           Metrics
	now               func() time.Time
}

func defaultOptions() options {
	return options{
		lockRetryInterval: DefaultLockRetryInterval,
		lockTimeout:       DefaultLockTimeout,
		decryptPolicy:     ReadFailurePropagate,
		fetchPolicy:       ReadFailurePropagate,
		logger:            logger.Default(),
		metrics:           nopMetrics{},
		now:               time.Now,
	}
}

// Option configures a Handler.
type Option func(*options)

// WithInsecureSettingsAllowed skips the host security-setting checks.
// The fixation guard still runs when strict mode is on.
func WithInsecureSettingsAllowed(allow bool) Option {
	return func(o *options) {
		o.allowInsecure = allow
	}
}

// WithLockRetryInterval sets the pause between lock attempts in Open.
// Non-positive values keep the default.
func WithLockRetryInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockRetryInterval = d
		}
	}
}

// WithLockTimeout bounds how long Open waits for the lock.
// Zero waits until the context is done.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.lockTimeout = d
		}
	}
}

// WithDecryptFailurePolicy selects how Read treats undecryptable data.
func WithDecryptFailurePolicy(p ReadFailurePolicy) Option {
	return func(o *options) {
		o.decryptPolicy = p
	}
}

// WithFetchFailurePolicy selects how Read treats an existing record that the
// backend fails to return.
func WithFetchFailurePolicy(p ReadFailurePolicy) Option {
	return func(o *options) {
		o.fetchPolicy = p
	}
}

// WithLogger sets the handler's logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}
