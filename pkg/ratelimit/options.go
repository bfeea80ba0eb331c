package ratelimit

import (
	"time"

	"go.uber.org/zap"

	"github.com/axiomwire/ratelimitd/pkg/metrics"
)

// FailMode decides admission policy when the backing store cannot be
// reached: fail open (admit) or fail closed (reject with ServiceUnavailable).
type FailMode string

const (
	FailOpen   FailMode = "open"
	FailClosed FailMode = "closed"
)

// Option configures a Checker, following the functional-options pattern the
// teacher documents for its own RedisLimiter (WithPrefix, WithTimeout,
// WithRecorder).
type Option func(*Checker)

// WithFailMode sets the admission policy used when the store or breaker
// refuses a call. Defaults to FailOpen.
func WithFailMode(mode FailMode) Option {
	return func(c *Checker) { c.failMode = mode }
}

// WithRecorder injects a telemetry sink. Defaults to metrics.NoOpRecorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Checker) { c.recorder = r }
}

// WithLogger injects a structured logger. Defaults to zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(c *Checker) { c.logger = l }
}

// WithStoreTimeout sets the per-call deadline applied to the backing store
// round trip (spec.md section 5: "Every store call carries a deadline
// (default 100 ms)"). A non-positive value is ignored.
func WithStoreTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.storeTimeout = d
		}
	}
}
