package monitor

import "time"

const (
	// DefaultWindowDays is the trailing window RunMonitoring uses when the
	// caller passes 0
	DefaultWindowDays = 7

	// DefaultParallelism bounds how many judges are monitored concurrently
	DefaultParallelism = 4

	// DefaultBackoffCapShift caps the cooldown backoff multiplier at
	// 2^shift (16x). Kept configurable rather than inlined.
	DefaultBackoffCapShift = 4
)

// Config holds configuration for the Monitor
type Config struct {
	// Store is the metrics persistence boundary. Required.
	Store MetricsStore

	// Thresholds are the default alerting limits, overridable per judge
	// through the store's threshold blob. Zero value uses DefaultThresholds.
	Thresholds Thresholds

	// Parallelism bounds concurrent per-judge cycles. If 0, uses
	// DefaultParallelism. Cycles for the same judge are always serialized.
	Parallelism int

	// BackoffCapShift caps the cooldown multiplier at 2^shift. If 0, uses
	// DefaultBackoffCapShift.
	BackoffCapShift int

	// Now overrides the clock, for tests. If nil, uses time.Now.
	Now func() time.Time
}

// applyDefaults fills in default values for unset config fields
func (c *Config) applyDefaults() {
	if c.Thresholds == (Thresholds{}) {
		c.Thresholds = DefaultThresholds()
	}

	if c.Parallelism == 0 {
		c.Parallelism = DefaultParallelism
	}

	if c.BackoffCapShift == 0 {
		c.BackoffCapShift = DefaultBackoffCapShift
	}

	if c.Now == nil {
		c.Now = time.Now
	}
}
