package agreement

import "time"

const (
	// DefaultParallelism bounds concurrent judge invocations per test
	DefaultParallelism = 5

	// DefaultPerTraceTimeout is the budget for one judge invocation. A
	// timeout counts as a per-trace failure, not a fatal error.
	DefaultPerTraceTimeout = 30 * time.Second

	// DefaultMinWinnerAccuracy is the accuracy floor a top-ranked candidate
	// must meet to be selected as winner (inclusive)
	DefaultMinWinnerAccuracy = 0.70

	// DefaultMinWinnerKappa is the Cohen's kappa floor for winner selection
	// (inclusive)
	DefaultMinWinnerKappa = 0.40

	// rankingTieMargin is the Pearson agreement gap at or under which two
	// candidates are considered tied and ordered by kappa instead
	rankingTieMargin = 0.01
)

// Config holds configuration for the agreement scoring Engine
type Config struct {
	// Runner executes judge candidates against traces. Required.
	Runner JudgeRunner

	// Parallelism bounds the worker pool for per-trace evaluation.
	// If 0, uses DefaultParallelism.
	Parallelism int

	// PerTraceTimeout is applied to each judge invocation.
	// If 0, uses DefaultPerTraceTimeout.
	PerTraceTimeout time.Duration

	// MinWinnerAccuracy overrides the winner accuracy gate. If 0, uses
	// DefaultMinWinnerAccuracy.
	MinWinnerAccuracy float64

	// MinWinnerKappa overrides the winner kappa gate. If 0, uses
	// DefaultMinWinnerKappa.
	MinWinnerKappa float64
}

// applyDefaults fills in default values for unset config fields
func (c *Config) applyDefaults() {
	if c.Parallelism == 0 {
		c.Parallelism = DefaultParallelism
	}

	if c.PerTraceTimeout == 0 {
		c.PerTraceTimeout = DefaultPerTraceTimeout
	}

	if c.MinWinnerAccuracy == 0 {
		c.MinWinnerAccuracy = DefaultMinWinnerAccuracy
	}

	if c.MinWinnerKappa == 0 {
		c.MinWinnerKappa = DefaultMinWinnerKappa
	}
}
