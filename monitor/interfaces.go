package monitor

import (
	"context"
	"time"
)

// ExecutionRecord is one judge execution as read back from the metrics store
type ExecutionRecord struct {
	JudgeID       string
	PromptVersion string

	// Passed is the judge's binary verdict for the trace
	Passed bool

	// Errored marks executions that failed before producing a verdict
	Errored bool

	// HumanRating is the independent human rating for the same trace:
	// "positive", "negative", "neutral", or "" when nobody rated it
	HumanRating string

	ExecutedAt time.Time
}

// JudgeSettings is the per-judge configuration the store keeps
type JudgeSettings struct {
	JudgeID           string
	AutoRefineEnabled bool

	// ThresholdConfig is the raw JSON threshold blob; empty or malformed
	// blobs fall back to defaults
	ThresholdConfig string
}

// MetricsStore is the persistence boundary of the monitor: append-only
// execution records plus alert, snapshot and cooldown rows
type MetricsStore interface {
	// JudgeIDs lists every judge known to the store
	JudgeIDs(ctx context.Context) ([]string, error)

	// JudgeSettings returns per-judge configuration; a judge with no stored
	// settings gets the zero value, not an error
	JudgeSettings(ctx context.Context, judgeID string) (*JudgeSettings, error)

	// ExecutionRecords returns the judge's executions at or after since,
	// oldest first. A zero since returns the full history.
	ExecutionRecords(ctx context.Context, judgeID string, since time.Time) ([]ExecutionRecord, error)

	// UnresolvedAlert returns the judge's open alert of the given type, or
	// nil when there is none
	UnresolvedAlert(ctx context.Context, judgeID string, alertType AlertType) (*PerformanceAlert, error)

	InsertAlert(ctx context.Context, alert *PerformanceAlert) error
	UpdateAlert(ctx context.Context, alert *PerformanceAlert) error
	MarkAlertAcknowledged(ctx context.Context, alertID string, at time.Time) error
	MarkAlertResolved(ctx context.Context, alertID string, at time.Time) error

	// UpsertSnapshot writes the cycle's metrics keyed by (judge, date);
	// re-running a cycle the same day overwrites the existing row
	UpsertSnapshot(ctx context.Context, snapshot Snapshot) error

	// Cooldown returns the judge's refinement cooldown row, or nil when the
	// judge has never attempted refinement
	Cooldown(ctx context.Context, judgeID string) (*AutoRefineCooldown, error)

	UpsertCooldown(ctx context.Context, cooldown AutoRefineCooldown) error
}
