package monitor

import "time"

// AlertType identifies what a performance alert is about
type AlertType string

const (
	AlertInsufficientData   AlertType = "insufficient_data"
	AlertAccuracyDrop       AlertType = "accuracy_drop"
	AlertContradictionSpike AlertType = "contradiction_spike"
	AlertErrorSpike         AlertType = "error_spike"
	AlertPromptDrift        AlertType = "prompt_drift"
)

// Severity grades how bad an alert is
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// EvalMetrics is one judge's rolling window of execution counts and rates.
// Rates are nil when the window holds no executions. Recomputed every cycle;
// persisted only as dated snapshots.
type EvalMetrics struct {
	JudgeID            string
	WindowDays         int
	ExecutionCount     int
	PassCount          int
	FailCount          int
	ErrorCount         int
	ContradictionCount int

	// Accuracy is the pass rate over the window
	Accuracy          *float64
	ContradictionRate *float64
	ErrorRate         *float64
}

// PerformanceAlert is a raised quality-degradation signal for one judge.
// At most one unresolved alert exists per (judge, type); re-triggering
// updates that row in place.
type PerformanceAlert struct {
	ID             string
	JudgeID        string
	Type           AlertType
	Severity       Severity
	CurrentValue   float64
	ThresholdValue float64
	Message        string
	TriggeredAt    time.Time
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
}

// AutoRefineCooldown is the per-judge backoff state for automatic refinement
type AutoRefineCooldown struct {
	JudgeID             string
	LastAttemptAt       time.Time
	NextAllowedAt       time.Time
	ConsecutiveFailures int
}

// Snapshot is one dated, immutable record of a judge's cycle metrics
type Snapshot struct {
	JudgeID string

	// Date is the snapshot day in YYYY-MM-DD form
	Date string

	Metrics EvalMetrics
}

// MonitoringResult is the outcome of one judge's monitoring cycle
type MonitoringResult struct {
	JudgeID string
	Metrics *EvalMetrics
	Alerts  []PerformanceAlert

	// DriftDetected is set when any prompt version's accuracy moved away
	// from the baseline version
	DriftDetected bool

	// AutoRefineTriggered is set when the cycle produced a warning or
	// critical alert, the judge has auto-refine enabled, and the cooldown
	// allows another attempt
	AutoRefineTriggered bool

	// Err carries a cycle failure; one judge failing never stops the others
	Err error
}
