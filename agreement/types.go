package agreement

// LabeledTrace pairs one recorded agent execution with its human ground truth
type LabeledTrace struct {
	// TraceID identifies the recorded execution
	TraceID string

	// HumanScore is the human rating in [0, 1]
	HumanScore float64

	// Task is the original task payload the agent was given
	Task map[string]any

	// TaskMetadata carries extra context about the task, such as expected output
	TaskMetadata map[string]any

	// Trace is the recorded execution itself (steps, messages, tool calls)
	Trace map[string]any
}

// Human rating to score mapping used when building labeled traces from feedback
const (
	HumanScorePositive = 1.0
	HumanScoreNegative = 0.0
	HumanScoreNeutral  = 0.5
)

// ScoreForRating maps a feedback rating to its numeric human score.
// Unknown ratings map to neutral.
func ScoreForRating(rating string) float64 {
	switch rating {
	case "positive":
		return HumanScorePositive
	case "negative":
		return HumanScoreNegative
	default:
		return HumanScoreNeutral
	}
}

// JudgeCandidate is one competing judge implementation. Spec is opaque to the
// engine and only ever handed to the JudgeRunner.
type JudgeCandidate struct {
	ID   string
	Spec string
}

// PerTraceResult is the outcome of one (candidate, trace) evaluation
type PerTraceResult struct {
	TraceID    string
	JudgeScore float64
	HumanScore float64
	Feedback   string
	DurationMS int64
	CostUSD    float64

	// Error is the runner failure message, if any. A failed trace still
	// contributes its zero JudgeScore to the aggregate statistics.
	Error string
}

// ConfusionMatrix accumulates binary agreement counts at the 0.5 cut
type ConfusionMatrix struct {
	TruePositives  int `json:"true_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`
}

// ExecutionStats aggregates cost and latency over a candidate's test run
type ExecutionStats struct {
	TotalCostUSD  float64
	AvgDurationMS float64
	ErrorCount    int
}

// TestResult is the full evaluation of one candidate against a labeled set.
// Immutable once produced.
type TestResult struct {
	CandidateID      string
	PearsonAgreement float64
	Accuracy         float64
	CohenKappa       float64
	Precision        float64
	Recall           float64
	F1               float64
	Confusion        ConfusionMatrix
	PerTraceResults  []PerTraceResult
	Stats            ExecutionStats
}

// RankResult is the outcome of testing and ranking a field of candidates
type RankResult struct {
	// Results holds one TestResult per candidate, in input order
	Results []TestResult

	// Ranking is candidate ids best-first
	Ranking []string

	// Winner is the top-ranked result if it clears the activation gate,
	// nil otherwise
	Winner *TestResult
}
