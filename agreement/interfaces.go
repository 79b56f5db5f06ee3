package agreement

import "context"

// Verdict is the outcome of running one judge against one trace
type Verdict struct {
	// Score is the judge's verdict in [0, 1]
	Score float64

	// Feedback is the judge's rationale for the score
	Feedback string

	// DurationMS is how long the evaluation took
	DurationMS int64

	// CostUSD is the cost of the evaluation, if the runner meters it
	CostUSD float64
}

// JudgeRunner executes an opaque judge candidate against a single trace.
// The engine never inspects the candidate spec; sandboxing and interpretation
// are the runner's problem. A returned error becomes a zero-scored per-trace
// result rather than failing the whole test.
type JudgeRunner interface {
	Run(ctx context.Context, candidateSpec string, trace LabeledTrace) (*Verdict, error)
}
