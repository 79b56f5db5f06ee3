package agreement

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Engine scores judge candidates against human-labeled traces and ranks
// competing candidates by how well they agree with the humans.
type Engine struct {
	runner            JudgeRunner
	parallelism       int
	perTraceTimeout   time.Duration
	minWinnerAccuracy float64
	minWinnerKappa    float64
}

// NewEngine creates a new agreement scoring Engine with the given configuration
func NewEngine(cfg Config) (*Engine, error) {
	cfg.applyDefaults()

	if cfg.Runner == nil {
		return nil, fmt.Errorf("agreement: judge runner is required")
	}

	return &Engine{
		runner:            cfg.Runner,
		parallelism:       cfg.Parallelism,
		perTraceTimeout:   cfg.PerTraceTimeout,
		minWinnerAccuracy: cfg.MinWinnerAccuracy,
		minWinnerKappa:    cfg.MinWinnerKappa,
	}, nil
}

// TestCandidate evaluates one candidate against every labeled trace and
// computes the agreement statistics over the full score vectors.
//
// Per-trace judge invocations run on a bounded worker pool; results keep input
// order so repeated tests are deterministic. A runner failure or timeout on
// one trace records a zero-scored, error-annotated entry and the test
// continues. The zero score stays in the aggregate on purpose: dropping
// failed traces instead would silently shift Pearson and accuracy.
func (e *Engine) TestCandidate(ctx context.Context, candidate JudgeCandidate, traces []LabeledTrace) (*TestResult, error) {
	if len(traces) == 0 {
		return nil, fmt.Errorf("agreement: no labeled traces to test against")
	}

	perTrace := make([]PerTraceResult, len(traces))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.parallelism)
	for i, trace := range traces {
		wg.Add(1)
		go func(i int, trace LabeledTrace) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			perTrace[i] = e.evaluateTrace(ctx, candidate, trace)
		}(i, trace)
	}
	wg.Wait()

	judgeScores := make([]float64, len(perTrace))
	humanScores := make([]float64, len(perTrace))
	var stats ExecutionStats
	var totalDurationMS int64
	succeeded := 0
	for i, r := range perTrace {
		judgeScores[i] = r.JudgeScore
		humanScores[i] = r.HumanScore
		if r.Error != "" {
			stats.ErrorCount++
			continue
		}
		succeeded++
		totalDurationMS += r.DurationMS
		stats.TotalCostUSD += r.CostUSD
	}
	if succeeded > 0 {
		stats.AvgDurationMS = float64(totalDurationMS) / float64(succeeded)
	}

	cm := confusion(judgeScores, humanScores)

	return &TestResult{
		CandidateID:      candidate.ID,
		PearsonAgreement: pearson(judgeScores, humanScores),
		Accuracy:         cm.accuracy(),
		CohenKappa:       cm.cohenKappa(),
		Precision:        cm.precision(),
		Recall:           cm.recall(),
		F1:               cm.f1(),
		Confusion:        cm,
		PerTraceResults:  perTrace,
		Stats:            stats,
	}, nil
}

// evaluateTrace runs the judge on a single trace under the per-trace timeout
func (e *Engine) evaluateTrace(ctx context.Context, candidate JudgeCandidate, trace LabeledTrace) PerTraceResult {
	runCtx, cancel := context.WithTimeout(ctx, e.perTraceTimeout)
	defer cancel()

	verdict, err := e.runner.Run(runCtx, candidate.Spec, trace)
	if err != nil {
		return PerTraceResult{
			TraceID:    trace.TraceID,
			JudgeScore: 0,
			HumanScore: trace.HumanScore,
			Error:      err.Error(),
		}
	}

	return PerTraceResult{
		TraceID:    trace.TraceID,
		JudgeScore: verdict.Score,
		HumanScore: trace.HumanScore,
		Feedback:   verdict.Feedback,
		DurationMS: verdict.DurationMS,
		CostUSD:    verdict.CostUSD,
	}
}

// TestAndRank evaluates every candidate against the labeled set, ranks them
// best-first and applies the winner gate to the top candidate.
//
// Ranking orders by Pearson agreement descending; candidates whose agreement
// differs by at most 0.01 are tied and ordered by Cohen's kappa descending.
// The top candidate wins only if it clears both the accuracy and kappa floors.
func (e *Engine) TestAndRank(ctx context.Context, candidates []JudgeCandidate, traces []LabeledTrace) (*RankResult, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("agreement: no candidates to test")
	}

	results := make([]TestResult, len(candidates))
	for i, candidate := range candidates {
		result, err := e.TestCandidate(ctx, candidate, traces)
		if err != nil {
			return nil, fmt.Errorf("testing candidate %s: %w", candidate.ID, err)
		}
		results[i] = *result
	}

	ranked := make([]*TestResult, len(results))
	for i := range results {
		ranked[i] = &results[i]
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		ra, rb := ranked[a], ranked[b]
		if diff := ra.PearsonAgreement - rb.PearsonAgreement; diff > rankingTieMargin || diff < -rankingTieMargin {
			return ra.PearsonAgreement > rb.PearsonAgreement
		}
		return ra.CohenKappa > rb.CohenKappa
	})

	ranking := make([]string, len(ranked))
	for i, r := range ranked {
		ranking[i] = r.CandidateID
	}

	var winner *TestResult
	top := ranked[0]
	if top.Accuracy >= e.minWinnerAccuracy && top.CohenKappa >= e.minWinnerKappa {
		winner = top
	}

	return &RankResult{
		Results: results,
		Ranking: ranking,
		Winner:  winner,
	}, nil
}
