package monitor

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// driftDelta is the accuracy gap against the baseline version that counts as
// drift; twice the gap escalates to critical
const (
	driftDelta         = 0.10
	driftCriticalDelta = 0.20
)

type versionStats struct {
	version   string
	firstSeen time.Time
	total     int
	passed    int
}

func (v versionStats) accuracy() float64 {
	if v.total == 0 {
		return 0
	}
	return float64(v.passed) / float64(v.total)
}

// DetectDrift compares a judge's prompt versions against the chronologically
// earliest one. Only versions with at least minExecutions executions
// participate. Each later version whose accuracy moved at least driftDelta
// away from the baseline yields a prompt_drift alert.
func (m *Monitor) DetectDrift(ctx context.Context, judgeID string, minExecutions int) ([]PerformanceAlert, error) {
	records, err := m.store.ExecutionRecords(ctx, judgeID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to load execution history for judge %s: %w", judgeID, err)
	}

	byVersion := make(map[string]*versionStats)
	for _, rec := range records {
		if rec.PromptVersion == "" || rec.Errored {
			continue
		}
		stats, ok := byVersion[rec.PromptVersion]
		if !ok {
			stats = &versionStats{version: rec.PromptVersion, firstSeen: rec.ExecutedAt}
			byVersion[rec.PromptVersion] = stats
		}
		if rec.ExecutedAt.Before(stats.firstSeen) {
			stats.firstSeen = rec.ExecutedAt
		}
		stats.total++
		if rec.Passed {
			stats.passed++
		}
	}

	eligible := make([]*versionStats, 0, len(byVersion))
	for _, stats := range byVersion {
		if stats.total >= minExecutions {
			eligible = append(eligible, stats)
		}
	}
	if len(eligible) < 2 {
		return nil, nil
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].firstSeen.Before(eligible[j].firstSeen)
	})

	baseline := eligible[0]
	baselineAccuracy := baseline.accuracy()

	var alerts []PerformanceAlert
	for _, version := range eligible[1:] {
		delta := baselineAccuracy - version.accuracy()
		if delta < 0 {
			delta = -delta
		}
		if delta < driftDelta {
			continue
		}

		severity := SeverityWarning
		if delta > driftCriticalDelta {
			severity = SeverityCritical
		}

		alerts = append(alerts, PerformanceAlert{
			JudgeID:        judgeID,
			Type:           AlertPromptDrift,
			Severity:       severity,
			CurrentValue:   version.accuracy(),
			ThresholdValue: baselineAccuracy,
			Message: fmt.Sprintf("prompt version %s accuracy %.3f drifted %.3f from baseline version %s (%.3f)",
				version.version, version.accuracy(), delta, baseline.version, baselineAccuracy),
		})
	}

	return alerts, nil
}
