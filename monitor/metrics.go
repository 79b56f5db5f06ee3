package monitor

import (
	"context"
	"fmt"
	"time"
)

// CalculateMetrics computes a judge's rolling metrics over the trailing
// windowDays of execution records
func (m *Monitor) CalculateMetrics(ctx context.Context, judgeID string, windowDays int) (*EvalMetrics, error) {
	since := m.now().AddDate(0, 0, -windowDays)
	records, err := m.store.ExecutionRecords(ctx, judgeID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution records for judge %s: %w", judgeID, err)
	}

	metrics := &EvalMetrics{
		JudgeID:    judgeID,
		WindowDays: windowDays,
	}
	tallyRecords(metrics, records)
	return metrics, nil
}

// tallyRecords folds execution records into counts and derived rates
func tallyRecords(metrics *EvalMetrics, records []ExecutionRecord) {
	for _, rec := range records {
		metrics.ExecutionCount++

		if rec.Errored {
			metrics.ErrorCount++
			continue
		}

		if rec.Passed {
			metrics.PassCount++
		} else {
			metrics.FailCount++
		}

		if contradicts(rec) {
			metrics.ContradictionCount++
		}
	}

	if metrics.ExecutionCount == 0 {
		return
	}

	total := float64(metrics.ExecutionCount)
	accuracy := float64(metrics.PassCount) / total
	contradictionRate := float64(metrics.ContradictionCount) / total
	errorRate := float64(metrics.ErrorCount) / total
	metrics.Accuracy = &accuracy
	metrics.ContradictionRate = &contradictionRate
	metrics.ErrorRate = &errorRate
}

// contradicts reports whether the human rating disagrees with the judge's
// binary verdict. Neutral and missing ratings never contradict, and an
// errored execution has no verdict to contradict.
func contradicts(rec ExecutionRecord) bool {
	switch rec.HumanRating {
	case "positive":
		return !rec.Passed
	case "negative":
		return rec.Passed
	default:
		return false
	}
}

// CheckThresholds compares one cycle's metrics against the judge's limits and
// returns the alerts that should fire.
//
// A window with fewer than MinExecutionsForAlert executions yields exactly one
// info-grade insufficient_data alert and suppresses every other check for the
// cycle. Otherwise the accuracy, contradiction and error checks each fire
// independently, escalating from warning to critical when the value sits more
// than 0.10 beyond its threshold.
func (m *Monitor) CheckThresholds(metrics *EvalMetrics, thresholds Thresholds) []PerformanceAlert {
	if metrics.ExecutionCount < thresholds.MinExecutionsForAlert {
		return []PerformanceAlert{{
			JudgeID:        metrics.JudgeID,
			Type:           AlertInsufficientData,
			Severity:       SeverityInfo,
			CurrentValue:   float64(metrics.ExecutionCount),
			ThresholdValue: float64(thresholds.MinExecutionsForAlert),
			Message: fmt.Sprintf("only %d executions in the last %d days (%d needed for alerting)",
				metrics.ExecutionCount, metrics.WindowDays, thresholds.MinExecutionsForAlert),
		}}
	}

	var alerts []PerformanceAlert

	if metrics.Accuracy != nil && *metrics.Accuracy < thresholds.MinAccuracy {
		alerts = append(alerts, PerformanceAlert{
			JudgeID:        metrics.JudgeID,
			Type:           AlertAccuracyDrop,
			Severity:       escalate(thresholds.MinAccuracy - *metrics.Accuracy),
			CurrentValue:   *metrics.Accuracy,
			ThresholdValue: thresholds.MinAccuracy,
			Message: fmt.Sprintf("accuracy %.3f fell below the %.2f threshold",
				*metrics.Accuracy, thresholds.MinAccuracy),
		})
	}

	if metrics.ContradictionRate != nil && *metrics.ContradictionRate > thresholds.MaxContradictionRate {
		alerts = append(alerts, PerformanceAlert{
			JudgeID:        metrics.JudgeID,
			Type:           AlertContradictionSpike,
			Severity:       escalate(*metrics.ContradictionRate - thresholds.MaxContradictionRate),
			CurrentValue:   *metrics.ContradictionRate,
			ThresholdValue: thresholds.MaxContradictionRate,
			Message: fmt.Sprintf("contradiction rate %.3f exceeded the %.2f threshold",
				*metrics.ContradictionRate, thresholds.MaxContradictionRate),
		})
	}

	if metrics.ErrorRate != nil && *metrics.ErrorRate > thresholds.MaxErrorRate {
		alerts = append(alerts, PerformanceAlert{
			JudgeID:        metrics.JudgeID,
			Type:           AlertErrorSpike,
			Severity:       escalate(*metrics.ErrorRate - thresholds.MaxErrorRate),
			CurrentValue:   *metrics.ErrorRate,
			ThresholdValue: thresholds.MaxErrorRate,
			Message: fmt.Sprintf("error rate %.3f exceeded the %.2f threshold",
				*metrics.ErrorRate, thresholds.MaxErrorRate),
		})
	}

	return alerts
}

// escalate grades a threshold breach: more than 0.10 beyond the limit is
// critical, anything less is a warning
func escalate(excess float64) Severity {
	if excess > 0.10 {
		return SeverityCritical
	}
	return SeverityWarning
}

// snapshotFor freezes the cycle metrics into a dated row
func (m *Monitor) snapshotFor(metrics *EvalMetrics) Snapshot {
	return Snapshot{
		JudgeID: metrics.JudgeID,
		Date:    m.now().Format(time.DateOnly),
		Metrics: *metrics,
	}
}
