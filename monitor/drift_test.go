package monitor_test

import (
	"context"
	"testing"
	"time"

	"github.com/iofold/evalcore/monitor"
	"github.com/iofold/evalcore/pkg/testutil"
)

// seedVersion appends total execution records for one prompt version, passed
// of them passing, starting at the given time
func seedVersion(store *testutil.MemoryMetricsStore, judgeID, version string, start time.Time, total, passed int) {
	for i := 0; i < total; i++ {
		store.Executions = append(store.Executions, monitor.ExecutionRecord{
			JudgeID:       judgeID,
			PromptVersion: version,
			Passed:        i < passed,
			ExecutedAt:    start.Add(time.Duration(i) * time.Minute),
		})
	}
}

// TestDetectDrift_FlagsDriftedVersions runs three prompt versions: the
// baseline at 0.9, one 0.15 below it (warning) and one 0.3 below it
// (critical)
func TestDetectDrift_FlagsDriftedVersions(t *testing.T) {
	store := testutil.NewMemoryMetricsStore()
	seedVersion(store, "j1", "v1", testClock.AddDate(0, 0, -30), 20, 18)
	seedVersion(store, "j1", "v2", testClock.AddDate(0, 0, -20), 20, 15)
	seedVersion(store, "j1", "v3", testClock.AddDate(0, 0, -10), 20, 12)

	m := newTestMonitor(t, store)
	alerts, err := m.DetectDrift(context.Background(), "j1", 20)
	if err != nil {
		t.Fatalf("DetectDrift failed: %v", err)
	}

	if len(alerts) != 2 {
		t.Fatalf("Expected 2 drift alerts, got %d: %+v", len(alerts), alerts)
	}

	if alerts[0].Severity != monitor.SeverityWarning {
		t.Errorf("Expected v2 drift to be a warning, got %s", alerts[0].Severity)
	}
	if alerts[0].CurrentValue != 0.75 {
		t.Errorf("Expected v2 accuracy 0.75, got %f", alerts[0].CurrentValue)
	}
	if alerts[1].Severity != monitor.SeverityCritical {
		t.Errorf("Expected v3 drift to be critical, got %s", alerts[1].Severity)
	}

	for _, alert := range alerts {
		if alert.Type != monitor.AlertPromptDrift {
			t.Errorf("Expected prompt_drift, got %s", alert.Type)
		}
		if alert.ThresholdValue != 0.9 {
			t.Errorf("Expected baseline accuracy 0.9, got %f", alert.ThresholdValue)
		}
	}
}

// TestDetectDrift_BaselineIsEarliestVersion verifies the chronologically
// first eligible version anchors the comparison even when a later version
// scores higher
func TestDetectDrift_BaselineIsEarliestVersion(t *testing.T) {
	store := testutil.NewMemoryMetricsStore()
	// Inserted out of order; the store sorts by execution time
	seedVersion(store, "j1", "v2", testClock.AddDate(0, 0, -5), 20, 19)
	seedVersion(store, "j1", "v1", testClock.AddDate(0, 0, -15), 20, 14)

	m := newTestMonitor(t, store)
	alerts, err := m.DetectDrift(context.Background(), "j1", 20)
	if err != nil {
		t.Fatalf("DetectDrift failed: %v", err)
	}

	if len(alerts) != 1 {
		t.Fatalf("Expected 1 drift alert, got %d", len(alerts))
	}
	// v1 (0.7) is the baseline; v2 (0.95) drifted up past the critical gap
	if alerts[0].ThresholdValue != 0.7 {
		t.Errorf("Expected baseline accuracy 0.7, got %f", alerts[0].ThresholdValue)
	}
	if alerts[0].CurrentValue != 0.95 {
		t.Errorf("Expected drifted accuracy 0.95, got %f", alerts[0].CurrentValue)
	}
	if alerts[0].Severity != monitor.SeverityCritical {
		t.Errorf("Expected critical severity for a 0.25 gap, got %s", alerts[0].Severity)
	}
}

// TestDetectDrift_BelowDelta verifies small movements stay quiet
func TestDetectDrift_BelowDelta(t *testing.T) {
	store := testutil.NewMemoryMetricsStore()
	seedVersion(store, "j1", "v1", testClock.AddDate(0, 0, -20), 20, 18)
	seedVersion(store, "j1", "v2", testClock.AddDate(0, 0, -10), 20, 17)

	m := newTestMonitor(t, store)
	alerts, err := m.DetectDrift(context.Background(), "j1", 20)
	if err != nil {
		t.Fatalf("DetectDrift failed: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("Expected no drift alerts for a 0.05 gap, got %+v", alerts)
	}
}

// TestDetectDrift_IgnoresThinVersions verifies versions under the execution
// minimum neither alert nor serve as baseline
func TestDetectDrift_IgnoresThinVersions(t *testing.T) {
	store := testutil.NewMemoryMetricsStore()
	seedVersion(store, "j1", "v1", testClock.AddDate(0, 0, -20), 20, 18)
	seedVersion(store, "j1", "v2", testClock.AddDate(0, 0, -10), 5, 0)

	m := newTestMonitor(t, store)
	alerts, err := m.DetectDrift(context.Background(), "j1", 20)
	if err != nil {
		t.Fatalf("DetectDrift failed: %v", err)
	}
	if alerts != nil {
		t.Errorf("Expected no alerts with a single eligible version, got %+v", alerts)
	}
}

// TestDetectDrift_SkipsErroredAndUnversioned verifies errored and
// unversioned executions stay out of the per-version accuracy
func TestDetectDrift_SkipsErroredAndUnversioned(t *testing.T) {
	store := testutil.NewMemoryMetricsStore()
	seedVersion(store, "j1", "v1", testClock.AddDate(0, 0, -20), 20, 18)
	seedVersion(store, "j1", "v2", testClock.AddDate(0, 0, -10), 20, 15)

	// Noise that would flip v2 under the delta if it were counted
	for i := 0; i < 10; i++ {
		store.Executions = append(store.Executions,
			monitor.ExecutionRecord{
				JudgeID: "j1", PromptVersion: "v2", Passed: true, Errored: true,
				ExecutedAt: testClock.AddDate(0, 0, -9),
			},
			monitor.ExecutionRecord{
				JudgeID: "j1", Passed: true,
				ExecutedAt: testClock.AddDate(0, 0, -9),
			})
	}

	m := newTestMonitor(t, store)
	alerts, err := m.DetectDrift(context.Background(), "j1", 20)
	if err != nil {
		t.Fatalf("DetectDrift failed: %v", err)
	}

	if len(alerts) != 1 {
		t.Fatalf("Expected 1 drift alert, got %d", len(alerts))
	}
	if alerts[0].CurrentValue != 0.75 {
		t.Errorf("Expected v2 accuracy 0.75 ignoring noise, got %f", alerts[0].CurrentValue)
	}
}
