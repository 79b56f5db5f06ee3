package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/iofold/evalcore/monitor"
	"github.com/iofold/evalcore/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestStore_JudgeRoundtrip covers judge registration, listing and settings
func TestStore_JudgeRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.UpsertJudge(ctx, "j1", "helpfulness", false, ""); err != nil {
		t.Fatalf("UpsertJudge failed: %v", err)
	}
	if err := s.UpsertJudge(ctx, "j2", "safety", true, `{"min_accuracy": 0.9}`); err != nil {
		t.Fatalf("UpsertJudge failed: %v", err)
	}

	ids, err := s.JudgeIDs(ctx)
	if err != nil {
		t.Fatalf("JudgeIDs failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "j1" || ids[1] != "j2" {
		t.Errorf("Expected [j1 j2], got %v", ids)
	}

	settings, err := s.JudgeSettings(ctx, "j2")
	if err != nil {
		t.Fatalf("JudgeSettings failed: %v", err)
	}
	if !settings.AutoRefineEnabled {
		t.Error("Expected auto-refine enabled")
	}
	if settings.ThresholdConfig != `{"min_accuracy": 0.9}` {
		t.Errorf("Unexpected threshold config: %s", settings.ThresholdConfig)
	}

	// Upserting again replaces the settings in place
	if err := s.UpsertJudge(ctx, "j2", "safety", false, ""); err != nil {
		t.Fatalf("UpsertJudge failed: %v", err)
	}
	settings, err = s.JudgeSettings(ctx, "j2")
	if err != nil {
		t.Fatalf("JudgeSettings failed: %v", err)
	}
	if settings.AutoRefineEnabled || settings.ThresholdConfig != "" {
		t.Errorf("Expected settings replaced, got %+v", settings)
	}
}

// TestStore_JudgeSettingsUnknownJudge verifies an unregistered judge gets
// empty settings, not an error
func TestStore_JudgeSettingsUnknownJudge(t *testing.T) {
	s := openTestStore(t)

	settings, err := s.JudgeSettings(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("JudgeSettings failed: %v", err)
	}
	if settings.JudgeID != "ghost" || settings.AutoRefineEnabled || settings.ThresholdConfig != "" {
		t.Errorf("Expected empty settings, got %+v", settings)
	}
}

// TestStore_ExecutionRecords covers insertion, the since filter and
// chronological ordering
func TestStore_ExecutionRecords(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	records := []monitor.ExecutionRecord{
		{JudgeID: "j1", PromptVersion: "v2", Passed: true, ExecutedAt: base.AddDate(0, 0, 2)},
		{JudgeID: "j1", PromptVersion: "v1", Passed: false, HumanRating: "positive", ExecutedAt: base},
		{JudgeID: "j1", PromptVersion: "v1", Passed: true, Errored: true, ExecutedAt: base.AddDate(0, 0, 1)},
		{JudgeID: "other", PromptVersion: "v1", Passed: true, ExecutedAt: base},
	}
	for _, rec := range records {
		if err := s.InsertExecution(ctx, rec); err != nil {
			t.Fatalf("InsertExecution failed: %v", err)
		}
	}

	got, err := s.ExecutionRecords(ctx, "j1", time.Time{})
	if err != nil {
		t.Fatalf("ExecutionRecords failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(got))
	}
	if !got[0].ExecutedAt.Equal(base) || got[0].PromptVersion != "v1" || got[0].Passed || got[0].HumanRating != "positive" {
		t.Errorf("Unexpected first record: %+v", got[0])
	}
	if !got[1].Errored {
		t.Errorf("Expected second record errored, got %+v", got[1])
	}
	if got[2].PromptVersion != "v2" {
		t.Errorf("Expected v2 last, got %+v", got[2])
	}

	since, err := s.ExecutionRecords(ctx, "j1", base.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("ExecutionRecords failed: %v", err)
	}
	if len(since) != 2 {
		t.Errorf("Expected 2 records since day 1, got %d", len(since))
	}
}

// TestStore_AlertLifecycle walks an alert through insert, update,
// acknowledgement and resolution
func TestStore_AlertLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	triggered := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	alert := &monitor.PerformanceAlert{
		ID:             "alert-1",
		JudgeID:        "j1",
		Type:           monitor.AlertAccuracyDrop,
		Severity:       monitor.SeverityCritical,
		CurrentValue:   0.5,
		ThresholdValue: 0.8,
		Message:        "accuracy 0.500 fell below the 0.80 threshold",
		TriggeredAt:    triggered,
	}
	if err := s.InsertAlert(ctx, alert); err != nil {
		t.Fatalf("InsertAlert failed: %v", err)
	}

	open, err := s.UnresolvedAlert(ctx, "j1", monitor.AlertAccuracyDrop)
	if err != nil {
		t.Fatalf("UnresolvedAlert failed: %v", err)
	}
	if open == nil {
		t.Fatal("Expected an open alert")
	}
	if open.ID != "alert-1" || open.Severity != monitor.SeverityCritical || open.CurrentValue != 0.5 {
		t.Errorf("Unexpected alert: %+v", open)
	}
	if !open.TriggeredAt.Equal(triggered) {
		t.Errorf("Expected trigger time %v, got %v", triggered, open.TriggeredAt)
	}
	if open.AcknowledgedAt != nil || open.ResolvedAt != nil {
		t.Errorf("Expected fresh alert unstamped, got %+v", open)
	}

	// No open alert of a different type
	other, err := s.UnresolvedAlert(ctx, "j1", monitor.AlertErrorSpike)
	if err != nil {
		t.Fatalf("UnresolvedAlert failed: %v", err)
	}
	if other != nil {
		t.Errorf("Expected no error_spike alert, got %+v", other)
	}

	open.Severity = monitor.SeverityWarning
	open.CurrentValue = 0.75
	if err := s.UpdateAlert(ctx, open); err != nil {
		t.Fatalf("UpdateAlert failed: %v", err)
	}

	updated, err := s.UnresolvedAlert(ctx, "j1", monitor.AlertAccuracyDrop)
	if err != nil {
		t.Fatalf("UnresolvedAlert failed: %v", err)
	}
	if updated.Severity != monitor.SeverityWarning || updated.CurrentValue != 0.75 {
		t.Errorf("Expected alert updated in place, got %+v", updated)
	}

	ackAt := triggered.Add(time.Hour)
	if err := s.MarkAlertAcknowledged(ctx, "alert-1", ackAt); err != nil {
		t.Fatalf("MarkAlertAcknowledged failed: %v", err)
	}
	if err := s.MarkAlertResolved(ctx, "alert-1", ackAt.Add(time.Hour)); err != nil {
		t.Fatalf("MarkAlertResolved failed: %v", err)
	}

	closed, err := s.UnresolvedAlert(ctx, "j1", monitor.AlertAccuracyDrop)
	if err != nil {
		t.Fatalf("UnresolvedAlert failed: %v", err)
	}
	if closed != nil {
		t.Errorf("Expected alert resolved, got %+v", closed)
	}
}

// TestStore_StampUnknownAlert verifies stamping a missing alert id fails
func TestStore_StampUnknownAlert(t *testing.T) {
	s := openTestStore(t)

	if err := s.MarkAlertResolved(context.Background(), "nope", time.Now()); err == nil {
		t.Error("Expected error for unknown alert id")
	}
}

// TestStore_SnapshotUpsert verifies one row per judge and day
func TestStore_SnapshotUpsert(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	accuracy := 0.9
	snapshot := monitor.Snapshot{
		JudgeID: "j1",
		Date:    "2026-03-15",
		Metrics: monitor.EvalMetrics{
			JudgeID:        "j1",
			WindowDays:     7,
			ExecutionCount: 30,
			PassCount:      27,
			FailCount:      3,
			Accuracy:       &accuracy,
		},
	}
	if err := s.UpsertSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("UpsertSnapshot failed: %v", err)
	}

	// Same day again with fresher numbers must replace, not fail the
	// uniqueness constraint
	snapshot.Metrics.ExecutionCount = 35
	snapshot.Metrics.Accuracy = nil
	if err := s.UpsertSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("UpsertSnapshot (same day) failed: %v", err)
	}

	if err := s.UpsertSnapshot(ctx, monitor.Snapshot{JudgeID: "j1", Date: "2026-03-16"}); err != nil {
		t.Fatalf("UpsertSnapshot (next day) failed: %v", err)
	}
}

// TestStore_CooldownRoundtrip covers the cooldown upsert and lookup
func TestStore_CooldownRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	missing, err := s.Cooldown(ctx, "j1")
	if err != nil {
		t.Fatalf("Cooldown failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected no cooldown row, got %+v", missing)
	}

	at := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	cooldown := monitor.AutoRefineCooldown{
		JudgeID:             "j1",
		LastAttemptAt:       at,
		NextAllowedAt:       at.Add(96 * time.Hour),
		ConsecutiveFailures: 1,
	}
	if err := s.UpsertCooldown(ctx, cooldown); err != nil {
		t.Fatalf("UpsertCooldown failed: %v", err)
	}

	got, err := s.Cooldown(ctx, "j1")
	if err != nil {
		t.Fatalf("Cooldown failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected a cooldown row")
	}
	if !got.NextAllowedAt.Equal(cooldown.NextAllowedAt) || got.ConsecutiveFailures != 1 {
		t.Errorf("Unexpected cooldown: %+v", got)
	}

	cooldown.ConsecutiveFailures = 0
	cooldown.NextAllowedAt = at.Add(24 * time.Hour)
	if err := s.UpsertCooldown(ctx, cooldown); err != nil {
		t.Fatalf("UpsertCooldown failed: %v", err)
	}
	got, err = s.Cooldown(ctx, "j1")
	if err != nil {
		t.Fatalf("Cooldown failed: %v", err)
	}
	if got.ConsecutiveFailures != 0 || !got.NextAllowedAt.Equal(at.Add(24*time.Hour)) {
		t.Errorf("Expected cooldown replaced, got %+v", got)
	}
}
