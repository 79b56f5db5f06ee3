package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Monitor tracks judge health over time: rolling metrics, threshold alerts,
// prompt-version drift, dated snapshots, and the cooldown gate in front of
// automatic refinement.
type Monitor struct {
	store           MetricsStore
	defaults        Thresholds
	parallelism     int
	backoffCapShift int
	now             func() time.Time

	// judgeLocks serializes cycles per judge so two overlapping runs cannot
	// double-write alerts or cooldowns for the same judge
	judgeLocks sync.Map
}

// NewMonitor creates a new Monitor with the given configuration
func NewMonitor(cfg Config) (*Monitor, error) {
	cfg.applyDefaults()

	if cfg.Store == nil {
		return nil, fmt.Errorf("monitor: metrics store is required")
	}

	return &Monitor{
		store:           cfg.Store,
		defaults:        cfg.Thresholds,
		parallelism:     cfg.Parallelism,
		backoffCapShift: cfg.BackoffCapShift,
		now:             cfg.Now,
	}, nil
}

// RunMonitoring executes one monitoring cycle for the given judges, or for
// every judge the store knows when judgeIDs is nil. windowDays of 0 uses
// DefaultWindowDays.
//
// Judges are processed concurrently on a bounded pool, with cycles for any
// single judge serialized. A judge whose cycle fails gets its error recorded
// in its MonitoringResult; the other judges still run.
func (m *Monitor) RunMonitoring(ctx context.Context, judgeIDs []string, windowDays int) ([]MonitoringResult, error) {
	if windowDays == 0 {
		windowDays = DefaultWindowDays
	}

	if judgeIDs == nil {
		ids, err := m.store.JudgeIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list judges: %w", err)
		}
		judgeIDs = ids
	}

	results := make([]MonitoringResult, len(judgeIDs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, m.parallelism)
	for i, judgeID := range judgeIDs {
		wg.Add(1)
		go func(i int, judgeID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			lock := m.lockFor(judgeID)
			lock.Lock()
			defer lock.Unlock()

			results[i] = m.runJudgeCycle(ctx, judgeID, windowDays)
		}(i, judgeID)
	}
	wg.Wait()

	return results, nil
}

// lockFor returns the serialization mutex for one judge
func (m *Monitor) lockFor(judgeID string) *sync.Mutex {
	lock, _ := m.judgeLocks.LoadOrStore(judgeID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// runJudgeCycle performs the full metrics -> alerts -> drift -> snapshot ->
// refine-gate sequence for one judge
func (m *Monitor) runJudgeCycle(ctx context.Context, judgeID string, windowDays int) MonitoringResult {
	result := MonitoringResult{JudgeID: judgeID}

	metrics, err := m.CalculateMetrics(ctx, judgeID, windowDays)
	if err != nil {
		result.Err = err
		return result
	}
	result.Metrics = metrics

	settings, err := m.store.JudgeSettings(ctx, judgeID)
	if err != nil {
		result.Err = err
		return result
	}

	thresholds := m.defaults
	if settings != nil {
		thresholds = thresholds.withOverrides(settings.ThresholdConfig)
	}

	alerts := m.CheckThresholds(metrics, thresholds)
	sufficientData := metrics.ExecutionCount >= thresholds.MinExecutionsForAlert

	if sufficientData {
		driftAlerts, err := m.DetectDrift(ctx, judgeID, thresholds.MinExecutionsForAlert)
		if err != nil {
			result.Err = err
			return result
		}
		result.DriftDetected = len(driftAlerts) > 0
		alerts = append(alerts, driftAlerts...)
	}

	persisted, err := m.persistAlerts(ctx, judgeID, alerts, sufficientData)
	if err != nil {
		result.Err = err
		return result
	}
	result.Alerts = persisted

	if err := m.store.UpsertSnapshot(ctx, m.snapshotFor(metrics)); err != nil {
		result.Err = fmt.Errorf("failed to persist snapshot for judge %s: %w", judgeID, err)
		return result
	}

	if settings != nil && settings.AutoRefineEnabled && anyActionable(persisted) {
		allowed, err := m.refineAllowed(ctx, judgeID)
		if err != nil {
			result.Err = err
			return result
		}
		result.AutoRefineTriggered = allowed
	}

	return result
}

// anyActionable reports whether the cycle produced an alert severe enough to
// justify automatic refinement
func anyActionable(alerts []PerformanceAlert) bool {
	for _, alert := range alerts {
		if alert.Severity == SeverityWarning || alert.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// persistAlerts upserts the cycle's alerts and resolves open alerts whose
// condition cleared this cycle.
//
// For each fired alert: an unresolved row of the same (judge, type) is
// updated in place with the new value, message and severity; otherwise a new
// row is inserted stamped with the current time. Open alerts whose type did
// not fire this cycle are resolved. A data-starved cycle never ran the other
// checks, so it can only resolve insufficient_data.
func (m *Monitor) persistAlerts(ctx context.Context, judgeID string, alerts []PerformanceAlert, sufficientData bool) ([]PerformanceAlert, error) {
	now := m.now()
	fired := make(map[AlertType]bool, len(alerts))
	persisted := make([]PerformanceAlert, 0, len(alerts))

	for _, alert := range alerts {
		fired[alert.Type] = true

		existing, err := m.store.UnresolvedAlert(ctx, judgeID, alert.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to look up open %s alert for judge %s: %w", alert.Type, judgeID, err)
		}

		if existing != nil {
			existing.Severity = alert.Severity
			existing.CurrentValue = alert.CurrentValue
			existing.ThresholdValue = alert.ThresholdValue
			existing.Message = alert.Message
			if err := m.store.UpdateAlert(ctx, existing); err != nil {
				return nil, fmt.Errorf("failed to update %s alert for judge %s: %w", alert.Type, judgeID, err)
			}
			persisted = append(persisted, *existing)
			continue
		}

		alert.ID = uuid.New().String()
		alert.TriggeredAt = now
		if err := m.store.InsertAlert(ctx, &alert); err != nil {
			return nil, fmt.Errorf("failed to insert %s alert for judge %s: %w", alert.Type, judgeID, err)
		}
		persisted = append(persisted, alert)
	}

	resolvable := []AlertType{AlertInsufficientData}
	if sufficientData {
		resolvable = append(resolvable,
			AlertAccuracyDrop, AlertContradictionSpike, AlertErrorSpike, AlertPromptDrift)
	}

	for _, alertType := range resolvable {
		if fired[alertType] {
			continue
		}
		existing, err := m.store.UnresolvedAlert(ctx, judgeID, alertType)
		if err != nil {
			return nil, fmt.Errorf("failed to look up open %s alert for judge %s: %w", alertType, judgeID, err)
		}
		if existing == nil {
			continue
		}
		if err := m.store.MarkAlertResolved(ctx, existing.ID, now); err != nil {
			return nil, fmt.Errorf("failed to resolve %s alert for judge %s: %w", alertType, judgeID, err)
		}
	}

	return persisted, nil
}

// AcknowledgeAlert stamps an alert as seen by a human
func (m *Monitor) AcknowledgeAlert(ctx context.Context, alertID string) error {
	return m.store.MarkAlertAcknowledged(ctx, alertID, m.now())
}

// ResolveAlert closes an alert manually
func (m *Monitor) ResolveAlert(ctx context.Context, alertID string) error {
	return m.store.MarkAlertResolved(ctx, alertID, m.now())
}
