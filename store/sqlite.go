// Package store persists judge executions, alerts, snapshots and cooldowns in
// SQLite, and backs the monitor's MetricsStore interface.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/iofold/evalcore/monitor"
)

// Store is a SQLite-backed metrics store
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the store at the given path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS judges (
		id                  TEXT PRIMARY KEY,
		name                TEXT NOT NULL DEFAULT '',
		auto_refine_enabled INTEGER NOT NULL DEFAULT 0,
		threshold_config    TEXT NOT NULL DEFAULT '',
		created_at          DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS judge_executions (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		judge_id       TEXT NOT NULL,
		prompt_version TEXT NOT NULL DEFAULT '',
		passed         INTEGER NOT NULL,
		errored        INTEGER NOT NULL DEFAULT 0,
		human_rating   TEXT NOT NULL DEFAULT '',
		executed_at    DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_executions_judge_time ON judge_executions(judge_id, executed_at);

	CREATE TABLE IF NOT EXISTS judge_alerts (
		id              TEXT PRIMARY KEY,
		judge_id        TEXT NOT NULL,
		alert_type      TEXT NOT NULL,
		severity        TEXT NOT NULL,
		current_value   REAL NOT NULL,
		threshold_value REAL NOT NULL,
		message         TEXT NOT NULL DEFAULT '',
		triggered_at    DATETIME NOT NULL,
		acknowledged_at DATETIME,
		resolved_at     DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_judge_type ON judge_alerts(judge_id, alert_type);

	CREATE TABLE IF NOT EXISTS judge_snapshots (
		judge_id            TEXT NOT NULL,
		snapshot_date       TEXT NOT NULL,
		window_days         INTEGER NOT NULL,
		execution_count     INTEGER NOT NULL,
		pass_count          INTEGER NOT NULL,
		fail_count          INTEGER NOT NULL,
		error_count         INTEGER NOT NULL,
		contradiction_count INTEGER NOT NULL,
		accuracy            REAL,
		contradiction_rate  REAL,
		error_rate          REAL,
		UNIQUE(judge_id, snapshot_date)
	);

	CREATE TABLE IF NOT EXISTS judge_cooldowns (
		judge_id             TEXT PRIMARY KEY,
		last_attempt_at      DATETIME NOT NULL,
		next_allowed_at      DATETIME NOT NULL,
		consecutive_failures INTEGER NOT NULL DEFAULT 0
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertJudge registers or updates a judge's settings
func (s *Store) UpsertJudge(ctx context.Context, judgeID, name string, autoRefine bool, thresholdConfig string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO judges (id, name, auto_refine_enabled, threshold_config)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			auto_refine_enabled = excluded.auto_refine_enabled,
			threshold_config = excluded.threshold_config`,
		judgeID, name, boolToInt(autoRefine), thresholdConfig,
	)
	return err
}

// InsertExecution appends one judge execution record
func (s *Store) InsertExecution(ctx context.Context, rec monitor.ExecutionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO judge_executions (judge_id, prompt_version, passed, errored, human_rating, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.JudgeID, rec.PromptVersion, boolToInt(rec.Passed), boolToInt(rec.Errored), rec.HumanRating, rec.ExecutedAt,
	)
	return err
}

// JudgeIDs implements monitor.MetricsStore
func (s *Store) JudgeIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM judges ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// JudgeSettings implements monitor.MetricsStore
func (s *Store) JudgeSettings(ctx context.Context, judgeID string) (*monitor.JudgeSettings, error) {
	settings := &monitor.JudgeSettings{JudgeID: judgeID}

	var autoRefine int
	err := s.db.QueryRowContext(ctx,
		`SELECT auto_refine_enabled, threshold_config FROM judges WHERE id = ?`, judgeID,
	).Scan(&autoRefine, &settings.ThresholdConfig)
	if err == sql.ErrNoRows {
		return settings, nil
	}
	if err != nil {
		return nil, err
	}

	settings.AutoRefineEnabled = autoRefine != 0
	return settings, nil
}

// ExecutionRecords implements monitor.MetricsStore
func (s *Store) ExecutionRecords(ctx context.Context, judgeID string, since time.Time) ([]monitor.ExecutionRecord, error) {
	query := `SELECT judge_id, prompt_version, passed, errored, human_rating, executed_at
		FROM judge_executions WHERE judge_id = ?`
	args := []any{judgeID}
	if !since.IsZero() {
		query += ` AND executed_at >= ?`
		args = append(args, since)
	}
	query += ` ORDER BY executed_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []monitor.ExecutionRecord
	for rows.Next() {
		var rec monitor.ExecutionRecord
		var passed, errored int
		if err := rows.Scan(&rec.JudgeID, &rec.PromptVersion, &passed, &errored, &rec.HumanRating, &rec.ExecutedAt); err != nil {
			return nil, err
		}
		rec.Passed = passed != 0
		rec.Errored = errored != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UnresolvedAlert implements monitor.MetricsStore
func (s *Store) UnresolvedAlert(ctx context.Context, judgeID string, alertType monitor.AlertType) (*monitor.PerformanceAlert, error) {
	var alert monitor.PerformanceAlert
	var acknowledgedAt, resolvedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, judge_id, alert_type, severity, current_value, threshold_value, message, triggered_at, acknowledged_at, resolved_at
		 FROM judge_alerts
		 WHERE judge_id = ? AND alert_type = ? AND resolved_at IS NULL
		 ORDER BY triggered_at DESC LIMIT 1`,
		judgeID, string(alertType),
	).Scan(&alert.ID, &alert.JudgeID, &alert.Type, &alert.Severity, &alert.CurrentValue,
		&alert.ThresholdValue, &alert.Message, &alert.TriggeredAt, &acknowledgedAt, &resolvedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if acknowledgedAt.Valid {
		alert.AcknowledgedAt = &acknowledgedAt.Time
	}
	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}
	return &alert, nil
}

// InsertAlert implements monitor.MetricsStore
func (s *Store) InsertAlert(ctx context.Context, alert *monitor.PerformanceAlert) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO judge_alerts (id, judge_id, alert_type, severity, current_value, threshold_value, message, triggered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.JudgeID, string(alert.Type), string(alert.Severity),
		alert.CurrentValue, alert.ThresholdValue, alert.Message, alert.TriggeredAt,
	)
	return err
}

// UpdateAlert implements monitor.MetricsStore
func (s *Store) UpdateAlert(ctx context.Context, alert *monitor.PerformanceAlert) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE judge_alerts SET severity = ?, current_value = ?, threshold_value = ?, message = ?
		 WHERE id = ?`,
		string(alert.Severity), alert.CurrentValue, alert.ThresholdValue, alert.Message, alert.ID,
	)
	return err
}

// MarkAlertAcknowledged implements monitor.MetricsStore
func (s *Store) MarkAlertAcknowledged(ctx context.Context, alertID string, at time.Time) error {
	return s.stampAlert(ctx, alertID, "acknowledged_at", at)
}

// MarkAlertResolved implements monitor.MetricsStore
func (s *Store) MarkAlertResolved(ctx context.Context, alertID string, at time.Time) error {
	return s.stampAlert(ctx, alertID, "resolved_at", at)
}

func (s *Store) stampAlert(ctx context.Context, alertID, column string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE judge_alerts SET %s = ? WHERE id = ?`, column), at, alertID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("alert %s not found", alertID)
	}
	return nil
}

// UpsertSnapshot implements monitor.MetricsStore
func (s *Store) UpsertSnapshot(ctx context.Context, snapshot monitor.Snapshot) error {
	m := snapshot.Metrics
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO judge_snapshots (judge_id, snapshot_date, window_days, execution_count, pass_count,
			fail_count, error_count, contradiction_count, accuracy, contradiction_rate, error_rate)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(judge_id, snapshot_date) DO UPDATE SET
			window_days = excluded.window_days,
			execution_count = excluded.execution_count,
			pass_count = excluded.pass_count,
			fail_count = excluded.fail_count,
			error_count = excluded.error_count,
			contradiction_count = excluded.contradiction_count,
			accuracy = excluded.accuracy,
			contradiction_rate = excluded.contradiction_rate,
			error_rate = excluded.error_rate`,
		snapshot.JudgeID, snapshot.Date, m.WindowDays, m.ExecutionCount, m.PassCount,
		m.FailCount, m.ErrorCount, m.ContradictionCount,
		nullableFloat(m.Accuracy), nullableFloat(m.ContradictionRate), nullableFloat(m.ErrorRate),
	)
	return err
}

// Cooldown implements monitor.MetricsStore
func (s *Store) Cooldown(ctx context.Context, judgeID string) (*monitor.AutoRefineCooldown, error) {
	var cooldown monitor.AutoRefineCooldown
	err := s.db.QueryRowContext(ctx,
		`SELECT judge_id, last_attempt_at, next_allowed_at, consecutive_failures
		 FROM judge_cooldowns WHERE judge_id = ?`, judgeID,
	).Scan(&cooldown.JudgeID, &cooldown.LastAttemptAt, &cooldown.NextAllowedAt, &cooldown.ConsecutiveFailures)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cooldown, nil
}

// UpsertCooldown implements monitor.MetricsStore
func (s *Store) UpsertCooldown(ctx context.Context, cooldown monitor.AutoRefineCooldown) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO judge_cooldowns (judge_id, last_attempt_at, next_allowed_at, consecutive_failures)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(judge_id) DO UPDATE SET
			last_attempt_at = excluded.last_attempt_at,
			next_allowed_at = excluded.next_allowed_at,
			consecutive_failures = excluded.consecutive_failures`,
		cooldown.JudgeID, cooldown.LastAttemptAt, cooldown.NextAllowedAt, cooldown.ConsecutiveFailures,
	)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
