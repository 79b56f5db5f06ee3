package monitor

import (
	"context"
	"fmt"
	"time"
)

const (
	// successCooldownBase is the wait after a successful refinement attempt
	successCooldownBase = 24 * time.Hour

	// failureCooldownBase is the wait after a failed refinement attempt,
	// before backoff multiplication
	failureCooldownBase = 48 * time.Hour
)

// refineAllowed reports whether the judge may attempt automatic refinement
// now: allowed when no cooldown row exists or the window has elapsed
func (m *Monitor) refineAllowed(ctx context.Context, judgeID string) (bool, error) {
	cooldown, err := m.store.Cooldown(ctx, judgeID)
	if err != nil {
		return false, fmt.Errorf("failed to load cooldown for judge %s: %w", judgeID, err)
	}
	if cooldown == nil {
		return true, nil
	}
	return !m.now().Before(cooldown.NextAllowedAt), nil
}

// RecordRefineAttempt updates the judge's cooldown after a refinement attempt.
//
// The next window is base x min(2^failures, 2^BackoffCapShift): 24h base on
// success with the failure streak reset, 48h base on failure with the streak
// incremented. One failure therefore pushes the next attempt out 96h.
func (m *Monitor) RecordRefineAttempt(ctx context.Context, judgeID string, success bool) (*AutoRefineCooldown, error) {
	previous, err := m.store.Cooldown(ctx, judgeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cooldown for judge %s: %w", judgeID, err)
	}

	failures := 0
	base := successCooldownBase
	if !success {
		if previous != nil {
			failures = previous.ConsecutiveFailures
		}
		failures++
		base = failureCooldownBase
	}

	// Shift-count comparison instead of comparing 1<<failures keeps a long
	// failure streak from overflowing the multiplier.
	multiplier := 1 << m.backoffCapShift
	if failures < m.backoffCapShift {
		multiplier = 1 << failures
	}

	now := m.now()
	cooldown := AutoRefineCooldown{
		JudgeID:             judgeID,
		LastAttemptAt:       now,
		NextAllowedAt:       now.Add(base * time.Duration(multiplier)),
		ConsecutiveFailures: failures,
	}

	if err := m.store.UpsertCooldown(ctx, cooldown); err != nil {
		return nil, fmt.Errorf("failed to persist cooldown for judge %s: %w", judgeID, err)
	}
	return &cooldown, nil
}
