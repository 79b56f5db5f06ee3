package monitor

import "testing"

// TestWithOverrides_PartialBlob verifies omitted fields keep their defaults
func TestWithOverrides_PartialBlob(t *testing.T) {
	merged := DefaultThresholds().withOverrides(`{"min_accuracy": 0.9, "min_executions_for_alert": 50}`)

	if merged.MinAccuracy != 0.9 {
		t.Errorf("Expected min accuracy 0.9, got %f", merged.MinAccuracy)
	}
	if merged.MinExecutionsForAlert != 50 {
		t.Errorf("Expected min executions 50, got %d", merged.MinExecutionsForAlert)
	}
	if merged.MaxContradictionRate != 0.15 {
		t.Errorf("Expected default contradiction ceiling, got %f", merged.MaxContradictionRate)
	}
	if merged.MaxErrorRate != 0.10 {
		t.Errorf("Expected default error ceiling, got %f", merged.MaxErrorRate)
	}
}

// TestWithOverrides_MalformedBlob verifies a broken blob is ignored entirely
func TestWithOverrides_MalformedBlob(t *testing.T) {
	defaults := DefaultThresholds()
	if got := defaults.withOverrides(`{"min_accuracy": `); got != defaults {
		t.Errorf("Expected defaults on malformed blob, got %+v", got)
	}
}

// TestWithOverrides_EmptyBlob verifies the common no-override case
func TestWithOverrides_EmptyBlob(t *testing.T) {
	defaults := DefaultThresholds()
	if got := defaults.withOverrides(""); got != defaults {
		t.Errorf("Expected defaults unchanged, got %+v", got)
	}
}
