package monitor

import "encoding/json"

// Thresholds are the per-judge alerting limits. Judges can override them with
// a stored JSON blob; anything malformed or absent silently keeps defaults.
type Thresholds struct {
	// MinAccuracy is the floor under which an accuracy_drop alert fires
	MinAccuracy float64 `json:"min_accuracy"`

	// MaxContradictionRate is the ceiling above which a contradiction_spike
	// alert fires
	MaxContradictionRate float64 `json:"max_contradiction_rate"`

	// MaxErrorRate is the ceiling above which an error_spike alert fires
	MaxErrorRate float64 `json:"max_error_rate"`

	// MinExecutionsForAlert is how many executions a window needs before
	// any check other than insufficient_data runs
	MinExecutionsForAlert int `json:"min_executions_for_alert"`
}

// DefaultThresholds returns the documented default alerting limits
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinAccuracy:           0.80,
		MaxContradictionRate:  0.15,
		MaxErrorRate:          0.10,
		MinExecutionsForAlert: 20,
	}
}

// withOverrides parses a per-judge JSON blob on top of the receiver. Fields
// the blob omits keep their current values; a malformed blob is ignored
// entirely so a bad config can never fail a monitoring cycle.
func (t Thresholds) withOverrides(blob string) Thresholds {
	if blob == "" {
		return t
	}

	merged := t
	if err := json.Unmarshal([]byte(blob), &merged); err != nil {
		return t
	}
	return merged
}
