package status

import "time"

// CyclePhase represents the phase of a connector's latest reconciliation cycle
type CyclePhase string

const (
	// CyclePhasePending means no cycle has run yet
	CyclePhasePending CyclePhase = "Pending"

	// CyclePhaseRunning means a cycle is currently in progress
	CyclePhaseRunning CyclePhase = "Running"

	// CyclePhaseComplete means the last cycle completed, possibly with failed elements
	CyclePhaseComplete CyclePhase = "Complete"

	// CyclePhaseFailed means the last cycle was aborted
	CyclePhaseFailed CyclePhase = "Failed"

	// CyclePhaseStopped means the connector stopped, see Message for the reason
	CyclePhaseStopped CyclePhase = "Stopped"
)

// CycleStatus represents the reconciliation status of a connector
type CycleStatus struct {
	// Phase represents the phase of the latest cycle
	Phase CyclePhase `json:"phase" yaml:"phase"`

	// Message provides additional information about the status
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// CycleCount is the number of cycles started since the connector was configured
	CycleCount int64 `json:"cycleCount,omitempty" yaml:"cycleCount,omitempty"`

	// LastAttempt is the start time of the last cycle
	LastAttempt *time.Time `json:"lastAttempt,omitempty" yaml:"lastAttempt,omitempty"`

	// AttemptCount is the number of aborted cycles since the last completed one
	AttemptCount int `json:"attemptCount,omitempty" yaml:"attemptCount,omitempty"`

	// LastSuccess is the completion time of the last completed cycle
	LastSuccess *time.Time `json:"lastSuccess,omitempty" yaml:"lastSuccess,omitempty"`

	// LastDuration is the duration of the last completed cycle, e.g. "1.2s"
	LastDuration string `json:"lastDuration,omitempty" yaml:"lastDuration,omitempty"`

	// LastSummary describes the outcome of the last completed cycle
	LastSummary *CycleSummary `json:"lastSummary,omitempty" yaml:"lastSummary,omitempty"`

	// Interval is the poll interval from configuration (e.g., "30s", "5m")
	Interval string `json:"interval,omitempty" yaml:"interval,omitempty"`

	// ServiceVersion is the version of the service that last wrote the status
	ServiceVersion string `json:"serviceVersion,omitempty" yaml:"serviceVersion,omitempty"`
}

// CycleSummary captures the counts of a completed cycle
type CycleSummary struct {
	Records  int            `json:"records" yaml:"records"`
	Elements int            `json:"elements" yaml:"elements"`
	Applied  int            `json:"applied" yaml:"applied"`
	Skipped  int            `json:"skipped" yaml:"skipped"`
	Failed   int            `json:"failed" yaml:"failed"`
	Actions  map[string]int `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// Clone returns a deep copy of the status
func (s *CycleStatus) Clone() *CycleStatus {
	if s == nil {
		return nil
	}
	out := *s
	if s.LastAttempt != nil {
		t := *s.LastAttempt
		out.LastAttempt = &t
	}
	if s.LastSuccess != nil {
		t := *s.LastSuccess
		out.LastSuccess = &t
	}
	if s.LastSummary != nil {
		summary := *s.LastSummary
		if s.LastSummary.Actions != nil {
			summary.Actions = make(map[string]int, len(s.LastSummary.Actions))
			for k, v := range s.LastSummary.Actions {
				summary.Actions[k] = v
			}
		}
		out.LastSummary = &summary
	}
	return &out
}
