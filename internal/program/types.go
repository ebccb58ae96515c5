package program

import "time"

// ExecutionStatus is the outcome of a program run.
type ExecutionStatus string

// Execution statuses.
const (
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
)

// Execution records one run of a program.
type Execution struct {
	ID          string          `json:"id"`
	Program     string          `json:"program"`
	Trigger     string          `json:"trigger"` // demo, api, mqtt, startup
	Status      ExecutionStatus `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`

	// Leaf counts
	StepsTotal     int `json:"steps_total"`
	StepsCompleted int `json:"steps_completed"`
	StepsFailed    int `json:"steps_failed"`
	StepsPending   int `json:"steps_pending"`

	// Error is the failure the program returned; Failures lists every failed leaf.
	Error    string        `json:"error,omitempty"`
	Failures []LeafFailure `json:"failures,omitempty"`

	DurationMS *int `json:"duration_ms,omitempty"`
}
