package domain

import (
	"time"

	"github.com/google/uuid"
)

// Job wraps a submission for transport through the broker
type Job struct {
	ID         uuid.UUID   `json:"jobId"`
	Submission *Submission `json:"submission"`
	EnqueuedAt time.Time   `json:"enqueuedAt"`
	Deadline   time.Time   `json:"deadline"`
}

// NewJob creates a new job that must settle within timeout
func NewJob(submission *Submission, timeout time.Duration) *Job {
	now := time.Now()
	return &Job{
		ID:         submission.ID,
		Submission: submission,
		EnqueuedAt: now,
		Deadline:   now.Add(timeout),
	}
}

// Expired reports whether the settlement deadline has passed
func (j *Job) Expired(now time.Time) bool {
	return !j.Deadline.IsZero() && now.After(j.Deadline)
}

// Delivery is one dequeued job plus whatever the broker needs to acknowledge it
type Delivery struct {
	Job         *Job
	Redelivered bool
	Receipt     interface{}
}

// JobResultMessage is what a slot publishes back for the waiting caller
type JobResultMessage struct {
	JobID     uuid.UUID         `json:"jobId"`
	Success   bool              `json:"success"`
	Result    *SubmissionResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// ExecutionState is the state of the submission executor
type ExecutionState string

const (
	StateCompiling    ExecutionState = "COMPILING"
	StateCompileError ExecutionState = "COMPILE_ERROR"
	StateRunning      ExecutionState = "RUNNING"
	StateSuccess      ExecutionState = "SUCCESS"
	StateRuntimeError ExecutionState = "RUNTIME_ERROR"
	StateFail         ExecutionState = "FAIL"
	StateInternal     ExecutionState = "INTERNAL_ERROR"
)
