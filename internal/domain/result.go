package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the status of execution
type Status string

const (
	StatusSuccess       Status = "SUCCESS"
	StatusCompileError  Status = "COMPILE_ERROR"
	StatusRuntimeError  Status = "RUNTIME_ERROR"
	StatusFail          Status = "FAIL"
	StatusInternalError Status = "INTERNAL_ERROR"
)

// Verdict is the classification of one test case
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictFail Verdict = "FAIL"
)

// TimeoutExitCode is reported for runs killed by the wall-clock timer
const TimeoutExitCode = -1

// ExecutionResult is the outcome of one spawned process
type ExecutionResult struct {
	ExitCode         int           `json:"exitCode"`
	Stdout           string        `json:"stdout"`
	Stderr           string        `json:"stderr"`
	Elapsed          time.Duration `json:"elapsed"`
	TimedOut         bool          `json:"timedOut"`
	Signal           string        `json:"signal,omitempty"`
	MemoryKB         int64         `json:"memoryKb"`
	ResourceExceeded bool          `json:"resourceExceeded"`
}

// ReportedOutput prefers stderr for failed runs since it is more diagnostic
func (r *ExecutionResult) ReportedOutput() string {
	if r.ExitCode != 0 {
		if errOut := strings.TrimSpace(r.Stderr); errOut != "" {
			return errOut
		}
	}
	return strings.TrimSpace(r.Stdout)
}

// CaseVerdict is the evaluated result of a single test case
type CaseVerdict struct {
	Input          string        `json:"input"`
	ExpectedOutput string        `json:"expectedOutput"`
	ActualOutput   string        `json:"actualOutput"`
	Verdict        Verdict       `json:"verdict"`
	Elapsed        time.Duration `json:"elapsed"`
}

// FreeRunReport is produced when a submission has no test cases
type FreeRunReport struct {
	Output   string        `json:"output"`
	ExitCode int           `json:"exitCode"`
	TimedOut bool          `json:"timedOut"`
	MemoryKB int64         `json:"memoryKb"`
	Elapsed  time.Duration `json:"elapsed"`
}

// SubmissionResult is the single, final outcome of a submission
type SubmissionResult struct {
	SubmissionID       uuid.UUID      `json:"submissionId"`
	Status             Status         `json:"status"`
	CompileDiagnostics []string       `json:"compileDiagnostics,omitempty"`
	CaseVerdicts       []CaseVerdict  `json:"caseVerdicts,omitempty"`
	FreeRun            *FreeRunReport `json:"freeRun,omitempty"`
	Message            string         `json:"message,omitempty"`
	Elapsed            time.Duration  `json:"elapsed"`
	CompletedAt        time.Time      `json:"completedAt"`
}
