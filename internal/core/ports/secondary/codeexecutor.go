package secondary

import (
	"context"

	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

type CodeExecutor interface {
	// Execute compiles and runs a submission against its test cases.
	// It always settles with a result; faults are mapped to a status.
	Execute(ctx context.Context, submission *domain.Submission) *domain.SubmissionResult
}

// ProcessRunner spawns one runnable once
type ProcessRunner interface {
	Run(ctx context.Context, runnable domain.Runnable, input string, limits domain.Limits) (*domain.ExecutionResult, error)
}
