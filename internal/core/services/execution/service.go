package execution

import (
	"context"

	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

// IExecutionService compiles, runs and classifies one submission at a time
type IExecutionService interface {
	// Execute always settles with exactly one result
	Execute(ctx context.Context, submission *domain.Submission) *domain.SubmissionResult

	// Supports reports whether a language is registered and active
	Supports(language string) bool

	// Languages lists every registered language with its effective limits
	Languages() []*domain.LanguageConfig

	// RefreshLimits reloads per-language overrides from the repository
	RefreshLimits(ctx context.Context) error
}
