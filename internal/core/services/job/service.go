package job

import (
	"context"

	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

// IJobService admits submissions to the queue and waits for them to settle
type IJobService interface {
	// Submit enqueues the submission and blocks until a slot settles it or the job times out
	Submit(ctx context.Context, submission *domain.Submission) (*domain.SubmissionResult, error)
}
