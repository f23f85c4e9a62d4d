package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
	"gitlab.com/fcv-2025.net/coderunner/internal/static/errs"
)

var _ IJobService = (*JobService)(nil)

// JobService implements the IJobService interface
type JobService struct {
	broker         secondary.JobBroker
	logger         primary.Logger
	jobTimeout     time.Duration
	enqueueRetries int
}

// NewJobService creates a new job service
func NewJobService(broker secondary.JobBroker, logger primary.Logger, jobTimeout time.Duration, enqueueRetries int) *JobService {
	return &JobService{
		broker:         broker,
		logger:         logger,
		jobTimeout:     jobTimeout,
		enqueueRetries: enqueueRetries,
	}
}

func (s *JobService) Submit(ctx context.Context, submission *domain.Submission) (*domain.SubmissionResult, error) {
	job := domain.NewJob(submission, s.jobTimeout)
	ctx, cancel := context.WithDeadline(ctx, job.Deadline)
	defer cancel()

	s.logger.Info("Enqueueing job",
		"jobId", job.ID,
		"language", submission.Language,
		"cases", len(submission.TestCases))

	if err := s.enqueue(ctx, job); err != nil {
		s.logger.Error("Failed to enqueue job", "jobId", job.ID, "error", err)
		if errors.Is(err, context.DeadlineExceeded) && !time.Now().Before(job.Deadline) {
			return nil, errs.ErrJobTimeout
		}
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	msg, err := s.broker.Await(ctx, job.ID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !time.Now().Before(job.Deadline) {
			s.logger.Warn("Job not settled in time", "jobId", job.ID, "timeout", s.jobTimeout)
			return nil, errs.ErrJobTimeout
		}
		return nil, fmt.Errorf("failed to await job %s: %w", job.ID, err)
	}
	if !msg.Success {
		s.logger.Warn("Job failed", "jobId", job.ID, "error", msg.Error)
		if msg.Error == errs.ErrJobExpired.Error() {
			return nil, errs.ErrJobTimeout
		}
		return nil, fmt.Errorf("job %s failed: %s", job.ID, msg.Error)
	}

	s.logger.Info("Job settled", "jobId", job.ID, "status", msg.Result.Status)
	return msg.Result, nil
}

// enqueue retries transient broker failures; nothing has executed yet so a retry is safe
func (s *JobService) enqueue(ctx context.Context, job *domain.Job) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = time.Second

	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.enqueueRetries)), ctx)
	op := func() error {
		err := s.broker.Enqueue(ctx, job)
		if errors.Is(err, errs.ErrBrokerClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Warn("Retrying enqueue", "jobId", job.ID, "error", err, "wait", wait)
	}
	return backoff.RetryNotify(op, retry, notify)
}
