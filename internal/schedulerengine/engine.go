package schedulerengine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"gitlab.com/fcv-2025.net/coderunner/internal/config"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
	"gitlab.com/fcv-2025.net/coderunner/internal/static/errs"
)

const (
	settleTimeout = 5 * time.Second
	settleRetries = 3
)

// SchedulerEngine runs a fixed pool of slots, each pulling one job at a time from the broker
type SchedulerEngine struct {
	QueueCfg *config.QueueCfg
	broker   secondary.JobBroker
	executor secondary.CodeExecutor
	logger   primary.Logger
	nodeID   string

	busy atomic.Int32
	wg   sync.WaitGroup
}

func NewSchedulerEngine(
	queueCfg *config.QueueCfg,
	broker secondary.JobBroker,
	executor secondary.CodeExecutor,
	logger primary.Logger,
	nodeID string,
) *SchedulerEngine {
	return &SchedulerEngine{
		QueueCfg: queueCfg,
		broker:   broker,
		executor: executor,
		logger:   logger,
		nodeID:   nodeID,
	}
}

// Start launches the slots; they stop when ctx is done or the broker closes
func (s *SchedulerEngine) Start(ctx context.Context) {
	s.logger.Info("Starting execution slots", "node", s.nodeID, "slots", s.QueueCfg.Slots)
	s.wg.Add(s.QueueCfg.Slots)
	for i := 0; i < s.QueueCfg.Slots; i++ {
		slotID := fmt.Sprintf("%s/%d", s.nodeID, i)
		go func() {
			defer s.wg.Done()
			s.runSlot(ctx, slotID)
		}()
	}
}

// Wait blocks until every slot has returned
func (s *SchedulerEngine) Wait() {
	s.wg.Wait()
}

// Busy is the number of slots currently executing a submission
func (s *SchedulerEngine) Busy() int {
	return int(s.busy.Load())
}

func (s *SchedulerEngine) Capacity() int {
	return s.QueueCfg.Slots
}

func (s *SchedulerEngine) runSlot(ctx context.Context, slotID string) {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 200 * time.Millisecond
	retry.MaxInterval = 5 * time.Second
	retry.MaxElapsedTime = 0

	for {
		delivery, err := s.broker.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, errs.ErrBrokerClosed) {
				s.logger.Debug("Slot stopped", "slot", slotID)
				return
			}
			wait := retry.NextBackOff()
			s.logger.Error("Failed to dequeue job", "slot", slotID, "error", err, "retryIn", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		retry.Reset()
		s.dispatch(ctx, slotID, delivery)
	}
}

// dispatch runs a delivery at most once; a settled job is never executed again
func (s *SchedulerEngine) dispatch(ctx context.Context, slotID string, delivery *domain.Delivery) {
	job := delivery.Job
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	claimed, err := s.claim(settleCtx, slotID, job)
	if err != nil {
		s.logger.Error("Failed to claim job", "jobId", job.ID, "slot", slotID, "error", err)
		s.fail(settleCtx, delivery, fmt.Errorf("claim: %w", err))
		return
	}
	if !claimed {
		s.logger.Warn("Discarding delivery", "jobId", job.ID, "slot", slotID, "reason", errs.ErrDuplicateDelivery)
		if err := s.broker.Discard(settleCtx, delivery); err != nil {
			s.logger.Error("Failed to discard job", "jobId", job.ID, "error", err)
		}
		return
	}

	switch {
	case delivery.Redelivered:
		s.logger.Warn("Refusing redelivered job", "jobId", job.ID, "slot", slotID)
		s.fail(settleCtx, delivery, errs.ErrRedelivered)
		return
	case job.Expired(time.Now()):
		s.logger.Warn("Job expired before dispatch", "jobId", job.ID, "deadline", job.Deadline)
		s.fail(settleCtx, delivery, errs.ErrJobExpired)
		return
	case job.Submission == nil:
		s.fail(settleCtx, delivery, errs.ErrInvalidRequest)
		return
	}

	s.busy.Add(1)
	s.logger.Info("Job dispatched", "jobId", job.ID, "slot", slotID, "language", job.Submission.Language)
	// in-flight jobs drain on shutdown, bounded by their own deadline
	execCtx, execCancel := context.WithDeadline(context.WithoutCancel(ctx), job.Deadline)
	result := s.executor.Execute(execCtx, job.Submission)
	execCancel()
	s.busy.Add(-1)

	s.logger.Info("Job finished", "jobId", job.ID, "slot", slotID, "status", result.Status, "elapsed", result.Elapsed)

	doneCtx, doneCancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer doneCancel()
	op := func() error {
		return s.broker.Done(doneCtx, delivery, result)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(100*time.Millisecond), settleRetries), doneCtx)
	if err := backoff.Retry(op, policy); err != nil {
		s.logger.Error("Failed to settle job", "jobId", job.ID, "slot", slotID, "error", err)
	}
}

func (s *SchedulerEngine) claim(ctx context.Context, slotID string, job *domain.Job) (bool, error) {
	var claimed bool
	op := func() error {
		ok, err := s.broker.Claim(ctx, job.ID, slotID)
		claimed = ok
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(100*time.Millisecond), uint64(s.QueueCfg.EnqueueRetries)), ctx)
	return claimed, backoff.Retry(op, policy)
}

func (s *SchedulerEngine) fail(ctx context.Context, delivery *domain.Delivery, cause error) {
	if err := s.broker.Fail(ctx, delivery, cause); err != nil {
		s.logger.Error("Failed to report job failure", "jobId", delivery.Job.ID, "error", err)
	}
}
