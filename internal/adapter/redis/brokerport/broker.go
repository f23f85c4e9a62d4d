// Package brokerport is a Redis-backed job broker with at-least-once delivery.
package brokerport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
	"gitlab.com/fcv-2025.net/coderunner/internal/static/errs"
)

const (
	pollTimeout = time.Second
	claimTTL    = 10 * time.Minute
	resultTTL   = time.Minute
	// strandedGrace is how long past its deadline an in-flight job may stay unsettled.
	// A live slot stops a job at its deadline and settles it well within this window.
	strandedGrace = 30 * time.Second
)

var _ secondary.JobBroker = (*Broker)(nil)

// settleIfPending publishes a result only when this call removed the receipt,
// so concurrent sweepers settle a stranded job once
var settleIfPending = redis.NewScript(`
if redis.call("LREM", KEYS[1], 1, ARGV[1]) == 1 then
	redis.call("RPUSH", KEYS[2], ARGV[2])
	redis.call("EXPIRE", KEYS[2], ARGV[3])
	return 1
end
return 0
`)

// Broker moves jobs from the pending list into a processing list until they are settled.
// Results travel back on a per-job list the caller blocks on.
type Broker struct {
	redisClient *redis.Client
	logger      primary.Logger
	queue       string
	closed      chan struct{}
}

func NewBroker(redisClient *redis.Client, queue string, logger primary.Logger) *Broker {
	return &Broker{
		redisClient: redisClient,
		logger:      logger,
		queue:       queue,
		closed:      make(chan struct{}),
	}
}

func (b *Broker) jobsKey() string       { return b.queue + ":jobs" }
func (b *Broker) processingKey() string { return b.queue + ":processing" }

func (b *Broker) claimKey(jobID uuid.UUID) string {
	return fmt.Sprintf("%s:claim:%s", b.queue, jobID)
}

func (b *Broker) resultKey(jobID uuid.UUID) string {
	return fmt.Sprintf("%s:result:%s", b.queue, jobID)
}

func (b *Broker) Enqueue(ctx context.Context, job *domain.Job) error {
	if b.isClosed() {
		return errs.ErrBrokerClosed
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := b.redisClient.LPush(ctx, b.jobsKey(), data).Err(); err != nil {
		return fmt.Errorf("failed to push job: %w", err)
	}
	return nil
}

// Dequeue polls so a closed broker or cancelled ctx is noticed within pollTimeout
func (b *Broker) Dequeue(ctx context.Context) (*domain.Delivery, error) {
	for {
		if b.isClosed() {
			return nil, errs.ErrBrokerClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := b.redisClient.BRPopLPush(ctx, b.jobsKey(), b.processingKey(), pollTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to pop job: %w", err)
		}

		var job domain.Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			b.logger.Error("Dropping malformed job", "error", err)
			if err := b.redisClient.LRem(ctx, b.processingKey(), 1, raw).Err(); err != nil {
				b.logger.Error("Failed to remove malformed job", "error", err)
			}
			continue
		}
		return &domain.Delivery{Job: &job, Receipt: raw}, nil
	}
}

func (b *Broker) Claim(ctx context.Context, jobID uuid.UUID, slotID string) (bool, error) {
	ok, err := b.redisClient.SetNX(ctx, b.claimKey(jobID), slotID, claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}
	return ok, nil
}

func (b *Broker) Done(ctx context.Context, delivery *domain.Delivery, result *domain.SubmissionResult) error {
	return b.settle(ctx, delivery, &domain.JobResultMessage{
		JobID:     delivery.Job.ID,
		Success:   true,
		Result:    result,
		Timestamp: time.Now(),
	})
}

func (b *Broker) Fail(ctx context.Context, delivery *domain.Delivery, cause error) error {
	return b.settle(ctx, delivery, &domain.JobResultMessage{
		JobID:     delivery.Job.ID,
		Success:   false,
		Error:     cause.Error(),
		Timestamp: time.Now(),
	})
}

func (b *Broker) Discard(ctx context.Context, delivery *domain.Delivery) error {
	if err := b.redisClient.LRem(ctx, b.processingKey(), 1, receipt(delivery)).Err(); err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}

// settle acks and publishes in one transaction so a result is never visible without the ack
func (b *Broker) settle(ctx context.Context, delivery *domain.Delivery, msg *domain.JobResultMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	key := b.resultKey(msg.JobID)
	_, err = b.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, b.processingKey(), 1, receipt(delivery))
		pipe.RPush(ctx, key, data)
		pipe.Expire(ctx, key, resultTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish result: %w", err)
	}
	return nil
}

func (b *Broker) Await(ctx context.Context, jobID uuid.UUID) (*domain.JobResultMessage, error) {
	key := b.resultKey(jobID)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vals, err := b.redisClient.BLPop(ctx, pollTimeout, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to await result: %w", err)
		}

		var msg domain.JobResultMessage
		if err := json.Unmarshal([]byte(vals[1]), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		return &msg, nil
	}
}

// RecoverStranded settles in-flight jobs whose slot died before acking them.
// A job is stranded once its deadline is strandedGrace behind now; it fails with ErrRedelivered
// so a caller still waiting learns the outcome is unknown. Malformed entries are dropped.
// It returns how many entries it settled or dropped.
func (b *Broker) RecoverStranded(ctx context.Context, now time.Time) (int, error) {
	entries, err := b.redisClient.LRange(ctx, b.processingKey(), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list processing jobs: %w", err)
	}

	recovered := 0
	for _, raw := range entries {
		var job domain.Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			if err := b.redisClient.LRem(ctx, b.processingKey(), 1, raw).Err(); err != nil {
				return recovered, fmt.Errorf("failed to remove malformed job: %w", err)
			}
			recovered++
			continue
		}
		if !job.Expired(now.Add(-strandedGrace)) {
			continue
		}
		data, err := json.Marshal(&domain.JobResultMessage{
			JobID:     job.ID,
			Success:   false,
			Error:     errs.ErrRedelivered.Error(),
			Timestamp: now,
		})
		if err != nil {
			return recovered, fmt.Errorf("failed to marshal result: %w", err)
		}
		keys := []string{b.processingKey(), b.resultKey(job.ID)}
		settled, err := settleIfPending.Run(ctx, b.redisClient, keys, raw, data, int(resultTTL.Seconds())).Int()
		if err != nil {
			return recovered, fmt.Errorf("failed to settle stranded job: %w", err)
		}
		if settled == 1 {
			b.logger.Warn("Recovered stranded job", "jobId", job.ID, "deadline", job.Deadline)
			recovered++
		}
	}
	return recovered, nil
}

// SweepStranded runs RecoverStranded every interval until ctx is done
func (b *Broker) SweepStranded(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		n, err := b.RecoverStranded(ctx, time.Now())
		if err != nil && ctx.Err() == nil {
			b.logger.Error("Failed to recover stranded jobs", "error", err)
		}
		if n > 0 {
			b.logger.Info("Recovered stranded jobs", "count", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close stops dequeuing; the client is owned by the caller
func (b *Broker) Close() error {
	select {
	case <-b.closed:
	default:
		close(b.closed)
	}
	return nil
}

// Pending reports the number of jobs waiting and in flight
func (b *Broker) Pending(ctx context.Context) (waiting, processing int64, err error) {
	waiting, err = b.redisClient.LLen(ctx, b.jobsKey()).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	processing, err = b.redisClient.LLen(ctx, b.processingKey()).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count processing jobs: %w", err)
	}
	return waiting, processing, nil
}

func (b *Broker) isClosed() bool {
	select {
	case <-b.closed:
		return true
	default:
		return false
	}
}

func receipt(d *domain.Delivery) string {
	raw, _ := d.Receipt.(string)
	return raw
}
