// Package brokerport is the in-process job broker used when no external backend is configured.
package brokerport

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"gitlab.com/fcv-2025.net/coderunner/internal/adapter/pending"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
	"gitlab.com/fcv-2025.net/coderunner/internal/static/errs"
)

// claims outlive settlement so a duplicate delivery is still recognised
const claimTTL = 10 * time.Minute

var _ secondary.JobBroker = (*Broker)(nil)

type claim struct {
	slot string
	at   time.Time
}

type Broker struct {
	queue  chan *domain.Job
	hub    *pending.Hub
	mu     sync.Mutex
	claims map[uuid.UUID]claim
	closed chan struct{}
	once   sync.Once
}

// NewBroker creates a FIFO broker holding at most capacity undispatched jobs
func NewBroker(capacity int) *Broker {
	if capacity < 1 {
		capacity = 1
	}
	return &Broker{
		queue:  make(chan *domain.Job, capacity),
		hub:    pending.NewHub(),
		claims: make(map[uuid.UUID]claim),
		closed: make(chan struct{}),
	}
}

func (b *Broker) Enqueue(ctx context.Context, job *domain.Job) error {
	b.hub.Register(job.ID)
	select {
	case <-b.closed:
		b.hub.Forget(job.ID)
		return errs.ErrBrokerClosed
	default:
	}

	select {
	case b.queue <- job:
		return nil
	case <-b.closed:
		b.hub.Forget(job.ID)
		return errs.ErrBrokerClosed
	case <-ctx.Done():
		b.hub.Forget(job.ID)
		return ctx.Err()
	}
}

func (b *Broker) Dequeue(ctx context.Context) (*domain.Delivery, error) {
	select {
	case job := <-b.queue:
		return &domain.Delivery{Job: job}, nil
	case <-b.closed:
		return nil, errs.ErrBrokerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Broker) Claim(ctx context.Context, jobID uuid.UUID, slotID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	for id, c := range b.claims {
		if now.Sub(c.at) > claimTTL {
			delete(b.claims, id)
		}
	}
	if _, ok := b.claims[jobID]; ok {
		return false, nil
	}
	b.claims[jobID] = claim{slot: slotID, at: now}
	return true, nil
}

func (b *Broker) Done(ctx context.Context, delivery *domain.Delivery, result *domain.SubmissionResult) error {
	b.settle(&domain.JobResultMessage{
		JobID:     delivery.Job.ID,
		Success:   true,
		Result:    result,
		Timestamp: time.Now(),
	})
	return nil
}

func (b *Broker) Fail(ctx context.Context, delivery *domain.Delivery, cause error) error {
	b.settle(&domain.JobResultMessage{
		JobID:     delivery.Job.ID,
		Success:   false,
		Error:     cause.Error(),
		Timestamp: time.Now(),
	})
	return nil
}

func (b *Broker) Discard(ctx context.Context, delivery *domain.Delivery) error {
	return nil
}

func (b *Broker) Await(ctx context.Context, jobID uuid.UUID) (*domain.JobResultMessage, error) {
	return b.hub.Wait(ctx, jobID)
}

func (b *Broker) Close() error {
	b.once.Do(func() { close(b.closed) })
	return nil
}

// Len is the number of jobs waiting for a slot
func (b *Broker) Len() int {
	return len(b.queue)
}

func (b *Broker) settle(msg *domain.JobResultMessage) {
	b.hub.Resolve(msg)
}
