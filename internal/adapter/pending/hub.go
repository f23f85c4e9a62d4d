// Package pending matches settled job results with the callers waiting on them.
package pending

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

type Hub struct {
	mu      sync.Mutex
	waiters map[uuid.UUID]chan *domain.JobResultMessage
}

func NewHub() *Hub {
	return &Hub{waiters: make(map[uuid.UUID]chan *domain.JobResultMessage)}
}

// Register must happen before the job becomes visible to any slot
func (h *Hub) Register(jobID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.waiters[jobID]; !ok {
		h.waiters[jobID] = make(chan *domain.JobResultMessage, 1)
	}
}

// Resolve hands the message to its waiter; results nobody waits for are dropped
func (h *Hub) Resolve(msg *domain.JobResultMessage) bool {
	h.mu.Lock()
	ch, ok := h.waiters[msg.JobID]
	h.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- msg:
		return true
	default:
		// already settled once
		return false
	}
}

// Wait blocks for the job's result and forgets the job on return
func (h *Hub) Wait(ctx context.Context, jobID uuid.UUID) (*domain.JobResultMessage, error) {
	h.Register(jobID)
	h.mu.Lock()
	ch := h.waiters[jobID]
	h.mu.Unlock()
	defer h.Forget(jobID)

	select {
	case msg := <-ch:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) Forget(jobID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.waiters, jobID)
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.waiters)
}
