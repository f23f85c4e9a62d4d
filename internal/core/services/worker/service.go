package worker

import (
	"context"

	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

// IWorkerRegistrationService tracks the runner nodes sharing a queue
type IWorkerRegistrationService interface {
	// RegisterWorker announces a node and its slot capacity
	RegisterWorker(ctx context.Context, workerInfo *domain.WorkerInfo) error

	// Heartbeat updates the node's busy slot count
	Heartbeat(ctx context.Context, workerID string, load int) error

	// DeregisterWorker removes a node on graceful shutdown
	DeregisterWorker(ctx context.Context, workerID string) error

	// GetAllWorkers gets all registered nodes annotated with liveness
	GetAllWorkers(ctx context.Context) ([]*domain.WorkerInfo, error)
}
