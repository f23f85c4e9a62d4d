package secondary

import (
	"context"
	"time"

	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

type WorkerRepository interface {
	// SaveWorker saves worker information
	SaveWorker(ctx context.Context, worker *domain.WorkerInfo) error

	// GetWorker retrieves worker information by ID
	GetWorker(ctx context.Context, workerID string) (*domain.WorkerInfo, error)

	// UpdateWorkerHeartbeat updates a worker's heartbeat and load
	UpdateWorkerHeartbeat(ctx context.Context, workerID string, load int, time time.Time) error

	// RemoveWorker deletes a worker entry, used on graceful shutdown
	RemoveWorker(ctx context.Context, workerID string) error

	GetAllWorkers(ctx context.Context) ([]*domain.WorkerInfo, error)
}
