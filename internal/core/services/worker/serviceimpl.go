package worker

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

var _ IWorkerRegistrationService = &WorkerRegistrationService{}

// WorkerRegistrationService implements the IWorkerRegistrationService interface
type WorkerRegistrationService struct {
	workerRepo secondary.WorkerRepository
	logger     primary.Logger
	// nodes silent for longer are reported inactive
	staleAfter time.Duration
}

// NewWorkerRegistrationService creates a new worker registration service
func NewWorkerRegistrationService(workerRepo secondary.WorkerRepository, logger primary.Logger, heartbeatInterval time.Duration) *WorkerRegistrationService {
	return &WorkerRegistrationService{
		workerRepo: workerRepo,
		logger:     logger,
		staleAfter: 2 * heartbeatInterval,
	}
}

func (s *WorkerRegistrationService) RegisterWorker(ctx context.Context, workerInfo *domain.WorkerInfo) error {
	if workerInfo.ID == "" {
		return fmt.Errorf("worker id is required")
	}
	s.logger.Info("Registering worker", "workerId", workerInfo.ID, "capacity", workerInfo.Capacity, "languages", len(workerInfo.Languages))

	workerInfo.LastHeartbeat = time.Now()
	if err := s.workerRepo.SaveWorker(ctx, workerInfo); err != nil {
		s.logger.Error("Failed to register worker", "workerId", workerInfo.ID, "error", err)
		return fmt.Errorf("failed to register worker: %w", err)
	}
	return nil
}

func (s *WorkerRegistrationService) Heartbeat(ctx context.Context, workerID string, load int) error {
	s.logger.Debug("Worker heartbeat", "workerId", workerID, "load", load)

	if err := s.workerRepo.UpdateWorkerHeartbeat(ctx, workerID, load, time.Now()); err != nil {
		s.logger.Error("Failed to update worker heartbeat", "workerId", workerID, "error", err)
		return fmt.Errorf("failed to update worker heartbeat: %w", err)
	}
	return nil
}

func (s *WorkerRegistrationService) DeregisterWorker(ctx context.Context, workerID string) error {
	s.logger.Info("Deregistering worker", "workerId", workerID)

	if err := s.workerRepo.RemoveWorker(ctx, workerID); err != nil {
		return fmt.Errorf("failed to deregister worker: %w", err)
	}
	return nil
}

func (s *WorkerRegistrationService) GetAllWorkers(ctx context.Context) ([]*domain.WorkerInfo, error) {
	s.logger.Debug("Getting all workers")

	workers, err := s.workerRepo.GetAllWorkers(ctx)
	if err != nil {
		s.logger.Error("Failed to get all workers", "error", err)
		return nil, fmt.Errorf("failed to get all workers: %w", err)
	}

	threshold := time.Now().Add(-s.staleAfter)
	for _, worker := range workers {
		worker.IsActive = worker.LastHeartbeat.After(threshold)
	}
	return workers, nil
}
