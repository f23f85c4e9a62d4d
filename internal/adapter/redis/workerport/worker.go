package workerport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

const (
	workerKeyPrefix = "coderunner:node:"
	// a node missing two heartbeats drops out on its own
	workerExpiration = 90 * time.Second
)

var _ secondary.WorkerRepository = (*WorkerRepository)(nil)

// WorkerRepository implements the WorkerRepository interface with Redis
type WorkerRepository struct {
	redisClient *redis.Client
	logger      primary.Logger
}

// NewWorkerRepository creates a new Redis worker repository
func NewWorkerRepository(redisClient *redis.Client, logger primary.Logger) *WorkerRepository {
	return &WorkerRepository{
		redisClient: redisClient,
		logger:      logger,
	}
}

func workerKey(workerID string) string {
	return workerKeyPrefix + workerID
}

// SaveWorker saves node information to Redis with expiration
func (r *WorkerRepository) SaveWorker(ctx context.Context, worker *domain.WorkerInfo) error {
	workerJSON, err := json.Marshal(worker)
	if err != nil {
		r.logger.Error("Failed to marshal worker info", "error", err)
		return fmt.Errorf("failed to marshal worker info: %w", err)
	}

	if err := r.redisClient.Set(ctx, workerKey(worker.ID), workerJSON, workerExpiration).Err(); err != nil {
		r.logger.Error("Failed to save worker info", "error", err)
		return fmt.Errorf("failed to save worker info: %w", err)
	}
	return nil
}

// GetWorker returns nil without error when the node is unknown or expired
func (r *WorkerRepository) GetWorker(ctx context.Context, workerID string) (*domain.WorkerInfo, error) {
	workerJSON, err := r.redisClient.Get(ctx, workerKey(workerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		r.logger.Error("Failed to get worker info", "error", err)
		return nil, fmt.Errorf("failed to get worker info: %w", err)
	}

	var worker domain.WorkerInfo
	if err := json.Unmarshal(workerJSON, &worker); err != nil {
		r.logger.Error("Failed to unmarshal worker info", "error", err)
		return nil, fmt.Errorf("failed to unmarshal worker info: %w", err)
	}
	return &worker, nil
}

// UpdateWorkerHeartbeat refreshes load, heartbeat time and expiration
func (r *WorkerRepository) UpdateWorkerHeartbeat(ctx context.Context, workerID string, load int, heartbeatTime time.Time) error {
	worker, err := r.GetWorker(ctx, workerID)
	if err != nil {
		return err
	}
	if worker == nil {
		return fmt.Errorf("worker not found: %s", workerID)
	}

	worker.CurrentLoad = load
	worker.LastHeartbeat = heartbeatTime
	return r.SaveWorker(ctx, worker)
}

func (r *WorkerRepository) RemoveWorker(ctx context.Context, workerID string) error {
	if err := r.redisClient.Del(ctx, workerKey(workerID)).Err(); err != nil {
		r.logger.Error("Failed to remove worker", "workerId", workerID, "error", err)
		return fmt.Errorf("failed to remove worker: %w", err)
	}
	return nil
}

// GetAllWorkers lists every live node ordered by id
func (r *WorkerRepository) GetAllWorkers(ctx context.Context) ([]*domain.WorkerInfo, error) {
	var cursor uint64
	var workerKeys []string

	for {
		keys, next, err := r.redisClient.Scan(ctx, cursor, workerKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan worker keys: %w", err)
		}
		workerKeys = append(workerKeys, keys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	workers := make([]*domain.WorkerInfo, 0, len(workerKeys))
	if len(workerKeys) == 0 {
		return workers, nil
	}

	workerData, err := r.redisClient.MGet(ctx, workerKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve worker data: %w", err)
	}

	for _, data := range workerData {
		raw, ok := data.(string)
		if !ok {
			// expired between SCAN and MGET
			continue
		}
		var worker domain.WorkerInfo
		if err := json.Unmarshal([]byte(raw), &worker); err != nil {
			return nil, fmt.Errorf("failed to unmarshal worker data: %w", err)
		}
		workers = append(workers, &worker)
	}

	sort.Slice(workers, func(i, j int) bool { return workers[i].ID < workers[j].ID })
	return workers, nil
}
