package worker

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"

	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

// LoadSource reports slot usage of the local execution pool
type LoadSource interface {
	Busy() int
	Capacity() int
}

// Node is this process as seen by the registry
type Node struct {
	ID       string
	info     domain.WorkerInfo
	service  IWorkerRegistrationService
	load     LoadSource
	interval time.Duration
	logger   primary.Logger
}

// NewNode describes this process; an empty id gets a random one
func NewNode(id string, languages []string, load LoadSource, service IWorkerRegistrationService, interval time.Duration, version string, logger primary.Logger) *Node {
	hostname, _ := os.Hostname()
	if id == "" {
		id = uuid.New().String()
	}
	return &Node{
		ID: id,
		info: domain.WorkerInfo{
			ID:        id,
			Languages: languages,
			Capacity:  load.Capacity(),
			Hostname:  hostname,
			OS:        runtime.GOOS,
			Version:   version,
		},
		service:  service,
		load:     load,
		interval: interval,
		logger:   logger,
	}
}

func (n *Node) Register(ctx context.Context) error {
	info := n.info
	info.CurrentLoad = n.load.Busy()
	return n.service.RegisterWorker(ctx, &info)
}

// SendHeartbeats reports load every interval until ctx is done.
// A heartbeat for an expired entry re-registers the node.
func (n *Node) SendHeartbeats(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := n.service.Heartbeat(ctx, n.ID, n.load.Busy()); err != nil {
				n.logger.Warn("Heartbeat failed, re-registering", "workerId", n.ID, "error", err)
				if err := n.Register(ctx); err != nil {
					n.logger.Error("Failed to re-register worker", "workerId", n.ID, "error", err)
				}
			}
		}
	}
}

func (n *Node) Deregister(ctx context.Context) error {
	return n.service.DeregisterWorker(ctx, n.ID)
}
