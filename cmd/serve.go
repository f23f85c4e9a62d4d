package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli"

	"gitlab.com/fcv-2025.net/coderunner/internal/adapter/postgres/languageconfig"
	redisbroker "gitlab.com/fcv-2025.net/coderunner/internal/adapter/redis/brokerport"
	"gitlab.com/fcv-2025.net/coderunner/internal/adapter/redis/ratelimit"
	"gitlab.com/fcv-2025.net/coderunner/internal/config"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/job"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/toolchain"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/worker"
	logger2 "gitlab.com/fcv-2025.net/coderunner/internal/global/logger"
	"gitlab.com/fcv-2025.net/coderunner/internal/handlers"
	http2 "gitlab.com/fcv-2025.net/coderunner/internal/http"
	"gitlab.com/fcv-2025.net/coderunner/internal/schedulerengine"
)

const (
	serviceName           = "coderunner"
	strandedSweepInterval = time.Minute
)

var serveCmd = cli.Command{
	Name:        "serve",
	Usage:       "start the http api and the execution slots",
	Description: `The serve command accepts submissions on POST /run and executes them until SIGINT or SIGTERM`,
	Action: func(ctx *cli.Context) error {
		return serve()
	},
}

func serve() error {
	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	logger := logger2.Logger
	logger.Info("Starting code runner service", "version", version)

	sysCfg := config.NewSystemConfig()
	ctxBg, stopSlots := context.WithCancel(context.Background())
	defer stopSlots()

	redisClient, err := setupRedis(ctxBg, sysCfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	db, err := setupDatabase(ctxBg, sysCfg)
	if err != nil {
		return err
	}
	var configRepo secondary.LanguageConfigRepository
	if db != nil {
		defer db.Close()
		repo := languageconfig.NewLanguageConfigRepository(db, logger)
		if err := repo.EnsureTableExists(ctxBg); err != nil {
			return err
		}
		configRepo = repo
	}

	// SECONDARY PORTS
	broker, err := newBroker(sysCfg, redisClient, logger)
	if err != nil {
		return fmt.Errorf("failed to set up %s broker: %w", sysCfg.QueueCfg.Broker, err)
	}
	defer broker.Close()
	if rb, ok := broker.(*redisbroker.Broker); ok {
		go rb.SweepStranded(ctxBg, strandedSweepInterval)
	}
	workerPort := newWorkerRepository(redisClient, logger)

	//services
	registry := toolchain.DefaultRegistry()
	executionSvc := newExecutionService(sysCfg.RunnerCfg, registry, configRepo, logger)
	if err := executionSvc.RefreshLimits(ctxBg); err != nil {
		return err
	}
	jobSvc := job.NewJobService(broker, logger, sysCfg.QueueCfg.JobTimeout, sysCfg.QueueCfg.EnqueueRetries)
	workerSvc := worker.NewWorkerRegistrationService(workerPort, logger, sysCfg.QueueCfg.HeartbeatInterval)

	var limiter handlers.RateLimiter
	if redisClient != nil {
		limiter = ratelimit.NewLimiter(redisClient, sysCfg.HttpCfg.RateLimitMax, sysCfg.HttpCfg.RateLimitWindow)
	}

	//slots
	nodeID := uuid.New().String()
	nodeLogger := logger.With("node", nodeID)
	engine := schedulerengine.NewSchedulerEngine(sysCfg.QueueCfg, broker, executionSvc, nodeLogger, nodeID)
	node := worker.NewNode(nodeID, registry.Languages(), engine, workerSvc, sysCfg.QueueCfg.HeartbeatInterval, version, nodeLogger)
	if err := node.Register(ctxBg); err != nil {
		logger.Warn("Failed to register node", "workerId", node.ID, "error", err)
	}
	engine.Start(ctxBg)
	go node.SendHeartbeats(ctxBg)

	//server
	serviceProvider := http2.NewServiceProvider(workerSvc, jobSvc, executionSvc, limiter)
	httpServer := http2.NewServer(sysCfg.HttpCfg, sysCfg.JwtConfig, serviceName, *serviceProvider, logger)
	if err := httpServer.Init(); err != nil {
		return err
	}
	if err := httpServer.Start(ctxBg); err != nil {
		return err
	}

	<-quit
	logger.Info("Shutting down server...")

	// in-flight requests settle while the slots are still running
	ctx, cancel := context.WithTimeout(context.Background(), sysCfg.HttpCfg.RequestTimeout+5*time.Second)
	defer cancel()
	httpServer.Stop(ctx)

	stopSlots()
	engine.Wait()
	if err := node.Deregister(ctx); err != nil {
		logger.Warn("Failed to deregister node", "workerId", node.ID, "error", err)
	}

	logger.Info("successfully shutdown server")
	return nil
}
