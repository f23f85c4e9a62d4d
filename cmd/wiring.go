package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	amqpbroker "gitlab.com/fcv-2025.net/coderunner/internal/adapter/amqp/brokerport"
	membroker "gitlab.com/fcv-2025.net/coderunner/internal/adapter/memory/brokerport"
	memworker "gitlab.com/fcv-2025.net/coderunner/internal/adapter/memory/workerport"
	"gitlab.com/fcv-2025.net/coderunner/internal/adapter/postgres/languageconfig"
	"gitlab.com/fcv-2025.net/coderunner/internal/adapter/process"
	redisbroker "gitlab.com/fcv-2025.net/coderunner/internal/adapter/redis/brokerport"
	"gitlab.com/fcv-2025.net/coderunner/internal/adapter/redis/workerport"
	"gitlab.com/fcv-2025.net/coderunner/internal/config"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/evaluate"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/execution"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/toolchain"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

const dialTimeout = 3 * time.Second

// setupRedis returns nil when Redis is unreachable and nothing requires it
func setupRedis(ctx context.Context, sysCfg *config.AppConfig, logger primary.Logger) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     sysCfg.RedisConfig.Url,
		Password: sysCfg.RedisConfig.Password,
		DB:       sysCfg.RedisConfig.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		_ = redisClient.Close()
		if sysCfg.QueueCfg.Broker == config.BrokerRedis {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", sysCfg.RedisConfig.Url, err)
		}
		logger.Warn("Redis unavailable, running without rate guard and shared node registry",
			"addr", sysCfg.RedisConfig.Url, "error", err)
		return nil, nil
	}
	return redisClient, nil
}

// setupDatabase sets up the PostgreSQL connection; nil when no DATABASE_URL is configured
func setupDatabase(ctx context.Context, sysCfg *config.AppConfig) (*sqlx.DB, error) {
	if !sysCfg.PostgresConfig.Enabled() {
		return nil, nil
	}
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	return languageconfig.Connect(dialCtx, sysCfg.PostgresConfig.Url)
}

func newBroker(sysCfg *config.AppConfig, redisClient *redis.Client, logger primary.Logger) (secondary.JobBroker, error) {
	queueCfg := sysCfg.QueueCfg
	switch queueCfg.Broker {
	case config.BrokerMemory:
		return membroker.NewBroker(queueCfg.MemoryCapacity), nil
	case config.BrokerRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis broker selected without a redis connection")
		}
		return redisbroker.NewBroker(redisClient, queueCfg.QueueName, logger), nil
	case config.BrokerAmqp:
		return amqpbroker.Dial(sysCfg.AmqpConfig.Url, queueCfg.QueueName, queueCfg.Slots, logger)
	default:
		return nil, fmt.Errorf("unknown broker %q", queueCfg.Broker)
	}
}

func newWorkerRepository(redisClient *redis.Client, logger primary.Logger) secondary.WorkerRepository {
	if redisClient == nil {
		return memworker.NewWorkerRepository()
	}
	return workerport.NewWorkerRepository(redisClient, logger)
}

func baseLimits(runnerCfg *config.RunnerCfg) domain.Limits {
	return domain.Limits{
		Timeout:     runnerCfg.RunTimeout,
		MemoryBytes: uint64(runnerCfg.MemoryLimitMB) << 20,
		StackBytes:  uint64(runnerCfg.StackLimitMB) << 20,
		OutputBytes: runnerCfg.OutputLimitKB << 10,
	}
}

// newExecutionService builds the toolchain, evaluator and limit table around one runner.
// configRepo may be nil.
func newExecutionService(
	runnerCfg *config.RunnerCfg,
	registry *toolchain.Registry,
	configRepo secondary.LanguageConfigRepository,
	logger primary.Logger,
) *execution.ExecutionService {
	var opts []process.Option
	if self, err := os.Executable(); err == nil {
		opts = append(opts, process.WithLimitHelper(self))
	} else {
		logger.Warn("Limit helper unavailable, applying limits after start", "error", err)
	}
	runner := process.NewRunner(logger, opts...)
	return execution.NewExecutionService(
		toolchain.NewAdapter(registry, runner, logger, runnerCfg.CompileTimeout),
		evaluate.NewEvaluator(runner, logger),
		execution.NewLimitTable(registry, baseLimits(runnerCfg)),
		configRepo,
		logger,
		execution.Options{
			WorkRoot:      runnerCfg.WorkRoot,
			KeepArtifacts: runnerCfg.KeepArtifacts,
		},
	)
}
