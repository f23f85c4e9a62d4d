package config

import "time"

type BrokerKind string

const (
	BrokerMemory BrokerKind = "memory"
	BrokerRedis  BrokerKind = "redis"
	BrokerAmqp   BrokerKind = "amqp"
)

type QueueCfg struct {
	Broker            BrokerKind
	QueueName         string
	Slots             int
	JobTimeout        time.Duration
	EnqueueRetries    int
	HeartbeatInterval time.Duration
	// MemoryCapacity bounds the in-process broker's buffer
	MemoryCapacity int
}

func NewQueueCfg() *QueueCfg {
	slots := getIntEnv("QUEUE_SLOTS", 4)
	if slots < 1 {
		slots = 1
	}
	return &QueueCfg{
		Broker:            BrokerKind(getEnv("BROKER", string(BrokerMemory))),
		QueueName:         getEnv("QUEUE_NAME", "compileQueue"),
		Slots:             slots,
		JobTimeout:        getMillisEnv("JOB_TIMEOUT_MS", 10*time.Second),
		EnqueueRetries:    getIntEnv("ENQUEUE_RETRIES", 3),
		HeartbeatInterval: 30 * time.Second,
		MemoryCapacity:    getIntEnv("QUEUE_MEMORY_CAPACITY", 1024),
	}
}
