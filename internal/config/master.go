package config

import "os"

type AppConfig struct {
	DebugMode      bool
	QueueCfg       *QueueCfg
	RunnerCfg      *RunnerCfg
	HttpCfg        *HttpCfg
	RedisConfig    *RedisConfig
	AmqpConfig     *AmqpConfig
	PostgresConfig *PostgresConfig
	JwtConfig      *JwtConfig
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:      os.Getenv("DEBUG_MODE") == "true",
		QueueCfg:       NewQueueCfg(),
		RunnerCfg:      NewRunnerCfg(),
		HttpCfg:        NewHttpCfg(),
		RedisConfig:    NewRedisConfig(),
		AmqpConfig:     NewAmqpConfig(),
		PostgresConfig: NewPostgresConfig(),
		JwtConfig:      NewJwtConfig(),
	}
}
