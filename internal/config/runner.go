package config

import (
	"os"
	"path/filepath"
	"time"
)

type RunnerCfg struct {
	RunTimeout     time.Duration
	CompileTimeout time.Duration
	MemoryLimitMB  int
	StackLimitMB   int
	OutputLimitKB  int
	WorkRoot       string
	KeepArtifacts  bool
}

func NewRunnerCfg() *RunnerCfg {
	return &RunnerCfg{
		RunTimeout:     getMillisEnv("RUN_TIMEOUT_MS", 5*time.Second),
		CompileTimeout: getMillisEnv("COMPILE_TIMEOUT_MS", 10*time.Second),
		MemoryLimitMB:  getIntEnv("MEMORY_LIMIT_MB", 256),
		StackLimitMB:   getIntEnv("STACK_LIMIT_MB", 64),
		OutputLimitKB:  getIntEnv("OUTPUT_LIMIT_KB", 1024),
		WorkRoot:       getEnv("WORK_ROOT", filepath.Join(os.TempDir(), "coderunner")),
		KeepArtifacts:  getBoolEnv("KEEP_ARTIFACTS", false),
	}
}
