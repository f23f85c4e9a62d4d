package domain

import "time"

// LanguageConfig represents per-language execution limits
type LanguageConfig struct {
	Language      string    `db:"language" json:"language"`       // Language tag (e.g., "java", "python", "cpp")
	Description   string    `db:"description" json:"description"` // Human-readable description
	TimeoutMs     int       `db:"timeout_ms" json:"timeoutMs"`    // Per-run wall-clock timeout
	MemoryLimitMB int       `db:"memory_limit_mb" json:"memoryLimitMb"`
	StackLimitMB  int       `db:"stack_limit_mb" json:"stackLimitMb"`
	Active        bool      `db:"active" json:"active"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}
