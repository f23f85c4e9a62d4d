package languageconfig

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

var _ secondary.LanguageConfigRepository = (*LanguageConfigRepository)(nil)

const selectColumns = `language, description, timeout_ms, memory_limit_mb, stack_limit_mb, active, updated_at`

// LanguageConfigRepository implements the LanguageConfigRepository interface with PostgreSQL
type LanguageConfigRepository struct {
	db     *sqlx.DB
	logger primary.Logger
}

// Connect opens and pings a postgres pool
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// NewLanguageConfigRepository creates a new PostgreSQL language config repository
func NewLanguageConfigRepository(db *sqlx.DB, logger primary.Logger) *LanguageConfigRepository {
	return &LanguageConfigRepository{
		db:     db,
		logger: logger,
	}
}

// GetLanguageConfig returns nil without error when the language has no override
func (r *LanguageConfigRepository) GetLanguageConfig(ctx context.Context, language string) (*domain.LanguageConfig, error) {
	query := `SELECT ` + selectColumns + `
		FROM language_config
		WHERE language = $1`

	var config domain.LanguageConfig
	if err := r.db.GetContext(ctx, &config, query, language); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get language config", "language", language, "error", err)
		return nil, fmt.Errorf("failed to get language config: %w", err)
	}
	return &config, nil
}

func (r *LanguageConfigRepository) GetAllLanguageConfigs(ctx context.Context) ([]*domain.LanguageConfig, error) {
	query := `SELECT ` + selectColumns + `
		FROM language_config
		ORDER BY language`

	var configs []*domain.LanguageConfig
	if err := r.db.SelectContext(ctx, &configs, query); err != nil {
		r.logger.Error("Failed to get all language configs", "error", err)
		return nil, fmt.Errorf("failed to get all language configs: %w", err)
	}
	return configs, nil
}

// SaveLanguageConfig upserts an override; zero limits mean "use the service default"
func (r *LanguageConfigRepository) SaveLanguageConfig(ctx context.Context, config *domain.LanguageConfig) error {
	if config.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}
	if config.TimeoutMs < 0 || config.MemoryLimitMB < 0 || config.StackLimitMB < 0 {
		return fmt.Errorf("limits for %s cannot be negative", config.Language)
	}
	config.UpdatedAt = time.Now()

	query := `
		INSERT INTO language_config (
			language, description, timeout_ms, memory_limit_mb, stack_limit_mb, active, updated_at
		) VALUES (:language, :description, :timeout_ms, :memory_limit_mb, :stack_limit_mb, :active, :updated_at)
		ON CONFLICT (language) DO UPDATE SET
			description = EXCLUDED.description,
			timeout_ms = EXCLUDED.timeout_ms,
			memory_limit_mb = EXCLUDED.memory_limit_mb,
			stack_limit_mb = EXCLUDED.stack_limit_mb,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.NamedExecContext(ctx, query, config); err != nil {
		r.logger.Error("Failed to save language config", "language", config.Language, "error", err)
		return fmt.Errorf("failed to save language config: %w", err)
	}

	r.logger.Info("Saved language config", "language", config.Language, "active", config.Active)
	return nil
}

func (r *LanguageConfigRepository) DeactivateLanguage(ctx context.Context, language string) error {
	return r.setLanguageActive(ctx, language, false)
}

func (r *LanguageConfigRepository) ActivateLanguage(ctx context.Context, language string) error {
	return r.setLanguageActive(ctx, language, true)
}

// setLanguageActive creates a bare override row when none exists
func (r *LanguageConfigRepository) setLanguageActive(ctx context.Context, language string, active bool) error {
	config, err := r.GetLanguageConfig(ctx, language)
	if err != nil {
		return err
	}
	if config == nil {
		config = &domain.LanguageConfig{Language: language}
	}
	config.Active = active
	return r.SaveLanguageConfig(ctx, config)
}

// EnsureTableExists creates the language_config table
func (r *LanguageConfigRepository) EnsureTableExists(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS language_config (
			language VARCHAR(32) PRIMARY KEY,
			description TEXT NOT NULL DEFAULT '',
			timeout_ms INTEGER NOT NULL DEFAULT 0,
			memory_limit_mb INTEGER NOT NULL DEFAULT 0,
			stack_limit_mb INTEGER NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT true,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
		)`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		r.logger.Error("Failed to create language_config table", "error", err)
		return fmt.Errorf("failed to create language_config table: %w", err)
	}
	return nil
}
