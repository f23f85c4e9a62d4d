package secondary

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

// JobBroker is the minimal contract the queue needs from its storage backend
type JobBroker interface {
	// Enqueue durably stores a job for dispatch
	Enqueue(ctx context.Context, job *domain.Job) error

	// Dequeue blocks until a job is available or ctx is done
	Dequeue(ctx context.Context) (*domain.Delivery, error)

	// Claim marks a job as dispatched; false means another slot already owns it
	Claim(ctx context.Context, jobID uuid.UUID, slotID string) (bool, error)

	// Done acknowledges a delivery and publishes its settled result
	Done(ctx context.Context, delivery *domain.Delivery, result *domain.SubmissionResult) error

	// Fail acknowledges a delivery and publishes a failure for the waiting caller
	Fail(ctx context.Context, delivery *domain.Delivery, cause error) error

	// Discard acknowledges a delivery without publishing anything
	Discard(ctx context.Context, delivery *domain.Delivery) error

	// Await blocks until the job settles or ctx is done
	Await(ctx context.Context, jobID uuid.UUID) (*domain.JobResultMessage, error)

	Close() error
}

type LanguageConfigRepository interface {
	// GetLanguageConfig retrieves limits for a specific language
	GetLanguageConfig(ctx context.Context, language string) (*domain.LanguageConfig, error)

	// GetAllLanguageConfigs retrieves all language configurations, including inactive ones
	GetAllLanguageConfigs(ctx context.Context) ([]*domain.LanguageConfig, error)

	// SaveLanguageConfig saves a language configuration
	SaveLanguageConfig(ctx context.Context, config *domain.LanguageConfig) error

	// DeactivateLanguage deactivates a language
	DeactivateLanguage(ctx context.Context, language string) error

	// ActivateLanguage activates a language
	ActivateLanguage(ctx context.Context, language string) error
}
