package execution

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/evaluate"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/toolchain"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

var (
	_ IExecutionService      = (*ExecutionService)(nil)
	_ secondary.CodeExecutor = (*ExecutionService)(nil)
)

// Messages shown to callers in place of operational faults
const (
	MsgInternalError    = "internal error"
	MsgResourceExceeded = "resource limit exceeded"
	MsgTimedOut         = "execution timed out"
)

// ExecutionService drives compile then run for one submission
type ExecutionService struct {
	adapter       *toolchain.Adapter
	evaluator     *evaluate.Evaluator
	limits        *LimitTable
	configRepo    secondary.LanguageConfigRepository
	logger        primary.Logger
	workRoot      string
	keepArtifacts bool
}

// Options carries the work area settings
type Options struct {
	WorkRoot      string
	KeepArtifacts bool
}

// NewExecutionService creates a new execution service. configRepo may be nil.
func NewExecutionService(
	adapter *toolchain.Adapter,
	evaluator *evaluate.Evaluator,
	limits *LimitTable,
	configRepo secondary.LanguageConfigRepository,
	logger primary.Logger,
	opts Options,
) *ExecutionService {
	workRoot := opts.WorkRoot
	if workRoot == "" {
		workRoot = filepath.Join(os.TempDir(), "coderunner")
	}
	return &ExecutionService{
		adapter:       adapter,
		evaluator:     evaluator,
		limits:        limits,
		configRepo:    configRepo,
		logger:        logger,
		workRoot:      workRoot,
		keepArtifacts: opts.KeepArtifacts,
	}
}

func (s *ExecutionService) Supports(language string) bool {
	_, err := s.limits.For(language)
	return err == nil
}

func (s *ExecutionService) Languages() []*domain.LanguageConfig {
	return s.limits.Describe()
}

func (s *ExecutionService) RefreshLimits(ctx context.Context) error {
	if s.configRepo == nil {
		return nil
	}
	configs, err := s.configRepo.GetAllLanguageConfigs(ctx)
	if err != nil {
		s.logger.Error("Failed to load language configs", "error", err)
		return fmt.Errorf("failed to load language configs: %w", err)
	}
	s.limits.Apply(configs)
	s.logger.Info("Language limits refreshed", "overrides", len(configs))
	return nil
}

// Execute runs the COMPILING -> RUNNING -> terminal state machine.
// Any fault, including a panic, ends in a result rather than an error.
func (s *ExecutionService) Execute(ctx context.Context, submission *domain.Submission) (result *domain.SubmissionResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered from panic during execution",
				"submissionId", submission.ID,
				"panic", r,
				"stack", string(debug.Stack()))
			result = s.internal(submission, MsgInternalError)
		}
		result.SubmissionID = submission.ID
		result.Elapsed = time.Since(start)
		result.CompletedAt = time.Now()
	}()

	s.transition(submission, domain.StateCompiling)

	limits, err := s.limits.For(submission.Language)
	if err != nil {
		return s.fault(submission, domain.NewFault(domain.SystemFault, "resolve limits", err))
	}

	workDir := filepath.Join(s.workRoot, submission.ID.String())
	if !s.keepArtifacts {
		defer s.cleanup(workDir)
	}

	artifact, err := s.adapter.Compile(ctx, submission.Language, submission.Code, workDir)
	if err != nil {
		return s.fault(submission, err)
	}
	if artifact.Status == domain.CompileError {
		s.transition(submission, domain.StateCompileError, "source", artifact.Source)
		return &domain.SubmissionResult{
			Status:             domain.StatusCompileError,
			CompileDiagnostics: artifact.Diagnostics,
		}
	}

	s.transition(submission, domain.StateRunning)
	runnable := toolchain.BindLimits(artifact.Runnable, limits)

	if submission.IsFreeRun() {
		report, err := s.evaluator.FreeRun(ctx, runnable, limits)
		if err != nil {
			return s.fault(submission, err)
		}
		status := domain.StatusSuccess
		if report.TimedOut || report.ExitCode != 0 {
			status = domain.StatusRuntimeError
		}
		s.transition(submission, domain.ExecutionState(status), "exitCode", report.ExitCode)
		return &domain.SubmissionResult{Status: status, FreeRun: report}
	}

	verdicts, err := s.evaluator.Evaluate(ctx, runnable, submission.TestCases, limits)
	if err != nil {
		return s.fault(submission, err)
	}
	status := domain.StatusSuccess
	for _, v := range verdicts {
		if v.Verdict == domain.VerdictFail {
			status = domain.StatusFail
			break
		}
	}
	s.transition(submission, domain.ExecutionState(status), "cases", len(verdicts))
	return &domain.SubmissionResult{Status: status, CaseVerdicts: verdicts}
}

// fault maps a stage failure onto the status taxonomy; operational detail stays in the log
func (s *ExecutionService) fault(submission *domain.Submission, err error) *domain.SubmissionResult {
	var f *domain.Fault
	if !errors.As(err, &f) {
		f = domain.NewFault(domain.SystemFault, "execute", err)
	}

	if f.Kind.Operational() {
		s.logger.Error("Submission failed with internal fault", "submissionId", submission.ID, "language", submission.Language, "kind", f.Kind.String(), "error", err)
		if f.Kind == domain.ResourceFault {
			return s.internal(submission, MsgResourceExceeded)
		}
		return s.internal(submission, MsgInternalError)
	}

	s.logger.Warn("Submission ended by user-facing fault", "submissionId", submission.ID, "kind", f.Kind.String(), "error", err)
	message := MsgTimedOut
	if f.Kind != domain.TimeoutFault {
		message = f.Err.Error()
	}
	s.transition(submission, domain.StateRuntimeError)
	return &domain.SubmissionResult{Status: domain.StatusRuntimeError, Message: message}
}

func (s *ExecutionService) internal(submission *domain.Submission, message string) *domain.SubmissionResult {
	s.transition(submission, domain.StateInternal)
	return &domain.SubmissionResult{Status: domain.StatusInternalError, Message: message}
}

func (s *ExecutionService) transition(submission *domain.Submission, state domain.ExecutionState, kv ...interface{}) {
	args := append([]interface{}{"submissionId", submission.ID, "language", submission.Language, "state", state}, kv...)
	s.logger.Debug("Submission state changed", args...)
}

func (s *ExecutionService) cleanup(workDir string) {
	if err := os.RemoveAll(workDir); err != nil {
		s.logger.Warn("Failed to remove work dir", "dir", workDir, "error", err)
	}
}
