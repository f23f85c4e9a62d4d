package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
	"gitlab.com/fcv-2025.net/coderunner/internal/static/errs"
)

const (
	// MaxDiagnosticLines bounds how much compiler output reaches the caller
	MaxDiagnosticLines = 3
	compileOutputLimit = 64 * 1024
)

// Adapter runs the compile half of a language spec inside a submission work directory
type Adapter struct {
	registry       *Registry
	runner         secondary.ProcessRunner
	logger         primary.Logger
	compileTimeout time.Duration
}

func NewAdapter(registry *Registry, runner secondary.ProcessRunner, logger primary.Logger, compileTimeout time.Duration) *Adapter {
	return &Adapter{
		registry:       registry,
		runner:         runner,
		logger:         logger,
		compileTimeout: compileTimeout,
	}
}

func (a *Adapter) Registry() *Registry {
	return a.registry
}

// Compile writes the source into workDir and produces a runnable artifact.
// Toolchain rejections come back as an artifact with CompileError status; the error
// return is reserved for faults the caller must not see verbatim.
func (a *Adapter) Compile(ctx context.Context, language, code, workDir string) (*domain.CompileArtifact, error) {
	spec, ok := a.registry.Lookup(language)
	if !ok {
		return nil, domain.NewFault(domain.SystemFault, "lookup toolchain", fmt.Errorf("%w: %s", errs.ErrUnsupportedLanguage, language))
	}

	if spec.Policy != nil {
		if err := spec.Policy(code); err != nil {
			var policyErr *PolicyError
			if !errors.As(err, &policyErr) {
				return nil, domain.NewFault(domain.SystemFault, "policy check", err)
			}
			return rejected(domain.DiagnosticPolicy, policyErr.Message), nil
		}
	}

	var name string
	if spec.Identifier != nil {
		id, err := spec.Identifier(code)
		if err != nil {
			if errors.Is(err, ErrIdentifierNotFound) {
				return rejected(domain.DiagnosticIdentifier, err.Error()), nil
			}
			return nil, domain.NewFault(domain.SystemFault, "extract identifier", err)
		}
		name = id
	}

	l := spec.layout(workDir, name)
	if spec.Prepare != nil {
		code = spec.Prepare(code)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, domain.NewFault(domain.SystemFault, "create work dir", err)
	}
	if err := os.WriteFile(l.source, []byte(code), 0o644); err != nil {
		return nil, domain.NewFault(domain.SystemFault, "write source", err)
	}

	run := l.expand(spec.Run)
	artifact := &domain.CompileArtifact{
		Status:   domain.CompileOK,
		Runnable: domain.Runnable{Command: run[0], Args: run[1:], Dir: workDir, Env: l.expand(spec.Env)},
		Source:   domain.DiagnosticToolchain,
	}
	if len(spec.Compile) == 0 {
		return artifact, nil
	}

	compile := l.expand(spec.Compile)
	res, err := a.runner.Run(ctx, domain.Runnable{Command: compile[0], Args: compile[1:], Dir: workDir}, "", domain.Limits{
		Timeout:     a.compileTimeout,
		OutputBytes: compileOutputLimit,
	})
	if err != nil {
		var fault *domain.Fault
		if errors.As(err, &fault) {
			return nil, err
		}
		return nil, domain.NewFault(domain.SystemFault, "run compiler", err)
	}

	switch {
	case res.TimedOut:
		if ctx.Err() != nil {
			return nil, domain.NewFault(domain.TimeoutFault, "compile", ctx.Err())
		}
		return rejected(domain.DiagnosticToolchain, fmt.Sprintf("compilation timed out after %dms", a.compileTimeout.Milliseconds())), nil
	case res.ResourceExceeded:
		return nil, domain.NewFault(domain.ResourceFault, "compile", errs.ErrResourceExceeded)
	case res.ExitCode != 0:
		a.logger.Debug("Compilation rejected", "language", language, "exitCode", res.ExitCode)
		return rejected(domain.DiagnosticToolchain, Diagnostics(res)...), nil
	}
	return artifact, nil
}

func rejected(source domain.DiagnosticSource, diagnostics ...string) *domain.CompileArtifact {
	return &domain.CompileArtifact{
		Status:      domain.CompileError,
		Diagnostics: diagnostics,
		Source:      source,
	}
}

// Diagnostics keeps the first lines of compiler output; some transpilers report on stdout
func Diagnostics(res *domain.ExecutionResult) []string {
	out := strings.TrimSpace(res.Stderr)
	if out == "" {
		out = strings.TrimSpace(res.Stdout)
	}
	if out == "" {
		return []string{fmt.Sprintf("compiler exited with code %d", res.ExitCode)}
	}
	lines := strings.Split(out, "\n")
	if len(lines) > MaxDiagnosticLines {
		lines = lines[:MaxDiagnosticLines]
	}
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	return lines
}
