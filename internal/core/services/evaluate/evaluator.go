// Package evaluate runs a compiled artifact against test cases and grades the output.
package evaluate

import (
	"context"
	"fmt"
	"strings"

	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
	"gitlab.com/fcv-2025.net/coderunner/internal/static/errs"
)

type Evaluator struct {
	runner secondary.ProcessRunner
	logger primary.Logger
}

func NewEvaluator(runner secondary.ProcessRunner, logger primary.Logger) *Evaluator {
	return &Evaluator{runner: runner, logger: logger}
}

// Evaluate runs every case in the given order, never stopping at the first failure.
// It only returns early when a run breaches a resource bound or the caller gives up.
func (e *Evaluator) Evaluate(ctx context.Context, runnable domain.Runnable, cases []domain.TestCase, limits domain.Limits) ([]domain.CaseVerdict, error) {
	verdicts := make([]domain.CaseVerdict, 0, len(cases))
	for i, tc := range cases {
		res, err := e.run(ctx, runnable, tc.Input, limits)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
		verdicts = append(verdicts, Grade(tc, res, limits))
	}
	return verdicts, nil
}

// FreeRun performs exactly one run with empty input
func (e *Evaluator) FreeRun(ctx context.Context, runnable domain.Runnable, limits domain.Limits) (*domain.FreeRunReport, error) {
	res, err := e.run(ctx, runnable, "", limits)
	if err != nil {
		return nil, err
	}
	report := &domain.FreeRunReport{
		Output:   res.ReportedOutput(),
		ExitCode: res.ExitCode,
		TimedOut: res.TimedOut,
		MemoryKB: res.MemoryKB,
		Elapsed:  res.Elapsed,
	}
	if res.TimedOut {
		report.Output = timeoutMessage(limits)
	}
	return report, nil
}

func (e *Evaluator) run(ctx context.Context, runnable domain.Runnable, input string, limits domain.Limits) (*domain.ExecutionResult, error) {
	if ctx.Err() != nil {
		return nil, domain.NewFault(domain.TimeoutFault, "run", ctx.Err())
	}
	res, err := e.runner.Run(ctx, runnable, input, limits)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, domain.NewFault(domain.TimeoutFault, "run", ctx.Err())
	}
	if res.ResourceExceeded {
		e.logger.Warn("Run exceeded resource bounds", "command", runnable.Command, "memoryKb", res.MemoryKB, "signal", res.Signal)
		return nil, domain.NewFault(domain.ResourceFault, "run", errs.ErrResourceExceeded)
	}
	return res, nil
}

// Grade compares trimmed output; a case passes only on a clean exit
func Grade(tc domain.TestCase, res *domain.ExecutionResult, limits domain.Limits) domain.CaseVerdict {
	actual := res.ReportedOutput()
	if res.TimedOut {
		actual = timeoutMessage(limits)
	}
	expected := strings.TrimSpace(tc.ExpectedOutput)

	verdict := domain.VerdictFail
	if !res.TimedOut && res.ExitCode == 0 && actual == expected {
		verdict = domain.VerdictPass
	}
	return domain.CaseVerdict{
		Input:          tc.Input,
		ExpectedOutput: expected,
		ActualOutput:   actual,
		Verdict:        verdict,
		Elapsed:        res.Elapsed,
	}
}

func timeoutMessage(limits domain.Limits) string {
	return fmt.Sprintf("Execution timed out after %s", limits.Timeout)
}
