package evaluate

import (
	"context"
	"errors"
	"testing"
	"time"

	"gitlab.com/fcv-2025.net/coderunner/internal/adapter/logging"
	"gitlab.com/fcv-2025.net/coderunner/internal/adapter/process"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
	"gitlab.com/fcv-2025.net/coderunner/internal/static/errs"
)

// adds two integers read from stdin
var sumScript = domain.Runnable{Command: "sh", Args: []string{"-c", "read a b; echo $((a + b))"}}

func newEvaluator() *Evaluator {
	logger := logging.NewNopLogger()
	return NewEvaluator(process.NewRunner(logger), logger)
}

func TestEvaluateKeepsOrderAndRunsEveryCase(t *testing.T) {
	e := newEvaluator()
	cases := []domain.TestCase{
		{Input: "2 3", ExpectedOutput: "5"},
		{Input: "1 1", ExpectedOutput: "3"},
		{Input: "10 20", ExpectedOutput: "30\n"},
	}

	verdicts, err := e.Evaluate(context.Background(), sumScript, cases, domain.Limits{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(verdicts) != len(cases) {
		t.Fatalf("len(verdicts) = %d, want %d", len(verdicts), len(cases))
	}

	want := []domain.Verdict{domain.VerdictPass, domain.VerdictFail, domain.VerdictPass}
	for i, v := range verdicts {
		if v.Input != cases[i].Input {
			t.Errorf("verdicts[%d].Input = %q, want %q", i, v.Input, cases[i].Input)
		}
		if v.Verdict != want[i] {
			t.Errorf("verdicts[%d].Verdict = %s, want %s (actual %q)", i, v.Verdict, want[i], v.ActualOutput)
		}
	}
}

func TestEvaluateTimeoutIsFail(t *testing.T) {
	e := newEvaluator()
	hang := domain.Runnable{Command: "sleep", Args: []string{"30"}}

	start := time.Now()
	verdicts, err := e.Evaluate(context.Background(), hang, []domain.TestCase{{Input: "", ExpectedOutput: ""}}, domain.Limits{Timeout: 200 * time.Millisecond})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if verdicts[0].Verdict != domain.VerdictFail {
		t.Errorf("Verdict = %s, want FAIL", verdicts[0].Verdict)
	}
	if verdicts[0].ActualOutput != "Execution timed out after 200ms" {
		t.Errorf("ActualOutput = %q", verdicts[0].ActualOutput)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("timed out case was not terminated promptly")
	}
}

func TestEvaluateCancelledContext(t *testing.T) {
	e := newEvaluator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Evaluate(ctx, sumScript, []domain.TestCase{{Input: "1 2", ExpectedOutput: "3"}}, domain.Limits{Timeout: time.Second})
	var fault *domain.Fault
	if !errors.As(err, &fault) || fault.Kind != domain.TimeoutFault {
		t.Fatalf("Evaluate() error = %v, want TimeoutFault", err)
	}
}

func TestEvaluateResourceExceeded(t *testing.T) {
	e := newEvaluator()
	flood := domain.Runnable{Command: "yes"}

	_, err := e.Evaluate(context.Background(), flood, []domain.TestCase{{Input: "", ExpectedOutput: "y"}}, domain.Limits{
		Timeout:     2 * time.Second,
		OutputBytes: 512,
	})
	if !errors.Is(err, errs.ErrResourceExceeded) {
		t.Fatalf("Evaluate() error = %v, want ErrResourceExceeded", err)
	}
}

func TestFreeRun(t *testing.T) {
	e := newEvaluator()

	tests := []struct {
		name     string
		runnable domain.Runnable
		output   string
		exitCode int
		timedOut bool
	}{
		{
			name:     "clean exit",
			runnable: domain.Runnable{Command: "sh", Args: []string{"-c", "echo hello world"}},
			output:   "hello world",
		},
		{
			name:     "crash reports stderr",
			runnable: domain.Runnable{Command: "sh", Args: []string{"-c", "echo partial; echo Traceback >&2; exit 1"}},
			output:   "Traceback",
			exitCode: 1,
		},
		{
			name:     "reads eof on empty input",
			runnable: domain.Runnable{Command: "sh", Args: []string{"-c", "cat; echo done"}},
			output:   "done",
		},
		{
			name:     "timeout",
			runnable: domain.Runnable{Command: "sleep", Args: []string{"30"}},
			output:   "Execution timed out after 200ms",
			exitCode: domain.TimeoutExitCode,
			timedOut: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := e.FreeRun(context.Background(), tt.runnable, domain.Limits{Timeout: 200 * time.Millisecond})
			if err != nil {
				t.Fatalf("FreeRun() error = %v", err)
			}
			if report.Output != tt.output {
				t.Errorf("Output = %q, want %q", report.Output, tt.output)
			}
			if report.ExitCode != tt.exitCode {
				t.Errorf("ExitCode = %d, want %d", report.ExitCode, tt.exitCode)
			}
			if report.TimedOut != tt.timedOut {
				t.Errorf("TimedOut = %v, want %v", report.TimedOut, tt.timedOut)
			}
		})
	}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		name string
		tc   domain.TestCase
		res  domain.ExecutionResult
		want domain.Verdict
	}{
		{name: "trailing newline ignored", tc: domain.TestCase{ExpectedOutput: "5"}, res: domain.ExecutionResult{Stdout: "5\n\n"}, want: domain.VerdictPass},
		{name: "expected newline ignored", tc: domain.TestCase{ExpectedOutput: "5\n"}, res: domain.ExecutionResult{Stdout: "5"}, want: domain.VerdictPass},
		{name: "mismatch", tc: domain.TestCase{ExpectedOutput: "5"}, res: domain.ExecutionResult{Stdout: "6"}, want: domain.VerdictFail},
		{name: "right output wrong exit", tc: domain.TestCase{ExpectedOutput: "5"}, res: domain.ExecutionResult{Stdout: "5", ExitCode: 1}, want: domain.VerdictFail},
		{name: "inner whitespace matters", tc: domain.TestCase{ExpectedOutput: "1 2"}, res: domain.ExecutionResult{Stdout: "1  2"}, want: domain.VerdictFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Grade(tt.tc, &tt.res, domain.Limits{Timeout: time.Second})
			if got.Verdict != tt.want {
				t.Errorf("Grade() = %s, want %s", got.Verdict, tt.want)
			}
		})
	}
}
