package execution

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"gitlab.com/fcv-2025.net/coderunner/internal/adapter/logging"
	"gitlab.com/fcv-2025.net/coderunner/internal/adapter/process"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/evaluate"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/toolchain"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
	"gitlab.com/fcv-2025.net/coderunner/internal/static/errs"
)

var baseLimits = domain.Limits{
	Timeout:     2 * time.Second,
	MemoryBytes: 512 << 20,
	StackBytes:  64 << 20,
	OutputBytes: 64 << 10,
}

type panicRunner struct{}

func (panicRunner) Run(context.Context, domain.Runnable, string, domain.Limits) (*domain.ExecutionResult, error) {
	panic("runner exploded")
}

type faultRunner struct {
	kind domain.FaultKind
	err  error
}

func (r faultRunner) Run(context.Context, domain.Runnable, string, domain.Limits) (*domain.ExecutionResult, error) {
	return nil, domain.NewFault(r.kind, "run", r.err)
}

type fakeConfigRepo struct {
	secondary.LanguageConfigRepository
	configs []*domain.LanguageConfig
}

func (f *fakeConfigRepo) GetAllLanguageConfigs(context.Context) ([]*domain.LanguageConfig, error) {
	return f.configs, nil
}

func testRegistry(t *testing.T) *toolchain.Registry {
	t.Helper()
	r := toolchain.DefaultRegistry()
	for _, spec := range []toolchain.Spec{
		{Language: "shell", Kind: toolchain.Interpreted, SourceFile: "main.sh", Run: []string{"sh", "{src}"}},
		{
			Language:   "shellc",
			Kind:       toolchain.Compiled,
			SourceFile: "main.sh",
			Compile:    []string{"sh", "-c", "sh -n {src} && cp {src} {bin}"},
			Run:        []string{"sh", "{bin}"},
		},
	} {
		if err := r.Register(spec); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	return r
}

type fixture struct {
	svc     *ExecutionService
	root    string
	limits  *LimitTable
	configs *fakeConfigRepo
}

func newFixture(t *testing.T, runner secondary.ProcessRunner, keep bool) *fixture {
	t.Helper()
	logger := logging.NewNopLogger()
	spawner := process.NewRunner(logger)
	if runner == nil {
		runner = spawner
	}
	registry := testRegistry(t)
	limits := NewLimitTable(registry, baseLimits)
	repo := &fakeConfigRepo{}
	root := t.TempDir()
	svc := NewExecutionService(
		toolchain.NewAdapter(registry, spawner, logger, 5*time.Second),
		evaluate.NewEvaluator(runner, logger),
		limits,
		repo,
		logger,
		Options{WorkRoot: root, KeepArtifacts: keep},
	)
	return &fixture{svc: svc, root: root, limits: limits, configs: repo}
}

func TestExecuteFreeRun(t *testing.T) {
	f := newFixture(t, nil, false)

	tests := []struct {
		name     string
		code     string
		status   domain.Status
		output   string
		exitCode int
	}{
		{name: "hello world", code: "echo hello world", status: domain.StatusSuccess, output: "hello world"},
		{name: "non-zero exit", code: "echo oops >&2; exit 4", status: domain.StatusRuntimeError, output: "oops", exitCode: 4},
		{name: "timeout", code: "sleep 30", status: domain.StatusRuntimeError, output: "Execution timed out after 2s", exitCode: domain.TimeoutExitCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.svc.Execute(context.Background(), domain.NewSubmission("shell", tt.code, nil))
			if res.Status != tt.status {
				t.Fatalf("Status = %s, want %s (%s)", res.Status, tt.status, res.Message)
			}
			if res.FreeRun == nil {
				t.Fatal("FreeRun report missing")
			}
			if res.FreeRun.Output != tt.output {
				t.Errorf("Output = %q, want %q", res.FreeRun.Output, tt.output)
			}
			if res.FreeRun.ExitCode != tt.exitCode {
				t.Errorf("ExitCode = %d, want %d", res.FreeRun.ExitCode, tt.exitCode)
			}
			if len(res.CaseVerdicts) != 0 {
				t.Errorf("CaseVerdicts = %v, want none", res.CaseVerdicts)
			}
		})
	}
}

func TestExecuteCases(t *testing.T) {
	f := newFixture(t, nil, false)
	code := "read a b; echo $((a + b))"

	tests := []struct {
		name   string
		cases  []domain.TestCase
		status domain.Status
	}{
		{
			name:   "all pass",
			cases:  []domain.TestCase{{Input: "2 3", ExpectedOutput: "5"}, {Input: "10 20", ExpectedOutput: "30"}},
			status: domain.StatusSuccess,
		},
		{
			name:   "one fails",
			cases:  []domain.TestCase{{Input: "2 3", ExpectedOutput: "6"}, {Input: "10 20", ExpectedOutput: "30"}},
			status: domain.StatusFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.svc.Execute(context.Background(), domain.NewSubmission("shell", code, tt.cases))
			if res.Status != tt.status {
				t.Fatalf("Status = %s, want %s", res.Status, tt.status)
			}
			if len(res.CaseVerdicts) != len(tt.cases) {
				t.Fatalf("len(CaseVerdicts) = %d, want %d", len(res.CaseVerdicts), len(tt.cases))
			}
			for i, v := range res.CaseVerdicts {
				if v.Input != tt.cases[i].Input {
					t.Errorf("CaseVerdicts[%d].Input = %q, want %q", i, v.Input, tt.cases[i].Input)
				}
			}
		})
	}
}

func TestExecuteCompileErrorShortCircuits(t *testing.T) {
	f := newFixture(t, nil, false)

	res := f.svc.Execute(context.Background(), domain.NewSubmission("shellc", "if then (", []domain.TestCase{{Input: "1", ExpectedOutput: "1"}}))
	if res.Status != domain.StatusCompileError {
		t.Fatalf("Status = %s, want COMPILE_ERROR", res.Status)
	}
	if len(res.CompileDiagnostics) == 0 {
		t.Error("CompileDiagnostics empty")
	}
	if len(res.CaseVerdicts) != 0 {
		t.Errorf("CaseVerdicts = %v, want none", res.CaseVerdicts)
	}
}

func TestExecuteInternalErrors(t *testing.T) {
	tests := []struct {
		name     string
		runner   secondary.ProcessRunner
		language string
		code     string
		message  string
	}{
		{name: "unsupported language", language: "cobol", code: "x", message: MsgInternalError},
		{name: "panic recovered", runner: panicRunner{}, language: "shell", code: "echo hi", message: MsgInternalError},
		{name: "output flood", language: "shell", code: "yes", message: MsgResourceExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.runner, false)
			if tt.code == "yes" {
				f.limits.base.OutputBytes = 1024
			}
			sub := domain.NewSubmission(tt.language, tt.code, nil)
			res := f.svc.Execute(context.Background(), sub)
			if res.Status != domain.StatusInternalError {
				t.Fatalf("Status = %s, want INTERNAL_ERROR", res.Status)
			}
			if res.Message != tt.message {
				t.Errorf("Message = %q, want %q", res.Message, tt.message)
			}
			if res.SubmissionID != sub.ID {
				t.Errorf("SubmissionID = %s, want %s", res.SubmissionID, sub.ID)
			}
		})
	}
}

func TestExecuteJobDeadline(t *testing.T) {
	f := newFixture(t, nil, false)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := f.svc.Execute(ctx, domain.NewSubmission("shell", "sleep 30", []domain.TestCase{{Input: "", ExpectedOutput: ""}}))
	if res.Status != domain.StatusRuntimeError || res.Message != MsgTimedOut {
		t.Fatalf("result = %s %q, want RUNTIME_ERROR %q", res.Status, res.Message, MsgTimedOut)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("job deadline did not stop the run")
	}
}

func TestExecuteArtifactCleanup(t *testing.T) {
	for _, keep := range []bool{false, true} {
		t.Run(fmt.Sprintf("keep=%v", keep), func(t *testing.T) {
			f := newFixture(t, nil, keep)
			sub := domain.NewSubmission("shell", "echo hi", nil)
			f.svc.Execute(context.Background(), sub)

			_, err := os.Stat(filepath.Join(f.root, sub.ID.String()))
			if keep && err != nil {
				t.Errorf("work dir removed with KeepArtifacts: %v", err)
			}
			if !keep && !os.IsNotExist(err) {
				t.Errorf("work dir still present: %v", err)
			}
		})
	}
}

func TestExecuteConcurrentSubmissionsAreIndependent(t *testing.T) {
	f := newFixture(t, nil, false)
	const n = 8

	var wg sync.WaitGroup
	results := make([]*domain.SubmissionResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code := fmt.Sprintf("read x; echo sub%d-$x", i)
			cases := []domain.TestCase{{Input: "same", ExpectedOutput: fmt.Sprintf("sub%d-same", i)}}
			results[i] = f.svc.Execute(context.Background(), domain.NewSubmission("shellc", code, cases))
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		if res.Status != domain.StatusSuccess {
			t.Errorf("submission %d: Status = %s, verdicts %+v", i, res.Status, res.CaseVerdicts)
		}
	}
}

func TestRefreshLimitsDisablesLanguage(t *testing.T) {
	f := newFixture(t, nil, false)
	f.configs.configs = []*domain.LanguageConfig{
		{Language: "shell", Active: false},
		{Language: "shellc", Active: true, TimeoutMs: 750, MemoryLimitMB: 128},
		{Language: "unknown", Active: true},
	}
	if err := f.svc.RefreshLimits(context.Background()); err != nil {
		t.Fatalf("RefreshLimits() error = %v", err)
	}

	if f.svc.Supports("shell") {
		t.Error("Supports(shell) = true after deactivation")
	}
	if !f.svc.Supports("shellc") {
		t.Error("Supports(shellc) = false")
	}

	limits, err := f.limits.For("shellc")
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}
	if limits.Timeout != 750*time.Millisecond || limits.MemoryBytes != 128<<20 || limits.StackBytes != baseLimits.StackBytes {
		t.Errorf("limits = %+v", limits)
	}

	res := f.svc.Execute(context.Background(), domain.NewSubmission("shell", "echo hi", nil))
	if res.Status != domain.StatusInternalError {
		t.Errorf("Status = %s, want INTERNAL_ERROR for disabled language", res.Status)
	}
}

func TestLimitTableAddressSpace(t *testing.T) {
	table := NewLimitTable(toolchain.DefaultRegistry(), baseLimits)

	java, _ := table.For("java")
	cpp, _ := table.For("cpp")
	if !java.AddressSpaceUnbounded {
		t.Error("java should skip the address space limit")
	}
	if cpp.AddressSpaceUnbounded {
		t.Error("cpp should keep the address space limit")
	}
	if got := len(table.Describe()); got != 12 {
		t.Errorf("len(Describe()) = %d, want 12", got)
	}
}

func requireTool(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s not on PATH", name)
		}
	}
}

func TestPythonSumScenario(t *testing.T) {
	requireTool(t, "python3")
	f := newFixture(t, nil, false)

	code := "a, b = map(int, input().split())\nprint(a + b)\n"
	cases := []domain.TestCase{{Input: "2 3", ExpectedOutput: "5"}, {Input: "10 20", ExpectedOutput: "30"}}
	res := f.svc.Execute(context.Background(), domain.NewSubmission("python", code, cases))
	if res.Status != domain.StatusSuccess {
		t.Fatalf("Status = %s, verdicts %+v", res.Status, res.CaseVerdicts)
	}
	for i, v := range res.CaseVerdicts {
		if v.Verdict != domain.VerdictPass {
			t.Errorf("CaseVerdicts[%d] = %s", i, v.Verdict)
		}
	}
}

func TestCppScenarios(t *testing.T) {
	requireTool(t, "g++")
	f := newFixture(t, nil, false)
	f.svc.adapter = toolchain.NewAdapter(f.limits.registry, process.NewRunner(logging.NewNopLogger()), logging.NewNopLogger(), 60*time.Second)

	res := f.svc.Execute(context.Background(), domain.NewSubmission("cpp", "int main() { return 0 }", nil))
	if res.Status != domain.StatusCompileError || len(res.CompileDiagnostics) == 0 {
		t.Errorf("missing terminator: Status = %s, diagnostics %v", res.Status, res.CompileDiagnostics)
	}

	hello := "#include <cstdio>\nint main() { std::puts(\"Hello, World!\"); return 0; }\n"
	res = f.svc.Execute(context.Background(), domain.NewSubmission("cpp", hello, nil))
	if res.Status != domain.StatusSuccess || res.FreeRun.Output != "Hello, World!" {
		t.Errorf("hello world: Status = %s, result %+v", res.Status, res.FreeRun)
	}
}

func TestExecuteFaultKinds(t *testing.T) {
	tests := []struct {
		name    string
		kind    domain.FaultKind
		err     error
		status  domain.Status
		message string
	}{
		{name: "timeout is user facing", kind: domain.TimeoutFault, err: context.DeadlineExceeded, status: domain.StatusRuntimeError, message: MsgTimedOut},
		{name: "runtime is user facing", kind: domain.RuntimeFault, err: errors.New("killed by signal"), status: domain.StatusRuntimeError, message: "killed by signal"},
		{name: "resource stays internal", kind: domain.ResourceFault, err: errs.ErrResourceExceeded, status: domain.StatusInternalError, message: MsgResourceExceeded},
		{name: "system stays internal", kind: domain.SystemFault, err: errors.New("disk full"), status: domain.StatusInternalError, message: MsgInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, faultRunner{kind: tt.kind, err: tt.err}, false)
			res := f.svc.Execute(context.Background(), domain.NewSubmission("shell", "echo hi", nil))
			if res.Status != tt.status || res.Message != tt.message {
				t.Errorf("result = %s %q, want %s %q", res.Status, res.Message, tt.status, tt.message)
			}
		})
	}
}

func TestExecuteMemoryCap(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("resident set sampling needs procfs")
	}
	f := newFixture(t, nil, false)
	spec := toolchain.Spec{Language: "shellheap", Kind: toolchain.Interpreted, SourceFile: "main.sh", Run: []string{"sh", "{src}"}, AddressSpaceUnbounded: true}
	if err := f.limits.registry.Register(spec); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	f.limits.Apply([]*domain.LanguageConfig{{Language: "shellheap", MemoryLimitMB: 32, TimeoutMs: 20000, Active: true}})

	code := "x=$(head -c 268435456 /dev/zero | tr '\\0' a)\necho done\n"
	res := f.svc.Execute(context.Background(), domain.NewSubmission("shellheap", code, nil))
	if res.Status != domain.StatusInternalError || res.Message != MsgResourceExceeded {
		t.Errorf("result = %s %q, want INTERNAL_ERROR %q", res.Status, res.Message, MsgResourceExceeded)
	}
}

// hello and broken sources for every built-in language
var languageSamples = map[string]struct {
	hello  string
	broken string
}{
	"c": {
		hello:  "#include <stdio.h>\nint main(void) { puts(\"hello\"); return 0; }\n",
		broken: "int main(void) { return 0 }\n",
	},
	"cpp": {
		hello:  "#include <cstdio>\nint main() { std::puts(\"hello\"); return 0; }\n",
		broken: "int main() { return 0 }\n",
	},
	"csharp": {
		hello:  "class Program { static void Main() { System.Console.WriteLine(\"hello\"); } }\n",
		broken: "class Program { static void Main() { System.Console.WriteLine(\"hello\") } }\n",
	},
	"dart": {
		hello:  "void main() { print('hello'); }\n",
		broken: "void main() { print('hello') }\n",
	},
	"go": {
		hello:  "package main\n\nimport \"fmt\"\n\nfunc main() { fmt.Println(\"hello\") }\n",
		broken: "package main\n\nfunc main() { println(\"hello\" }\n",
	},
	"java": {
		hello:  "public class Main { public static void main(String[] args) { System.out.println(\"hello\"); } }\n",
		broken: "public class Main { public static void main(String[] args) { System.out.println(\"hello\") } }\n",
	},
	"javascript": {
		hello:  "console.log(\"hello\");\n",
		broken: "console.log(\"hello\";\n",
	},
	"php": {
		hello:  "echo \"hello\\n\";\n",
		broken: "echo \"hello\"\necho \"again\";\n",
	},
	"python": {
		hello:  "print(\"hello\")\n",
		broken: "print(\"hello\"\n",
	},
	"ruby": {
		hello:  "puts \"hello\"\n",
		broken: "puts(\"hello\"\n",
	},
	"rust": {
		hello:  "fn main() { println!(\"hello\"); }\n",
		broken: "fn main() { let x = ; }\n",
	},
	"typescript": {
		hello:  "const msg: string = \"hello\";\nconsole.log(msg);\n",
		broken: "const msg: string = ;\n",
	},
}

func TestEveryLanguageCompilesAndRejects(t *testing.T) {
	f := newFixture(t, nil, false)
	f.svc.adapter = toolchain.NewAdapter(f.limits.registry, process.NewRunner(logging.NewNopLogger()), logging.NewNopLogger(), 2*time.Minute)
	// cold JVM and mono starts do not fit the default two seconds
	f.limits.base.Timeout = 10 * time.Second

	for _, spec := range toolchain.DefaultRegistry().Specs() {
		t.Run(spec.Language, func(t *testing.T) {
			sample, ok := languageSamples[spec.Language]
			if !ok {
				t.Fatalf("no sample sources for %s", spec.Language)
			}
			requireTool(t, spec.Binaries()...)

			res := f.svc.Execute(context.Background(), domain.NewSubmission(spec.Language, sample.hello, nil))
			if res.Status != domain.StatusSuccess || res.FreeRun == nil || res.FreeRun.Output != "hello" {
				t.Errorf("hello: Status = %s (%s), report %+v, diagnostics %v", res.Status, res.Message, res.FreeRun, res.CompileDiagnostics)
			}

			res = f.svc.Execute(context.Background(), domain.NewSubmission(spec.Language, sample.broken, nil))
			if res.Status != domain.StatusCompileError {
				t.Errorf("broken: Status = %s (%s), want COMPILE_ERROR", res.Status, res.Message)
			}
			if len(res.CompileDiagnostics) == 0 {
				t.Error("broken: no compile diagnostics")
			}
		})
	}
}
