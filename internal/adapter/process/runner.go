// Package process spawns runnable artifacts under wall-clock and resource bounds.
package process

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

const (
	DefaultTimeout = 5 * time.Second
	// waitDelay bounds how long Wait keeps draining pipes held open by killed descendants
	waitDelay = 500 * time.Millisecond
)

var _ secondary.ProcessRunner = (*Runner)(nil)

var unenforcedOnce sync.Once

// Runner executes one runnable once per call
type Runner struct {
	logger primary.Logger
	helper string
}

type Option func(*Runner)

// WithLimitHelper spawns every run through the binary at path, which must call Init first thing in main.
// The helper sets the rlimits on itself and then execs the runnable, so the bounds hold from its first instruction.
func WithLimitHelper(path string) Option {
	return func(r *Runner) {
		r.helper = path
	}
}

// NewRunner creates a new process runner
func NewRunner(logger primary.Logger, opts ...Option) *Runner {
	r := &Runner{logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	if !limitsEnforced {
		r.helper = ""
		unenforcedOnce.Do(func() {
			logger.Warn("Memory and stack limits are not enforced on this platform; only timeouts and output caps apply")
		})
	}
	return r
}

// Run spawns the command, feeds input then closes stdin, and waits for exit or timeout.
// A timed out run is killed together with its process group and reaped before Run returns.
func (r *Runner) Run(ctx context.Context, runnable domain.Runnable, input string, limits domain.Limits) (*domain.ExecutionResult, error) {
	timeout := limits.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	path, err := exec.LookPath(runnable.Command)
	if err != nil {
		return nil, domain.NewFault(domain.SystemFault, "spawn "+runnable.Command, err)
	}
	name, args := path, runnable.Args
	if r.helper != "" {
		name, args = r.helper, helperArgs(path, runnable.Args, limits)
	}

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = runnable.Dir
	if len(runnable.Env) > 0 {
		cmd.Env = append(os.Environ(), runnable.Env...)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return killGroup(cmd.Process.Pid)
	}
	cmd.WaitDelay = waitDelay
	if input != "" {
		cmd.Stdin = strings.NewReader(input + "\n")
	}

	var overflowed atomic.Bool
	onOverflow := func() {
		overflowed.Store(true)
		cancel()
	}
	stdout := newCappedBuffer(limits.OutputBytes, onOverflow)
	stderr := newCappedBuffer(limits.OutputBytes, onOverflow)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return nil, domain.NewFault(domain.TimeoutFault, "spawn "+runnable.Command, ctx.Err())
		}
		return nil, domain.NewFault(domain.SystemFault, "spawn "+runnable.Command, err)
	}
	pid := cmd.Process.Pid

	if r.helper == "" {
		if err := applyLimits(pid, limits); err != nil {
			_ = killGroup(pid)
			_ = cmd.Wait()
			return nil, domain.NewFault(domain.SystemFault, "apply limits", err)
		}
	}

	var watch *memoryWatch
	if limits.MemoryBytes > 0 {
		watch = watchMemory(pid, limits.MemoryBytes)
	}

	waitErr := cmd.Wait()
	elapsed := time.Since(start)
	// descendants that left the leader behind share its group
	_ = killGroup(pid)
	if watch != nil {
		watch.Stop()
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		r.logger.Debug("Process wait returned", "command", runnable.Command, "error", waitErr)
	}

	result := &domain.ExecutionResult{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Elapsed:  elapsed,
	}
	o := outcome{
		overflowed:   overflowed.Load(),
		memoryKilled: watch != nil && watch.Exceeded(),
		timedOut:     runCtx.Err() != nil,
	}
	if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		o.signaled = true
		result.Signal = ws.Signal().String()
		if ws.Signal() == syscall.SIGXCPU || ws.Signal() == syscall.SIGXFSZ {
			result.ResourceExceeded = true
		}
	}
	if ru, ok := cmd.ProcessState.SysUsage().(*syscall.Rusage); ok {
		result.MemoryKB = peakKB(ru)
	}
	if watch != nil && watch.PeakKB() > result.MemoryKB {
		result.MemoryKB = watch.PeakKB()
	}
	if o.memoryKilled {
		r.logger.Debug("Process killed over memory cap", "command", runnable.Command, "memoryKb", result.MemoryKB)
	}

	classify(result, o, limits.MemoryBytes)
	return result, nil
}

// outcome is how a run ended, as seen by the runner
type outcome struct {
	overflowed   bool
	memoryKilled bool
	timedOut     bool
	signaled     bool
}

func classify(result *domain.ExecutionResult, o outcome, memoryBytes uint64) {
	switch {
	case o.overflowed:
		result.ResourceExceeded = true
		result.ExitCode = domain.TimeoutExitCode
	case o.memoryKilled:
		result.ResourceExceeded = true
	case o.timedOut:
		result.TimedOut = true
		result.ExitCode = domain.TimeoutExitCode
	case o.signaled || result.ExitCode != 0:
		result.ResourceExceeded = result.ResourceExceeded || nearCap(result.MemoryKB, memoryBytes)
	}
}

// nearCap attributes a failed run to memory when its peak came within a tenth of the cap.
// A run that exits cleanly is never attributed, however close it came.
func nearCap(peakKB int64, capBytes uint64) bool {
	return capBytes > 0 && uint64(peakKB)*1024 >= capBytes*9/10
}

func killGroup(pid int) error {
	err := syscall.Kill(-pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
