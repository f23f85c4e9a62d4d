package process

import (
	"fmt"
	"os"
	"strconv"

	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

// helperCommand marks a re-exec of the service binary as a limit helper
const helperCommand = "__limit-exec"

// helperExitCode is reported when the helper cannot set limits or exec the runnable
const helperExitCode = 127

// Init turns the current process into a limit helper when it was spawned as one and never returns in that case.
// main, and TestMain of packages spawning through a helper, call it before anything else.
func Init() {
	if len(os.Args) < 2 || os.Args[1] != helperCommand {
		return
	}
	if err := runHelper(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "limit helper: %v\n", err)
	}
	os.Exit(helperExitCode)
}

// helperArgs encodes the limits ahead of the resolved command: <as> <stack> <path> <args...>
func helperArgs(path string, args []string, limits domain.Limits) []string {
	as := limits.MemoryBytes
	if limits.AddressSpaceUnbounded {
		as = 0
	}
	out := make([]string, 0, len(args)+4)
	out = append(out, helperCommand, strconv.FormatUint(as, 10), strconv.FormatUint(limits.StackBytes, 10), path)
	return append(out, args...)
}

func runHelper(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("want <as> <stack> <command>, got %d args", len(args))
	}
	as, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parse address space limit: %w", err)
	}
	stack, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("parse stack limit: %w", err)
	}
	return execLimited(as, stack, args[2], args[2:])
}
