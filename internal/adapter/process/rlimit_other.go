//go:build !linux

package process

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

const limitsEnforced = false

var errNoProcfs = errors.New("process accounting needs procfs")

func applyLimits(pid int, limits domain.Limits) error {
	return nil
}

func execLimited(as, stack uint64, path string, argv []string) error {
	if err := syscall.Exec(path, argv, os.Environ()); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	return nil
}

// Maxrss is reported in bytes on darwin
func peakKB(ru *syscall.Rusage) int64 {
	return ru.Maxrss / 1024
}

func groupRSSKB(pgid int) (int64, error) {
	return 0, errNoProcfs
}
