//go:build linux

package process

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"

	"gitlab.com/fcv-2025.net/coderunner/internal/domain"
)

const limitsEnforced = true

// applyLimits caps the address space and stack of a freshly started process.
// Used when no limit helper is configured; the process runs unbounded until it returns.
func applyLimits(pid int, limits domain.Limits) error {
	as := limits.MemoryBytes
	if limits.AddressSpaceUnbounded {
		as = 0
	}
	if as > 0 {
		rl := &unix.Rlimit{Cur: as, Max: as}
		if err := unix.Prlimit(pid, unix.RLIMIT_AS, rl, nil); err != nil {
			return fmt.Errorf("set address space limit: %w", err)
		}
	}
	if limits.StackBytes > 0 {
		rl := &unix.Rlimit{Cur: limits.StackBytes, Max: limits.StackBytes}
		if err := unix.Prlimit(pid, unix.RLIMIT_STACK, rl, nil); err != nil {
			return fmt.Errorf("set stack limit: %w", err)
		}
	}
	return nil
}

// execLimited sets the limits on the calling process and replaces it with the runnable.
// Nothing may allocate between Setrlimit and Exec beyond the argv copy.
func execLimited(as, stack uint64, path string, argv []string) error {
	if stack > 0 {
		if err := unix.Setrlimit(unix.RLIMIT_STACK, &unix.Rlimit{Cur: stack, Max: stack}); err != nil {
			return fmt.Errorf("set stack limit: %w", err)
		}
	}
	if as > 0 {
		if err := unix.Setrlimit(unix.RLIMIT_AS, &unix.Rlimit{Cur: as, Max: as}); err != nil {
			return fmt.Errorf("set address space limit: %w", err)
		}
	}
	if err := unix.Exec(path, argv, os.Environ()); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	return nil
}

// Maxrss is reported in kilobytes on linux
func peakKB(ru *syscall.Rusage) int64 {
	return ru.Maxrss
}

var pageKB = int64(os.Getpagesize() / 1024)

// groupRSSKB sums the resident set of every live process in the group
func groupRSSKB(pgid int) (int64, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		if _, err := strconv.Atoi(e.Name()); err != nil {
			continue
		}
		data, err := os.ReadFile("/proc/" + e.Name() + "/stat")
		if err != nil {
			continue
		}
		group, rss, ok := parseStat(data)
		if ok && group == pgid {
			total += rss * pageKB
		}
	}
	return total, nil
}

// parseStat pulls pgrp and rss (in pages) out of /proc/<pid>/stat.
// comm may hold spaces, so fields are counted from the last ')'.
func parseStat(data []byte) (pgrp int, rss int64, ok bool) {
	i := bytes.LastIndexByte(data, ')')
	if i < 0 || i+2 > len(data) {
		return 0, 0, false
	}
	fields := bytes.Fields(data[i+2:])
	// fields[0] is state (field 3); pgrp is field 5 and rss field 24
	if len(fields) < 22 {
		return 0, 0, false
	}
	pgrp, err := strconv.Atoi(string(fields[2]))
	if err != nil {
		return 0, 0, false
	}
	rss, err = strconv.ParseInt(string(fields[21]), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return pgrp, rss, true
}
