// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package system

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"microkvm.io/updater/internal/logging"
)

// Detach starts a command in its own session with output discarded and
// does not wait for it. The child survives the updater's exit; its
// outcome is never observed.
func Detach(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	// nil Stdout/Stderr connect to /dev/null
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	return cmd.Process.Release()
}

// KillProcessByName sends SIGKILL to every process whose comm matches
// name. Best-effort: scan or kill failures are logged at debug level
// and ignored. Used during finalization to clear lingering instances
// of the managed application.
func KillProcessByName(logger *logging.Logger, name string) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		logger.WithError(err).Debug("Cannot scan /proc")
		return
	}

	self := os.Getpid()
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid == self {
			continue
		}

		comm, err := os.ReadFile(filepath.Join("/proc", e.Name(), "comm"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(comm)) != name {
			continue
		}

		logger.Info("Killing lingering process", "name", name, "pid", pid)
		if err := unix.Kill(pid, unix.SIGKILL); err != nil {
			logger.WithError(err).Debug("Kill failed", "pid", pid)
		}
	}
}

// ProcessRunning reports whether a process with the given comm exists.
func ProcessRunning(name string) bool {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return false
	}
	for _, e := range entries {
		if _, err := strconv.Atoi(e.Name()); err != nil {
			continue
		}
		comm, err := os.ReadFile(filepath.Join("/proc", e.Name(), "comm"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(comm)) == name {
			return true
		}
	}
	return false
}
