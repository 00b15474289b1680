// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package system

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"microkvm.io/updater/internal/logging"
)

func testLogger(buf *bytes.Buffer) *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelDebug, Output: buf})
}

func TestRun_Success(t *testing.T) {
	r := NewRunner(testLogger(&bytes.Buffer{}))

	res, err := r.Run(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit 0, got %d", res.ExitCode)
	}
	if !strings.Contains(res.Output, "hello") {
		t.Errorf("output missing echo payload: %q", res.Output)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	r := NewRunner(testLogger(&bytes.Buffer{}))

	res, err := r.Run(context.Background(), "false")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if res.ExitCode == 0 {
		t.Errorf("expected non-zero exit code, got %d", res.ExitCode)
	}
}

func TestRun_MissingBinary(t *testing.T) {
	r := NewRunner(testLogger(&bytes.Buffer{}))

	res, err := r.Run(context.Background(), "/nonexistent/updater-test-binary")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if res.ExitCode != -1 {
		t.Errorf("expected exit code -1 for start failure, got %d", res.ExitCode)
	}
}

func TestBestEffort_LogsWarning(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(testLogger(&buf))

	r.BestEffort(context.Background(), "sh", "-c", "echo boom >&2; exit 3")

	out := buf.String()
	if !strings.Contains(out, "Best-effort command failed") {
		t.Errorf("expected warning log, got %q", out)
	}
	if !strings.Contains(out, "exit_code=3") {
		t.Errorf("expected exit code in log, got %q", out)
	}
}

func TestBestEffort_SuppressesAlreadySettled(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(testLogger(&buf))

	// rmmod on a module that is not loaded must not be reported as a
	// failure.
	r.BestEffort(context.Background(), "sh", "-c", "echo 'rmmod: ERROR: Module g_hid is not currently loaded' >&2; exit 1")

	if strings.Contains(buf.String(), "Best-effort command failed") {
		t.Errorf("already-settled outcome was logged as a warning: %q", buf.String())
	}
}

func TestAlreadySettled(t *testing.T) {
	cases := map[string]bool{
		"mkdir: cannot create directory '/etc/kvm': File exists": true,
		"rm: cannot remove '/tmp/x': No such file or directory":  true,
		"rmmod: ERROR: Module g_hid is not currently loaded":     true,
		"modprobe: module i2c-dev already loaded":                true,
		"modprobe: FATAL: Module g_hid not found":                true,
		"permission denied": false,
		"":                  false,
	}
	for output, want := range cases {
		if got := alreadySettled(output); got != want {
			t.Errorf("alreadySettled(%q) = %v, want %v", output, got, want)
		}
	}
}
