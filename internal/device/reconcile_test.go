// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package device

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"microkvm.io/updater/internal/logging"
	"microkvm.io/updater/internal/system"
)

// fakeRunner records best-effort invocations and simulates failures.
type fakeRunner struct {
	calls [][]string
	fail  bool
}

func (f *fakeRunner) BestEffort(ctx context.Context, name string, args ...string) system.Result {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.fail {
		return system.Result{ExitCode: 1, Output: "rmmod: ERROR: Module g_hid is not currently loaded"}
	}
	return system.Result{}
}

func testLogger(buf *bytes.Buffer) *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelDebug, Output: buf})
}

func TestReadKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_key")
	if err := os.WriteFile(path, []byte("  abc123-deadbeef \n"), 0644); err != nil {
		t.Fatal(err)
	}

	key, err := ReadKey(path)
	if err != nil {
		t.Fatalf("ReadKey failed: %v", err)
	}
	if key != "abc123-deadbeef" {
		t.Errorf("expected trimmed key, got %q", key)
	}
}

func TestReadKey_MissingOrEmpty(t *testing.T) {
	if _, err := ReadKey(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing key file")
	}

	empty := filepath.Join(t.TempDir(), "device_key")
	if err := os.WriteFile(empty, []byte("   \n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadKey(empty); err == nil {
		t.Error("expected error for empty key file")
	}
}

func TestReloadKernelModules_Order(t *testing.T) {
	fr := &fakeRunner{}
	r := NewReconciler(fr, testLogger(&bytes.Buffer{}))
	r.kernelModules = []string{"g_hid", "i2c-dev"}

	r.ReloadKernelModules(context.Background())

	want := [][]string{
		{"modprobe", "-r", "g_hid"},
		{"modprobe", "g_hid"},
		{"modprobe", "-r", "i2c-dev"},
		{"modprobe", "i2c-dev"},
	}
	if len(fr.calls) != len(want) {
		t.Fatalf("expected %d calls, got %d: %v", len(want), len(fr.calls), fr.calls)
	}
	for i := range want {
		if strings.Join(fr.calls[i], " ") != strings.Join(want[i], " ") {
			t.Errorf("call %d = %v, want %v", i, fr.calls[i], want[i])
		}
	}
}

func TestReloadKernelModules_FailuresStayContained(t *testing.T) {
	// A module that is not loaded must not abort anything or surface
	// as an error; the reconciler has no error path at all.
	fr := &fakeRunner{fail: true}
	var buf bytes.Buffer
	r := NewReconciler(fr, testLogger(&buf))
	r.kernelModules = []string{"g_hid"}

	r.ReloadKernelModules(context.Background())

	if strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("module reload failure logged as error: %q", buf.String())
	}
}

func TestEnsureConfigDirsAndCleanupStale(t *testing.T) {
	root := t.TempDir()
	r := NewReconciler(&fakeRunner{}, testLogger(&bytes.Buffer{}))
	r.configDirs = []string{filepath.Join(root, "etc", "kvm"), filepath.Join(root, "var", "lib", "microkvm")}

	stale := filepath.Join(root, "kvmapp-server")
	if err := os.MkdirAll(filepath.Join(stale, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	r.stalePaths = []string{stale, filepath.Join(root, "never-existed.sock")}

	r.EnsureConfigDirs()
	for _, dir := range r.configDirs {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			t.Errorf("config dir %s not created", dir)
		}
	}

	r.CleanupStale()
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale path not removed")
	}

	// Both are idempotent.
	r.EnsureConfigDirs()
	r.CleanupStale()
}
