// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package system

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSafeMkdirAll(t *testing.T) {
	var buf bytes.Buffer
	logger := testLogger(&buf)
	dir := filepath.Join(t.TempDir(), "a", "b", "c")

	SafeMkdirAll(logger, dir)
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Fatalf("directory not created: %v", err)
	}

	// Existing directory is fine and silent.
	SafeMkdirAll(logger, dir)
	if buf.Len() != 0 {
		t.Errorf("unexpected log output: %q", buf.String())
	}
}

func TestSafeMkdirAll_ParentIsFile(t *testing.T) {
	var buf bytes.Buffer
	logger := testLogger(&buf)

	file := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	// Must warn, not fail.
	SafeMkdirAll(logger, filepath.Join(file, "child"))
	if !strings.Contains(buf.String(), "Failed to create directory") {
		t.Errorf("expected warning, got %q", buf.String())
	}
}

func TestSafeRemoveAll(t *testing.T) {
	var buf bytes.Buffer
	logger := testLogger(&buf)
	dir := t.TempDir()

	nested := filepath.Join(dir, "tree", "leaf")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, "f"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	SafeRemoveAll(logger, filepath.Join(dir, "tree"))
	if _, err := os.Stat(filepath.Join(dir, "tree")); !os.IsNotExist(err) {
		t.Error("tree still present after SafeRemoveAll")
	}

	// Absent path is not an error.
	SafeRemoveAll(logger, filepath.Join(dir, "never-existed"))
	if buf.Len() != 0 {
		t.Errorf("unexpected log output: %q", buf.String())
	}
}

func TestDetach(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "marker")

	if err := Detach("sh", "-c", "echo done > "+marker); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(marker); err == nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("detached command never ran")
}

func TestDetach_MissingBinary(t *testing.T) {
	if err := Detach("/nonexistent/updater-test-binary"); err == nil {
		t.Fatal("expected error for missing binary")
	}
}
