// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturePrinter redirects Printer output for the duration of a test.
func capturePrinter(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := Printer.out
	Printer.out = &buf
	t.Cleanup(func() { Printer.out = old })
	return &buf
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "updater.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunCheckConfig(t *testing.T) {
	out := capturePrinter(t)
	path := writeConfig(t, `
firmware_dir = "/opt/fw"
staging_dir  = "/opt/cache"
backup_dir   = "/opt/old"
`)

	require.NoError(t, RunCheckConfig(path))
	assert.Contains(t, out.String(), "Configuration is valid.")
	assert.Contains(t, out.String(), "firmware=/opt/fw")
}

func TestRunCheckConfigInvalid(t *testing.T) {
	capturePrinter(t)
	path := writeConfig(t, `firmware_url = "not a url"`)

	err := RunCheckConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid URL")
}

func TestRunCheckConfigMissingExplicitFile(t *testing.T) {
	capturePrinter(t)
	err := RunCheckConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.Error(t, err)
}

func TestRunVersion(t *testing.T) {
	out := capturePrinter(t)

	fwDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(fwDir, "version"), []byte("2.1.0\n"), 0o644))

	path := writeConfig(t, `
firmware_dir = "`+fwDir+`"
`)

	require.NoError(t, RunVersion(path))
	assert.Equal(t, "2.1.0\n", out.String())
}

func TestRunVersionNoFirmware(t *testing.T) {
	capturePrinter(t)

	path := writeConfig(t, `
firmware_dir = "`+filepath.Join(t.TempDir(), "fw")+`"
`)

	err := RunVersion(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no installed firmware version")
}
