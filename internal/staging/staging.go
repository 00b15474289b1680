// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package staging owns the ephemeral working directory the firmware
// bundle is downloaded and unpacked into. The area is recreated at the
// start of every update and destroyed unconditionally at the end.
package staging

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"microkvm.io/updater/internal/brand"
	"microkvm.io/updater/internal/errors"
	"microkvm.io/updater/internal/logging"
)

// Manager controls the staging area lifecycle.
type Manager struct {
	// Dir is the staging area root.
	Dir    string
	logger *logging.Logger
}

// NewManager creates a Manager for the given directory.
func NewManager(dir string, logger *logging.Logger) *Manager {
	return &Manager{
		Dir:    dir,
		logger: logger.WithComponent("staging"),
	}
}

// Reset deletes any previous staging area and creates it fresh. A
// leftover area from an interrupted run is removed without complaint;
// failure to create the directory is fatal to the update.
func (m *Manager) Reset() error {
	if err := os.RemoveAll(m.Dir); err != nil {
		return errors.Wrapf(err, errors.KindStaging, "failed to clear staging area %s", m.Dir)
	}
	if err := os.MkdirAll(m.Dir, 0755); err != nil {
		return errors.Wrapf(err, errors.KindStaging, "failed to create staging area %s", m.Dir)
	}
	m.logger.Info("Staging area ready", "path", m.Dir)
	return nil
}

// ArchivePath is where the downloaded firmware bundle is written.
func (m *Manager) ArchivePath() string {
	return filepath.Join(m.Dir, brand.ArchiveName)
}

// StagedTree is the root of the extracted firmware tree.
func (m *Manager) StagedTree() string {
	return filepath.Join(m.Dir, brand.StagedTreeName)
}

// Extract unpacks a zip archive into the staging area, preserving
// relative paths. Entries that would escape the area (".." or absolute
// names) are rejected outright rather than skipped: an archive carrying
// them is not trusted at all.
func (m *Manager) Extract(archivePath string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.Wrap(err, errors.KindArchive, "malformed firmware archive")
	}
	defer r.Close()

	// One shared buffer keeps peak memory flat on large images.
	buf := make([]byte, 64*1024)

	for _, f := range r.File {
		rel := filepath.Clean(f.Name)
		if rel == "." {
			continue
		}
		if strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
			return errors.Errorf(errors.KindArchive, "archive entry escapes staging area: %q", f.Name)
		}
		target := filepath.Join(m.Dir, rel)

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return errors.Wrapf(err, errors.KindArchive, "failed to create directory %s", rel)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return errors.Wrapf(err, errors.KindArchive, "failed to create parent of %s", rel)
		}
		if err := extractEntry(f, target, buf); err != nil {
			return errors.Wrapf(err, errors.KindArchive, "failed to extract %s", rel)
		}
	}

	m.logger.Info("Firmware archive extracted", "entries", len(r.File))
	return nil
}

// extractEntry streams one zip entry to disk.
func extractEntry(f *zip.File, target string, buf []byte) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.CopyBuffer(out, rc, buf); err != nil {
		out.Close()
		os.Remove(target)
		return err
	}
	return out.Close()
}

// Destroy removes the staging area. Best-effort: it runs during
// finalization and must never fail the update.
func (m *Manager) Destroy() {
	if err := os.RemoveAll(m.Dir); err != nil {
		m.logger.WithError(err).Warn("Failed to remove staging area", "path", m.Dir)
	}
}
