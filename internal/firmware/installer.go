// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package firmware installs a staged firmware tree over the live one.
// The live tree is moved aside as a single-generation backup before the
// staged tree is promoted; outside the two-rename promote window the
// install path always holds a complete tree.
package firmware

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"microkvm.io/updater/internal/brand"
	"microkvm.io/updater/internal/config"
	"microkvm.io/updater/internal/errors"
	"microkvm.io/updater/internal/logging"
	"microkvm.io/updater/internal/system"
)

// Installer owns the live firmware tree for the duration of an update.
type Installer struct {
	FirmwareDir string
	BackupDir   string

	logger *logging.Logger
}

// NewInstaller creates an Installer from config.
func NewInstaller(cfg *config.Config, logger *logging.Logger) *Installer {
	return &Installer{
		FirmwareDir: cfg.FirmwareDir,
		BackupDir:   cfg.BackupDir,
		logger:      logger.WithComponent("install"),
	}
}

// PlaceAuxiliaryBinary writes the downloaded library into the staging
// area and copies it into the staged tree's dl_lib directory. A staged
// tree without that directory is an archive layout mismatch.
func (i *Installer) PlaceAuxiliaryBinary(stagingDir, stagedTree string, payload []byte) error {
	src := filepath.Join(stagingDir, brand.AuxLibraryName)
	if err := os.WriteFile(src, payload, 0755); err != nil {
		return errors.Wrap(err, errors.KindInstall, "failed to write auxiliary library")
	}

	libDir := filepath.Join(stagedTree, brand.DLLibSubdir)
	if fi, err := os.Stat(libDir); err != nil || !fi.IsDir() {
		return errors.Errorf(errors.KindInstall,
			"staged tree has no %s directory, archive layout mismatch", brand.DLLibSubdir)
	}

	if err := copyFile(src, filepath.Join(libDir, brand.AuxLibraryName)); err != nil {
		return errors.Wrap(err, errors.KindInstall, "failed to place auxiliary library")
	}

	i.logger.Info("Auxiliary library placed", "dest", libDir)
	return nil
}

// Promote swaps the staged tree in for the live one:
//
//  1. discard any previous backup
//  2. rename the live tree to the backup path
//  3. rename the staged tree to the live path
//
// The two renames are not atomic together. A failure between them
// leaves no live tree while the backup holds the previous firmware;
// that degraded state is logged loudly and requires manual recovery.
// The updater does not auto-restore from backup.
func (i *Installer) Promote(stagedTree string) error {
	if _, err := os.Stat(i.BackupDir); err == nil {
		if err := os.RemoveAll(i.BackupDir); err != nil {
			return errors.Wrapf(err, errors.KindInstall, "failed to discard previous backup %s", i.BackupDir)
		}
	}

	moved := false
	if _, err := os.Stat(i.FirmwareDir); err == nil {
		if err := os.Rename(i.FirmwareDir, i.BackupDir); err != nil {
			return errors.Wrap(err, errors.KindInstall, "failed to move live tree to backup")
		}
		moved = true
	}

	if err := os.Rename(stagedTree, i.FirmwareDir); err != nil {
		if moved {
			i.logger.Error("Device has no live firmware tree; previous firmware preserved at backup path, manual recovery required",
				"backup", i.BackupDir)
		}
		return errors.Attr(
			errors.Wrap(err, errors.KindInstall, "failed to promote staged tree"),
			"backup", i.BackupDir)
	}

	i.logger.Info("Firmware tree promoted", "path", i.FirmwareDir, "backup", i.BackupDir)
	return nil
}

// NormalizePermissions sets 0755 on every file and directory under the
// live tree, with no special-casing of file types. Special mode bits in
// the archive are deliberately stripped.
func (i *Installer) NormalizePermissions() error {
	err := filepath.WalkDir(i.FirmwareDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return os.Chmod(path, 0755)
	})
	if err != nil {
		return errors.Wrap(err, errors.KindInstall, "failed to normalize permissions")
	}

	i.logger.Info("Permissions normalized", "path", i.FirmwareDir)
	return nil
}

// InstalledVersion reads the version file from the live tree. By the
// time this runs the tree is already promoted, so a failure is reported
// but never rolls anything back.
func (i *Installer) InstalledVersion() (string, error) {
	path := filepath.Join(i.FirmwareDir, brand.VersionFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.KindRead, "cannot read version file %s", path)
	}
	return strings.TrimSpace(string(data)), nil
}

// EnsureRuntimeDirs merges the runtime state directory into the
// installed tree. Firmware bundles do not ship it; the application
// expects it at boot. Best-effort.
func (i *Installer) EnsureRuntimeDirs() {
	system.SafeMkdirAll(i.logger, filepath.Join(i.FirmwareDir, brand.RuntimeSubdir))
}

// copyFile copies src to dst, creating or truncating dst with the
// source's permissions.
func copyFile(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
