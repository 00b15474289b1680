// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package updater runs a full firmware update as one linear pipeline:
// stop the service, stage and extract the new bundle, fetch the
// per-device auxiliary library, promote the staged tree over the live
// one, then reconcile device state. The pipeline fails fast; a fixed
// finalization (cleanup plus service restart) runs whether or not it
// failed, so the device is never left with its service stopped.
package updater

import (
	"context"

	"github.com/google/uuid"

	"microkvm.io/updater/internal/brand"
	"microkvm.io/updater/internal/config"
	"microkvm.io/updater/internal/device"
	"microkvm.io/updater/internal/errors"
	"microkvm.io/updater/internal/fetch"
	"microkvm.io/updater/internal/firmware"
	"microkvm.io/updater/internal/logging"
	"microkvm.io/updater/internal/service"
	"microkvm.io/updater/internal/staging"
	"microkvm.io/updater/internal/system"
)

// Result describes a completed update.
type Result struct {
	// RunID identifies the run across all of its log lines.
	RunID string
	// Version is the installed firmware version, empty if the version
	// file could not be read.
	Version string
}

// reconciler is the device-state surface the pipeline needs. On a real
// device it is always *device.Reconciler.
type reconciler interface {
	EnsureConfigDirs()
	CleanupStale()
	ReloadKernelModules(ctx context.Context)
}

// Updater wires the update pipeline together.
type Updater struct {
	cfg    *config.Config
	logger *logging.Logger

	svc       *service.Controller
	stage     *staging.Manager
	client    *fetch.Client
	installer *firmware.Installer
	recon     reconciler

	// managedProcess is the binary name killed during finalization.
	// Overridable in tests; on a device it is always kvm_system.
	managedProcess string

	// restart is swappable for tests; it defaults to the controller's
	// detached restart.
	restart func()
}

// New builds an Updater from config. The logger passed in is the base
// logger; each run derives its own with a run ID attached.
func New(cfg *config.Config, logger *logging.Logger) *Updater {
	runner := system.NewRunner(logger)
	svc := service.NewController(cfg.ServiceScript, runner, logger)
	return &Updater{
		cfg:            cfg,
		logger:         logger,
		svc:            svc,
		stage:          staging.NewManager(cfg.StagingDir, logger),
		client:         fetch.NewClient(cfg, logger),
		installer:      firmware.NewInstaller(cfg, logger),
		recon:          device.NewReconciler(runner, logger),
		managedProcess: brand.ManagedProcessName,
		restart:        svc.Restart,
	}
}

// Run executes one full update. The returned Result is meaningful even
// on error: its RunID always identifies the run, and Version is set
// when the new tree went live but a later step failed.
func (u *Updater) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.New().String()}
	logger := u.logger.WithComponent("updater").With("run_id", res.RunID)

	logger.Info("Starting firmware update",
		"firmware_url", u.cfg.FirmwareURL, "firmware_dir", u.cfg.FirmwareDir)

	// Finalization runs no matter how the pipeline ends. None of its
	// steps can fail the run: the staged state is already discarded or
	// promoted, and the device must come back up either way.
	defer u.finalize(logger)

	if err := u.svc.Stop(ctx); err != nil {
		return res, err
	}

	if err := u.stage.Reset(); err != nil {
		return res, err
	}

	if err := u.client.FirmwareArchive(ctx, u.stage.ArchivePath()); err != nil {
		return res, err
	}

	if err := u.stage.Extract(u.stage.ArchivePath()); err != nil {
		return res, err
	}

	key, err := device.ReadKey(u.cfg.DeviceKeyPath)
	if err != nil {
		return res, err
	}

	payload, err := u.client.AuxiliaryBinary(ctx, key)
	if err != nil {
		return res, err
	}

	if err := u.installer.PlaceAuxiliaryBinary(u.stage.Dir, u.stage.StagedTree(), payload); err != nil {
		return res, err
	}

	if err := u.installer.Promote(u.stage.StagedTree()); err != nil {
		return res, err
	}

	if err := u.installer.NormalizePermissions(); err != nil {
		return res, err
	}

	u.installer.EnsureRuntimeDirs()
	u.recon.EnsureConfigDirs()
	u.recon.CleanupStale()
	u.recon.ReloadKernelModules(ctx)

	version, err := u.installer.InstalledVersion()
	if err != nil {
		// The new tree is live; a missing version file is reported but
		// does not fail the update.
		logger.WithError(err).Warn("Installed firmware has no readable version file",
			"kind", errors.GetKind(err).String())
	} else {
		res.Version = version
		logger.Info("Firmware update complete", "version", version)
	}

	return res, nil
}

// finalize tears down the staging area, removes stale artifacts, kills
// lingering instances of the managed process and relaunches the
// service. Every step is best-effort.
func (u *Updater) finalize(logger *logging.Logger) {
	logger.Info("Finalizing")

	u.stage.Destroy()
	u.recon.CleanupStale()
	system.KillProcessByName(logger, u.managedProcess)
	u.restart()
}
