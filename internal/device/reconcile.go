// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package device

import (
	"context"

	"microkvm.io/updater/internal/brand"
	"microkvm.io/updater/internal/logging"
	"microkvm.io/updater/internal/system"
)

// commandRunner is the slice of system.Runner the reconciler needs.
type commandRunner interface {
	BestEffort(ctx context.Context, name string, args ...string) system.Result
}

// Reconciler performs the device-specific cleanup steps after an
// install. Every operation here is best-effort: a half-reconciled
// device still boots, so nothing in this type may abort the update.
type Reconciler struct {
	runner commandRunner
	logger *logging.Logger

	configDirs    []string
	stalePaths    []string
	kernelModules []string
}

// NewReconciler creates a Reconciler with the fixed device lists.
func NewReconciler(runner commandRunner, logger *logging.Logger) *Reconciler {
	return &Reconciler{
		runner:        runner,
		logger:        logger.WithComponent("device"),
		configDirs:    brand.ConfigDirs,
		stalePaths:    brand.StalePaths,
		kernelModules: brand.KernelModules,
	}
}

// EnsureConfigDirs creates the fixed configuration directories older
// images shipped without.
func (r *Reconciler) EnsureConfigDirs() {
	for _, dir := range r.configDirs {
		system.SafeMkdirAll(r.logger, dir)
	}
}

// CleanupStale removes artifacts of previous firmware layouts.
func (r *Reconciler) CleanupStale() {
	for _, path := range r.stalePaths {
		system.SafeRemoveAll(r.logger, path)
	}
}

// ReloadKernelModules unloads and reloads the fixed module list so the
// gadget stack picks up the new firmware's descriptors. "not loaded"
// and "already loaded" outcomes are expected and suppressed.
func (r *Reconciler) ReloadKernelModules(ctx context.Context) {
	for _, mod := range r.kernelModules {
		r.runner.BestEffort(ctx, "modprobe", "-r", mod)
		r.runner.BestEffort(ctx, "modprobe", mod)
	}
	r.logger.Info("Kernel modules reloaded", "modules", r.kernelModules)
}
