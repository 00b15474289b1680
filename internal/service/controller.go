// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package service controls the managed init service around an update.
// Stop is synchronous and fatal on failure: the firmware tree must not
// be touched under a live service. Restart is fire-and-forget: the init
// system supervises the service from there, and this process never
// learns whether the start succeeded.
package service

import (
	"context"
	"time"

	"microkvm.io/updater/internal/errors"
	"microkvm.io/updater/internal/logging"
	"microkvm.io/updater/internal/system"
)

// restartPause gives the init system time to begin before the updater
// proceeds to final cleanup.
const restartPause = 2 * time.Second

// Controller drives the managed service through its init script.
type Controller struct {
	Script string

	runner *system.Runner
	logger *logging.Logger

	// detach and pause are swappable for tests.
	detach func(name string, args ...string) error
	pause  time.Duration
}

// NewController creates a Controller for the given init script.
func NewController(script string, runner *system.Runner, logger *logging.Logger) *Controller {
	return &Controller{
		Script: script,
		runner: runner,
		logger: logger.WithComponent("service"),
		detach: system.Detach,
		pause:  restartPause,
	}
}

// Stop stops the service and blocks until the script returns. A
// non-zero exit is fatal: proceeding would mutate the firmware tree
// under a running service.
func (c *Controller) Stop(ctx context.Context) error {
	c.logger.Info("Stopping service", "script", c.Script)

	res, err := c.runner.Run(ctx, c.Script, "stop")
	if err != nil {
		return errors.Attr(
			errors.Attr(
				errors.Wrap(err, errors.KindServiceControl, "service stop failed"),
				"exit_code", res.ExitCode),
			"output", res.Output)
	}

	c.logger.Info("Service stopped")
	return nil
}

// Restart launches the restart command detached, in its own session
// with output discarded, so it survives the updater's exit. No start
// confirmation is obtained; only a failure to even launch is logged.
// Returns after a short fixed pause.
func (c *Controller) Restart() {
	c.logger.Info("Restarting service", "script", c.Script)

	if err := c.detach(c.Script, "restart"); err != nil {
		c.logger.WithError(err).Error("Failed to launch service restart")
		return
	}

	time.Sleep(c.pause)
}
