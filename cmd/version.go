// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"fmt"

	"microkvm.io/updater/internal/config"
	"microkvm.io/updater/internal/firmware"
)

// RunVersion prints the installed firmware version.
func RunVersion(configFile string) error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, cleanup, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer cleanup()

	version, err := firmware.NewInstaller(cfg, logger).InstalledVersion()
	if err != nil {
		return fmt.Errorf("no installed firmware version: %w", err)
	}

	Printer.Println(version)
	return nil
}
