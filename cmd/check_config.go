// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"fmt"

	"microkvm.io/updater/internal/config"
)

// RunCheckConfig validates the configuration file and prints the
// effective settings.
func RunCheckConfig(configFile string) error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	Printer.Println("Configuration is valid.")
	Printer.Println(cfg.String())
	return nil
}
