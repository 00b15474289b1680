// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"microkvm.io/updater/internal/brand"
	"microkvm.io/updater/internal/config"
	"microkvm.io/updater/internal/errors"
	"microkvm.io/updater/internal/updater"
)

// RunUpdate runs one full firmware update.
func RunUpdate(configFile string) error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, cleanup, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer cleanup()

	// SIGINT/SIGTERM cancel in-flight downloads; filesystem steps are
	// short and run to completion, and finalization always runs.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := updater.New(cfg, logger).Run(ctx)
	if err != nil {
		return fmt.Errorf("update failed (%s): %w", errors.GetKind(err), err)
	}

	if res.Version != "" {
		Printer.Printf("%s: firmware updated to version %s\n", brand.Name, res.Version)
	} else {
		Printer.Printf("%s: firmware updated (version unknown)\n", brand.Name)
	}
	return nil
}
