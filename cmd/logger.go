// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"io"
	"os"

	"microkvm.io/updater/internal/config"
	"microkvm.io/updater/internal/logging"
)

// newLogger builds the process logger from config. The returned cleanup
// closes the syslog connection, if any; it is safe to call always.
func newLogger(cfg *config.Config) (*logging.Logger, func(), error) {
	lcfg := logging.DefaultConfig()
	cleanup := func() {}

	if cfg.Log != nil {
		lcfg.Level = logging.ParseLevel(cfg.Log.Level)
		lcfg.JSON = cfg.Log.JSON

		if cfg.Log.Syslog != nil && cfg.Log.Syslog.Enabled {
			sw, err := logging.NewSyslogWriter(*cfg.Log.Syslog)
			if err != nil {
				return nil, cleanup, err
			}
			lcfg.Output = io.MultiWriter(os.Stderr, sw)
			cleanup = func() { sw.Close() }
		}
	}

	logger := logging.New(lcfg)
	logging.SetDefault(logger)
	return logger, cleanup, nil
}
