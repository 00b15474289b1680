// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package system

import (
	"os"

	"microkvm.io/updater/internal/logging"
)

// SafeMkdirAll creates path and missing ancestors. A pre-existing
// directory is not an error; any other failure is logged and swallowed.
func SafeMkdirAll(logger *logging.Logger, path string) {
	if err := os.MkdirAll(path, 0755); err != nil {
		logger.WithError(err).Warn("Failed to create directory", "path", path)
	}
}

// SafeRemoveAll deletes path, recursively for directories. Absence is
// not an error; any other failure is logged and swallowed.
func SafeRemoveAll(logger *logging.Logger, path string) {
	if err := os.RemoveAll(path); err != nil {
		logger.WithError(err).Warn("Failed to remove path", "path", path)
	}
}
