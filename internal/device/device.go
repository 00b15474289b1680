// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package device handles the parts of an update that are specific to
// the appliance itself: its identity key and the post-install
// reconciliation of directories, legacy files and kernel modules.
package device

import (
	"os"
	"strings"

	"microkvm.io/updater/internal/errors"
)

// ReadKey reads the device-unique identifier used to authorize the
// auxiliary library download. The key file is written once at
// manufacture; its absence means the auxiliary fetch cannot proceed.
func ReadKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.KindFetch, "cannot read device key %s", path)
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", errors.Errorf(errors.KindFetch, "device key file %s is empty", path)
	}
	return key, nil
}
