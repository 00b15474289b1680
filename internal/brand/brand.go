// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package brand holds product-wide constants: names, device paths and
// remote endpoints for the MicroKVM appliance.
package brand

const (
	// Name is the human-readable product name.
	Name = "MicroKVM Updater"
	// LowerName is used for tags, log prefixes and file names.
	LowerName = "microkvm-updater"
	// BinaryName is the installed executable name.
	BinaryName = "microkvm-updater"

	// ConfigEnvPrefix is the prefix for environment overrides,
	// e.g. MICROKVM_CONFIG.
	ConfigEnvPrefix = "MICROKVM"

	// DefaultConfigPath is where the updater config lives on the device.
	DefaultConfigPath = "/etc/kvm/updater.hcl"
)

// Device filesystem layout. These defaults can be overridden via the
// config file; the directory structure inside the firmware tree is fixed
// by the archive format and cannot.
const (
	// DefaultFirmwareDir is the live firmware tree.
	DefaultFirmwareDir = "/kvmapp"
	// DefaultBackupDir holds the single retained previous install.
	DefaultBackupDir = "/root/old"
	// DefaultStagingDir is the ephemeral working directory.
	DefaultStagingDir = "/root/microkvm-cache"
	// DefaultDeviceKeyPath is the per-device identifier file.
	DefaultDeviceKeyPath = "/device_key"
	// DefaultServiceScript is the init script controlling the main service.
	DefaultServiceScript = "/etc/init.d/S95microkvm"

	// ArchiveName is the firmware bundle file name inside the staging area.
	ArchiveName = "latest.zip"
	// StagedTreeName is the tree root the archive extracts to.
	StagedTreeName = "latest"
	// VersionFileName sits at the root of the firmware tree.
	VersionFileName = "version"
	// AuxLibraryName is the per-device encrypted camera library.
	AuxLibraryName = "libkvmcam.so"
	// DLLibSubdir is where the auxiliary library lands inside the tree.
	DLLibSubdir = "kvm_system/dl_lib"
	// RuntimeSubdir is the runtime state directory inside the tree.
	RuntimeSubdir = "kvm"

	// ManagedProcessName is the main application binary; lingering
	// instances are killed during finalization.
	ManagedProcessName = "kvm_system"
)

// Remote endpoints.
const (
	// DefaultFirmwareURL serves the firmware bundle as application/zip.
	DefaultFirmwareURL = "https://cdn.microkvm.io/firmware/latest.zip"
	// DefaultAuxiliaryURL serves the device-keyed camera library.
	DefaultAuxiliaryURL = "https://api.microkvm.io/v1/device/encryption"
	// DefaultAuxiliaryToken is the shared token the endpoint expects.
	DefaultAuxiliaryToken = "MicroKVM2026"
)

// ConfigDirs are created on the device if missing. Older images shipped
// without them and the firmware expects both at boot.
var ConfigDirs = []string{"/etc/kvm", "/var/lib/microkvm"}

// StalePaths are artifacts of pre-2.x firmware layouts, removed
// best-effort on every update.
var StalePaths = []string{
	"/kvmapp/server",
	"/etc/kvm/server.yaml",
	"/tmp/kvm_stream.sock",
}

// KernelModules are reloaded after an update so the HID gadget picks up
// the new firmware's descriptors.
var KernelModules = []string{"g_hid", "i2c-dev"}
