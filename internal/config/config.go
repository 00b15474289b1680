// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config loads the updater configuration. The config file is
// optional: a device with no /etc/kvm/updater.hcl runs with built-in
// defaults, which match the shipped firmware layout.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"microkvm.io/updater/internal/brand"
	"microkvm.io/updater/internal/errors"
	"microkvm.io/updater/internal/logging"
)

// Config is the full updater configuration.
type Config struct {
	// Remote endpoints.
	FirmwareURL    string `hcl:"firmware_url,optional"`
	AuxiliaryURL   string `hcl:"auxiliary_url,optional"`
	AuxiliaryToken string `hcl:"auxiliary_token,optional"`

	// Device layout.
	StagingDir    string `hcl:"staging_dir,optional"`
	FirmwareDir   string `hcl:"firmware_dir,optional"`
	BackupDir     string `hcl:"backup_dir,optional"`
	DeviceKeyPath string `hcl:"device_key_path,optional"`
	ServiceScript string `hcl:"service_script,optional"`

	// Network behavior. Timeouts and retries are opt-in; by default a
	// fetch runs once and is never cut off mid-download.
	HTTPTimeout  string `hcl:"http_timeout,optional"`
	FetchRetries int    `hcl:"fetch_retries,optional"`
	RetryBackoff string `hcl:"retry_backoff,optional"`

	Log *LogConfig `hcl:"log,block"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string                `hcl:"level,optional"`
	JSON   bool                  `hcl:"json,optional"`
	Syslog *logging.SyslogConfig `hcl:"syslog,block"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		FirmwareURL:    brand.DefaultFirmwareURL,
		AuxiliaryURL:   brand.DefaultAuxiliaryURL,
		AuxiliaryToken: brand.DefaultAuxiliaryToken,
		StagingDir:     brand.DefaultStagingDir,
		FirmwareDir:    brand.DefaultFirmwareDir,
		BackupDir:      brand.DefaultBackupDir,
		DeviceKeyPath:  brand.DefaultDeviceKeyPath,
		ServiceScript:  brand.DefaultServiceScript,
		RetryBackoff:   "2s",
		Log:            &LogConfig{Level: "info"},
	}
}

// DefaultPath returns the config file location, honoring the
// MICROKVM_CONFIG environment override.
func DefaultPath() string {
	if p := os.Getenv(brand.ConfigEnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	return brand.DefaultConfigPath
}

// LoadFile reads and validates a config file. An empty path means the
// default location; a missing file at the default location yields the
// built-in defaults, while an explicitly named missing file is an error.
func LoadFile(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, errors.Wrapf(err, errors.KindValidation, "failed to read config file %s", path)
	}

	cfg := &Config{}
	if err := hclsimple.Decode(filepath.Base(path), data, nil, cfg); err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "failed to parse config file %s", path)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills unset fields from the built-ins.
func (c *Config) applyDefaults() {
	def := Default()
	if c.FirmwareURL == "" {
		c.FirmwareURL = def.FirmwareURL
	}
	if c.AuxiliaryURL == "" {
		c.AuxiliaryURL = def.AuxiliaryURL
	}
	if c.AuxiliaryToken == "" {
		c.AuxiliaryToken = def.AuxiliaryToken
	}
	if c.StagingDir == "" {
		c.StagingDir = def.StagingDir
	}
	if c.FirmwareDir == "" {
		c.FirmwareDir = def.FirmwareDir
	}
	if c.BackupDir == "" {
		c.BackupDir = def.BackupDir
	}
	if c.DeviceKeyPath == "" {
		c.DeviceKeyPath = def.DeviceKeyPath
	}
	if c.ServiceScript == "" {
		c.ServiceScript = def.ServiceScript
	}
	if c.RetryBackoff == "" {
		c.RetryBackoff = def.RetryBackoff
	}
	if c.Log == nil {
		c.Log = &LogConfig{}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks field consistency.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"firmware_url":  c.FirmwareURL,
		"auxiliary_url": c.AuxiliaryURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Errorf(errors.KindValidation, "%s is not a valid URL: %q", name, raw)
		}
	}

	for name, dir := range map[string]string{
		"staging_dir":  c.StagingDir,
		"firmware_dir": c.FirmwareDir,
		"backup_dir":   c.BackupDir,
	} {
		if !filepath.IsAbs(dir) {
			return errors.Errorf(errors.KindValidation, "%s must be an absolute path: %q", name, dir)
		}
	}
	if c.StagingDir == c.FirmwareDir || c.StagingDir == c.BackupDir || c.FirmwareDir == c.BackupDir {
		return errors.New(errors.KindValidation, "staging_dir, firmware_dir and backup_dir must be distinct")
	}

	if c.FetchRetries < 0 {
		return errors.Errorf(errors.KindValidation, "fetch_retries must be >= 0, got %d", c.FetchRetries)
	}
	if _, err := c.httpTimeout(); err != nil {
		return err
	}
	if _, err := c.retryBackoff(); err != nil {
		return err
	}
	return nil
}

func (c *Config) httpTimeout() (time.Duration, error) {
	if c.HTTPTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.HTTPTimeout)
	if err != nil || d < 0 {
		return 0, errors.Errorf(errors.KindValidation, "http_timeout is not a valid duration: %q", c.HTTPTimeout)
	}
	return d, nil
}

func (c *Config) retryBackoff() (time.Duration, error) {
	if c.RetryBackoff == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RetryBackoff)
	if err != nil || d < 0 {
		return 0, errors.Errorf(errors.KindValidation, "retry_backoff is not a valid duration: %q", c.RetryBackoff)
	}
	return d, nil
}

// HTTPTimeoutDuration returns the parsed http_timeout; zero means no
// timeout.
func (c *Config) HTTPTimeoutDuration() time.Duration {
	d, _ := c.httpTimeout()
	return d
}

// RetryBackoffDuration returns the parsed retry_backoff.
func (c *Config) RetryBackoffDuration() time.Duration {
	d, _ := c.retryBackoff()
	return d
}

// String renders a short summary for startup logging. Secrets are elided.
func (c *Config) String() string {
	return fmt.Sprintf("firmware=%s staging=%s backup=%s retries=%d",
		c.FirmwareDir, c.StagingDir, c.BackupDir, c.FetchRetries)
}
