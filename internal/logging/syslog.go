// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"fmt"
	"net"
	"os"
	"time"

	"microkvm.io/updater/internal/brand"
)

// SyslogConfig configures the optional remote syslog sink. Embedded
// deployments often collect updater logs centrally; the device itself
// keeps only stderr.
type SyslogConfig struct {
	Enabled  bool   `hcl:"enabled,optional"`
	Host     string `hcl:"host,optional"`
	Port     int    `hcl:"port,optional"`
	Protocol string `hcl:"protocol,optional"`
	Tag      string `hcl:"tag,optional"`
	Facility int    `hcl:"facility,optional"`
}

// DefaultSyslogConfig returns the disabled default: udp/514, facility
// user (1), tagged with the product name.
func DefaultSyslogConfig() SyslogConfig {
	return SyslogConfig{
		Enabled:  false,
		Port:     514,
		Protocol: "udp",
		Tag:      brand.LowerName,
		Facility: 1,
	}
}

// SyslogWriter sends each write as one RFC 3164 message. Severity is
// fixed at informational; level filtering happens in the handler above.
type SyslogWriter struct {
	conn     net.Conn
	tag      string
	priority int
	hostname string
}

// NewSyslogWriter connects to the configured syslog server. Missing
// host is an error; other fields are defaulted.
func NewSyslogWriter(cfg SyslogConfig) (*SyslogWriter, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("syslog host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 514
	}
	if cfg.Protocol == "" {
		cfg.Protocol = "udp"
	}
	if cfg.Tag == "" {
		cfg.Tag = brand.LowerName
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := net.Dial(cfg.Protocol, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to syslog server %s: %w", addr, err)
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "localhost"
	}

	// severity 6 = informational
	return &SyslogWriter{
		conn:     conn,
		tag:      cfg.Tag,
		priority: cfg.Facility*8 + 6,
		hostname: hostname,
	}, nil
}

// Write implements io.Writer.
func (w *SyslogWriter) Write(p []byte) (int, error) {
	msg := fmt.Sprintf("<%d>%s %s %s: %s",
		w.priority,
		time.Now().Format(time.Stamp),
		w.hostname,
		w.tag,
		string(p))
	if _, err := w.conn.Write([]byte(msg)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the connection to the syslog server.
func (w *SyslogWriter) Close() error {
	return w.conn.Close()
}
