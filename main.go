// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command microkvm-updater performs a one-shot firmware update of a
// MicroKVM device. It is normally invoked by the web UI or from an SSH
// session, never as a daemon.
package main

import (
	"flag"
	"fmt"
	"os"

	"microkvm.io/updater/cmd"
	"microkvm.io/updater/internal/brand"
)

func usage() {
	fmt.Fprintf(os.Stderr, `%s

Usage: %s [flags] [command]

Commands:
  update        Download and install the latest firmware (default)
  version       Print the installed firmware version
  check-config  Validate the configuration file

Flags:
`, brand.Name, brand.BinaryName)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "Path to HCL config file (default "+brand.DefaultConfigPath+")")
	flag.Usage = usage
	flag.Parse()

	subcmd := "update"
	if args := flag.Args(); len(args) > 0 {
		subcmd = args[0]
	}

	var err error
	switch subcmd {
	case "update":
		err = cmd.RunUpdate(*configPath)
	case "version":
		err = cmd.RunVersion(*configPath)
	case "check-config":
		err = cmd.RunCheckConfig(*configPath)
	case "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", subcmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
