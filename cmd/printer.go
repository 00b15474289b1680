// Copyright (C) 2026 MicroKVM Project. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package cmd implements the CLI subcommands.
package cmd

import (
	"fmt"
	"io"
	"os"
)

// Printer writes user-facing command output. Structured logs go to the
// logging package; Printer is only for direct results on stdout.
var Printer = &cliPrinter{out: os.Stdout}

type cliPrinter struct {
	out io.Writer
}

func (p *cliPrinter) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *cliPrinter) Println(args ...any) {
	fmt.Fprintln(p.out, args...)
}
