// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/dbgctl/internal/output"
	"github.com/kraklabs/dbgctl/pkg/control"
)

// runShow executes the 'show' CLI command: a control-read listing of
// every descriptor currently registered, per spec.md §4.7/§6.
func runShow(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: dbgctl show [options]

Description:
  Render the control-read view of the registry: one header line, one
  data line per descriptor (file:line [module]function =flags "format"),
  and a trailer summarizing the default trace destination and any open
  trace instances.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	lr := openRegistry(configPath, globals)
	text := control.Read(lr.reg)

	if globals.JSON {
		_ = output.JSON(os.Stdout, map[string]string{"text": text})
		return
	}
	fmt.Print(text)
}
