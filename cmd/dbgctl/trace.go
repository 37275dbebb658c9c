// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/dbgctl/internal/errors"
	"github.com/kraklabs/dbgctl/internal/output"
	"github.com/kraklabs/dbgctl/internal/ui"
)

// TraceResult is the JSON-renderable outcome of an open/close command.
type TraceResult struct {
	Op   string `json:"op"`
	Name string `json:"name"`
	Slot int    `json:"slot,omitempty"`
}

// runTraceOpen executes 'open <name>', opening (or selecting) a named
// trace-destination slot per spec.md §4.5.
func runTraceOpen(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: dbgctl open <name>

Description:
  Open a named trace-destination instance (or, if already open, just
  make it the default destination). "0" selects the reserved "trace
  events" slot.

`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	name := fs.Arg(0)

	lr := openRegistry(configPath, globals)
	slot, err := lr.reg.Trace.Open(name)
	if err != nil {
		errors.FatalError(errors.NewInputError("cannot open trace destination", err.Error(), "choose an unused instance name, or check remaining free slots", err), globals.JSON)
	}

	result := TraceResult{Op: "open", Name: name, Slot: int(slot)}
	if globals.JSON {
		_ = output.JSON(os.Stdout, result)
		return
	}
	ui.Successf("opened %q at slot %d", name, slot)
}

// runTraceClose executes 'close <name>'.
func runTraceClose(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("close", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: dbgctl close <name>

Description:
  Close a named trace-destination instance. Refused while any
  descriptor still routes traces to it (busy).

`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	name := fs.Arg(0)

	lr := openRegistry(configPath, globals)
	if err := lr.reg.Trace.Close(name); err != nil {
		errors.FatalError(errors.NewInputError("cannot close trace destination", err.Error(), "run 'dbgctl query \"... -T\"' to drain descriptors routed to it first", err), globals.JSON)
	}

	result := TraceResult{Op: "close", Name: name}
	if globals.JSON {
		_ = output.JSON(os.Stdout, result)
		return
	}
	ui.Successf("closed %q", name)
}
