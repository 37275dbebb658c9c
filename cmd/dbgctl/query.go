// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/dbgctl/internal/metrics"
	"github.com/kraklabs/dbgctl/internal/output"
	"github.com/kraklabs/dbgctl/internal/ui"
	"github.com/kraklabs/dbgctl/pkg/control"
)

// QueryResult is the JSON-renderable outcome of a `dbgctl query` run.
type QueryResult struct {
	Query   string `json:"query"`
	Matches int    `json:"matches"`
	Error   string `json:"error,omitempty"`
}

// runQuery executes the 'query' CLI command: it applies a control-write
// command block (spec.md §4.7) to a registry built from the configured
// demo modules and reports the match count.
//
// Usage: dbgctl query <query-string> [--module <name>]
func runQuery(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	module := fs.String("module", "", "Implicit module scope for the query (like <module>.dyndbg=)")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: dbgctl query [options] <query-string>

Description:
  Apply a control-write command block (spec.md §4.7) to the registry
  built from the configured demo modules. The query string may contain
  multiple sub-commands separated by newline, ';', or '%'.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  dbgctl query "module m1 func do_a +p"
  dbgctl query "class RX +pT"
  dbgctl query --module m1 "func do_b -p"

`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	queryStr := fs.Arg(0)

	lr := openRegistry(configPath, globals)

	matches, err := control.Write(lr.reg, queryStr, *module)
	metrics.RecordQuery(matches)

	result := QueryResult{Query: queryStr}
	if err != nil {
		result.Error = err.Error()
	}
	result.Matches = matches

	if globals.JSON {
		_ = output.JSON(os.Stdout, result)
	} else {
		if err != nil {
			ui.Errorf("query error: %v", err)
		}
		ui.Successf("%d descriptor(s) matched", matches)
	}

	if err != nil {
		os.Exit(1)
	}
}
