// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main implements the dbgctl CLI for driving the dynamic-debug
// engine's control surface from a terminal: running queries, reading back
// descriptor state, managing trace destinations and class parameters, and
// replaying a declared boot command line against a populated registry.
//
// Usage:
//
//	dbgctl query <query-string> [--json]   Run a control-write query
//	dbgctl show [--json]                   Control-read listing
//	dbgctl open <name>                     Open a trace destination
//	dbgctl close <name>                    Close a trace destination
//	dbgctl classparam <name> [value]       Read or write a class parameter
//	dbgctl boot                            Replay the configured boot command line
//	dbgctl serve                           Serve /control and /metrics over HTTP
//	dbgctl init                            Create .dbgctl/config.yaml
//	dbgctl completion <shell>               Generate a shell completion script
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/dbgctl/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds the global CLI flags that apply to all commands.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Verbose int
	Quiet   bool
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to .dbgctl/config.yaml (default: search cwd and parents)")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format (for applicable commands)")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output (progress, info messages)")
	)

	// Stop parsing at the first non-flag argument (the subcommand name),
	// so subcommand-specific flags pass through untouched.
	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `dbgctl - runtime-configurable debug-logging control CLI

dbgctl drives a dynamic-debug engine's textual control surface: it
parses and applies +/-/= flag queries against a descriptor registry,
manages trace destinations and class parameters, and can serve the
same control surface and a Prometheus /metrics endpoint over HTTP.

Usage:
  dbgctl <command> [options]

Commands:
  query         Run a control-write query against the registry
  show          Control-read listing of every descriptor
  open          Open a named trace destination
  close         Close a named trace destination
  classparam    Read or write a class parameter's state word
  boot          Replay the configured boot command line
  serve         Serve /control and /metrics over HTTP
  init          Create a .dbgctl/config.yaml configuration file
  completion    Generate a shell completion script (bash|zsh|fish)

Global Options:
  --json            Output in JSON format (for applicable commands)
  --no-color        Disable color output (respects NO_COLOR env var)
  -v, --verbose     Increase verbosity (-v for info, -vv for debug)
  -q, --quiet       Suppress non-essential output (progress, info messages)
  -c, --config      Path to .dbgctl/config.yaml
  -V, --version     Show version and exit

Examples:
  dbgctl init
  dbgctl query "module m1 func do_a +p"
  dbgctl show
  dbgctl open tbt
  dbgctl classparam netdrv_classes 5
  dbgctl boot
  dbgctl serve --listen 127.0.0.1:8088

For detailed command help: dbgctl <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("dbgctl version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}
	if *quiet && *verbose > 0 {
		fmt.Fprintln(os.Stderr, "Error: cannot use --quiet and --verbose together")
		os.Exit(1)
	}
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{
		JSON:    *jsonOutput,
		NoColor: *noColor,
		Verbose: *verbose,
		Quiet:   *quiet,
	}

	ui.InitColors(globals.NoColor)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, globals)
	case "query":
		runQuery(cmdArgs, *configPath, globals)
	case "show":
		runShow(cmdArgs, *configPath, globals)
	case "open":
		runTraceOpen(cmdArgs, *configPath, globals)
	case "close":
		runTraceClose(cmdArgs, *configPath, globals)
	case "classparam":
		runClassParam(cmdArgs, *configPath, globals)
	case "boot":
		runBoot(cmdArgs, *configPath, globals)
	case "serve":
		runServe(cmdArgs, *configPath, globals)
	case "completion":
		runCompletion(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
