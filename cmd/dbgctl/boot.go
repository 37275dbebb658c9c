// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/dbgctl/internal/errors"
	"github.com/kraklabs/dbgctl/internal/output"
	"github.com/kraklabs/dbgctl/internal/ui"
	"github.com/kraklabs/dbgctl/pkg/control"
)

// BootResult is the JSON-renderable outcome of a boot replay.
type BootResult struct {
	Queries int      `json:"queries"`
	Matches int      `json:"matches"`
	Errors  []string `json:"errors,omitempty"`
}

// runBoot executes the 'boot' CLI command: it walks the preserved boot
// command line (spec.md §4.8) — the configured "dyndbg"/"<module>.dyndbg"
// keys plus "verbose" — against a registry populated from the config's
// demo modules, mirroring how a real host replays kernel command-line
// arguments once its descriptor tables are registered.
func runBoot(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("boot", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: dbgctl boot [options]

Description:
  Replay the boot command line declared under config.boot.args against a
  registry populated from the configured demo modules (spec.md §4.8):
  "dyndbg" (global) and "<module>.dyndbg" (module-scoped) keys are each
  executed as a control-write command block; "verbose" sets the engine's
  own diagnostic verbosity. Failures are reported but do not abort the
  remaining queries.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	lr := openRegistry(configPath, globals)

	keys := make([]string, 0, len(lr.cfg.Boot.Args))
	bootArgs := map[string]string{}
	for k, v := range lr.cfg.Boot.Args {
		if k == "verbose" {
			if err := control.SetVerbose(v); err != nil {
				ui.Warningf("boot: %v", err)
			}
			continue
		}
		keys = append(keys, k)
		bootArgs[k] = v
	}
	sort.Strings(keys)

	var bar *progressbar.ProgressBar
	showBar := !globals.Quiet && len(keys) > 4 && isatty.IsTerminal(os.Stdout.Fd())
	if showBar {
		bar = progressbar.NewOptions(len(keys),
			progressbar.OptionSetDescription("replaying boot queries"),
			progressbar.OptionShowCount(),
		)
	}

	result := BootResult{}
	for _, k := range keys {
		single := map[string]string{k: bootArgs[k]}
		for _, err := range control.IngestBootArgs(lr.reg, single) {
			result.Errors = append(result.Errors, err.Error())
		}
		result.Queries++
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	text := control.Read(lr.reg)
	result.Matches = countEnabledLines(text)

	if globals.JSON {
		_ = output.JSON(os.Stdout, result)
		return
	}
	ui.Successf("replayed %d boot quer%s, verbose=%d", result.Queries, plural(result.Queries), control.VerboseLevel)
	for _, e := range result.Errors {
		ui.Warningf("boot: %s", e)
	}
	if len(result.Errors) > 0 {
		errors.FatalError(errors.NewInputError("boot replay had errors", fmt.Sprintf("%d of %d boot queries failed", len(result.Errors), result.Queries), "see warnings above; boot continues regardless (spec.md §4.8)", nil), globals.JSON)
	}
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

// countEnabledLines counts data lines in a control.Read rendering whose
// flags column contains 'p' or 'T' (i.e. the site is enabled), used only
// to surface a quick summary number after boot.
func countEnabledLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if line == "" || line[0] == '#' {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue
		}
		flags := line[idx+1:]
		if end := strings.IndexAny(flags, " :"); end >= 0 {
			flags = flags[:end]
		}
		if strings.ContainsAny(flags, "pT") {
			n++
		}
	}
	return n
}
