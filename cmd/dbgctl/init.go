// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/dbgctl/internal/config"
	"github.com/kraklabs/dbgctl/internal/errors"
	"github.com/kraklabs/dbgctl/internal/ui"
)

// initFlags holds parsed flags for the init command.
type initFlags struct {
	force          bool
	nonInteractive bool
	dyndbg         string
}

// runInit executes the 'init' CLI command, creating a .dbgctl/config.yaml
// configuration file that declares the boot command line and a small
// demo module (spec.md's compile-time macro scaffolding is out of scope;
// this config is this project's stand-in for it, per SPEC_FULL.md).
func runInit(args []string, globals GlobalFlags) {
	flags := parseInitFlags(args)

	cwd, err := os.Getwd()
	if err != nil {
		errors.FatalError(errors.NewInternalError("cannot access working directory", err.Error(), "", err), globals.JSON)
	}

	configPath := config.Path(cwd)
	if _, err := os.Stat(configPath); err == nil && !flags.force {
		errors.FatalError(errors.NewInputError(
			"configuration already exists",
			fmt.Sprintf("%s already exists in this directory", configPath),
			"use 'dbgctl init --force' to overwrite the existing configuration",
			nil,
		), globals.JSON)
	}

	cfg := defaultDemoConfig()
	if flags.dyndbg != "" {
		cfg.Boot.Args["dyndbg"] = flags.dyndbg
	}

	if !flags.nonInteractive {
		reader := bufio.NewReader(os.Stdin)
		runInteractiveInit(reader, cfg)
	}

	if err := config.Save(cfg, configPath); err != nil {
		errors.FatalError(err, globals.JSON)
	}
	ui.Successf("Created %s", configPath)

	fmt.Println()
	ui.SubHeader("Next steps:")
	fmt.Println("  1. Review and edit .dbgctl/config.yaml if needed")
	fmt.Println("  2. Run 'dbgctl boot' to replay the configured boot query")
	fmt.Println("  3. Run 'dbgctl show' to see the resulting descriptor state")
}

func parseInitFlags(args []string) initFlags {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var f initFlags
	fs.BoolVar(&f.force, "force", false, "Overwrite existing configuration")
	fs.BoolVarP(&f.nonInteractive, "yes", "y", false, "Non-interactive mode (use defaults)")
	fs.StringVar(&f.dyndbg, "dyndbg", "", "Initial global dyndbg boot query")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: dbgctl init [options]

Description:
  Create a .dbgctl/config.yaml configuration file declaring a small demo
  module (so 'boot'/'show'/'serve' have descriptors to act on without a
  real host) plus the boot command line replayed at startup.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return f
}

func defaultDemoConfig() *config.Config {
	cfg := config.Default()
	cfg.Modules = []config.ModuleSpec{
		{
			Name: "demo",
			ClassMaps: []config.ClassMapSpec{
				{Base: 0, ClassNames: []string{"RX", "TX", "LINK"}, MapType: "disjoint_bits"},
			},
			Sites: []config.SiteSpec{
				{Function: "rx_poll", File: "demo/rx.go", Line: 10, Format: "rx poll %d", Class: "RX"},
				{Function: "tx_flush", File: "demo/tx.go", Line: 20, Format: "tx flush %d", Class: "TX"},
				{Function: "link_up", File: "demo/link.go", Line: 5, Format: "link up"},
			},
			ClassParams: []config.ClassParamSpec{
				{Name: "demo_classes", MapIndex: 0, FlagSpec: "p", Default: 0},
			},
		},
	}
	return cfg
}

func runInteractiveInit(reader *bufio.Reader, cfg *config.Config) {
	ui.Header("dbgctl configuration")
	fmt.Println()
	boot := prompt(reader, "Global dyndbg boot query (blank to skip)", cfg.Boot.Args["dyndbg"])
	if boot != "" {
		cfg.Boot.Args["dyndbg"] = boot
	}
	fmt.Println()
}

func prompt(reader *bufio.Reader, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", label, defaultValue)
	} else {
		fmt.Printf("%s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultValue
	}
	return input
}
