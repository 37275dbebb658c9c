// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"github.com/kraklabs/dbgctl/internal/config"
	"github.com/kraklabs/dbgctl/internal/demo"
	"github.com/kraklabs/dbgctl/internal/errors"
	"github.com/kraklabs/dbgctl/pkg/registry"
)

// loadedRegistry bundles everything a subcommand needs to act on a
// populated registry: the config it came from, the registry itself, and
// the class parameters declared in that config (keyed for classparam
// lookups).
type loadedRegistry struct {
	cfg    *config.Config
	reg    *registry.Registry
	params map[string]*demo.BuiltParams
}

// openRegistry loads the config at configPath (or the default search
// path if empty) and builds+populates a registry from its declared demo
// modules. This is the stand-in for "a real host with compile-time macro
// scaffolding already loaded" (spec.md §1's out-of-scope collaborator):
// every CLI subcommand that mutates or reads descriptor state needs a
// registry to act on, and this engine never has one without a host.
func openRegistry(configPath string, globals GlobalFlags) *loadedRegistry {
	cfg, err := config.Load(configPath)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	r := registry.New()
	built, err := demo.Populate(r, cfg)
	if err != nil {
		errors.FatalError(errors.NewInputError(
			"cannot populate registry from configuration",
			err.Error(),
			"check the modules/sites/class_maps declared in your .dbgctl/config.yaml",
			err,
		), globals.JSON)
	}

	params := make(map[string]*demo.BuiltParams, len(built))
	for i := range built {
		params[built[i].Param.Name] = &built[i]
	}

	return &loadedRegistry{cfg: cfg, reg: r, params: params}
}
