// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package demo populates a registry from a config.Config's declared
// modules. It stands in for the compile-time macro scaffolding that, in
// a real host, emits descriptor/class-map/class-user records at build
// time (spec.md §1's "out of scope" list); here those records are
// declared in YAML and built at process startup instead.
package demo

import (
	"fmt"

	"github.com/kraklabs/dbgctl/internal/config"
	"github.com/kraklabs/dbgctl/pkg/classmap"
	"github.com/kraklabs/dbgctl/pkg/classparam"
	"github.com/kraklabs/dbgctl/pkg/descriptor"
	"github.com/kraklabs/dbgctl/pkg/registry"
)

func parseMapType(s string) (classmap.Type, error) {
	switch s {
	case "", "disjoint_bits":
		return classmap.DisjointBits, nil
	case "level_num":
		return classmap.LevelNum, nil
	default:
		return 0, fmt.Errorf("demo: unknown class map_type %q", s)
	}
}

// moduleClassMaps resolves a spec's declared class maps into *classmap.Map
// values, keyed by class name for site lookups.
func moduleClassMaps(modname string, specs []config.ClassMapSpec) ([]*classmap.Map, map[string]*classmap.Map, error) {
	maps := make([]*classmap.Map, 0, len(specs))
	byName := map[string]*classmap.Map{}
	for _, s := range specs {
		mapType, err := parseMapType(s.MapType)
		if err != nil {
			return nil, nil, err
		}
		m := &classmap.Map{
			OwningModule: modname,
			ClassNames:   s.ClassNames,
			Base:         s.Base,
			Length:       uint8(len(s.ClassNames)),
			MapType:      mapType,
		}
		if err := m.Validate(); err != nil {
			return nil, nil, err
		}
		for _, other := range maps {
			if m.Overlaps(other) {
				return nil, nil, fmt.Errorf("demo: module %q: class maps overlap", modname)
			}
		}
		maps = append(maps, m)
		for _, name := range s.ClassNames {
			byName[name] = m
		}
	}
	return maps, byName, nil
}

// BuiltParams is the set of class parameters declared across every
// module's class_params, returned alongside the module tables so callers
// can bind and sync them once the tables are registered.
type BuiltParams struct {
	Param   *classparam.Parameter
	Default uint64
}

// Build constructs a registry.ModuleTable per module declared in cfg,
// wiring each site's optional class name to its owning or borrowed class
// map. It does not add the tables to a registry; callers do that (or use
// Populate).
func Build(cfg *config.Config) ([]*registry.ModuleTable, []BuiltParams, error) {
	// First pass: build every module's own class maps, so USE
	// declarations in a later module can already resolve them.
	ownedMaps := map[string][]*classmap.Map{}
	ownedByName := map[string]map[string]*classmap.Map{}
	for _, ms := range cfg.Modules {
		maps, byName, err := moduleClassMaps(ms.Name, ms.ClassMaps)
		if err != nil {
			return nil, nil, err
		}
		ownedMaps[ms.Name] = maps
		ownedByName[ms.Name] = byName
	}

	var tables []*registry.ModuleTable
	var params []BuiltParams
	for _, ms := range cfg.Modules {
		tbl := &registry.ModuleTable{
			Handle:    registry.NewModuleHandle(ms.Name),
			ClassMaps: ownedMaps[ms.Name],
		}

		for _, u := range ms.ClassUsers {
			owned, ok := ownedMaps[u.FromModule]
			if !ok || len(owned) == 0 {
				return nil, nil, fmt.Errorf("demo: module %q declares class_users from unknown module %q", ms.Name, u.FromModule)
			}
			for _, m := range owned {
				tbl.ClassUsers = append(tbl.ClassUsers, &classmap.User{UserModule: ms.Name, Map: m})
			}
		}

		localNames := ownedByName[ms.Name]
		for _, site := range ms.Sites {
			classID := descriptor.DefaultClass
			if site.Class != "" {
				m, ok := localNames[site.Class]
				if !ok {
					for _, u := range tbl.ClassUsers {
						if _, found := u.Map.ClassID(site.Class); found {
							m, ok = u.Map, true
							break
						}
					}
				}
				if !ok {
					return nil, nil, fmt.Errorf("demo: module %q site %q references unknown class %q", ms.Name, site.Function, site.Class)
				}
				id, ok := m.ClassID(site.Class)
				if !ok {
					return nil, nil, fmt.Errorf("demo: module %q: class %q not found in its own map", ms.Name, site.Class)
				}
				classID = id
			}
			d := descriptor.NewDescriptor(ms.Name, site.Function, site.File, site.Line, site.Format, classID)
			tbl.Descriptors = append(tbl.Descriptors, d)
		}

		for _, ps := range ms.ClassParams {
			owned := ownedMaps[ms.Name]
			if ps.MapIndex < 0 || ps.MapIndex >= len(owned) {
				return nil, nil, fmt.Errorf("demo: module %q class_param %q: map_index %d out of range", ms.Name, ps.Name, ps.MapIndex)
			}
			p := &classparam.Parameter{
				Name:       ps.Name,
				ModuleName: ms.Name,
				Map:        owned[ps.MapIndex],
				FlagSpec:   ps.FlagSpec,
			}
			p.Bind()
			params = append(params, BuiltParams{Param: p, Default: ps.Default})
		}

		tables = append(tables, tbl)
	}
	return tables, params, nil
}

// Populate builds and adds every module table from cfg to r, then
// synchronizes every declared class parameter to its configured default,
// per spec.md §4.4's "engine walks all kernel parameters ... snapshotted"
// boot-time sync. Returns the built parameters so callers (e.g. the
// classparam CLI command) can look one up by name afterwards.
func Populate(r *registry.Registry, cfg *config.Config) ([]BuiltParams, error) {
	tables, params, err := Build(cfg)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if err := r.Add(t); err != nil {
			return nil, err
		}
	}
	for _, bp := range params {
		if _, err := bp.Param.SyncOnModuleUp(r, bp.Default); err != nil {
			return nil, fmt.Errorf("demo: syncing class param %q: %w", bp.Param.Name, err)
		}
	}
	return params, nil
}
