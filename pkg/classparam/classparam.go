// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package classparam implements the bound between an exported class map
// and an external state word (spec.md §4.4): writing the parameter
// translates the new value into a batch of internal class-scoped queries.
package classparam

import (
	"fmt"

	"github.com/kraklabs/dbgctl/internal/querylang"
	"github.com/kraklabs/dbgctl/pkg/classmap"
	"github.com/kraklabs/dbgctl/pkg/matcher"
	"github.com/kraklabs/dbgctl/pkg/registry"
)

// Parameter binds a state word to an exported class map. Per Open
// Question (a), the binding is a direct pointer into the owning module's
// ClassMaps, populated once by Bind and never re-resolved against the
// registry; if the owning module is removed and re-added, the caller is
// expected to rebuild the Parameter against the new table rather than
// have Write survive the reload by name lookup.
type Parameter struct {
	Name         string // sysfs-style parameter name, e.g. "dyndbg_classes"
	ModuleName   string
	Map          *classmap.Map
	FlagSpec     string // flag characters applied per enabled/disabled class, usually "p"
	state        uint64 // current bit vector or level
}

// Bind marks the underlying class map as "wants protection" the moment a
// parameter is bound to it, per spec.md §4.3's policy hook.
func (p *Parameter) Bind() {
	p.Map.ControllingParam = true
}

// State returns the parameter's last-written bit vector (DisjointBits) or
// level (LevelNum).
func (p *Parameter) State() uint64 { return p.state }

func bitmask(width uint8) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// clamp mirrors ddebug_class_param_clamp_input: surplus bits are masked
// (with a reported warning) for DISJOINT_BITS; an out-of-range level is
// clamped for LEVEL_NUM.
func (p *Parameter) clamp(input uint64) (clamped uint64, warned bool) {
	switch p.Map.MapType {
	case classmap.DisjointBits:
		mask := bitmask(p.Map.Length)
		if input&^mask != 0 {
			return input & mask, true
		}
		return input, false
	case classmap.LevelNum:
		if input > uint64(p.Map.Length) {
			return uint64(p.Map.Length), true
		}
		return input, false
	default:
		return input, false
	}
}

// oldBits returns the effective old bit vector for diffing, translating a
// LevelNum level into its equivalent ascending bitmask.
func (p *Parameter) oldBits() uint64 {
	if p.Map.MapType == classmap.LevelNum {
		return bitmask(uint8(p.state))
	}
	return p.state
}

func newBitsFor(mapType classmap.Type, input uint64) uint64 {
	if mapType == classmap.LevelNum {
		return bitmask(uint8(input))
	}
	return input
}

// Write applies a new value to the parameter: for DISJOINT_BITS it is a
// bit vector of length map.Length; for LEVEL_NUM it is a verbosity level
// in [0, length], clamped if out of range. Each changed bit is applied as
// a synthesized `class <name> (+|-)<flags>` query scoped to p.ModuleName.
// Returns the total match count summed across synthesized queries and
// whether the input was clamped/masked.
func (p *Parameter) Write(r *registry.Registry, input uint64) (totalMatches int, warned bool, err error) {
	clamped, w := p.clamp(input)
	warned = w

	oldBits := p.oldBits()
	newBits := newBitsFor(p.Map.MapType, clamped)

	for bi := uint8(0); bi < p.Map.Length; bi++ {
		oldSet := oldBits&(uint64(1)<<bi) != 0
		newSet := newBits&(uint64(1)<<bi) != 0
		if oldSet == newSet {
			continue
		}
		op := '-'
		if newSet {
			op = '+'
		}
		name, ok := p.Map.Name(p.Map.Base + bi)
		if !ok {
			continue
		}
		query := fmt.Sprintf("class %s %c%s", name, op, p.flagSpec())
		parsed, perr := querylang.ParseCommand(query, p.ModuleName)
		if perr != nil {
			return totalMatches, warned, fmt.Errorf("classparam: %s: %w", p.Name, perr)
		}
		n, merr := matcher.Exec(r, parsed.Query, parsed.Delta)
		if merr != nil {
			return totalMatches, warned, fmt.Errorf("classparam: %s: %w", p.Name, merr)
		}
		totalMatches += n
	}

	p.state = clamped
	return totalMatches, warned, nil
}

func (p *Parameter) flagSpec() string {
	if p.FlagSpec == "" {
		return "p"
	}
	return p.FlagSpec
}

// SyncOnModuleUp replays the parameter's currently declared state against
// a freshly added module table, per spec.md §4.4's "engine walks all
// kernel parameters ... snapshotted" boot-time sync. Typically called
// with input equal to the parameter's configured default.
func (p *Parameter) SyncOnModuleUp(r *registry.Registry, input uint64) (int, error) {
	n, _, err := p.Write(r, input)
	return n, err
}
