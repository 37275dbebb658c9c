// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package registry holds the process-wide list of module tables and the
// single mutex guarding all mutation, per spec.md §4.1.
package registry

import (
	"fmt"
	"sync"

	"github.com/kraklabs/dbgctl/pkg/classmap"
	"github.com/kraklabs/dbgctl/pkg/descriptor"
	"github.com/kraklabs/dbgctl/pkg/tracedst"
)

// ModuleHandle is an opaque identity for a module, standing in for the
// pointer-identity comparison the host performs on interned module-name
// strings (spec.md §9). Two tables for "the same module" are the same
// handle; RemoveHandle matches by handle, not by string equality, so that
// a second module that happens to share a name cannot be torn down by a
// removal meant for the first. Remove, by contrast, matches by name.
type ModuleHandle struct {
	name string
	seq  uint64
}

// Name returns the module name this handle was created for.
func (h ModuleHandle) Name() string { return h.name }

var handleSeq uint64
var handleSeqMu sync.Mutex

// NewModuleHandle mints a fresh handle for modname. Call once per module
// load; do not reuse across a remove/re-add cycle.
func NewModuleHandle(modname string) ModuleHandle {
	handleSeqMu.Lock()
	handleSeq++
	seq := handleSeq
	handleSeqMu.Unlock()
	return ModuleHandle{name: modname, seq: seq}
}

// ModuleTable binds one module's descriptors, owned class maps, and class
// users. Its lifetime tracks the module's load/unload.
type ModuleTable struct {
	Handle      ModuleHandle
	Descriptors []*descriptor.Descriptor
	ClassMaps   []*classmap.Map
	ClassUsers  []*classmap.User
}

// Name is a convenience accessor matching spec.md's T.module_name.
func (t *ModuleTable) Name() string { return t.Handle.Name() }

// Registry is the process-wide, mutex-guarded list of module tables plus
// the trace-destination table it owns (spec.md §3, §9).
type Registry struct {
	mu     sync.Mutex
	tables []*ModuleTable
	Trace  *tracedst.Table
}

// New builds an empty registry with its trace-destination table initialized.
func New() *Registry {
	return &Registry{Trace: tracedst.NewTable()}
}

// Add appends a module table. Per spec.md §4.1 it is an idempotent no-op
// success if the table has no descriptors (mirrors ddebug_add_module's
// early-return for an empty _ddebug_info).
func (r *Registry) Add(t *ModuleTable) error {
	if t == nil {
		return fmt.Errorf("registry: nil module table")
	}
	if len(t.ClassMaps) > 0 {
		for i := 0; i < len(t.ClassMaps); i++ {
			for j := i + 1; j < len(t.ClassMaps); j++ {
				if t.ClassMaps[i].Overlaps(t.ClassMaps[j]) {
					return fmt.Errorf("registry: class maps %d and %d of module %q overlap",
						i, j, t.Name())
				}
			}
			if err := t.ClassMaps[i].Validate(); err != nil {
				return fmt.Errorf("registry: module %q: %w", t.Name(), err)
			}
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(t.Descriptors) == 0 {
		return nil
	}
	r.tables = append(r.tables, t)
	return nil
}

// Remove removes the first table whose handle matches modname by name and
// returns it, decrementing any trace-destination use counts it held. It
// reports ok=false if no such table is registered.
func (r *Registry) Remove(modname string) (*ModuleTable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.tables {
		if t.Handle.name == modname {
			for _, d := range t.Descriptors {
				if d.Flags&descriptor.FlagTrace != 0 && d.TraceDst != 0 {
					r.Trace.Release(d.TraceDst)
				}
			}
			r.tables = append(r.tables[:i], r.tables[i+1:]...)
			return t, true
		}
	}
	return nil, false
}

// RemoveHandle removes the table matching handle by identity (not merely
// by name), per the interning discipline of spec.md §9.
func (r *Registry) RemoveHandle(handle ModuleHandle) (*ModuleTable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.tables {
		if t.Handle == handle {
			for _, d := range t.Descriptors {
				if d.Flags&descriptor.FlagTrace != 0 && d.TraceDst != 0 {
					r.Trace.Release(d.TraceDst)
				}
			}
			r.tables = append(r.tables[:i], r.tables[i+1:]...)
			return t, true
		}
	}
	return nil, false
}

// Lookup returns the first table whose name matches, if any.
func (r *Registry) Lookup(modname string) (*ModuleTable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tables {
		if t.Name() == modname {
			return t, true
		}
	}
	return nil, false
}

// ForEach iterates the registry under the mutex, in add order. fn must not
// call back into Add/Remove on this registry (it would deadlock).
func (r *Registry) ForEach(fn func(*ModuleTable)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tables {
		fn(t)
	}
}

// Lock/Unlock expose the registry mutex directly for callers (the matcher)
// that need to hold it across a multi-table mutation, matching spec.md
// §4.3's "walks the registry applying a parsed query" under one critical
// section rather than one lock/unlock pair per table.
func (r *Registry) Lock()   { r.mu.Lock() }
func (r *Registry) Unlock() { r.mu.Unlock() }

// Tables returns the current table slice. Callers must hold the registry
// lock (via Lock/Unlock) for the duration of use.
func (r *Registry) Tables() []*ModuleTable {
	return r.tables
}
