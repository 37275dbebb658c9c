// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package matcher walks the registry applying a parsed query and flag
// delta, per spec.md §4.3.
package matcher

import (
	"fmt"
	"path"
	"strings"

	"github.com/kraklabs/dbgctl/internal/querylang"
	"github.com/kraklabs/dbgctl/pkg/classmap"
	"github.com/kraklabs/dbgctl/pkg/descriptor"
	"github.com/kraklabs/dbgctl/pkg/registry"
	"github.com/kraklabs/dbgctl/pkg/tracedst"
)

// SourceTreePrefix is stripped from descriptor filenames when matching
// `file` queries that don't match the raw path or basename, mirroring the
// host's "trim_prefix" helper (spec.md §4.2: "the path with the engine's
// own source-tree prefix stripped"). A real host sets this to its build
// root; it defaults to "" (no-op) here.
var SourceTreePrefix = ""

func trimSourceTree(filename string) string {
	if SourceTreePrefix == "" {
		return filename
	}
	return strings.TrimPrefix(filename, SourceTreePrefix)
}

func fileMatches(pattern, filename string) bool {
	if querylang.MatchWildcard(pattern, filename) {
		return true
	}
	if querylang.MatchWildcard(pattern, path.Base(filename)) {
		return true
	}
	if trimmed := trimSourceTree(filename); trimmed != filename && querylang.MatchWildcard(pattern, trimmed) {
		return true
	}
	return false
}

// resolveClass searches t's own class maps first, then its class users,
// per spec.md §4.4.
func resolveClass(t *registry.ModuleTable, name string) (uint8, bool) {
	for _, m := range t.ClassMaps {
		if id, ok := m.ClassID(name); ok {
			return id, true
		}
	}
	for _, u := range t.ClassUsers {
		if id, ok := u.Map.ClassID(name); ok {
			return id, true
		}
	}
	return 0, false
}

// classMapOf finds the class map (owned or used) within t that a given
// class-id belongs to, or nil.
func classMapOf(t *registry.ModuleTable, classID uint8) *classmap.Map {
	for _, m := range t.ClassMaps {
		if classID >= m.Base && classID < m.Base+m.Length {
			return m
		}
	}
	for _, u := range t.ClassUsers {
		m := u.Map
		if classID >= m.Base && classID < m.Base+m.Length {
			return m
		}
	}
	return nil
}

// resolveExplicitDst resolves an explicit ":name" directive in the flag
// delta to a slot index. Per the original engine, the name must already
// be an open instance (or "0"); an unresolvable name is reported so the
// caller can abort the whole sub-command.
func resolveExplicitDst(tt *tracedst.Table, name string) (uint8, error) {
	if name == "0" {
		return tracedst.DefaultSlot, nil
	}
	for i := uint8(1); i < tracedst.NumSlots; i++ {
		if tt.Name(i) == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("matcher: unknown trace instance %q", name)
}

// selectTraceDst implements spec.md §4.3's select_trace_dst: an explicit
// ":name" directive wins outright; otherwise, if T was set and the site
// currently routes to the default slot, adopt default_dst; otherwise keep
// the descriptor's current destination.
func selectTraceDst(delta *querylang.FlagDelta, explicitDst uint8, defaultDst uint8, curDst uint8) uint8 {
	if delta.TraceNameSet {
		return explicitDst
	}
	if delta.SawT && curDst == tracedst.DefaultSlot {
		return defaultDst
	}
	return curDst
}

// Exec applies a single parsed query+delta against every module table in
// r, mutating matched descriptors and returning the number of descriptors
// the inner predicate evaluated (spec.md's testable property: this count
// is independent of whether anything actually changed).
func Exec(r *registry.Registry, q *querylang.Query, delta *querylang.FlagDelta) (int, error) {
	var explicitDst uint8
	if delta.TraceNameSet {
		dst, err := resolveExplicitDst(r.Trace, delta.TraceName)
		if err != nil {
			return 0, err
		}
		explicitDst = dst
	}
	defaultDst := r.Trace.DefaultDst()

	nfound := 0
	r.Lock()
	defer r.Unlock()

	for _, t := range r.Tables() {
		if q.Module != "" && !querylang.MatchWildcard(q.Module, t.Name()) {
			continue
		}

		var classID uint8
		classless := true
		if q.HasClass {
			id, ok := resolveClass(t, q.Class)
			if !ok {
				continue
			}
			classID = id
			classless = false
		} else {
			classID = descriptor.DefaultClass
		}

		for _, d := range t.Descriptors {
			if classless {
				if d.ClassID != descriptor.DefaultClass {
					if cm := classMapOf(t, d.ClassID); cm != nil && cm.ControllingParam {
						continue
					}
				}
			} else if d.ClassID != classID {
				continue
			}

			if q.Filename != "" && !fileMatches(q.Filename, d.Filename) {
				continue
			}
			if q.Function != "" && !querylang.MatchWildcard(q.Function, d.Function) {
				continue
			}
			if q.Format != "" {
				if q.Anchored {
					if !strings.HasPrefix(d.Format, q.Format) {
						continue
					}
				} else if !strings.Contains(d.Format, q.Format) {
					continue
				}
			}
			if q.FirstLineno != 0 && d.Lineno < q.FirstLineno {
				continue
			}
			if q.LastLineno != 0 && d.Lineno > q.LastLineno {
				continue
			}

			nfound++

			newFlags := (d.Flags & delta.Mask) | delta.Flags
			newDst := selectTraceDst(delta, explicitDst, defaultDst, d.TraceDst)
			if newFlags == d.Flags && newDst == d.TraceDst {
				continue
			}

			oldDst := d.TraceDst
			oldTraceLive := d.Flags&descriptor.FlagTrace != 0
			d.SetFlags(newFlags, newDst)
			newTraceLive := newFlags&descriptor.FlagTrace != 0

			switch {
			case newDst != oldDst:
				if oldTraceLive {
					r.Trace.Release(oldDst)
				}
				if newTraceLive {
					r.Trace.Acquire(newDst)
				}
			case oldTraceLive != newTraceLive:
				if newTraceLive {
					r.Trace.Acquire(newDst)
				} else {
					r.Trace.Release(newDst)
				}
			}
		}
	}

	return nfound, nil
}
