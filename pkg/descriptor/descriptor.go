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

// Package descriptor holds the per-emission-site record that the rest of
// the engine mutates and matches against: identity, flags, class and
// trace-destination, and the fast-branch gate that keeps a disabled site
// inline-cheap.
package descriptor

import "sync/atomic"

// Flags controls the behaviour of a single emission site.
type Flags uint8

const (
	// FlagPrint emits to the printk-like sink.
	FlagPrint Flags = 1 << 0
	// FlagInclModname adds the module name to the emitted prefix.
	FlagInclModname Flags = 1 << 1
	// FlagInclFuncname adds the function name to the emitted prefix.
	FlagInclFuncname Flags = 1 << 2
	// FlagInclLineno adds the source line number to the emitted prefix.
	FlagInclLineno Flags = 1 << 3
	// FlagInclTID adds the calling thread/interrupt tag to the emitted prefix.
	FlagInclTID Flags = 1 << 4
	// FlagTrace emits to the trace sink.
	FlagTrace Flags = 1 << 5
	// FlagInclSourcename adds the (engine-relative) source filename to the prefix.
	FlagInclSourcename Flags = 1 << 6

	// FlagsEnabled is the mask of bits whose presence means the site is live.
	FlagsEnabled = FlagPrint | FlagTrace

	// FlagsInclAny is the mask of all prefix-contributing bits.
	FlagsInclAny = FlagInclModname | FlagInclFuncname | FlagInclSourcename | FlagInclLineno | FlagInclTID

	// FlagsNone is the zero value, matching spec.md's _DPRINTK_FLAGS_NONE analogue.
	FlagsNone Flags = 0
)

// flagChars gives the canonical read/write order of flag characters, matching
// the order §6 lists them in: p, m, f, s, l, t, T.
var flagChars = []struct {
	bit Flags
	ch  byte
}{
	{FlagPrint, 'p'},
	{FlagInclModname, 'm'},
	{FlagInclFuncname, 'f'},
	{FlagInclSourcename, 's'},
	{FlagInclLineno, 'l'},
	{FlagInclTID, 't'},
	{FlagTrace, 'T'},
}

// String renders flags in the canonical character form, e.g. "pmflt" or
// "-" if no bit is set.
func (f Flags) String() string {
	buf := make([]byte, 0, len(flagChars))
	for _, fc := range flagChars {
		if f&fc.bit != 0 {
			buf = append(buf, fc.ch)
		}
	}
	if len(buf) == 0 {
		return "-"
	}
	return string(buf)
}

// Enabled reports whether the site should be considered "live": either
// PRINT or TRACE (or both) are set.
func (f Flags) Enabled() bool {
	return f&FlagsEnabled != 0
}

// DefaultClass is the sentinel class-id meaning "no class" / "any class"
// in the class-less query context. See spec.md §3.
const DefaultClass uint8 = 63

// MaxTraceDst is the largest legal trace-destination slot index.
const MaxTraceDst uint8 = 63

// EnabledGate is the fast-branch primitive an emission site checks before
// doing any work. It stands in for the host's patchable inline-jump
// primitive (an external collaborator per spec.md §1): here it is a plain
// atomic bool, toggled with release semantics by the mutator and read
// with acquire semantics by the emission path, per spec.md §5 and §9.
type EnabledGate struct {
	v atomic.Bool
}

// Load reads the gate with acquire semantics.
func (g *EnabledGate) Load() bool { return g.v.Load() }

// Store writes the gate with release semantics. The mutator calls this
// only on an enabled-state transition, not on every flag change.
func (g *EnabledGate) Store(v bool) { g.v.Store(v) }

// Descriptor is one record per emission site.
//
// modname/function/filename are plain Go strings; interning (spec.md's
// "interned strings" note) is modeled by the registry comparing
// ModuleHandle values rather than string content — see pkg/registry.
type Descriptor struct {
	Modname  string
	Function string
	Filename string
	Lineno   uint32 // must fit in 18 bits per the wire layout in spec.md §6
	Format   string

	ClassID   uint8 // 0..63, DefaultClass (63) means "no class"
	Flags     Flags
	TraceDst  uint8 // 0..63; 0 == "trace events" (default sink)
	Gate      *EnabledGate
}

// NewDescriptor builds a descriptor with its fast-branch gate allocated and
// synchronized to the initial flags.
func NewDescriptor(modname, function, filename string, lineno uint32, format string, classID uint8) *Descriptor {
	d := &Descriptor{
		Modname:  modname,
		Function: function,
		Filename: filename,
		Lineno:   lineno,
		Format:   format,
		ClassID:  classID,
		Gate:     &EnabledGate{},
	}
	d.Gate.Store(d.Flags.Enabled())
	return d
}

// SetFlags applies newFlags/newDst, toggling the fast-branch gate only if
// the enabled-state actually transitions, and reports whether anything
// changed (flags or trace destination).
func (d *Descriptor) SetFlags(newFlags Flags, newDst uint8) (changed bool) {
	if newFlags == d.Flags && newDst == d.TraceDst {
		return false
	}
	wasEnabled := d.Flags.Enabled()
	nowEnabled := newFlags.Enabled()
	if wasEnabled != nowEnabled {
		d.Gate.Store(nowEnabled)
	}
	d.Flags = newFlags
	d.TraceDst = newDst
	return true
}
