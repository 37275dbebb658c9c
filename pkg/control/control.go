// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package control implements the textual control surface of spec.md §4.7:
// a writable sink that accepts a command block, and a readable view that
// renders the registry as one header line followed by one data line per
// descriptor.
package control

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kraklabs/dbgctl/internal/querylang"
	"github.com/kraklabs/dbgctl/pkg/descriptor"
	"github.com/kraklabs/dbgctl/pkg/matcher"
	"github.com/kraklabs/dbgctl/pkg/registry"
)

// MaxWriteSize is the largest command block the write surface accepts,
// per spec.md §4.7.
const MaxWriteSize = 4096

// Write applies a command block to r: the block is split on '\n', ';',
// '%' into sub-commands (comments and blanks dropped), each is parsed and
// executed independently. A failing sub-command is recorded but does not
// abort the rest. The total match count across the sub-commands that
// succeeded is always returned; if any sub-command failed, the last error
// is returned alongside it.
func Write(r *registry.Registry, block string, modname string) (matches int, err error) {
	if len(block) > MaxWriteSize {
		return 0, fmt.Errorf("control: command block exceeds %d bytes", MaxWriteSize)
	}

	var lastErr error
	for _, sub := range querylang.SplitCommands(block) {
		n, subErr := execOne(r, sub, modname)
		if subErr != nil {
			lastErr = subErr
			continue
		}
		matches += n
	}
	if lastErr != nil {
		return matches, lastErr
	}
	return matches, nil
}

func execOne(r *registry.Registry, sub string, modname string) (int, error) {
	parsed, err := querylang.ParseCommand(sub, modname)
	if err != nil {
		return 0, err
	}
	if parsed == nil {
		// Comment-only or blank sub-command: ignored, per spec.md §4.7.
		return 0, nil
	}
	if parsed.TraceCmd != nil {
		switch parsed.TraceCmd.Op {
		case "open":
			_, err := r.Trace.Open(parsed.TraceCmd.Name)
			return 0, err
		case "close":
			return 0, r.Trace.Close(parsed.TraceCmd.Name)
		}
	}
	return matcher.Exec(r, parsed.Query, parsed.Delta)
}

// maxTraceNameRead is the read-side truncation width for the colon-form
// trace-destination name, per spec.md §6.
const maxTraceNameRead = 24

func truncateName(name string) string {
	if len(name) <= maxTraceNameRead {
		return name
	}
	return name[:maxTraceNameRead] + "..."
}

func escapeFormat(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func classSuffix(t *registry.ModuleTable, d *descriptor.Descriptor) string {
	if d.ClassID == descriptor.DefaultClass {
		return ""
	}
	for _, m := range t.ClassMaps {
		if name, ok := m.Name(d.ClassID); ok {
			return " class:" + name
		}
	}
	for _, u := range t.ClassUsers {
		if name, ok := u.Map.Name(d.ClassID); ok {
			return " class:" + name
		}
	}
	return fmt.Sprintf(" class:_UNKNOWN_ _id:%d", d.ClassID)
}

func dataLine(t *registry.ModuleTable, d *descriptor.Descriptor, traceName string) string {
	flagsOut := d.Flags.String()
	if d.Flags&descriptor.FlagTrace != 0 && d.TraceDst != 0 && traceName != "" {
		flagsOut += ":" + truncateName(traceName)
	}
	line := fmt.Sprintf("%s:%d [%s]%s =%s %q",
		d.Filename, d.Lineno, t.Name(), d.Function, flagsOut, escapeFormat(d.Format))
	return line + classSuffix(t, d)
}

// Read renders the full registry as a control-surface read view: one
// header line, one data line per descriptor in registry order, and a
// trailer summarizing the default trace destination and open trace
// instances (spec.md §4.7, §6).
func Read(r *registry.Registry) string {
	var b strings.Builder
	b.WriteString("# filename:lineno [module]function flags format\n")

	r.Lock()
	for _, t := range r.Tables() {
		for _, d := range t.Descriptors {
			b.WriteString(dataLine(t, d, r.Trace.Name(d.TraceDst)))
			b.WriteByte('\n')
		}
	}
	defaultDst := r.Trace.DefaultDst()
	openNames := r.Trace.OpenNames()
	r.Unlock()

	b.WriteString(fmt.Sprintf("# default trace dst: %d\n", defaultDst))
	if len(openNames) > 0 {
		b.WriteString("# open trace instances: " + strings.Join(openNames, ",") + "\n")
	} else {
		b.WriteString("# open trace instances: (none)\n")
	}
	return b.String()
}

// IngestBootArgs replays boot/command-line queries per spec.md §4.8:
// dyndbg="<query-list>" (global) and <module>.dyndbg="<query-list>"
// (module-scoped). Failures are collected, not fatal — the caller gets
// every error it would have logged. args is the preserved command line,
// already split into "key=value" tokens (quoting already stripped).
func IngestBootArgs(r *registry.Registry, args map[string]string) []error {
	var errs []error
	for key, val := range args {
		switch {
		case key == "dyndbg":
			if _, err := Write(r, val, ""); err != nil {
				errs = append(errs, fmt.Errorf("control: boot dyndbg=%q: %w", val, err))
			}
		case strings.HasSuffix(key, ".dyndbg"):
			modname := strings.TrimSuffix(key, ".dyndbg")
			if _, err := Write(r, val, modname); err != nil {
				errs = append(errs, fmt.Errorf("control: boot %s: %w", key, err))
			}
		}
	}
	return errs
}

// IngestModuleParam processes a per-module unknown parameter at load
// time, per spec.md §4.8: p == "dyndbg" runs v (or "+p" if empty) scoped
// to modname; any other parameter name is reported as unknown.
func IngestModuleParam(r *registry.Registry, modname, p, v string) (int, error) {
	if p != "dyndbg" {
		return 0, fmt.Errorf("control: unknown module parameter %q", p)
	}
	if v == "" {
		v = "+p"
	}
	return Write(r, v, modname)
}

// VerboseLevel is the engine's own diagnostic verbosity, set from the
// boot parameter verbose=<0..4> (spec.md §6).
var VerboseLevel int

// SetVerbose parses the verbose=<0..4> boot parameter; a value outside
// [0,4] is rejected with an error and VerboseLevel is left unchanged.
func SetVerbose(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("control: bad verbose level %q: %w", s, err)
	}
	if n < 0 || n > 4 {
		return fmt.Errorf("control: verbose level %d out of range [0,4]", n)
	}
	VerboseLevel = n
	return nil
}
