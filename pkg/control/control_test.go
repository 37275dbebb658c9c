// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package control

import (
	"strings"
	"testing"

	"github.com/kraklabs/dbgctl/pkg/descriptor"
	"github.com/kraklabs/dbgctl/pkg/registry"
)

func buildRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	d1 := descriptor.NewDescriptor("m1", "do_a", "a.c", 10, "alpha %d", descriptor.DefaultClass)
	d2 := descriptor.NewDescriptor("m1", "do_b", "a.c", 20, "beta", descriptor.DefaultClass)
	tbl := &registry.ModuleTable{
		Handle:      registry.NewModuleHandle("m1"),
		Descriptors: []*descriptor.Descriptor{d1, d2},
	}
	if err := r.Add(tbl); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return r
}

func TestWriteAppliesMultipleSubCommands(t *testing.T) {
	r := buildRegistry(t)
	n, err := Write(r, "module m1 func do_a +p\nmodule m1 func do_b +p", "")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 2 {
		t.Fatalf("matches = %d, want 2", n)
	}
}

func TestWriteContinuesPastSubCommandError(t *testing.T) {
	r := buildRegistry(t)
	n, err := Write(r, "bogus keyword +p;module m1 func do_a +p", "")
	if err == nil {
		t.Fatal("expected an error from the bogus sub-command")
	}
	if n != 1 {
		t.Fatalf("matches = %d, want 1 (the valid sub-command still applied)", n)
	}
}

func TestWriteIgnoresCommentsAndBlanks(t *testing.T) {
	r := buildRegistry(t)
	n, err := Write(r, "# just a comment\n\nmodule m1 func do_a +p", "")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 1 {
		t.Fatalf("matches = %d, want 1", n)
	}
}

func TestWriteRejectsOversizedBlock(t *testing.T) {
	r := buildRegistry(t)
	huge := strings.Repeat("a", MaxWriteSize+1)
	if _, err := Write(r, huge, ""); err == nil {
		t.Fatal("expected an error for an oversized command block")
	}
}

func TestReadRendersHeaderAndDataLines(t *testing.T) {
	r := buildRegistry(t)
	Write(r, "module m1 func do_a +p", "")
	out := Read(r)
	if !strings.HasPrefix(out, "# filename:lineno [module]function flags format\n") {
		t.Fatalf("missing header: %q", out)
	}
	if !strings.Contains(out, `a.c:10 [m1]do_a =p "alpha %d"`) {
		t.Fatalf("missing expected data line: %q", out)
	}
	if !strings.Contains(out, "# default trace dst: 0") {
		t.Fatalf("missing trailer: %q", out)
	}
	if !strings.Contains(out, "# open trace instances: (none)") {
		t.Fatalf("missing trailer: %q", out)
	}
}

func TestReadShowsOpenTraceInstance(t *testing.T) {
	r := buildRegistry(t)
	if _, err := r.Trace.Open("tbt"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	out := Read(r)
	if !strings.Contains(out, "# open trace instances: tbt") {
		t.Fatalf("missing open trace instance in trailer: %q", out)
	}
}

func TestIngestBootArgsGlobalAndModuleScoped(t *testing.T) {
	r := buildRegistry(t)
	errs := IngestBootArgs(r, map[string]string{
		"dyndbg":        "module m1 func do_a +p",
		"m1.dyndbg":     "func do_b +p",
		"unrelated.key": "ignored",
	})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	out := Read(r)
	if !strings.Contains(out, "do_a =p") || !strings.Contains(out, "do_b =p") {
		t.Fatalf("boot args did not apply: %q", out)
	}
}

func TestIngestModuleParamDyndbgDefaultsToPlusP(t *testing.T) {
	r := buildRegistry(t)
	n, err := IngestModuleParam(r, "m1", "dyndbg", "")
	if err != nil {
		t.Fatalf("IngestModuleParam: %v", err)
	}
	if n != 2 {
		t.Fatalf("matches = %d, want 2 (whole module, no query filter)", n)
	}
}

func TestIngestModuleParamUnknownNameIsError(t *testing.T) {
	r := buildRegistry(t)
	if _, err := IngestModuleParam(r, "m1", "bogus", "x"); err == nil {
		t.Fatal("expected an error for an unknown parameter name")
	}
}

func TestSetVerboseRange(t *testing.T) {
	if err := SetVerbose("2"); err != nil {
		t.Fatalf("SetVerbose: %v", err)
	}
	if VerboseLevel != 2 {
		t.Fatalf("VerboseLevel = %d, want 2", VerboseLevel)
	}
	if err := SetVerbose("9"); err == nil {
		t.Fatal("expected an error for an out-of-range verbose level")
	}
}
