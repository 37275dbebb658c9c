// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package descriptor

import "testing"

func TestFlagsString(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
		want  string
	}{
		{"none", FlagsNone, "-"},
		{"print only", FlagPrint, "p"},
		{"print and trace canonical order", FlagTrace | FlagPrint, "pT"},
		{"all incl bits", FlagsInclAny, "mfslt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.flags.String(); got != tt.want {
				t.Errorf("Flags(%d).String() = %q, want %q", tt.flags, got, tt.want)
			}
		})
	}
}

func TestFlagsEnabled(t *testing.T) {
	if FlagsNone.Enabled() {
		t.Fatal("no bits set should not be enabled")
	}
	if !FlagPrint.Enabled() {
		t.Fatal("PRINT alone should be enabled")
	}
	if !FlagTrace.Enabled() {
		t.Fatal("TRACE alone should be enabled")
	}
	if !(FlagPrint | FlagInclLineno).Enabled() {
		t.Fatal("PRINT plus an INCL bit should still be enabled")
	}
}

func TestDescriptorSetFlagsTogglesGateOnlyOnTransition(t *testing.T) {
	d := NewDescriptor("m1", "do_a", "a.c", 10, "alpha %d", DefaultClass)
	if d.Gate.Load() {
		t.Fatal("new descriptor with no flags should start disabled")
	}

	if changed := d.SetFlags(FlagPrint, 0); !changed {
		t.Fatal("expected change when enabling PRINT")
	}
	if !d.Gate.Load() {
		t.Fatal("gate should flip to enabled when PRINT is set")
	}

	// Adding a non-enabling bit must not re-toggle the gate (it's already true).
	if changed := d.SetFlags(FlagPrint|FlagInclLineno, 0); !changed {
		t.Fatal("expected change when adding INCL_LINENO")
	}
	if !d.Gate.Load() {
		t.Fatal("gate should remain enabled")
	}

	if changed := d.SetFlags(FlagsNone, 0); !changed {
		t.Fatal("expected change when clearing all flags")
	}
	if d.Gate.Load() {
		t.Fatal("gate should flip to disabled when all flags are cleared")
	}
}

func TestDescriptorSetFlagsNoopReturnsFalse(t *testing.T) {
	d := NewDescriptor("m1", "do_a", "a.c", 10, "alpha %d", DefaultClass)
	d.SetFlags(FlagPrint, 5)
	if changed := d.SetFlags(FlagPrint, 5); changed {
		t.Fatal("re-applying identical (flags, dst) should report no change")
	}
}
