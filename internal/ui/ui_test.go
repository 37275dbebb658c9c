// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"testing"

	"github.com/fatih/color"
)

func TestInitColorsNoColor(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()
	InitColors(true)
	if !color.NoColor {
		t.Fatal("InitColors(true) should disable color")
	}
}

func TestCountTextZeroVsNonZero(t *testing.T) {
	color.NoColor = true
	if got := CountText(0); got != "0" {
		t.Fatalf("CountText(0) = %q, want %q", got, "0")
	}
	if got := CountText(5); got != "5" {
		t.Fatalf("CountText(5) = %q, want %q", got, "5")
	}
}

func TestLabelAndDimTextPassThroughWhenNoColor(t *testing.T) {
	color.NoColor = true
	if got := Label("x"); got != "x" {
		t.Fatalf("Label(%q) = %q", "x", got)
	}
	if got := DimText("y"); got != "y" {
		t.Fatalf("DimText(%q) = %q", "y", got)
	}
}
