// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package classmap

import "testing"

func TestMapValidate(t *testing.T) {
	m := &Map{ClassNames: []string{"X", "Y", "Z"}, Base: 0, Length: 3, MapType: DisjointBits}
	if err := m.Validate(); err != nil {
		t.Fatalf("expected valid map, got %v", err)
	}

	bad := &Map{ClassNames: []string{"X"}, Base: 61, Length: 3}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for base+length > 63")
	}
}

func TestMapOverlaps(t *testing.T) {
	a := &Map{Base: 0, Length: 3}
	b := &Map{Base: 2, Length: 2}
	c := &Map{Base: 3, Length: 2}
	if !a.Overlaps(b) {
		t.Fatal("expected overlap between [0,3) and [2,4)")
	}
	if a.Overlaps(c) {
		t.Fatal("did not expect overlap between [0,3) and [3,5)")
	}
}

func TestMapClassIDAndName(t *testing.T) {
	m := &Map{ClassNames: []string{"X", "Y", "Z"}, Base: 10, Length: 3, MapType: LevelNum}
	id, ok := m.ClassID("Y")
	if !ok || id != 11 {
		t.Fatalf("ClassID(Y) = %d, %v, want 11, true", id, ok)
	}
	if _, ok := m.ClassID("W"); ok {
		t.Fatal("unknown class name should not resolve")
	}
	name, ok := m.Name(12)
	if !ok || name != "Z" {
		t.Fatalf("Name(12) = %q, %v, want Z, true", name, ok)
	}
	if _, ok := m.Name(9); ok {
		t.Fatal("id outside range should not resolve")
	}
}
