// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package classmap implements the named class-id space a module declares
// (DEFINE) or borrows (USE) from another module, per spec.md §4.4.
package classmap

import "fmt"

// Type distinguishes how a class parameter's state word maps onto class ids.
type Type int

const (
	// DisjointBits: each bit of the state word independently enables one class.
	DisjointBits Type = iota
	// LevelNum: the state word is a verbosity level; classes [0, level) are enabled.
	LevelNum
)

func (t Type) String() string {
	switch t {
	case DisjointBits:
		return "DISJOINT_BITS"
	case LevelNum:
		return "LEVEL_NUM"
	default:
		return "UNKNOWN"
	}
}

// Map is a named class-id space owned by one module.
type Map struct {
	OwningModule string
	ClassNames   []string
	Base         uint8
	Length       uint8
	MapType      Type

	// ControllingParam is set the moment a classparam.Parameter binds to this
	// map. Its presence is the "wants protection" policy hook of spec.md
	// §4.3: once set, class-less queries no longer affect this map's
	// sites. There is deliberately no unbind path (Open Question (b)).
	ControllingParam bool
}

// Validate checks the base+length invariant from spec.md §3.
func (m *Map) Validate() error {
	if int(m.Base)+int(m.Length) > 63 {
		return fmt.Errorf("classmap: base(%d)+length(%d) exceeds 63", m.Base, m.Length)
	}
	if int(m.Length) != len(m.ClassNames) {
		return fmt.Errorf("classmap: length(%d) does not match %d class names", m.Length, len(m.ClassNames))
	}
	return nil
}

// Overlaps reports whether m and other's [base, base+length) ranges intersect.
func (m *Map) Overlaps(other *Map) bool {
	aStart, aEnd := int(m.Base), int(m.Base)+int(m.Length)
	bStart, bEnd := int(other.Base), int(other.Base)+int(other.Length)
	return aStart < bEnd && bStart < aEnd
}

// ClassID returns the class-id for a name owned by this map, or false if
// the name isn't one of m.ClassNames.
func (m *Map) ClassID(name string) (uint8, bool) {
	for i, n := range m.ClassNames {
		if n == name {
			return m.Base + uint8(i), true
		}
	}
	return 0, false
}

// Name returns the class name for an id within this map's range, or "" if
// the id falls outside [Base, Base+Length).
func (m *Map) Name(id uint8) (string, bool) {
	if id < m.Base || id >= m.Base+m.Length {
		return "", false
	}
	return m.ClassNames[id-m.Base], true
}

// User is another module's declaration that it targets classes from a
// given map (the USE side of DEFINE/USE).
type User struct {
	UserModule string
	Map        *Map
}
