// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui centralizes the CLI's colorized output conventions so every
// command renders headers, labels, and status lines the same way.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Color objects used throughout command output. Mutated by InitColors.
var (
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Red    = color.New(color.FgRed)
	Dim    = color.New(color.Faint)
	Bold   = color.New(color.Bold)
)

// InitColors configures whether fatih/color emits escape sequences at
// all, honoring an explicit --no-color flag, the NO_COLOR convention, and
// whether stdout is actually a terminal.
func InitColors(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

// Header prints a bold section title.
func Header(title string) {
	Bold.Println(title)
}

// SubHeader prints a sub-section title as a plain, unindented line.
func SubHeader(title string) {
	fmt.Println(title)
}

// Label renders a field label in bold, for "Label: value" lines.
func Label(s string) string {
	return Bold.Sprint(s)
}

// DimText renders s faint, for secondary/detail text.
func DimText(s string) string {
	return Dim.Sprint(s)
}

// CountText renders an integer count, yellow if zero (drawing attention
// to an empty result) and plain otherwise.
func CountText(n int) string {
	if n == 0 {
		return Yellow.Sprint("0")
	}
	return fmt.Sprintf("%d", n)
}

// Info prints an informational line.
func Info(s string) {
	fmt.Println(s)
}

// Successf prints a green success line.
func Successf(format string, args ...any) {
	Green.Printf(format+"\n", args...)
}

// Warningf prints a yellow warning line to stderr.
func Warningf(format string, args ...any) {
	Yellow.Fprintf(os.Stderr, format+"\n", args...)
}

// Errorf prints a red error line to stderr.
func Errorf(format string, args ...any) {
	Red.Fprintf(os.Stderr, format+"\n", args...)
}
