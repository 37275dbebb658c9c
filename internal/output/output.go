// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package output renders command results either as JSON (for scripted
// consumers) or as an aligned table (for a human at a terminal),
// following the --json convention every subcommand shares.
package output

import (
	"encoding/json"
	"io"
	"os"
	"text/tabwriter"
)

// JSON marshals v to w as indented JSON, one value per call.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table is a simple header+rows table rendered with tabwriter, matching
// the column-aligned style the status/config commands use.
type Table struct {
	Header []string
	Rows   [][]string
}

// Write renders t to w, tab-aligned.
func (t Table) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	if len(t.Header) > 0 {
		if _, err := tw.Write([]byte(joinTab(t.Header) + "\n")); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		if _, err := tw.Write([]byte(joinTab(row) + "\n")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func joinTab(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += "\t"
		}
		out += f
	}
	return out
}

// Render emits v as JSON to stdout if asJSON, otherwise writes t as a
// table to stdout. The current subcommands call JSON directly and do not
// use Render.
func Render(asJSON bool, v any, t Table) error {
	if asJSON {
		return JSON(os.Stdout, v)
	}
	return t.Write(os.Stdout)
}
