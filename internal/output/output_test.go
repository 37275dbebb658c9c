// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestJSONEncodesValue(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, map[string]int{"matches": 3}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"matches": 3`) {
		t.Fatalf("unexpected JSON output: %q", buf.String())
	}
}

func TestTableWriteAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	tbl := Table{
		Header: []string{"FILE", "LINE", "FLAGS"},
		Rows: [][]string{
			{"a.c", "10", "p"},
			{"b.c", "200", "pT"},
		},
	}
	if err := tbl.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "FILE") || !strings.Contains(out, "a.c") || !strings.Contains(out, "pT") {
		t.Fatalf("table missing expected content: %q", out)
	}
}
