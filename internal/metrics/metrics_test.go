// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kraklabs/dbgctl/pkg/descriptor"
	"github.com/kraklabs/dbgctl/pkg/registry"
)

func TestSampleCountsEnabledSites(t *testing.T) {
	r := registry.New()
	d1 := descriptor.NewDescriptor("m1", "f1", "a.c", 1, "x", descriptor.DefaultClass)
	d1.SetFlags(descriptor.FlagPrint, 0)
	d2 := descriptor.NewDescriptor("m1", "f2", "a.c", 2, "y", descriptor.DefaultClass)
	tbl := &registry.ModuleTable{Handle: registry.NewModuleHandle("m1"), Descriptors: []*descriptor.Descriptor{d1, d2}}
	if err := r.Add(tbl); err != nil {
		t.Fatalf("Add: %v", err)
	}

	Sample(r)
	if got := testutil.ToFloat64(sitesEnabled); got != 1 {
		t.Fatalf("sitesEnabled = %v, want 1", got)
	}
}

func TestRecordQueryIncrementsCounters(t *testing.T) {
	before := testutil.ToFloat64(QueriesExecuted)
	RecordQuery(3)
	if after := testutil.ToFloat64(QueriesExecuted); after != before+1 {
		t.Fatalf("QueriesExecuted = %v, want %v", after, before+1)
	}
}
