// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package demo

import (
	"testing"

	"github.com/kraklabs/dbgctl/internal/config"
	"github.com/kraklabs/dbgctl/pkg/descriptor"
	"github.com/kraklabs/dbgctl/pkg/registry"
)

func sampleConfig() *config.Config {
	return &config.Config{
		Version: "1",
		Modules: []config.ModuleSpec{
			{
				Name: "netdrv",
				ClassMaps: []config.ClassMapSpec{
					{Base: 0, ClassNames: []string{"RX", "TX", "LINK"}, MapType: "disjoint_bits"},
				},
				Sites: []config.SiteSpec{
					{Function: "rx_poll", File: "rx.c", Line: 10, Format: "rx %d", Class: "RX"},
					{Function: "tx_flush", File: "tx.c", Line: 20, Format: "tx %d", Class: "TX"},
					{Function: "probe", File: "probe.c", Line: 5, Format: "probing"},
				},
			},
			{
				Name: "netdrv_ext",
				ClassUsers: []config.ClassUserSpec{
					{FromModule: "netdrv"},
				},
				Sites: []config.SiteSpec{
					{Function: "ext_rx", File: "ext.c", Line: 1, Format: "ext rx", Class: "RX"},
				},
			},
		},
	}
}

func TestBuildAssignsClassIDsFromOwnMap(t *testing.T) {
	tables, _, err := Build(sampleConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("len(tables) = %d, want 2", len(tables))
	}
	netdrv := tables[0]
	if len(netdrv.ClassMaps) != 1 {
		t.Fatalf("expected 1 class map, got %d", len(netdrv.ClassMaps))
	}
	byFunc := map[string]*descriptor.Descriptor{}
	for _, d := range netdrv.Descriptors {
		byFunc[d.Function] = d
	}
	if byFunc["rx_poll"].ClassID != 0 {
		t.Fatalf("rx_poll class id = %d, want 0", byFunc["rx_poll"].ClassID)
	}
	if byFunc["tx_flush"].ClassID != 1 {
		t.Fatalf("tx_flush class id = %d, want 1", byFunc["tx_flush"].ClassID)
	}
	if byFunc["probe"].ClassID != descriptor.DefaultClass {
		t.Fatalf("probe class id = %d, want DefaultClass", byFunc["probe"].ClassID)
	}
}

func TestBuildResolvesClassUsersAcrossModules(t *testing.T) {
	tables, _, err := Build(sampleConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ext := tables[1]
	if len(ext.ClassUsers) != 1 {
		t.Fatalf("expected 1 class user, got %d", len(ext.ClassUsers))
	}
	if ext.Descriptors[0].ClassID != 0 {
		t.Fatalf("ext_rx class id = %d, want 0 (borrowed RX)", ext.Descriptors[0].ClassID)
	}
}

func TestBuildRejectsUnknownUsedModule(t *testing.T) {
	cfg := &config.Config{Modules: []config.ModuleSpec{
		{Name: "m2", ClassUsers: []config.ClassUserSpec{{FromModule: "nope"}}},
	}}
	if _, _, err := Build(cfg); err == nil {
		t.Fatal("expected an error for an unknown class_users source module")
	}
}

func TestBuildRejectsUnknownSiteClass(t *testing.T) {
	cfg := &config.Config{Modules: []config.ModuleSpec{
		{
			Name: "m1",
			ClassMaps: []config.ClassMapSpec{{Base: 0, ClassNames: []string{"A"}, MapType: "disjoint_bits"}},
			Sites:     []config.SiteSpec{{Function: "f", File: "a.c", Line: 1, Format: "x", Class: "B"}},
		},
	}}
	if _, _, err := Build(cfg); err == nil {
		t.Fatal("expected an error for a site referencing an unknown class")
	}
}

func TestPopulateAddsTablesToRegistry(t *testing.T) {
	r := registry.New()
	if _, err := Populate(r, sampleConfig()); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	count := 0
	r.ForEach(func(*registry.ModuleTable) { count++ })
	if count != 2 {
		t.Fatalf("table count = %d, want 2", count)
	}
}

func TestPopulateSyncsClassParamDefaults(t *testing.T) {
	cfg := sampleConfig()
	cfg.Modules[0].ClassParams = []config.ClassParamSpec{
		{Name: "netdrv_classes", MapIndex: 0, FlagSpec: "p", Default: 0b101},
	}

	r := registry.New()
	params, err := Populate(r, cfg)
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if len(params) != 1 {
		t.Fatalf("len(params) = %d, want 1", len(params))
	}
	if !params[0].Param.Map.ControllingParam {
		t.Fatal("expected class map to be marked as wanting protection")
	}

	tbl, ok := r.Lookup("netdrv")
	if !ok {
		t.Fatal("netdrv table not found")
	}
	byFunc := map[string]*descriptor.Descriptor{}
	for _, d := range tbl.Descriptors {
		byFunc[d.Function] = d
	}
	if !byFunc["rx_poll"].Flags.Enabled() {
		t.Fatal("rx_poll (class 0) should be enabled by default 0b101")
	}
	if byFunc["tx_flush"].Flags.Enabled() {
		t.Fatal("tx_flush (class 1) should not be enabled by default 0b101")
	}
}
