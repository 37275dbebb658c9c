// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes the engine's own operational counters via
// Prometheus, for a host that wants to watch query volume and the live
// enabled-site population without scraping the control-read surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kraklabs/dbgctl/pkg/registry"
)

var (
	// QueriesExecuted counts every control-surface sub-command that
	// reached the matcher, regardless of match count or outcome.
	QueriesExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dbgctl_queries_executed_total",
		Help: "Total number of control-surface queries executed.",
	})

	// SitesMatched accumulates the match count returned by every
	// executed query (spec.md's testable "match count independent of
	// actual change" property).
	SitesMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dbgctl_sites_matched_total",
		Help: "Total number of descriptor sites matched across all executed queries.",
	})

	// traceSlotsOpen reports the number of occupied trace-destination
	// slots (1..63); it is set by Sample.
	traceSlotsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dbgctl_trace_slots_open",
		Help: "Number of currently open named trace-destination slots.",
	})

	// sitesEnabled reports the number of descriptors with PRINT or
	// TRACE set; it is set by Sample.
	sitesEnabled = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dbgctl_sites_enabled",
		Help: "Number of descriptor sites currently enabled (PRINT or TRACE set).",
	})
)

func init() {
	prometheus.MustRegister(traceSlotsOpen, sitesEnabled)
}

// Sample recomputes the two gauges from the current registry state. A
// host calls this before every /metrics scrape (or on a timer); it is
// cheap enough to run synchronously under the registry lock.
func Sample(r *registry.Registry) {
	enabled := 0
	r.Lock()
	for _, t := range r.Tables() {
		for _, d := range t.Descriptors {
			if d.Flags.Enabled() {
				enabled++
			}
		}
	}
	r.Unlock()
	sitesEnabled.Set(float64(enabled))
	traceSlotsOpen.Set(float64(len(r.Trace.OpenNames())))
}

// RecordQuery updates the query/match counters after a control-surface
// Write call.
func RecordQuery(matches int) {
	QueriesExecuted.Inc()
	SitesMatched.Add(float64(matches))
}
