// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package emit implements the per-site emission path of spec.md §4.6: a
// descriptor's INCL_* flags drive prefix composition, and TRACE/PRINT
// select among the trace-event sink, a named trace instance, and the
// plain printk channel. The fast-branch gate itself lives in
// pkg/descriptor; callers are expected to check descriptor.Gate.Load()
// before reaching this package at all.
package emit

import (
	"strings"
	"sync"

	"github.com/kraklabs/dbgctl/pkg/descriptor"
	"github.com/kraklabs/dbgctl/pkg/tracedst"
)

// maxPrefixLen bounds the composed prefix buffer per spec.md §4.6.
const maxPrefixLen = 128

// Kind distinguishes the polymorphic emission sinks named in spec.md §9's
// redesign note: the prefix and device-name composition differ per kind,
// but the dispatch logic (TRACE vs PRINT, trace_dst routing) is shared.
type Kind int

const (
	// Plain is an ordinary call site with no device association.
	Plain Kind = iota
	// Device is labeled with a generic driver/device identity.
	Device
	// NetDevice is labeled with a network-device identity.
	NetDevice
	// IBDevice is labeled with an InfiniBand-device identity.
	IBDevice
)

// DeviceLabeler supplies the driver/device identification string composed
// into the prefix for Device/NetDevice/IBDevice sites, and the device
// handle attached to a device-labeled trace event. Its concrete form is a
// host responsibility (spec.md's "per the host device API conventions");
// this is the seam a real host implements.
type DeviceLabeler interface {
	// Label renders the device identification fragment, e.g. "eth0" or
	// "pci0000:00:1f.0", with no trailing separator.
	Label() string
	// Handle returns an opaque value forwarded to a device-labeled trace
	// event as its device field.
	Handle() any
}

// Sink is where a composed line ultimately lands: printk-like channel or
// trace channel. Both the plain-printk channel and a named trace
// instance's printk channel implement this; only the signature matters to
// this package.
type Sink interface {
	Printf(level int, line string)
}

// TraceEventSink is slot 0's two-event-class fan-out (spec.md §4.6 item 3,
// §6 "Trace events"): one event class for plain sites, one for
// device-labeled sites. A trailing '\n' on the message must be trimmed by
// the caller's message text before it reaches here, per §6.
type TraceEventSink interface {
	EmitPlain(d *descriptor.Descriptor, message string)
	EmitDevice(d *descriptor.Descriptor, dev DeviceLabeler, message string)
}

// Router resolves a descriptor's trace_dst to a concrete destination: the
// slot-0 trace-event sink, or a named trace instance's printk channel.
type Router struct {
	Trace *tracedst.Table
	Event TraceEventSink

	// InstanceSink, given a trace-destination slot index in [1, 63],
	// returns the printk-like sink bound to that named instance.
	InstanceSink func(idx uint8) Sink

	// Printk is the plain printk-like channel used for PRINT, at the
	// given debug level.
	Printk Sink
}

type prefixCacheKey struct {
	d     *descriptor.Descriptor
	flags descriptor.Flags
}

// PrefixCache memoizes composed prefixes keyed by descriptor identity,
// invalidated whenever the cached flags no longer match the descriptor's
// current flags (spec.md §4.6, §5 "invalidated on any descriptor flag
// change").
type PrefixCache struct {
	mu      sync.Mutex
	entries map[*descriptor.Descriptor]prefixCacheKey
	text    map[*descriptor.Descriptor]string
}

// NewPrefixCache builds an empty cache. A nil *PrefixCache is valid and
// simply disables caching (every call recomputes).
func NewPrefixCache() *PrefixCache {
	return &PrefixCache{
		entries: make(map[*descriptor.Descriptor]prefixCacheKey),
		text:    make(map[*descriptor.Descriptor]string),
	}
}

func (c *PrefixCache) get(d *descriptor.Descriptor) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key, ok := c.entries[d]
	if !ok || key.flags != d.Flags {
		return "", false
	}
	return c.text[d], true
}

func (c *PrefixCache) put(d *descriptor.Descriptor, prefix string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[d] = prefixCacheKey{d: d, flags: d.Flags}
	c.text[d] = prefix
}

// ComposePrefix builds the prefix buffer per spec.md §4.6 item 1: fields
// in the fixed order tid, modname, funcname, sourcename, lineno, each
// followed by ':', with one trailing space if anything was written.
// tid is the caller-supplied thread/interrupt tag (the host's
// responsibility to format); sourcename is the already engine-relative
// path (pkg/matcher.trimSourceTree's counterpart at the emission side).
func ComposePrefix(d *descriptor.Descriptor, tid string) string {
	if d.Flags&descriptor.FlagsInclAny == 0 {
		return ""
	}
	var b strings.Builder
	wrote := false
	if d.Flags&descriptor.FlagInclTID != 0 && tid != "" {
		b.WriteString(tid)
		b.WriteByte(':')
		wrote = true
	}
	if d.Flags&descriptor.FlagInclModname != 0 {
		b.WriteString(d.Modname)
		b.WriteByte(':')
		wrote = true
	}
	if d.Flags&descriptor.FlagInclFuncname != 0 {
		b.WriteString(d.Function)
		b.WriteByte(':')
		wrote = true
	}
	if d.Flags&descriptor.FlagInclSourcename != 0 {
		b.WriteString(d.Filename)
		b.WriteByte(':')
		wrote = true
	}
	if d.Flags&descriptor.FlagInclLineno != 0 {
		b.WriteString(itoa(d.Lineno))
		b.WriteByte(':')
		wrote = true
	}
	if !wrote {
		return ""
	}
	b.WriteByte(' ')
	s := b.String()
	if len(s) > maxPrefixLen {
		s = s[:maxPrefixLen]
	}
	return s
}

func itoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Emit performs the full emission path of spec.md §4.6 for a call site
// that has already passed its fast-branch gate. message is the formatted
// (format + args already applied) text, with any trailing newline already
// present; Emit trims it before handing it to the trace-event sink, per
// §6.
func (r *Router) Emit(d *descriptor.Descriptor, kind Kind, dev DeviceLabeler, tid, message string, cache *PrefixCache) {
	var prefix string
	if cached, ok := cache.get(d); ok {
		prefix = cached
	} else {
		prefix = ComposePrefix(d, tid)
		if kind != Plain && dev != nil {
			prefix += dev.Label() + ": "
		}
		cache.put(d, prefix)
	}

	if d.Flags&descriptor.FlagTrace != 0 {
		r.emitTrace(d, kind, dev, message)
	}
	if d.Flags&descriptor.FlagPrint != 0 && r.Printk != nil {
		r.Printk.Printf(0, prefix+message)
	}
}

func (r *Router) emitTrace(d *descriptor.Descriptor, kind Kind, dev DeviceLabeler, message string) {
	trimmed := strings.TrimSuffix(message, "\n")
	if d.TraceDst == tracedst.DefaultSlot {
		if r.Event == nil {
			return
		}
		if kind != Plain && dev != nil {
			r.Event.EmitDevice(d, dev, trimmed)
		} else {
			r.Event.EmitPlain(d, trimmed)
		}
		return
	}
	if r.InstanceSink == nil {
		return
	}
	if sink := r.InstanceSink(d.TraceDst); sink != nil {
		sink.Printf(0, trimmed)
	}
}
