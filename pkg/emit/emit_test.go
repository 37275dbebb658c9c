// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package emit

import (
	"testing"

	"github.com/kraklabs/dbgctl/pkg/descriptor"
	"github.com/kraklabs/dbgctl/pkg/tracedst"
)

func TestComposePrefixEmptyWhenNoInclFlags(t *testing.T) {
	d := descriptor.NewDescriptor("m1", "f", "a.c", 10, "x", descriptor.DefaultClass)
	if p := ComposePrefix(d, "T1"); p != "" {
		t.Fatalf("prefix = %q, want empty", p)
	}
}

func TestComposePrefixFieldOrder(t *testing.T) {
	d := descriptor.NewDescriptor("m1", "do_a", "a.c", 42, "x", descriptor.DefaultClass)
	d.SetFlags(descriptor.FlagInclModname|descriptor.FlagInclFuncname|descriptor.FlagInclLineno, 0)
	got := ComposePrefix(d, "")
	want := "m1:do_a:42: "
	if got != want {
		t.Fatalf("prefix = %q, want %q", got, want)
	}
}

func TestComposePrefixIncludesTID(t *testing.T) {
	d := descriptor.NewDescriptor("m1", "do_a", "a.c", 42, "x", descriptor.DefaultClass)
	d.SetFlags(descriptor.FlagInclTID, 0)
	got := ComposePrefix(d, "42")
	if got != "42: " {
		t.Fatalf("prefix = %q, want %q", got, "42: ")
	}
}

type fakeSink struct {
	lines []string
}

func (s *fakeSink) Printf(level int, line string) {
	s.lines = append(s.lines, line)
}

type fakeEventSink struct {
	plain  []string
	device []string
}

func (e *fakeEventSink) EmitPlain(d *descriptor.Descriptor, message string) {
	e.plain = append(e.plain, message)
}

func (e *fakeEventSink) EmitDevice(d *descriptor.Descriptor, dev DeviceLabeler, message string) {
	e.device = append(e.device, dev.Label()+":"+message)
}

type fakeDevice struct{ name string }

func (f fakeDevice) Label() string { return f.name }
func (f fakeDevice) Handle() any   { return f.name }

func TestEmitRoutesPrintToPrintk(t *testing.T) {
	d := descriptor.NewDescriptor("m1", "f", "a.c", 1, "x", descriptor.DefaultClass)
	d.SetFlags(descriptor.FlagPrint|descriptor.FlagInclModname, 0)
	sink := &fakeSink{}
	r := &Router{Printk: sink}
	r.Emit(d, Plain, nil, "", "hello\n", nil)
	if len(sink.lines) != 1 || sink.lines[0] != "m1: hello\n" {
		t.Fatalf("printk lines = %#v", sink.lines)
	}
}

func TestEmitRoutesTraceToSlotZeroPlain(t *testing.T) {
	d := descriptor.NewDescriptor("m1", "f", "a.c", 1, "x", descriptor.DefaultClass)
	d.SetFlags(descriptor.FlagTrace, tracedst.DefaultSlot)
	ev := &fakeEventSink{}
	r := &Router{Event: ev}
	r.Emit(d, Plain, nil, "", "hi\n", nil)
	if len(ev.plain) != 1 || ev.plain[0] != "hi" {
		t.Fatalf("plain trace events = %#v", ev.plain)
	}
	if len(ev.device) != 0 {
		t.Fatalf("expected no device events, got %#v", ev.device)
	}
}

func TestEmitRoutesTraceToSlotZeroDevice(t *testing.T) {
	d := descriptor.NewDescriptor("m1", "f", "a.c", 1, "x", descriptor.DefaultClass)
	d.SetFlags(descriptor.FlagTrace, tracedst.DefaultSlot)
	ev := &fakeEventSink{}
	r := &Router{Event: ev}
	r.Emit(d, Device, fakeDevice{"eth0"}, "", "link up\n", nil)
	if len(ev.device) != 1 || ev.device[0] != "eth0:link up" {
		t.Fatalf("device trace events = %#v", ev.device)
	}
}

func TestEmitRoutesToNamedInstance(t *testing.T) {
	d := descriptor.NewDescriptor("m1", "f", "a.c", 1, "x", descriptor.DefaultClass)
	d.SetFlags(descriptor.FlagTrace, 3)
	sink := &fakeSink{}
	r := &Router{InstanceSink: func(idx uint8) Sink {
		if idx == 3 {
			return sink
		}
		return nil
	}}
	r.Emit(d, Plain, nil, "", "msg\n", nil)
	if len(sink.lines) != 1 || sink.lines[0] != "msg" {
		t.Fatalf("instance sink lines = %#v", sink.lines)
	}
}

func TestPrefixCacheInvalidatesOnFlagChange(t *testing.T) {
	d := descriptor.NewDescriptor("m1", "do_a", "a.c", 1, "x", descriptor.DefaultClass)
	d.SetFlags(descriptor.FlagInclModname|descriptor.FlagPrint, 0)
	cache := NewPrefixCache()
	sink := &fakeSink{}
	r := &Router{Printk: sink}

	r.Emit(d, Plain, nil, "", "one\n", cache)
	d.SetFlags(descriptor.FlagInclModname|descriptor.FlagInclFuncname|descriptor.FlagPrint, 0)
	r.Emit(d, Plain, nil, "", "two\n", cache)

	if sink.lines[0] != "m1: one\n" {
		t.Fatalf("first line = %q", sink.lines[0])
	}
	if sink.lines[1] != "m1:do_a: two\n" {
		t.Fatalf("cache was not invalidated on flag change: %q", sink.lines[1])
	}
}
