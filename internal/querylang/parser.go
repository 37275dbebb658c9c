// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package querylang

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kraklabs/dbgctl/pkg/descriptor"
)

// Query is the parsed predicate half of a control command (spec.md §4.2).
type Query struct {
	Module   string
	Function string
	Filename string
	Format   string
	Anchored bool // leading '^' in the format value

	HasClass bool
	Class    string

	HasFirstLine bool
	FirstLineno  uint32
	HasLastLine  bool
	LastLineno   uint32
}

// FlagDelta is the parsed flag-spec half: the mask/flags pair applied as
// `(D.flags & Mask) | Flags`, plus any trace-destination directive.
type FlagDelta struct {
	Mask  descriptor.Flags
	Flags descriptor.Flags

	// SawT is true if the bare 'T' flag character appeared.
	SawT bool
	// TraceName/TraceNameSet capture an explicit ":name" directive,
	// independent of whether 'T' itself appeared (spec.md §4.2).
	TraceName    string
	TraceNameSet bool
}

// TraceCommand is the parsed form of `open <name>` / `close <name>`.
type TraceCommand struct {
	Op   string // "open" or "close"
	Name string
}

// Parsed is the result of parsing one sub-command: exactly one of
// (Query, Delta) or TraceCmd is populated.
type Parsed struct {
	Query    *Query
	Delta    *FlagDelta
	TraceCmd *TraceCommand
}

// flagCharBits maps each flag-spec character to its descriptor.Flags bit.
var flagCharBits = map[byte]descriptor.Flags{
	'p': descriptor.FlagPrint,
	'm': descriptor.FlagInclModname,
	'f': descriptor.FlagInclFuncname,
	's': descriptor.FlagInclSourcename,
	'l': descriptor.FlagInclLineno,
	't': descriptor.FlagInclTID,
	'T': descriptor.FlagTrace,
}

// ParseCommand parses one sub-command (already split out of a larger
// command block by SplitCommands) scoped to modname (may be ""). modname,
// when non-empty and the query itself doesn't name a module, is used as
// the implicit module scope — mirroring `<module>.dyndbg=<query>` boot
// parameters (spec.md §4.2, §4.8).
//
// A sub-command that tokenizes to zero words — a comment-only line, or one
// that's blank after a comment is stripped — is not an error: it returns a
// nil *Parsed, nil error, per spec.md §4.7 ("Comments (#...) and blank
// sub-commands are ignored").
func ParseCommand(sub string, modname string) (*Parsed, error) {
	words, err := Tokenize(sub)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, nil
	}

	if (words[0] == "open" || words[0] == "close") && len(words) == 2 {
		return &Parsed{TraceCmd: &TraceCommand{Op: words[0], Name: words[1]}}, nil
	}

	// The last word is always the flag-spec; everything before it must be
	// an even number of (key, value) pairs (spec.md §4.2).
	flagWord := words[len(words)-1]
	pairWords := words[:len(words)-1]
	if len(pairWords)%2 != 0 {
		return nil, fmt.Errorf("querylang: expecting pairs of match-spec <value> followed by a flag-spec, got %d words", len(words))
	}

	q, err := parsePairs(pairWords, modname)
	if err != nil {
		return nil, err
	}

	delta, err := parseFlagSpec(flagWord)
	if err != nil {
		return nil, err
	}

	return &Parsed{Query: q, Delta: delta}, nil
}

func parsePairs(words []string, modname string) (*Query, error) {
	if len(words)%2 != 0 {
		return nil, fmt.Errorf("querylang: expecting pairs of match-spec <value>, got %d words", len(words))
	}

	q := &Query{}
	seen := map[string]bool{}

	for i := 0; i+1 < len(words); i += 2 {
		key := words[i]
		val := words[i+1]
		if seen[key] {
			return nil, fmt.Errorf("querylang: key %q specified more than once", key)
		}
		seen[key] = true

		switch key {
		case "func":
			q.Function = val
		case "file":
			q.Filename = val
			if idx := strings.IndexByte(val, ':'); idx >= 0 {
				q.Filename = val[:idx]
				tail := val[idx+1:]
				if tail != "" && (isAlpha(tail[0]) || tail[0] == '*' || tail[0] == '?') {
					if seen["func"] {
						return nil, fmt.Errorf("querylang: func specified more than once")
					}
					seen["func"] = true
					q.Function = tail
				} else {
					if err := parseLineRange(q, tail); err != nil {
						return nil, err
					}
				}
			}
		case "module":
			q.Module = val
		case "format":
			unescaped := unescapeFormat(val)
			if strings.HasPrefix(unescaped, "^") {
				q.Anchored = true
				unescaped = unescaped[1:]
			}
			q.Format = unescaped
		case "line":
			if err := parseLineRange(q, val); err != nil {
				return nil, err
			}
		case "class":
			q.HasClass = true
			q.Class = val
		default:
			return nil, fmt.Errorf("querylang: unknown keyword %q", key)
		}
	}

	if q.Module == "" && modname != "" {
		q.Module = modname
	}
	return q, nil
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func parseLineRange(q *Query, spec string) error {
	if q.HasFirstLine || q.HasLastLine {
		return fmt.Errorf("querylang: line used more than once")
	}
	first := spec
	last := ""
	hasRange := false
	if idx := strings.IndexByte(spec, '-'); idx >= 0 {
		first = spec[:idx]
		last = spec[idx+1:]
		hasRange = true
	}

	firstVal, err := parseLineno(first)
	if err != nil {
		return err
	}
	q.HasFirstLine = true
	q.FirstLineno = firstVal

	if hasRange {
		lastVal, err := parseLineno(last)
		if err != nil {
			return err
		}
		if lastVal == 0 {
			lastVal = ^uint32(0)
		}
		if lastVal < firstVal {
			return fmt.Errorf("querylang: last-line:%d < first-line:%d", lastVal, firstVal)
		}
		q.HasLastLine = true
		q.LastLineno = lastVal
	} else {
		q.HasLastLine = true
		q.LastLineno = firstVal
	}
	return nil
}

func parseLineno(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("querylang: bad line number %q: %w", s, err)
	}
	return uint32(v), nil
}

// unescapeFormat applies space, octal, and common C-escape sequences, per
// spec.md §4.2's "first string-unescaped" rule for the format value.
func unescapeFormat(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		next := s[i+1]
		switch next {
		case 'n':
			b.WriteByte('\n')
			i++
		case 't':
			b.WriteByte('\t')
			i++
		case 'r':
			b.WriteByte('\r')
			i++
		case '\\':
			b.WriteByte('\\')
			i++
		case ' ':
			b.WriteByte(' ')
			i++
		default:
			if next >= '0' && next <= '7' {
				j := i + 1
				val := 0
				for j < len(s) && j < i+4 && s[j] >= '0' && s[j] <= '7' {
					val = val*8 + int(s[j]-'0')
					j++
				}
				b.WriteByte(byte(val))
				i = j - 1
			} else {
				b.WriteByte(s[i])
			}
		}
	}
	return b.String()
}

func parseFlagSpec(s string) (*FlagDelta, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("querylang: empty flag-spec")
	}
	op := s[0]
	if op != '+' && op != '-' && op != '=' {
		return nil, fmt.Errorf("querylang: bad flag-op %q, must start with +, -, or =", s[:1])
	}

	var setFlags descriptor.Flags
	var sawT bool
	var traceName string
	var traceNameSet bool

	i := 1
	for i < len(s) {
		c := s[i]
		if c == '_' {
			i++
			continue
		}
		if c == ':' {
			j := i + 1
			for j < len(s) && s[j] != ':' && !isFlagChar(s[j]) {
				j++
			}
			// ':' consumes the rest of the spec as a trace-instance name,
			// since names are `[A-Za-z0-9_]+` and never overlap with the
			// flag-char alphabet in a way that matters here.
			j = len(s)
			traceName = s[i+1 : j]
			traceNameSet = true
			i = j
			continue
		}
		bit, ok := flagCharBits[c]
		if !ok {
			return nil, fmt.Errorf("querylang: unknown flag character %q", string(c))
		}
		setFlags |= bit
		if c == 'T' {
			sawT = true
		}
		i++
	}

	delta := &FlagDelta{SawT: sawT, TraceName: traceName, TraceNameSet: traceNameSet}
	switch op {
	case '=':
		delta.Mask = descriptor.FlagsNone
		delta.Flags = setFlags
	case '+':
		delta.Mask = ^descriptor.Flags(0)
		delta.Flags = setFlags
	case '-':
		delta.Mask = ^setFlags
		delta.Flags = descriptor.FlagsNone
	}
	return delta, nil
}

func isFlagChar(b byte) bool {
	_, ok := flagCharBits[b]
	return ok || b == '_'
}
