// Package watchlist implements the Watchlist Matcher (spec §4.5): an
// immutable set of target patterns swapped atomically on update, evaluated
// against every tracker update that touched identification or position.
package watchlist

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
)

// Kind enumerates the watchlist entry matching strategies (spec §3
// Watchlist Entry).
type Kind int

const (
	ICAOExact Kind = iota
	ICAOPrefix
	CallsignExact
	CallsignRegex
)

// Entry is one watchlist target pattern.
type Entry struct {
	Kind  Kind
	Value string
	Label string

	compiledRegex *regexp.Regexp
}

// Compile validates an Entry and, for CallsignRegex entries, precompiles
// the pattern so matching is not paying regexp-parse cost per aircraft.
func Compile(e Entry) (Entry, error) {
	switch e.Kind {
	case ICAOExact, ICAOPrefix:
		e.Value = strings.ToUpper(strings.TrimSpace(e.Value))
		if e.Value == "" {
			return Entry{}, fmt.Errorf("watchlist: empty icao value for entry %q", e.Label)
		}
	case CallsignExact:
		e.Value = strings.ToUpper(strings.TrimSpace(e.Value))
	case CallsignRegex:
		re, err := regexp.Compile(e.Value)
		if err != nil {
			return Entry{}, fmt.Errorf("watchlist: invalid callsign_regex %q: %w", e.Value, err)
		}
		e.compiledRegex = re
	default:
		return Entry{}, fmt.Errorf("watchlist: unknown entry kind %d", e.Kind)
	}
	return e, nil
}

// Subject is the minimal view of a tracked aircraft the matcher needs;
// internal/aircraft.Aircraft satisfies this via an adapter so the matcher
// has no import-cycle dependency on the tracker package.
type Subject struct {
	ICAOHex  string
	Callsign string
}

// AlertEvent is the ephemeral match result handed to the Alert Dispatcher
// (spec §3 AlertEvent).
type AlertEvent struct {
	Subject    Subject
	MatchKind  Kind
	MatchLabel string
	EventTime  time.Time
}

// Matcher holds the active watchlist, swapped atomically on SetEntries so
// evaluation never observes a partially-updated list (spec §5: "the
// watchlist is an immutable value swapped atomically on update").
type Matcher struct {
	entries atomic.Pointer[[]Entry]
}

// New returns an empty Matcher.
func New() *Matcher {
	m := &Matcher{}
	empty := []Entry{}
	m.entries.Store(&empty)
	return m
}

// SetEntries atomically replaces the active watchlist. Callers should pass
// already-Compile()d entries.
func (m *Matcher) SetEntries(entries []Entry) {
	cp := append([]Entry(nil), entries...)
	m.entries.Store(&cp)
}

// Entries returns the currently active watchlist (read-only snapshot).
func (m *Matcher) Entries() []Entry {
	return *m.entries.Load()
}

// IsWatchlisted reports whether subject matches any active entry, without
// constructing an AlertEvent. Used to keep Aircraft.is_watchlist consistent
// (spec §4.5).
func (m *Matcher) IsWatchlisted(subject Subject) bool {
	ok, _, _ := m.match(subject)
	return ok
}

// Match evaluates subject against the active watchlist and returns an
// AlertEvent if any entry matches. Evaluation is O(entries); the spec notes
// this is adequate since watchlists are typically far under 1000 entries.
func (m *Matcher) Match(subject Subject, at time.Time) (AlertEvent, bool) {
	ok, kind, label := m.match(subject)
	if !ok {
		return AlertEvent{}, false
	}
	return AlertEvent{Subject: subject, MatchKind: kind, MatchLabel: label, EventTime: at}, true
}

func (m *Matcher) match(subject Subject) (ok bool, kind Kind, label string) {
	icao := strings.ToUpper(subject.ICAOHex)
	callsign := strings.ToUpper(strings.TrimSpace(subject.Callsign))

	for _, e := range m.Entries() {
		switch e.Kind {
		case ICAOExact:
			if icao == e.Value {
				return true, e.Kind, e.Label
			}
		case ICAOPrefix:
			if strings.HasPrefix(icao, e.Value) {
				return true, e.Kind, e.Label
			}
		case CallsignExact:
			if callsign != "" && callsign == e.Value {
				return true, e.Kind, e.Label
			}
		case CallsignRegex:
			if callsign != "" && e.compiledRegex != nil && e.compiledRegex.MatchString(callsign) {
				return true, e.Kind, e.Label
			}
		}
	}
	return false, 0, ""
}
