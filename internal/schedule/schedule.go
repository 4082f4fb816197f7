package schedule

import "fmt"

// Entry is a named daily event.
type Entry struct {
	Name string
	Expr Expr
}

// Definition is the unparsed form of an entry, as found in config.
type Definition struct {
	Name string
	At   string
}

// Schedule is an ordered set of entries.
type Schedule struct {
	entries []Entry
}

// New creates a schedule. Names must be unique and non-empty.
func New(entries []Entry) (*Schedule, error) {
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("schedule entry %q has no name", e.Expr.Raw)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("duplicate schedule entry %q", e.Name)
		}
		seen[e.Name] = true
	}
	return &Schedule{entries: append([]Entry(nil), entries...)}, nil
}

// Parse builds a schedule from definitions.
func Parse(defs []Definition) (*Schedule, error) {
	entries := make([]Entry, 0, len(defs))
	for _, d := range defs {
		expr, err := ParseExpr(d.At)
		if err != nil {
			return nil, fmt.Errorf("schedule entry %q: %w", d.Name, err)
		}
		entries = append(entries, Entry{Name: d.Name, Expr: expr})
	}
	return New(entries)
}

// Entries returns a copy of the entries in definition order.
func (s *Schedule) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

// Len returns the number of entries.
func (s *Schedule) Len() int {
	return len(s.entries)
}

// Due returns the entries whose instant fell inside the most recent trigger
// window. Call it only after DoTriggers returned true.
func (s *Schedule) Due(c Triggerer) []Entry {
	var due []Entry
	for _, e := range s.entries {
		if e.Expr.Fired(c) {
			due = append(due, e)
		}
	}
	return due
}
