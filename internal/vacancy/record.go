// Package vacancy defines the vacancy record produced by the extractor and
// consumed by the persistence sinks.
package vacancy

import (
	"fmt"
	"strings"
)

// Level is a coarse seniority classification inferred from a vacancy title.
type Level uint8

// Canonical levels in display order.
const (
	Junior Level = 1 << iota
	Middle
	Senior
)

// Unspecified is the rendering of an empty LevelSet.
const Unspecified = "unspecified"

var levelOrder = []Level{Junior, Middle, Senior}

// Levels returns the canonical level enumeration in display order.
func Levels() []Level {
	return append([]Level(nil), levelOrder...)
}

func (l Level) String() string {
	switch l {
	case Junior:
		return "Junior"
	case Middle:
		return "Middle"
	case Senior:
		return "Senior"
	default:
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
}

// LevelSet holds zero or more levels. The zero value is the empty set.
type LevelSet uint8

// NewLevelSet builds a set from the given levels.
func NewLevelSet(levels ...Level) LevelSet {
	var s LevelSet
	for _, l := range levels {
		s = s.With(l)
	}
	return s
}

// With returns a copy of the set that also contains l.
func (s LevelSet) With(l Level) LevelSet {
	return s | LevelSet(l)
}

// Has reports whether l is in the set.
func (s LevelSet) Has(l Level) bool {
	return s&LevelSet(l) != 0
}

// Empty reports whether no level matched.
func (s LevelSet) Empty() bool {
	return s == 0
}

// Members lists the levels of the set in canonical order.
func (s LevelSet) Members() []Level {
	out := make([]Level, 0, len(levelOrder))
	for _, l := range levelOrder {
		if s.Has(l) {
			out = append(out, l)
		}
	}
	return out
}

// String joins the members with ", " or returns Unspecified for the empty set.
func (s LevelSet) String() string {
	members := s.Members()
	if len(members) == 0 {
		return Unspecified
	}
	names := make([]string, len(members))
	for i, l := range members {
		names[i] = l.String()
	}
	return strings.Join(names, ", ")
}

// ParseLevelSet is the inverse of LevelSet.String.
func ParseLevelSet(raw string) (LevelSet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == Unspecified {
		return 0, nil
	}
	var s LevelSet
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		found := false
		for _, l := range levelOrder {
			if l.String() == name {
				s = s.With(l)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown level %q", name)
		}
	}
	return s, nil
}

// Record is one parsed vacancy. Location, SalaryMin and SalaryMax are nil when
// the page does not provide them.
type Record struct {
	ID        int
	URL       string
	Title     string
	Levels    LevelSet
	Employer  string
	Location  *string
	Remote    bool
	Hybrid    bool
	SalaryMin *int
	SalaryMax *int
}

// New returns a record carrying only its identity.
func New(id int, url string) *Record {
	return &Record{ID: id, URL: url}
}
