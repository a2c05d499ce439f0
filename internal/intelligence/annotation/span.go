package annotation

import "github.com/turtacn/FloraTraits/internal/intelligence/traits"

// Span is a labeled half-open token range [Start, End). Term spans come
// straight from the gazetteer; everything else is built by a pass and owns
// its trait. Children are the spans a pass absorbed or kept inside this one.
type Span struct {
	Start int
	End   int
	Label string
	Group string
	Term  bool

	Children []*Span
	Trait    traits.Trait
	Deleted  bool
}

// Len is the number of tokens the span covers.
func (s *Span) Len() int { return s.End - s.Start }

// Overlaps reports whether the span shares at least one token with [start, end).
func (s *Span) Overlaps(start, end int) bool {
	return s.Start < end && start < s.End
}

// Contains reports whether [start, end) lies entirely inside the span.
func (s *Span) Contains(start, end int) bool {
	return s.Start <= start && end <= s.End
}

// Inside reports whether the span lies entirely inside [start, end).
func (s *Span) Inside(start, end int) bool {
	return start <= s.Start && s.End <= end
}

// Adjacent reports whether the span touches [start, end) without overlapping.
func (s *Span) Adjacent(start, end int) bool {
	return s.End == start || end == s.Start
}

// In reports whether the span's label or group is one of names.
func (s *Span) In(names []string) bool {
	for _, n := range names {
		if n == s.Label || (s.Group != "" && n == s.Group) {
			return true
		}
	}
	return false
}
