package matcher

import (
	"sort"
	"strings"

	"github.com/turtacn/FloraTraits/internal/intelligence/annotation"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

// BuildFunc turns a match into a trait. Returning false rejects the
// candidate; rejection is ordinary control flow, never an error.
type BuildFunc func(m *Match) (traits.Trait, bool)

// Rule is a labeled set of patterns sharing a decoder and a builder.
type Rule struct {
	Label    string
	Group    string
	Decoder  Decoder
	Patterns []string
	Build    BuildFunc
	// Reject rules claim their tokens for the pass and produce nothing.
	Reject bool

	compiled [][]element
}

// Match is one candidate: a rule, the token range it covers and the units
// inside that range.
type Match struct {
	Doc     *annotation.Doc
	Rule    *Rule
	Start   int
	End     int
	Units   []*Unit
	Pattern int

	order int
}

// Label is the rule label.
func (m *Match) Label() string { return m.Rule.Label }

// Len is the number of tokens covered.
func (m *Match) Len() int { return m.End - m.Start }

// Tokens returns the covered tokens.
func (m *Match) Tokens() []*annotation.Token { return m.Doc.Tokens[m.Start:m.End] }

// Text returns the covered source text.
func (m *Match) Text() string { return m.Doc.TextOf(m.Start, m.End) }

// Matcher holds compiled rules in priority order.
type Matcher struct {
	rules []*Rule
}

// Compile validates and compiles rules. Earlier rules win ties.
func Compile(rules ...*Rule) (*Matcher, error) {
	for _, r := range rules {
		if r.Label == "" {
			return nil, errors.New(errors.ErrCodePipelineBadPattern, "rule without a label")
		}
		if r.Build == nil && !r.Reject {
			return nil, errors.Newf(errors.ErrCodePipelineMissingConfig, "rule %q has no builder", r.Label)
		}
		r.compiled = r.compiled[:0]
		for _, p := range r.Patterns {
			elems, err := compilePattern(p, r.Decoder)
			if err != nil {
				if ae, ok := err.(*errors.AppError); ok {
					return nil, ae.WithDetailf("rule %s: %s", r.Label, p)
				}
				return nil, err
			}
			r.compiled = append(r.compiled, elems)
		}
	}
	return &Matcher{rules: rules}, nil
}

// Rules returns the compiled rules.
func (m *Matcher) Rules() []*Rule { return m.rules }

// Find returns the units of doc and every candidate match, longest first,
// then by start, then by rule and pattern order. For each rule, pattern and
// start only the longest reachable end is kept.
func (m *Matcher) Find(doc *annotation.Doc) ([]*Unit, []*Match) {
	units := Units(doc)
	var out []*Match
	order := 0
	for _, r := range m.rules {
		for pi, elems := range r.compiled {
			memo := map[[2]int][]int{}
			for s := range units {
				ends := reach(elems, units, 0, s, memo)
				best := -1
				for _, e := range ends {
					if e > best {
						best = e
					}
				}
				if best <= s {
					continue
				}
				out = append(out, &Match{
					Doc:     doc,
					Rule:    r,
					Start:   units[s].Start,
					End:     units[best-1].End,
					Units:   units[s:best],
					Pattern: pi,
					order:   order,
				})
			}
			order++
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Len() != b.Len() {
			return a.Len() > b.Len()
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.order < b.order
	})
	return units, out
}

// reach returns every unit index at which elems[ei:] can finish when
// started at unit ui.
func reach(elems []element, units []*Unit, ei, ui int, memo map[[2]int][]int) []int {
	if ei == len(elems) {
		return []int{ui}
	}
	key := [2]int{ei, ui}
	if r, ok := memo[key]; ok {
		return r
	}

	el := elems[ei]
	seen := map[int]bool{}
	var ends []int
	pos := ui
	for k := 0; ; k++ {
		if k >= el.min {
			for _, e := range reach(elems, units, ei+1, pos, memo) {
				if !seen[e] {
					seen[e] = true
					ends = append(ends, e)
				}
			}
		}
		if el.max != unbounded && k == el.max {
			break
		}
		if pos >= len(units) || !el.pred.Match(units[pos]) {
			break
		}
		pos++
	}

	memo[key] = ends
	return ends
}

// UnitsIn returns the units lying inside [start, end).
func UnitsIn(units []*Unit, start, end int) []*Unit {
	var out []*Unit
	for _, u := range units {
		if u.Start >= start && u.End <= end {
			out = append(out, u)
		}
	}
	return out
}

// Describe renders a match for debug logs.
func (m *Match) Describe() string {
	words := make([]string, len(m.Units))
	for i, u := range m.Units {
		words[i] = u.Text
	}
	return m.Rule.Label + "[" + strings.Join(words, "|") + "]"
}
