package pipeline

import (
	"math"
	"sort"
	"strings"

	"github.com/turtacn/FloraTraits/internal/intelligence/annotation"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

// Token weights for the distance between a parent and a child.
var (
	ForwardWeights = map[string]int{",": 3, ";": 7, ".": 7, "with": 10, "of": 7}
	ReverseWeights = map[string]int{",": 6, ";": 14, ".": 14, "with": 20, "of": 14}
)

// LinkPass attaches child traits to the nearest parent trait in the same
// sentence and copies the parent's structural context into the child.
//
// Distance is the summed weight of the tokens strictly between the two
// spans; unlisted tokens weigh 1. Reverse applies when the child comes
// first. Pairs separated by a blocker token are never linked. With Differ
// fields a parent refuses a second child whose differ values repeat;
// otherwise MaxLinks, when positive, caps the children per label.
type LinkPass struct {
	name     string
	Parents  []string
	Children []string
	Weights  map[string]int
	Reverse  map[string]int
	MaxLinks int
	Differ   []string
	Blockers []string
}

// Name implements Pass.
func (p *LinkPass) Name() string { return p.name }

func (p *LinkPass) produces() []string { return nil }

func (p *LinkPass) references() []string {
	return append(append([]string{}, p.Parents...), p.Children...)
}

type linkPair struct {
	parent, child *annotation.Span
	dist          int
}

// Run implements Pass.
func (p *LinkPass) Run(doc *annotation.Doc) {
	var parents, children []*annotation.Span
	for _, s := range doc.Spans() {
		if s.Trait == nil || s.Trait.Links() == nil {
			continue
		}
		if s.In(p.Parents) {
			parents = append(parents, s)
		}
		if s.In(p.Children) {
			children = append(children, s)
		}
	}

	// Each child picks its nearest parent once. A full parent refuses the
	// link and the child stays unlinked; it never falls back to a farther one.
	var picks []linkPair
	for _, c := range children {
		best := linkPair{child: c, dist: math.MaxInt}
		for _, par := range parents {
			if par == c || doc.Sentence(par.Start) != doc.Sentence(c.Start) {
				continue
			}
			d, ok := p.distance(doc, par, c)
			if !ok {
				continue
			}
			if d < best.dist || (d == best.dist && par.Start < best.parent.Start) {
				best.parent, best.dist = par, d
			}
		}
		if best.parent != nil {
			picks = append(picks, best)
		}
	}
	sort.SliceStable(picks, func(i, j int) bool {
		a, b := picks[i], picks[j]
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		return a.child.Start < b.child.Start
	})

	counts := map[*annotation.Span]map[string]int{}
	combos := map[*annotation.Span]map[string]bool{}

	for _, pr := range picks {
		if len(p.Differ) > 0 {
			key := pr.child.Label + "|" + p.differKey(pr.child.Trait)
			if combos[pr.parent][key] {
				continue
			}
			if combos[pr.parent] == nil {
				combos[pr.parent] = map[string]bool{}
			}
			combos[pr.parent][key] = true
		} else if p.MaxLinks > 0 {
			if counts[pr.parent][pr.child.Label] >= p.MaxLinks {
				continue
			}
			if counts[pr.parent] == nil {
				counts[pr.parent] = map[string]int{}
			}
			counts[pr.parent][pr.child.Label]++
		}
		p.attach(pr)
	}
}

func (p *LinkPass) differKey(t traits.Trait) string {
	vals := make([]string, len(p.Differ))
	for i, f := range p.Differ {
		vals[i] = traits.DifferValue(t, f)
	}
	return strings.Join(vals, "|")
}

func (p *LinkPass) attach(pr linkPair) {
	child := pr.child.Trait.Links()
	parent := pr.parent.Trait.Links()
	child.Inherit(parent)

	switch {
	case pr.parent.In([]string{"part", "multiple_parts"}):
		if child.PartDist == traits.Unset {
			child.PartDist = pr.dist
		}
	case pr.parent.In([]string{"subpart"}):
		if child.SubpartDist == traits.Unset {
			child.SubpartDist = pr.dist
		}
	}
}

// distance sums token weights between the spans. Overlapping spans and
// blocked pairs report false.
func (p *LinkPass) distance(doc *annotation.Doc, parent, child *annotation.Span) (int, bool) {
	weights := p.Weights
	var from, to int
	switch {
	case parent.End <= child.Start:
		from, to = parent.End, child.Start
	case child.End <= parent.Start:
		from, to = child.End, parent.Start
		if p.Reverse != nil {
			weights = p.Reverse
		}
	default:
		return math.MaxInt, false
	}

	dist := 0
	for _, t := range doc.Tokens[from:to] {
		for _, b := range p.Blockers {
			if t.Text == b {
				return math.MaxInt, false
			}
		}
		if w, ok := weights[t.Lower]; ok {
			dist += w
		} else {
			dist++
		}
	}
	return dist, true
}
