// Package pipeline runs the ordered sequence of passes that turns a
// tokenized document into finalized traits: term tagging, trait passes with
// their overwrite/keep/merge span algebra, cleanup, linking and filtering.
package pipeline

import (
	"github.com/turtacn/FloraTraits/internal/intelligence/annotation"
	"github.com/turtacn/FloraTraits/internal/intelligence/gazetteer"
	"github.com/turtacn/FloraTraits/internal/intelligence/matcher"
)

// Pass is one stage of the pipeline. Passes mutate the document in place.
type Pass interface {
	Name() string
	Run(doc *annotation.Doc)
}

// termPass tags gazetteer phrases.
type termPass struct {
	gaz *gazetteer.Gazetteer
}

func (p *termPass) Name() string            { return "terms" }
func (p *termPass) Run(doc *annotation.Doc) { p.gaz.Tag(doc) }
func (p *termPass) produces() []string      { return p.gaz.Labels() }
func (p *termPass) references() []string    { return nil }

// TraitPass matches its rules and resolves each candidate against the spans
// already in the document.
//
// Overwrite lists labels a candidate may destroy, Keep lists labels that
// survive inside a candidate as children, and Merge lists labels that are
// unioned with an overlapping or adjacent candidate of the same group. A
// span lying wholly inside the candidate is kept when its label is in both
// Keep and Overwrite. Term spans lying inside a candidate are always
// absorbed as children.
type TraitPass struct {
	name      string
	matcher   *matcher.Matcher
	Overwrite []string
	Keep      []string
	Merge     []string
}

// NewTraitPass compiles rules into a pass.
func NewTraitPass(name string, rules []*matcher.Rule, overwrite, keep, merge []string) (*TraitPass, error) {
	m, err := matcher.Compile(rules...)
	if err != nil {
		return nil, err
	}
	return &TraitPass{name: name, matcher: m, Overwrite: overwrite, Keep: keep, Merge: merge}, nil
}

// Name implements Pass.
func (p *TraitPass) Name() string { return p.name }

func (p *TraitPass) produces() []string {
	var out []string
	for _, r := range p.matcher.Rules() {
		out = append(out, r.Label)
		if r.Group != "" {
			out = append(out, r.Group)
		}
	}
	return out
}

func (p *TraitPass) references() []string {
	out := append([]string{}, p.Overwrite...)
	out = append(out, p.Keep...)
	return append(out, p.Merge...)
}

// Run implements Pass.
func (p *TraitPass) Run(doc *annotation.Doc) {
	units, candidates := p.matcher.Find(doc)
	claimed := make([]bool, len(doc.Tokens))

	for _, c := range candidates {
		if anyClaimed(claimed, c.Start, c.End) {
			continue
		}
		if c.Rule.Reject {
			claim(claimed, c.Start, c.End)
			continue
		}

		res, ok := p.resolve(doc, c, claimed)
		if !ok {
			continue
		}

		m := &matcher.Match{
			Doc:     doc,
			Rule:    c.Rule,
			Start:   res.start,
			End:     res.end,
			Units:   matcher.UnitsIn(units, res.start, res.end),
			Pattern: c.Pattern,
		}
		trait, ok := c.Rule.Build(m)
		if !ok {
			continue
		}

		for _, s := range res.destroy {
			doc.Remove(s)
			s.Deleted = true
		}
		for _, s := range res.merged {
			doc.Remove(s)
		}
		for _, s := range res.children {
			doc.Remove(s)
		}
		doc.Add(&annotation.Span{
			Start:    res.start,
			End:      res.end,
			Label:    c.Rule.Label,
			Group:    c.Rule.Group,
			Children: res.children,
			Trait:    trait,
		})
		claim(claimed, res.start, res.end)
	}
}

type resolution struct {
	start, end int
	destroy    []*annotation.Span
	children   []*annotation.Span
	merged     []*annotation.Span
}

// resolve classifies every existing span the candidate touches. Merging
// widens the range, so classification repeats until the range is stable.
func (p *TraitPass) resolve(doc *annotation.Doc, c *matcher.Match, claimed []bool) (resolution, bool) {
	group := c.Rule.Group
	if group == "" {
		group = c.Rule.Label
	}
	res := resolution{start: c.Start, end: c.End}

	for {
		res.destroy, res.children, res.merged = nil, nil, nil
		start, end := res.start, res.end

		for _, e := range doc.Spans() {
			overlaps := e.Overlaps(res.start, res.end)
			adjacent := !overlaps && e.Adjacent(res.start, res.end)
			if !overlaps && !adjacent {
				continue
			}

			mergeable := !e.Term && e.In(p.Merge) && spanGroup(e) == group
			switch {
			case overlaps && mergeable:
				res.merged = append(res.merged, e)
				start, end = min(start, e.Start), max(end, e.End)
			case overlaps && e.In(p.Keep) && e.Inside(res.start, res.end):
				res.children = append(res.children, e)
			case overlaps && e.In(p.Overwrite):
				res.destroy = append(res.destroy, e)
			case overlaps && e.Term && e.Inside(res.start, res.end):
				res.children = append(res.children, e)
			case overlaps:
				return res, false
			case mergeable && !e.In(p.Overwrite):
				res.merged = append(res.merged, e)
				start, end = min(start, e.Start), max(end, e.End)
			}
		}

		if start == res.start && end == res.end {
			break
		}
		if anyClaimed(claimed, start, end) {
			return res, false
		}
		res.start, res.end = start, end
	}

	for _, e := range res.merged {
		res.children = append(res.children, e.Children...)
	}
	return res, true
}

func spanGroup(s *annotation.Span) string {
	if s.Group != "" {
		return s.Group
	}
	return s.Label
}

func anyClaimed(claimed []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}

func claim(claimed []bool, start, end int) {
	for i := start; i < end; i++ {
		claimed[i] = true
	}
}

// CleanupPass tombstones every top-level span carrying one of Delete, and
// when Terms is set, drops the remaining term spans.
type CleanupPass struct {
	name   string
	Delete []string
	Terms  bool
}

// NewCleanupPass returns a cleanup pass for labels.
func NewCleanupPass(name string, labels ...string) *CleanupPass {
	return &CleanupPass{name: name, Delete: labels}
}

// Name implements Pass.
func (p *CleanupPass) Name() string { return p.name }

func (p *CleanupPass) produces() []string   { return nil }
func (p *CleanupPass) references() []string { return p.Delete }

// Run implements Pass.
func (p *CleanupPass) Run(doc *annotation.Doc) {
	for _, s := range doc.Spans() {
		switch {
		case s.In(p.Delete):
			doc.Tombstone(s)
		case p.Terms && s.Term:
			doc.Remove(s)
			s.Deleted = true
		}
	}
}
