package pipeline

import (
	"github.com/turtacn/FloraTraits/internal/intelligence/annotation"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

// FilterFunc decides, for the i-th of the final top-level spans, whether
// it survives.
type FilterFunc func(spans []*annotation.Span, i int) bool

// FilterPass tombstones every top-level span its filter rejects. Filters
// read the span list as it was when the pass started.
type FilterPass struct {
	name   string
	labels []string
	keep   FilterFunc
}

// NewFilterPass wraps keep. labels are the span labels the filter reads,
// validated at construction.
func NewFilterPass(name string, keep FilterFunc, labels ...string) *FilterPass {
	return &FilterPass{name: name, labels: labels, keep: keep}
}

// Name implements Pass.
func (p *FilterPass) Name() string { return p.name }

func (p *FilterPass) produces() []string   { return nil }
func (p *FilterPass) references() []string { return p.labels }

// Run implements Pass.
func (p *FilterPass) Run(doc *annotation.Doc) {
	spans := doc.Spans()
	var drop []*annotation.Span
	for i, s := range spans {
		if !p.keep(spans, i) {
			drop = append(drop, s)
		}
	}
	for _, s := range drop {
		doc.Tombstone(s)
	}
}

// DeleteMissing drops check-labelled spans whose trait carries no part,
// subpart or explicit missing marker.
func DeleteMissing(check ...string) FilterFunc {
	return func(spans []*annotation.Span, i int) bool {
		s := spans[i]
		if !s.In(check) || s.Trait == nil {
			return true
		}
		l := s.Trait.Links()
		if l == nil {
			return true
		}
		return l.HasPart() || l.Subpart != "" || l.Missing
	}
}

// DeleteTooFar drops target spans that were linked, but only to anchors
// farther than radius. A span with neither distance written is kept.
func DeleteTooFar(radius int, targets ...string) FilterFunc {
	return func(spans []*annotation.Span, i int) bool {
		s := spans[i]
		if !s.In(targets) || s.Trait == nil || s.Trait.Links() == nil {
			return true
		}
		l := s.Trait.Links()
		if l.PartDist == traits.Unset && l.SubpartDist == traits.Unset {
			return true
		}
		for _, d := range []int{l.PartDist, l.SubpartDist} {
			if d != traits.Unset && d <= radius {
				return true
			}
		}
		return false
	}
}

// NearContext keeps an unlabeled check span only when a span with a near
// label other than its own sits within radius positions of it.
func NearContext(radius int, check, near []string) FilterFunc {
	return func(spans []*annotation.Span, i int) bool {
		s := spans[i]
		if !s.In(check) || hasLabel(s.Trait) {
			return true
		}
		lo, hi := max(0, i-radius), min(len(spans), i+radius+1)
		for k := lo; k < hi; k++ {
			o := spans[k]
			if k != i && o.Label != s.Label && o.In(near) {
				return true
			}
		}
		return false
	}
}

func hasLabel(t traits.Trait) bool {
	switch v := t.(type) {
	case *traits.Job:
		return v.HasLabel
	case *traits.IDNumber:
		return v.HasLabel
	}
	return false
}

// PruneLocalities runs the locality zone scan: a taxon opens the zone, an
// associated taxon opens it when the document has no primary taxon, and a
// collector, determiner or date past the middle of the span list closes it.
// Labeled localities always survive; unlabeled ones survive only inside the
// zone, and never when they look like a stray initial.
type PruneLocalities struct{}

// Name implements Pass.
func (PruneLocalities) Name() string { return "prune_localities" }

func (PruneLocalities) produces() []string { return nil }
func (PruneLocalities) references() []string {
	return []string{"taxon", "locality", "job", "date"}
}

// Run implements Pass.
func (PruneLocalities) Run(doc *annotation.Doc) {
	spans := doc.Spans()

	hasTaxon := false
	for _, s := range spans {
		if t, ok := s.Trait.(*traits.Taxon); ok && !t.Associated {
			hasTaxon = true
			break
		}
	}

	inZone := false
	for i, s := range spans {
		switch t := s.Trait.(type) {
		case *traits.Taxon:
			if !t.Associated || !hasTaxon {
				inZone = true
			}
		case *traits.Job:
			if i > len(spans)/2 {
				inZone = false
			}
		case *traits.Date:
			if i > len(spans)/2 {
				inZone = false
			}
		case *traits.Locality:
			switch {
			case t.Labeled:
			case !inZone:
				doc.Tombstone(s)
			case strayInitial(doc, s):
				doc.Tombstone(s)
			}
		}
	}
}

func strayInitial(doc *annotation.Doc, s *annotation.Span) bool {
	if s.Len() > 2 {
		return false
	}
	first := []rune(doc.Tokens[s.Start].Text)
	return len(first) <= 2 && first[len(first)-1] == '.'
}

// RecordNumber keeps only the last record-number id in the document; a
// label's own record number tends to close it.
func RecordNumber() FilterFunc {
	return func(spans []*annotation.Span, i int) bool {
		if !isRecordNumber(spans[i]) {
			return true
		}
		for _, s := range spans[i+1:] {
			if isRecordNumber(s) {
				return false
			}
		}
		return true
	}
}

func isRecordNumber(s *annotation.Span) bool {
	id, ok := s.Trait.(*traits.IDNumber)
	return ok && id.Type == "record_number"
}
