// Package matcher compiles token patterns and finds every candidate match
// in a document. Patterns run over units: a top-level span counts as one
// unit and so does every token no span covers, so a rule written against
// an earlier pass's output sees that output as a single element.
package matcher

import (
	"strings"

	"github.com/turtacn/FloraTraits/internal/intelligence/annotation"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

// Unit is one matchable element of a document.
type Unit struct {
	Start int
	End   int
	// Span is the top-level span behind the unit, nil for a bare token.
	Span *annotation.Span

	Text  string
	Lower string
	Shape string
	POS   string

	// Label is the span label, or the token's term label for bare tokens.
	Label string
	Group string
	Term  string

	Flag  string
	Trait traits.Trait

	SentStart  bool
	Whitespace bool
}

// Bare reports whether the unit is a plain token.
func (u *Unit) Bare() bool { return u.Span == nil }

// Units splits doc into matchable units in document order.
func Units(doc *annotation.Doc) []*Unit {
	var out []*Unit
	spans := doc.Spans()
	si := 0
	for i := 0; i < len(doc.Tokens); {
		for si < len(spans) && spans[si].End <= i {
			si++
		}
		if si < len(spans) && spans[si].Start == i {
			out = append(out, spanUnit(doc, spans[si]))
			i = spans[si].End
			si++
			continue
		}
		out = append(out, tokenUnit(doc.Tokens[i]))
		i++
	}
	return out
}

func tokenUnit(t *annotation.Token) *Unit {
	return &Unit{
		Start:      t.Index,
		End:        t.Index + 1,
		Text:       t.Text,
		Lower:      t.Lower,
		Shape:      t.Shape,
		POS:        t.POS,
		Label:      t.Term,
		Term:       t.Term,
		Flag:       t.Flag,
		Trait:      t.Trait,
		SentStart:  t.SentStart,
		Whitespace: t.Whitespace,
	}
}

func spanUnit(doc *annotation.Doc, s *annotation.Span) *Unit {
	toks := doc.Tokens[s.Start:s.End]
	lowers := make([]string, len(toks))
	for i, t := range toks {
		lowers[i] = t.Lower
	}
	first, last := toks[0], toks[len(toks)-1]

	u := &Unit{
		Start:      s.Start,
		End:        s.End,
		Span:       s,
		Text:       doc.SpanText(s),
		Lower:      strings.Join(lowers, " "),
		Shape:      first.Shape,
		POS:        first.POS,
		Label:      s.Label,
		Group:      s.Group,
		Flag:       first.Flag,
		Trait:      first.Trait,
		SentStart:  first.SentStart,
		Whitespace: last.Whitespace,
	}
	if s.Term {
		u.Term = s.Label
	}
	if u.Trait == nil {
		u.Trait = s.Trait
	}
	if len(toks) > 1 {
		u.Shape = annotation.Shape(u.Text)
	}
	return u
}
