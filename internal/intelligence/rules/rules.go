// Package rules holds the grammars and trait builders of every pass: the
// decoders mapping pattern words to token predicates, the ordered patterns,
// and the functions that turn a match into a trait or reject it.
//
// Builders are closures over an immutable gazetteer, so a Set is safe to
// share between pipelines and goroutines.
package rules

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/turtacn/FloraTraits/internal/intelligence/gazetteer"
	"github.com/turtacn/FloraTraits/internal/intelligence/matcher"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

// Token flags shared between builders of different passes.
const (
	FlagRange     = "range"
	FlagRangeData = "range_data"
	FlagTaxon     = "taxon"
	FlagTaxonData = "taxon_data"
	FlagPart      = "part"
)

// Token classes.
var (
	dash      = []string{"-", "‐", "‑", "‒", "–", "—", "−"}
	cross     = []string{"x", "×", "⫻"}
	slash     = []string{"/"}
	colon     = []string{":"}
	semicolon = []string{";"}
	and       = []string{"&", "and", "et"}
	conj      = append(append([]string{}, and...), "or")
	to        = []string{"to"}
	open      = []string{"(", "["}
	closing   = []string{")", "]"}
)

// nameShapes are the token shapes a person or author name part may have.
var nameShapes = []string{
	"X", "X.", "Xx", "Xxx", "Xxxx", "Xxxxx",
	"XxXxxx", "XxXxxxx", "XxxXxxx", "XxxXxxxx",
}

var (
	floatRE  = regexp.MustCompile(`^\d+(\.\d+)?$`)
	numberRE = regexp.MustCompile(`\d*\.?\d+`)
	abbrevRE = regexp.MustCompile(`^[A-Z]?[.,_]?[A-Z][.,_]$`)
)

// Set builds the rules of every pass from one gazetteer.
type Set struct {
	gaz *gazetteer.Gazetteer
}

// New returns a rule set over gaz.
func New(gaz *gazetteer.Gazetteer) *Set {
	return &Set{gaz: gaz}
}

// Gazetteer returns the vocabulary the rules read.
func (s *Set) Gazetteer() *gazetteer.Gazetteer { return s.gaz }

func text(vals ...string) *matcher.Pred  { return &matcher.Pred{Text: vals} }
func lower(vals ...string) *matcher.Pred { return &matcher.Pred{Lower: vals} }
func ent(labels ...string) *matcher.Pred { return &matcher.Pred{Ent: labels} }
func shape(vals ...string) *matcher.Pred { return &matcher.Pred{Shape: vals} }
func pos(tags ...string) *matcher.Pred   { return &matcher.Pred{POS: tags} }

func textRE(expr string) *matcher.Pred {
	return &matcher.Pred{TextRE: regexp.MustCompile(expr)}
}

func lowerRE(expr string) *matcher.Pred {
	return &matcher.Pred{LowerRE: regexp.MustCompile(expr)}
}

func repeat(p *matcher.Pred) *matcher.Pred {
	p.Op = "+"
	return p
}

func join(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// toPositiveInt reads s as a whole positive number.
func toPositiveInt(s string) (int, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// authText renders an author token; single letters gain a period.
func authText(t string) string {
	if len([]rune(t)) == 1 {
		return t + "."
	}
	return t
}

func isNameShape(shape string) bool {
	for _, s := range nameShapes {
		if s == shape {
			return true
		}
	}
	return false
}

// auth3Shapes are name shapes long enough to close an authority.
func auth3Shapes() []string {
	var out []string
	for _, s := range nameShapes {
		if len(s) > 2 && !strings.HasSuffix(s, ".") {
			out = append(out, s)
		}
	}
	return out
}

func reject() (traits.Trait, bool) { return nil, false }

func unitLabel(u *matcher.Unit, labels ...string) bool {
	for _, l := range labels {
		if u.Label == l || (u.Group != "" && u.Group == l) {
			return true
		}
	}
	return false
}
