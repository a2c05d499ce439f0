package rules

import (
	"strings"
	"unicode/utf8"

	"github.com/turtacn/FloraTraits/internal/intelligence/matcher"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

// MinLocalityWord is the length a locality needs in at least one token.
const MinLocalityWord = 3

// localityNot are the labels a free-text locality never swallows.
var localityNot = []string{
	"admin_unit", "taxon", "multi_taxon", "taxon_like", "job", "id_number", "date",
}

func (s *Set) localityDecoder() matcher.Decoder {
	return matcher.Decoder{
		",":        text(","),
		".":        text(".", ";", "?"),
		":":        text(colon...),
		"9":        {LikeNum: true, Bare: true},
		"and":      lower(conj...),
		"habitat":  ent("habitat"),
		"in_sent":  {NotSentStart: true, NotEnt: localityNot},
		"label":    ent("loc_label"),
		"loc":      ent("loc"),
		"locality": ent("locality"),
		"prep":     pos("ADP"),
		"word":     {Alpha: true, Bare: true, NotSentStart: true},
	}
}

// LocalityRules anchor a place description on location words.
func (s *Set) LocalityRules() []*matcher.Rule {
	return []*matcher.Rule{
		{
			Label:   "locality",
			Decoder: s.localityDecoder(),
			Build:   s.buildLocality,
			Patterns: []string{
				"9? loc+ prep? word? loc* 9?",
				"9? loc+ ,? loc+ 9?",
				"9? loc+ and loc+ 9?",
				"9? loc+ prep word+ loc+",
				"9? loc+ prep habitat",
			},
		},
	}
}

// LocalityExtendRules join a locality with nearby location words.
func (s *Set) LocalityExtendRules() []*matcher.Rule {
	return []*matcher.Rule{
		{
			Label:   "locality",
			Decoder: s.localityDecoder(),
			Build:   s.buildLocality,
			Patterns: []string{
				"locality+ word? ,? and? habitat* and? ,? locality+",
				"locality+ word? ,? and? habitat* and? ,? loc+",
				"loc+ word? ,? and? habitat* and? ,? locality+",
				"locality+ prep word+",
			},
		},
	}
}

// LocalityEndRules close a locality at the end of its sentence, and
// recognize localities introduced by a label.
func (s *Set) LocalityEndRules() []*matcher.Rule {
	return []*matcher.Rule{
		{
			Label:   "locality",
			Decoder: s.localityDecoder(),
			Build:   s.buildLocality,
			Patterns: []string{
				"locality+ ,? word+ .",
			},
		},
		{
			Label:   "labeled_locality",
			Group:   "locality",
			Decoder: s.localityDecoder(),
			Build:   s.buildLabeledLocality,
			Patterns: []string{
				"label+ :? in_sent+ .",
			},
		},
	}
}

func (s *Set) buildLocality(m *matcher.Match) (traits.Trait, bool) {
	long := false
	for _, t := range m.Tokens() {
		if utf8.RuneCountInString(t.Text) >= MinLocalityWord {
			long = true
			break
		}
	}
	if !long {
		return reject()
	}
	return &traits.Locality{Locality: trimLocality(m.Text())}, true
}

func (s *Set) buildLabeledLocality(m *matcher.Match) (traits.Trait, bool) {
	start := m.Start
	for _, u := range m.Units {
		if !unitLabel(u, "loc_label") && !contains(colon, u.Text) {
			break
		}
		start = u.End
	}
	if start >= m.End {
		return reject()
	}
	loc := trimLocality(m.Doc.TextOf(start, m.End))
	if loc == "" {
		return reject()
	}
	return &traits.Locality{Locality: loc, Labeled: true}, true
}

func trimLocality(s string) string {
	return strings.TrimSpace(strings.TrimRight(s, ".;?, "))
}
