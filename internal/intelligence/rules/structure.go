package rules

import (
	"strings"

	"github.com/turtacn/FloraTraits/internal/intelligence/matcher"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

// DefaultPartType is the type of a part whose words disagree on one.
const DefaultPartType = "plant_part"

// Part location types.
const (
	PartAsLocation    = "part_as_location"
	SubpartAsLocation = "subpart_as_location"
	PartAsDistance    = "part_as_distance"
)

func (s *Set) partDecoder() matcher.Decoder {
	return matcher.Decoder{
		",":       text(","),
		"-":       text(dash...),
		"and":     lower(conj...),
		"leader":  ent("part_leader"),
		"missing": ent("missing"),
		"part":    ent("part"),
	}
}

// PartRules recognize plant parts, alone or as a list.
func (s *Set) PartRules() []*matcher.Rule {
	dec := s.partDecoder()
	return []*matcher.Rule{
		{
			Label:   "part",
			Decoder: dec,
			Build:   s.buildPart,
			Patterns: []string{
				"missing? leader? part",
				"missing? leader? part - part",
			},
		},
		{
			Label:   "multiple_parts",
			Group:   "part",
			Decoder: dec,
			Build:   s.buildPart,
			Patterns: []string{
				"missing? leader? part and leader? part",
				"missing? leader? part , leader? part ,? and leader? part",
			},
		},
		{
			Label:   "not_a_part",
			Decoder: dec,
			Reject:  true,
			Patterns: []string{
				"- part -",
				"part - part -",
			},
		},
	}
}

func (s *Set) buildPart(m *matcher.Match) (traits.Trait, bool) {
	t := &traits.Part{Link: traits.NewLink(), Label: m.Label()}
	var frag []string
	var types []string
	flush := func() {
		if len(frag) > 0 {
			t.Part = append(t.Part, strings.Join(frag, " "))
			frag = nil
		}
	}
	for _, u := range m.Units {
		switch {
		case unitLabel(u, "missing"):
			t.Missing = true
		case unitLabel(u, "part_leader"):
			frag = append(frag, u.Lower)
		case unitLabel(u, "part"):
			frag = append(frag, s.gaz.Replace(u.Lower))
			if typ := s.gaz.Type(u.Lower); typ != "" {
				types = append(types, typ)
			}
		case contains(conj, u.Lower) || u.Text == ",":
			flush()
		}
	}
	flush()
	if len(t.Part) == 0 {
		return reject()
	}

	t.Type = DefaultPartType
	if len(types) > 0 {
		t.Type = types[0]
		for _, typ := range types[1:] {
			if typ != t.Type {
				t.Type = DefaultPartType
				break
			}
		}
	}

	toks := m.Tokens()
	for _, tok := range toks {
		tok.Flag = FlagPart
	}
	toks[0].Trait = t
	return t, true
}

func (s *Set) subpartDecoder() matcher.Decoder {
	return matcher.Decoder{
		"-":       text(dash...),
		"leader":  ent("part_leader"),
		"missing": ent("missing"),
		"of":      lower("of"),
		"part":    ent("part"),
		"subpart": ent("subpart"),
	}
}

// SubpartRules recognize sub-structures, with the part they belong to
// when it is named alongside.
func (s *Set) SubpartRules() []*matcher.Rule {
	return []*matcher.Rule{
		{
			Label:   "subpart",
			Decoder: s.subpartDecoder(),
			Build:   s.buildSubpart,
			Patterns: []string{
				"missing? leader? subpart+",
				"missing? part -? subpart+",
				"missing? leader? subpart+ of part",
			},
		},
	}
}

func (s *Set) buildSubpart(m *matcher.Match) (traits.Trait, bool) {
	t := &traits.Subpart{Link: traits.NewLink()}
	var words []string
	for _, u := range m.Units {
		switch {
		case unitLabel(u, "missing"):
			t.Missing = true
		case unitLabel(u, "part_leader"):
			words = append(words, u.Lower)
		case unitLabel(u, "subpart"):
			words = append(words, s.gaz.Replace(u.Lower))
		case unitLabel(u, "part"):
			if p, ok := spanTrait(u).(*traits.Part); ok {
				t.Part = append([]string(nil), p.Part...)
				t.Missing = t.Missing || p.Missing
			}
		}
	}
	if len(words) == 0 {
		return reject()
	}
	t.Subpart = strings.Join(words, " ")
	return t, true
}

// SexRules recognize sexual forms.
func (s *Set) SexRules() []*matcher.Rule {
	return []*matcher.Rule{
		{
			Label:    "sex",
			Decoder:  matcher.Decoder{"sex": ent("sex")},
			Build:    s.buildSex,
			Patterns: []string{"sex", "( sex )"},
		},
	}
}

func (s *Set) buildSex(m *matcher.Match) (traits.Trait, bool) {
	for _, u := range m.Units {
		if unitLabel(u, "sex") {
			t := &traits.Sex{Link: traits.NewLink()}
			t.Sex = s.gaz.Replace(u.Lower)
			return t, true
		}
	}
	return reject()
}

func (s *Set) partLocationDecoder() matcher.Decoder {
	return matcher.Decoder{
		"-":       text(dash...),
		"9.9":     {TextRE: floatRE, Bare: true},
		"cm":      ent(lengthUnits...),
		"det":     pos("DET"),
		"joined":  ent("joined"),
		"leader":  ent("location_leader"),
		"of":      lower("of"),
		"part":    ent("part", "multiple_parts"),
		"subpart": ent("subpart"),
		"to":      lower("to", "with"),
	}
}

// PartLocationRules place a trait relative to another structure.
func (s *Set) PartLocationRules() []*matcher.Rule {
	dec := s.partLocationDecoder()
	rule := func(typ string, patterns ...string) *matcher.Rule {
		return &matcher.Rule{
			Label:    "part_location",
			Decoder:  dec,
			Build:    s.partLocationBuilder(typ),
			Patterns: patterns,
		}
	}
	return []*matcher.Rule{
		rule(PartAsDistance,
			"9.9 cm leader det? part",
			"9.9 - 9.9 cm leader det? part",
			"9.9 cm leader det? subpart",
			"9.9 - 9.9 cm leader det? subpart",
		),
		rule(SubpartAsLocation,
			"leader det? subpart",
			"leader det? subpart of det? part",
		),
		rule(PartAsLocation,
			"leader det? part",
			"joined to? det? part",
		),
	}
}

func (s *Set) partLocationBuilder(typ string) matcher.BuildFunc {
	return func(m *matcher.Match) (traits.Trait, bool) {
		t := &traits.PartLocation{Link: traits.NewLink(), Type: typ}
		t.PartLocation = strings.ToLower(strings.Join(strings.Fields(m.Text()), " "))
		return t, true
	}
}
