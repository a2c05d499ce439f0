package rules

import (
	"strings"

	"github.com/turtacn/FloraTraits/internal/intelligence/matcher"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

func (s *Set) adminDecoder() matcher.Decoder {
	return matcher.Decoder{
		",":          textRE(`^[:._;,]+$`),
		":":          text(colon...),
		"bad_prefix": ent("admin_bad_prefix"),
		"co_label":   ent("county_label"),
		"co_word":    lower("county"),
		"country":    ent("country"),
		"of":         lower("of"),
		"prov":       ent("prov_label"),
		"st_label":   ent("state_label"),
		"us_county":  ent("us_county"),
		"us_state":   ent("us_state"),
		"word":       {Alpha: true, Bare: true, NotSentStart: true},
	}
}

// AdminUnitRules recognize countries, provinces and US states and
// counties, alone or in combination.
func (s *Set) AdminUnitRules() []*matcher.Rule {
	dec := s.adminDecoder()
	rule := func(build matcher.BuildFunc, patterns ...string) *matcher.Rule {
		return &matcher.Rule{
			Label:    "admin_unit",
			Decoder:  dec,
			Build:    build,
			Patterns: patterns,
		}
	}
	return []*matcher.Rule{
		{
			Label:   "not_admin_unit",
			Decoder: dec,
			Reject:  true,
			Patterns: []string{
				"bad_prefix us_county",
				"bad_prefix us_state",
			},
		},
		rule(s.buildCountry,
			"country",
			"country ,",
		),
		rule(s.buildCountyState,
			"us_county co_label ,? us_state",
			"us_county co_label ,? us_state ,",
			"co_word :? us_county ,? us_state",
			"co_word of us_county ,? us_state",
		),
		rule(s.buildCountyStateIffy,
			"us_county us_state",
			"us_county , us_state",
		),
		rule(s.buildCountyOnly,
			"us_county co_label",
			"co_word :? us_county",
			"co_word of us_county",
		),
		rule(s.buildStateCounty,
			"us_state ,? us_county co_label",
			"us_state ,? co_word :? us_county",
			"us_state ,? co_word of us_county",
		),
		rule(s.buildStateOnly,
			"us_state st_label",
			"st_label of? us_state",
		),
		rule(s.buildProvince,
			"prov :? word",
			"prov of word",
			"word prov",
		),
	}
}

func adminUnits(m *matcher.Match, label string) []*matcher.Unit {
	var out []*matcher.Unit
	for _, u := range m.Units {
		if unitLabel(u, label) {
			out = append(out, u)
		}
	}
	return out
}

func (s *Set) formatState(u *matcher.Unit) string {
	return s.gaz.Replace(u.Lower)
}

func formatCounty(u *matcher.Unit) string {
	words := strings.Fields(u.Lower)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func (s *Set) buildCountry(m *matcher.Match) (traits.Trait, bool) {
	cs := adminUnits(m, "country")
	if len(cs) == 0 {
		return reject()
	}
	return &traits.AdminUnit{Country: s.gaz.Replace(cs[0].Lower)}, true
}

func (s *Set) buildCountyState(m *matcher.Match) (traits.Trait, bool) {
	co, st := adminUnits(m, "us_county"), adminUnits(m, "us_state")
	if len(co) == 0 || len(st) == 0 {
		return reject()
	}
	return &traits.AdminUnit{USCounty: formatCounty(co[0]), USState: s.formatState(st[0])}, true
}

// buildCountyStateIffy accepts an unlabeled county followed by a state only
// when the county lies in that state. An upper case county before "CO" is
// read as "county", not Colorado.
func (s *Set) buildCountyStateIffy(m *matcher.Match) (traits.Trait, bool) {
	co, st := adminUnits(m, "us_county"), adminUnits(m, "us_state")
	if len(co) == 0 || len(st) == 0 {
		return reject()
	}
	county, state := co[0], st[0]

	if state.Text == "CO" && strings.ToUpper(county.Text) == county.Text {
		return &traits.AdminUnit{USCounty: formatCounty(county)}, true
	}
	if !contains(s.gaz.Inside(county.Lower), s.gaz.Postal(state.Lower)) {
		return reject()
	}
	return &traits.AdminUnit{USCounty: formatCounty(county), USState: s.formatState(state)}, true
}

func (s *Set) buildCountyOnly(m *matcher.Match) (traits.Trait, bool) {
	co := adminUnits(m, "us_county")
	if len(co) == 0 {
		return reject()
	}
	return &traits.AdminUnit{USCounty: formatCounty(co[0])}, true
}

func (s *Set) buildStateCounty(m *matcher.Match) (traits.Trait, bool) {
	return s.buildCountyState(m)
}

func (s *Set) buildStateOnly(m *matcher.Match) (traits.Trait, bool) {
	st := adminUnits(m, "us_state")
	if len(st) == 0 {
		return reject()
	}
	return &traits.AdminUnit{USState: s.formatState(st[0])}, true
}

func (s *Set) buildProvince(m *matcher.Match) (traits.Trait, bool) {
	var words []string
	for _, u := range m.Units {
		if u.Bare() && !strings.ContainsAny(u.Text, ":,.") && u.Lower != "of" {
			words = append(words, u.Text)
		}
	}
	if len(words) == 0 {
		return reject()
	}
	return &traits.AdminUnit{Province: strings.Join(words, " ")}, true
}
