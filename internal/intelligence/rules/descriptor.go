package rules

import (
	"strings"

	"github.com/turtacn/FloraTraits/internal/intelligence/matcher"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

// LinkedKinds are the descriptor labels the part, subpart, sex and location
// linkers attach to a structure.
var LinkedKinds = []string{
	traits.KindColor, traits.KindSurface, traits.KindShape, traits.KindMargin,
	traits.KindVenation, traits.KindWoodiness, traits.KindDuration, traits.KindHabit,
	traits.KindOdor, traits.KindLeafFolding, traits.KindLeafDuration,
	traits.KindFlowerMorphology, traits.KindFlowerLocation,
}

// DescriptorKinds lists every descriptor label in rule order.
var DescriptorKinds = append(append([]string(nil), LinkedKinds...),
	traits.KindPlantDuration, traits.KindMorphology, traits.KindReproduction,
)

// termKinds take a single term, optionally in parentheses, and no modifiers.
var termKinds = []string{
	traits.KindOdor, traits.KindLeafFolding, traits.KindLeafDuration,
	traits.KindFlowerMorphology, traits.KindFlowerLocation,
	traits.KindPlantDuration, traits.KindMorphology, traits.KindReproduction,
}

// DescriptorRules recognize single-valued descriptors. A run of values
// joined by a dash or "to" is one descriptor.
func (s *Set) DescriptorRules() []*matcher.Rule {
	var out []*matcher.Rule
	for _, kind := range DescriptorKinds {
		dec := matcher.Decoder{
			"-":       text(join(dash, to)...),
			"(":       text(open...),
			")":       text(closing...),
			"missing": ent("missing"),
			"mod":     ent("color_mod", "shape_leader"),
			"value":   ent(kind),
		}
		patterns := []string{
			"missing? mod* value",
			"missing? mod* value - mod* value",
		}
		if contains(termKinds, kind) {
			patterns = []string{"value", "( value )"}
		}
		out = append(out, &matcher.Rule{
			Label:    kind,
			Decoder:  dec,
			Build:    s.descriptorBuilder(kind),
			Patterns: patterns,
		})
	}
	return out
}

func (s *Set) descriptorBuilder(kind string) matcher.BuildFunc {
	return func(m *matcher.Match) (traits.Trait, bool) {
		t := &traits.Descriptor{Link: traits.NewLink(), Kind: kind}
		var values []string
		for _, u := range m.Units {
			switch {
			case unitLabel(u, "missing"):
				t.Missing = true
			case unitLabel(u, kind):
				v := s.gaz.Replace(u.Lower)
				if !contains(values, v) {
					values = append(values, v)
				}
			}
		}
		if len(values) == 0 {
			return reject()
		}
		t.Value = strings.Join(values, "-")
		return t, true
	}
}
