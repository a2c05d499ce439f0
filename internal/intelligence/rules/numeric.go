package rules

import (
	"math"
	"strconv"
	"strings"

	"github.com/turtacn/FloraTraits/internal/intelligence/matcher"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

// notNumeric lists the term labels that mark digits as something other
// than a biological count or measurement.
var notNumeric = []string{"not_numeric"}

func (s *Set) rangeDecoder() matcher.Decoder {
	return matcher.Decoder{
		",":            text(","),
		"-":            repeat(text(dash...)),
		"-/or":         repeat(lower(join(dash, to, conj, []string{"_"})...)),
		"-/to":         repeat(lower(join(dash, to, []string{"_"})...)),
		"9":            {Digit: true},
		"9.9":          {TextRE: floatRE},
		"[+]":          text("+"),
		"[?]":          text("?"),
		"a.":           lowerRE(`^[a-ln-wyz]\.?$`),
		"ambiguous":    lower("few", "many"),
		"and/or":       lower(conj...),
		"bad_follower": lowerRE(`^[=:]$`),
		"bad_leader":   lowerRE(`^=$`),
		"bad_symbol":   textRE(`^[&/°'"]+$`),
		"conj":         pos("CCONJ"),
		"month":        ent("month"),
		"not_numeric":  ent(notNumeric...),
		"nw":           ent("number_word"),
	}
}

// RangeRules recognize raw numeric ranges. The label suffix names the
// bounds the numbers fill, in order.
func (s *Set) RangeRules() []*matcher.Rule {
	dec := s.rangeDecoder()
	rule := func(label string, patterns ...string) *matcher.Rule {
		return &matcher.Rule{
			Label:    label,
			Group:    "range",
			Decoder:  dec,
			Patterns: patterns,
			Build:    s.buildRange,
		}
	}
	return []*matcher.Rule{
		rule("range.low",
			"9.9",
			"( 9.9 -/or ) ambiguous ( -/to ambiguous )",
			"9.9 ( -/to [?] )",
		),
		rule("range.min.low",
			"( 9.9 -/or ) 9.9",
			"( 9.9 -/to ) 9.9",
		),
		rule("range.low.high",
			"9.9 and/or 9.9",
			"9.9 -/to 9.9",
			"9 -* conj 9",
			"nw and/or nw",
			"nw -/to nw",
		),
		rule("range.low.max",
			"9.9 ( and/or 9.9 )",
			"9.9 ( -/to 9.9 )",
		),
		rule("range.min.low.high",
			"( 9.9 -/or ) 9.9 -/to 9.9",
			"( 9.9 -/or ) 9.9 - and/or 9.9",
			"( 9.9 and/or ) 9.9 and/or 9.9",
			"9.9 ( and/or 9.9 -/to 9.9 )",
		),
		rule("range.min.low.max",
			"( 9.9 - ) 9.9 -? ( -/to 9.9 [+]? )",
			"9.9 - 9.9 - ( -/to 9.9 )",
			"9.9 - and/or 9.9 -/to 9.9",
		),
		rule("range.low.high.max",
			"9.9 ( and/or 9.9 -/or 9.9 [+]? )",
			"9.9 - 9.9 ( -/to 9.9 [+]? )",
			"9.9 - 9.9 - ( -/to 9.9 [+]? )",
			"9.9 - 9.9 - 9.9",
			"9.9 -/to 9.9 and/or 9.9",
			"9.9 - and/or 9.9 ( -/or 9.9 [+]? )",
			"9.9 and/or 9.9 ( and/or 9.9 [+]? )",
		),
		rule("range.min.low.high.max",
			"( 9.9 - ) 9.9 - 9.9 ( -/to 9.9 [+]? )",
			"( 9.9 -/or ) 9.9 - and/or 9.9 ( -/or 9.9 [+]? )",
			"( 9.9 and/or ) 9.9 - and/or 9.9 ( and/or 9.9 [+]? )",
			"9.9 - and/or 9.9 - and/or 9.9 -/to 9.9",
			"9.9 - and/or 9.9 -/to 9.9 ( -/or 9.9 [+]? )",
			"9.9 -/to 9.9 ( -/or 9.9 ) ( -/or 9.9 [+]? )",
			"9.9 and/or 9.9 - 9.9 ( -/or 9.9 [+]? )",
		),
		{
			Label:   "not_a_range",
			Decoder: dec,
			Reject:  true,
			Patterns: []string{
				"9.9 bad_symbol",
				"bad_symbol 9.9",
				"9.9 bad_symbol 9.9",
				"bad_symbol 9.9 - 9.9",
				"9.9 month",
				"month 9.9",
				"9.9 not_numeric",
				"not_numeric ,? 9.9",
				"not_numeric 9.9 , 9.9",
				"9 a.",
				"bad_leader 9.9",
				"9.9 bad_follower",
			},
		},
	}
}

func (s *Set) buildRange(m *matcher.Match) (traits.Trait, bool) {
	toks := m.Tokens()
	var nums []string
	for _, t := range toks {
		switch {
		case t.Term == "per_count":
			return reject()
		case t.Term == "number_word":
			nums = append(nums, s.gaz.Replace(t.Lower))
		default:
			nums = append(nums, numberRE.FindAllString(t.Text, -1)...)
		}
	}

	r := &traits.Range{Link: traits.NewLink()}
	fields := map[string]*string{"min": &r.Min, "low": &r.Low, "high": &r.High, "max": &r.Max}
	for i, key := range strings.Split(m.Label(), ".")[1:] {
		if i < len(nums) {
			*fields[key] = nums[i]
		}
	}
	if len(r.Bounds()) == 0 || !r.Ordered() {
		return reject()
	}

	for _, t := range toks {
		t.Flag = FlagRange
	}
	toks[0].Flag = FlagRangeData
	toks[0].Trait = r
	return r, true
}

func (s *Set) countDecoder() matcher.Decoder {
	return matcher.Decoder{
		"!":                text("!"),
		"-":                text(dash...),
		"/":                text(slash...),
		"9":                {Digit: true},
		"99-99":            ent("range"),
		":":                text(colon...),
		";":                text(semicolon...),
		"=":                text("=", ":"),
		"[.,]":             lower(",", "."),
		"adp":              pos("ADP"),
		"any":              {},
		"as":               lower("as"),
		"cm":               ent(lengthUnits...),
		"count_suffix":     ent("count_suffix"),
		"count_word":       ent("number_word"),
		"dim":              ent("dim"),
		"every":            lower("every", "per", "each", "or", "more"),
		"habitat":          ent("habitat"),
		"is_alpha":         {Alpha: true},
		"missing":          ent("missing"),
		"not_numeric":      ent(notNumeric...),
		"part":             ent("part", "subpart"),
		"per_count":        ent("per_count"),
		"subpart":          ent("subpart"),
		"X":                lower("x"),
		"x":                lower(append([]string{","}, cross...)...),
		"°":                text("°"),
		"not_count_symbol": lower(join(cross, slash)...),
	}
}

// CountRules recognize counts built from earlier ranges.
func (s *Set) CountRules() []*matcher.Rule {
	dec := s.countDecoder()
	return []*matcher.Rule{
		{
			Label:   "count",
			Decoder: dec,
			Build:   s.buildCount,
			Patterns: []string{
				"99-99+",
				"( 99-99+ ) every+ part",
				"missing? 99-99+ -? count_suffix+",
				"count_word -? count_suffix+",
				"missing? 99-99+ subpart+",
				"count_word subpart+",
				"per_count+ adp? 99-99+",
				"99-99+ -* per_count+",
				"( 99-99+ ) per_count+",
				"99-99+ -* every+ part per_count*",
				"99-99+ per_count+ adp? 99-99+",
			},
		},
		{
			Label:    "count_word",
			Group:    "count",
			Decoder:  dec,
			Build:    s.buildCountWord,
			Patterns: []string{"count_word"},
		},
		{
			Label:   "not_a_count",
			Decoder: dec,
			Reject:  true,
			Patterns: []string{
				"not_numeric [.,]? 99-99+",
				"9 / 9",
				"X =? 99-99+",
				"99-99+ ; 99-99+",
				"99-99+ x 99-99+",
				"99-99+ :",
				"99-99+ any? any? any? as dim",
				"99-99+ °",
				"99-99+ cm",
				"! -? 9",
				"is_alpha - 9",
				"9 not_numeric",
				"habitat+ 99-99+",
			},
		},
	}
}

func (s *Set) buildCount(m *matcher.Match) (traits.Trait, bool) {
	c := &traits.Count{Link: traits.NewLink()}
	var suffix, perCount []string

	for _, u := range m.Units {
		switch {
		case isRange(u):
			r := u.Trait.(*traits.Range)
			bounds := []struct {
				v   string
				dst *int
			}{{r.Min, &c.Min}, {r.Low, &c.Low}, {r.High, &c.High}, {r.Max, &c.Max}}
			for _, b := range bounds {
				if b.v == "" {
					continue
				}
				n, ok := toPositiveInt(b.v)
				if !ok {
					return reject()
				}
				*b.dst = n
			}
		case u.Term == "number_word":
			n, ok := toPositiveInt(s.gaz.Replace(u.Lower))
			if !ok {
				return reject()
			}
			c.Low = n
		case u.Term == "count_suffix":
			suffix = append(suffix, u.Lower)
		case unitLabel(u, "subpart"):
			if sp, ok := spanTrait(u).(*traits.Subpart); ok {
				c.Subpart = sp.Subpart
			} else {
				suffix = append(suffix, u.Lower)
			}
		case unitLabel(u, "part"):
			if p, ok := u.Trait.(*traits.Part); ok {
				c.PerPart = strings.Join(p.Part, " ")
			}
		case u.Term == "per_count":
			perCount = append(perCount, u.Lower)
		case u.Term == "missing":
			c.Missing = true
		}
	}

	if len(perCount) > 0 {
		c.CountGroup = s.gaz.Replace(strings.Join(perCount, " "))
	}
	if len(suffix) > 0 {
		key := strings.Join(suffix, " ")
		value := s.gaz.Replace(key)
		switch s.gaz.SuffixTerm(key) {
		case "subpart":
			c.Subpart = value
		case "part":
			c.Part = []string{value}
		case "count_group":
			c.CountGroup = value
		}
	}

	if c.Min == 0 && c.Low == 0 && c.High == 0 && c.Max == 0 {
		return reject()
	}
	if !countOrdered(c) {
		return reject()
	}
	return c, true
}

func (s *Set) buildCountWord(m *matcher.Match) (traits.Trait, bool) {
	n, ok := toPositiveInt(s.gaz.Replace(m.Units[0].Lower))
	if !ok {
		return reject()
	}
	return &traits.Count{Link: traits.NewLink(), Low: n}, true
}

func countOrdered(c *traits.Count) bool {
	prev := 0
	for _, v := range []int{c.Min, c.Low, c.High, c.Max} {
		if v == 0 {
			continue
		}
		if v < prev {
			return false
		}
		prev = v
	}
	return true
}

// spanTrait is the trait of the span behind u, nil for bare tokens.
func spanTrait(u *matcher.Unit) traits.Trait {
	if u.Span == nil {
		return nil
	}
	return u.Span.Trait
}

func isRange(u *matcher.Unit) bool {
	_, ok := u.Trait.(*traits.Range)
	return ok && u.Span != nil && unitLabel(u, "range")
}

var lengthUnits = []string{"metric_length", "imperial_length"}

func (s *Set) sizeDecoder() matcher.Decoder {
	return matcher.Decoder{
		"99.9":        {TextRE: floatRE},
		"99-99":       ent("range"),
		",":           text(","),
		"about":       ent("about"),
		"and":         lower("and"),
		"cm":          ent(lengthUnits...),
		"dim":         ent("dim"),
		"in":          lower("in"),
		"sex/dim":     ent("dim", "sex"),
		"not_numeric": ent(notNumeric...),
		"sex":         ent("sex"),
		"to":          lower(to...),
		"x":           lower(append([]string{","}, cross...)...),
	}
}

// SizeRules recognize one- to three-dimensional measurements.
func (s *Set) SizeRules() []*matcher.Rule {
	dec := s.sizeDecoder()
	return []*matcher.Rule{
		{
			Label:   "size",
			Decoder: dec,
			Build:   s.buildSize,
			Patterns: []string{
				"about* 99-99+ about* cm+ in? sex/dim*",
				"about* 99-99+ cm* sex/dim* x to? about* 99-99+ cm+ in? sex/dim*",
				"about* 99-99+ cm* in? sex/dim* x to? about* 99-99+ cm* in? sex/dim* x to? about* 99-99+ cm+ in? sex/dim*",
			},
		},
		{
			Label:    "size_high_only",
			Group:    "size",
			Decoder:  dec,
			Build:    s.buildSizeHighOnly,
			Patterns: []string{"to about* 99-99+ about* cm+ in? sex/dim*"},
		},
		{
			Label:   "size_double_dim",
			Group:   "size",
			Decoder: dec,
			Build:   s.buildSizeDoubleDim,
			Patterns: []string{
				"about* 99-99+ cm+ sex? ,? dim+ and dim+",
				"about* 99-99+ cm* sex? ,? 99-99+ cm+ dim+ and dim+",
				"about* 99-99+ cm* sex? ,? 99-99+ cm+ dim+ , dim+",
			},
		},
		{
			Label:   "not_a_size",
			Decoder: dec,
			Reject:  true,
			Patterns: []string{
				"not_numeric about* 99-99+ cm+",
				"not_numeric about* 99-99+ cm* x about* 99-99+ cm+",
				"99-99+ cm not_numeric",
			},
		},
	}
}

// dimScan is one dimension while a size match is being read.
type dimScan struct {
	dim       string
	units     string
	bounds    [4]string
	uncertain bool
	sex       string
}

func (s *Set) scanDims(m *matcher.Match) []*dimScan {
	dims := []*dimScan{{}}
	for _, u := range m.Units {
		d := dims[len(dims)-1]
		switch {
		case isRange(u):
			r := u.Trait.(*traits.Range)
			d.bounds = [4]string{r.Min, r.Low, r.High, r.Max}
		case unitLabel(u, lengthUnits...):
			if d.units != "" && u.Lower == "in" {
				continue
			}
			d.units += s.gaz.Replace(u.Lower)
		case u.Term == "dim":
			d.dim += s.gaz.Replace(u.Lower)
		case u.Term == "about":
			d.uncertain = true
		case unitLabel(u, "sex"):
			if sx, ok := spanTrait(u).(*traits.Sex); ok {
				d.sex += sx.Sex
			} else {
				d.sex += s.gaz.Replace(u.Lower)
			}
		case u.Bare() && (u.Text == "," || contains(cross, u.Lower)):
			dims = append(dims, &dimScan{})
		}
	}
	return dims
}

func (s *Set) fillSize(m *matcher.Match) (*traits.Size, bool) {
	dims := s.scanDims(m)

	defaultUnits := ""
	for _, d := range dims {
		if d.units != "" {
			defaultUnits = d.units
			break
		}
	}
	used := map[string]bool{}
	for _, d := range dims {
		if d.dim != "" {
			used[d.dim] = true
		}
	}
	var defaults []string
	for _, name := range []string{"length", "width", "thickness"} {
		if !used[name] {
			defaults = append(defaults, name)
		}
	}

	size := &traits.Size{Link: traits.NewLink(), Units: "cm"}
	for _, d := range dims {
		if d.bounds == [4]string{} {
			continue
		}
		if d.units == "" {
			d.units = defaultUnits
		}
		if d.dim == "" {
			if len(defaults) == 0 {
				return nil, false
			}
			d.dim, defaults = defaults[0], defaults[1:]
		}
		factor, ok := s.gaz.FactorCM(d.units)
		if !ok {
			return nil, false
		}

		out := traits.Dimension{Dim: d.dim}
		dst := []*float64{&out.Min, &out.Low, &out.High, &out.Max}
		for i, raw := range d.bounds {
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || v <= 0 || (d.units == "m" && v > 100) {
				return nil, false
			}
			*dst[i] = math.Round(v*factor*1000) / 1000
		}
		size.Dims = append(size.Dims, out)

		if d.uncertain {
			size.Uncertain = true
		}
		if size.Sex == "" {
			size.Sex = d.sex
		}
	}
	if len(size.Dims) == 0 {
		return nil, false
	}
	return size, true
}

func (s *Set) buildSize(m *matcher.Match) (traits.Trait, bool) {
	size, ok := s.fillSize(m)
	if !ok {
		return reject()
	}
	return size, true
}

func (s *Set) buildSizeHighOnly(m *matcher.Match) (traits.Trait, bool) {
	size, ok := s.fillSize(m)
	if !ok {
		return reject()
	}
	d := &size.Dims[0]
	if d.High == 0 {
		d.High, d.Low = d.Low, 0
	}
	return size, true
}

func (s *Set) buildSizeDoubleDim(m *matcher.Match) (traits.Trait, bool) {
	size, ok := s.fillSize(m)
	if !ok {
		return reject()
	}
	var names []string
	for _, u := range m.Units {
		if u.Term == "dim" {
			names = append(names, s.gaz.Replace(u.Lower))
		}
	}
	if len(size.Dims) == 1 && len(names) > 1 {
		size.Dims = append(size.Dims, size.Dims[0])
	}
	for i := range size.Dims {
		if i < len(names) {
			size.Dims[i].Dim = names[i]
		}
	}
	return size, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
