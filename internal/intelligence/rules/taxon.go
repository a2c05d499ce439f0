package rules

import (
	"strings"
	"unicode"

	"github.com/turtacn/FloraTraits/internal/intelligence/matcher"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

// Rank term labels below the species.
var lowerRanks = []string{
	"subspecies_rank", "variety_rank", "subvariety_rank", "form_rank", "subform_rank",
}

// allRanks are every rank term label.
var allRanks = append([]string{"higher_rank", "species_rank"}, lowerRanks...)

// PrimaryRanks are the ranks a specimen's own identification may have.
var PrimaryRanks = []string{"species", "subspecies", "variety", "subvariety", "form", "subform"}

// MinTaxonLen is the shortest single-word taxon accepted.
const MinTaxonLen = 3

// titleShapes are shapes of a capitalized word.
var titleShapes = []string{"Xx", "Xxx", "Xxxx", "Xx-xxxx", "Xxxx-xxxx", "Xxxx-Xxxx"}

func (s *Set) taxonDecoder() matcher.Decoder {
	return matcher.Decoder{
		"A.":          {TextRE: abbrevRE, Bare: true},
		"bad_prefix":  repeat(ent("bad_taxon_prefix")),
		"bad_suffix":  repeat(ent("bad_taxon_suffix")),
		"binomial":    ent("binomial"),
		"higher_rank": ent("higher_rank"),
		"l_rank":      ent(lowerRanks...),
		"maybe":       {Shape: titleShapes, POS: []string{"PROPN"}, Bare: true},
		"monomial":    ent("monomial"),
		"s_rank":      ent("higher_rank", "species_rank"),
	}
}

// TaxonRules recognize scientific names built from vocabulary words, and
// single words that are a taxon on their own.
func (s *Set) TaxonRules() []*matcher.Rule {
	dec := s.taxonDecoder()
	return []*matcher.Rule{
		{
			Label:   "taxon",
			Decoder: dec,
			Build:   s.buildTaxon,
			Patterns: []string{
				"binomial",
				"A. monomial",
				"maybe monomial",
				"binomial monomial",
				"binomial l_rank monomial",
				"A. monomial l_rank monomial",
				"binomial l_rank monomial l_rank monomial",
				"higher_rank monomial",
			},
		},
		{
			Label:    "single",
			Decoder:  dec,
			Build:    s.buildSingle,
			Patterns: []string{"monomial", "s_rank monomial"},
		},
		{
			Label:   "bad_taxon",
			Decoder: dec,
			Reject:  true,
			Patterns: []string{
				"bad_prefix monomial",
				"bad_prefix binomial",
				"monomial bad_suffix",
				"binomial bad_suffix",
			},
		},
	}
}

func (s *Set) buildTaxon(m *matcher.Match) (traits.Trait, bool) {
	var words []string
	rank, epithets, prevRank := "", 0, false
	for _, u := range m.Units {
		isRank := false
		switch {
		case unitLabel(u, "higher_rank"):
			rank, isRank = s.gaz.RankReplace(u.Lower), true
		case unitLabel(u, lowerRanks...):
			words = append(words, s.gaz.RankAbbrev(u.Lower))
			rank, isRank = s.gaz.RankReplace(u.Lower), true
		case unitLabel(u, "binomial"):
			words = append(words, strings.Fields(u.Lower)...)
			epithets = 1
		case unitLabel(u, "monomial"):
			if len(words) > 0 && epithets > 0 && !prevRank {
				words = append(words, s.gaz.RankAbbrev("subsp."))
				rank = "subspecies"
			}
			if len(words) > 0 {
				epithets++
			}
			words = append(words, u.Lower)
		case u.Bare():
			words = append(words, u.Text)
		default:
			return reject()
		}
		prevRank = isRank
	}
	if len(words) == 0 {
		return reject()
	}

	if len(words) > 1 && abbrevRE.MatchString(words[0]) {
		if !strings.HasSuffix(words[0], ".") {
			words[0] += "."
		}
		key := strings.ToLower(words[0]) + " " + words[1]
		if genus, ok := s.gaz.BinomialAbbrev(key); ok {
			words[0] = genus
		}
	}
	if rank == "" {
		rank = "species"
	}
	if rank == "species" && len(words) > 1 && !contains(s.gaz.MonomialRanks(words[len(words)-1]), "species") &&
		!unitLabel(m.Units[0], "binomial") {
		return reject()
	}

	if !abbrevRE.MatchString(words[0]) {
		words[0] = capitalize(strings.ToLower(words[0]))
	}
	t := &traits.Taxon{
		Taxon: strings.Join(words, " "),
		Rank:  rank,
		Level: s.gaz.Level(rank),
	}
	cacheTaxon(m, t)
	return t, true
}

func (s *Set) buildSingle(m *matcher.Match) (traits.Trait, bool) {
	var name, rank, shape string
	for _, u := range m.Units {
		switch {
		case unitLabel(u, allRanks...):
			rank = s.gaz.RankReplace(u.Lower)
		case unitLabel(u, "monomial"):
			name, shape = u.Lower, u.Shape
		}
	}
	if name == "" || len([]rune(name)) < MinTaxonLen {
		return reject()
	}

	if rank == "" {
		for _, r := range s.gaz.MonomialRanks(name) {
			level := s.gaz.Level(r)
			if level == traits.LevelHigher && isTitleOrUpper(shape) {
				rank = r
				break
			}
			if level != traits.LevelHigher && !isTitleOrUpper(shape) {
				rank = r
				break
			}
		}
	}
	if rank == "" {
		return reject()
	}

	level := s.gaz.Level(rank)
	if level == traits.LevelHigher {
		name = capitalize(name)
	}
	t := &traits.Taxon{Taxon: name, Rank: rank, Level: level}
	cacheTaxon(m, t)
	return t, true
}

func (s *Set) linnaeusDecoder() matcher.Decoder {
	return matcher.Decoder{
		"A.":       {TextRE: abbrevRE, Bare: true},
		"L.":       {Text: []string{"L."}},
		"_":        textRE(`^[._,]+$`),
		"and":      lower(and...),
		"auth":     authPred(nameShapes),
		"auth3":    authPred(auth3Shapes()),
		"linnaeus": ent("linnaeus"),
		"taxon":    ent("taxon"),
	}
}

// LinnaeusRules attach Linnaeus to a taxon, tell the "L." of another
// author's initial apart from Linnaeus, and join two taxa.
func (s *Set) LinnaeusRules() []*matcher.Rule {
	dec := s.linnaeusDecoder()
	return []*matcher.Rule{
		{
			Label:   "linnaeus",
			Decoder: dec,
			Build:   s.buildLinnaeus,
			Patterns: []string{
				"taxon ( linnaeus )",
				"taxon linnaeus",
				"taxon ( linnaeus ) A.+ auth3 _?",
				"taxon ( linnaeus ) auth3 _?",
				"taxon ( linnaeus ) auth auth3 _?",
			},
		},
		{
			Label:   "not_linnaeus",
			Decoder: dec,
			Build:   s.buildNotLinnaeus,
			Patterns: []string{
				"taxon L. auth3",
				"taxon ( L. auth3 )",
			},
		},
		{
			Label:    "multi_taxon",
			Decoder:  dec,
			Build:    s.buildMultiTaxon,
			Patterns: []string{"taxon and taxon"},
		},
	}
}

func (s *Set) buildLinnaeus(m *matcher.Match) (traits.Trait, bool) {
	t, rest := baseTaxon(m)
	if t == nil {
		return reject()
	}
	t.AddAuthority("Linnaeus")

	var auth []string
	for _, u := range rest {
		if unitLabel(u, "linnaeus") {
			continue
		}
		if isNameShape(u.Shape) {
			auth = append(auth, authText(u.Text))
		}
	}
	t.AddAuthority(strings.Join(auth, " "))
	cacheTaxon(m, t)
	return t, true
}

func (s *Set) buildNotLinnaeus(m *matcher.Match) (traits.Trait, bool) {
	t, rest := baseTaxon(m)
	if t == nil {
		return reject()
	}
	var auth []string
	for _, u := range rest {
		if isNameShape(u.Shape) {
			auth = append(auth, authText(u.Text))
		}
	}
	t.AddAuthority(strings.Join(auth, " "))
	cacheTaxon(m, t)
	return t, true
}

func (s *Set) buildMultiTaxon(m *matcher.Match) (traits.Trait, bool) {
	var names []string
	var first *traits.Taxon
	for _, u := range m.Units {
		if t, ok := spanTrait(u).(*traits.Taxon); ok {
			if first == nil {
				first = t.Copy()
			}
			names = append(names, t.Taxon)
		}
	}
	if first == nil || len(names) < 2 {
		return reject()
	}
	first.Taxon = strings.Join(names, traits.Separator)
	first.Authority = ""
	cacheTaxon(m, first)
	return first, true
}

func (s *Set) authDecoder() matcher.Decoder {
	return matcher.Decoder{
		"A.":     {TextRE: abbrevRE, Bare: true},
		"_":      textRE(`^[._,]+$`),
		"ambig":  ent("us_county", "us_state", "color"),
		"and":    lower(and...),
		"auth":   authPred(nameShapes),
		"auth3":  authPred(auth3Shapes()),
		"by":     lower("by"),
		"id_num": lowerRE(`^(\w*\d+\w*|[a-z])$`),
		"taxon":  ent("taxon"),
	}
}

// AuthRules extend a taxon with the authority that follows it.
func (s *Set) AuthRules() []*matcher.Rule {
	dec := s.authDecoder()
	return []*matcher.Rule{
		{
			Label:   "taxon",
			Decoder: dec,
			Build:   s.buildAuth,
			Patterns: []string{
				"taxon ( auth+ _? ) _?",
				"taxon ( auth+ _? ) auth3+ _?",
				"taxon ( auth+ and auth3 _? ) auth3+ _?",
				"taxon ( auth+ _? ) auth+ and auth3 _?",
				"taxon auth3 _?",
				"taxon auth+ and auth3 _?",
				"taxon A.+ auth3 _?",
				"taxon A.+ auth3 and A.+ auth3 _?",
				"taxon by? auth+ ambig _?",
			},
		},
		{
			Label:   "not_auth",
			Decoder: dec,
			Reject:  true,
			Patterns: []string{
				"taxon auth id_num",
				"taxon auth auth id_num",
			},
		},
	}
}

func (s *Set) buildAuth(m *matcher.Match) (traits.Trait, bool) {
	t, rest := baseTaxon(m)
	if t == nil {
		return reject()
	}
	var auth []string
	for _, u := range rest {
		switch {
		case unitLabel(u, and...) || contains(and, u.Lower):
			if len(auth) > 0 {
				auth = append(auth, "and")
			}
		case isNameShape(u.Shape) || abbrevRE.MatchString(u.Text):
			auth = append(auth, authText(u.Text))
		}
	}
	if len(auth) == 0 {
		return reject()
	}
	t.AddAuthority(strings.Join(auth, " "))
	cacheTaxon(m, t)
	return t, true
}

func (s *Set) extendDecoder() matcher.Decoder {
	return matcher.Decoder{
		"_":      textRE(`^[._,]+$`),
		"auth":   authPred(nameShapes),
		"l_rank": ent(lowerRanks...),
		"single": ent("single"),
		"taxon":  ent("taxon", "linnaeus", "not_linnaeus"),
	}
}

// ExtendRules grow a taxon by a lower rank that follows it.
func (s *Set) ExtendRules() []*matcher.Rule {
	return []*matcher.Rule{
		{
			Label:   "taxon",
			Decoder: s.extendDecoder(),
			Build:   s.buildExtend,
			Patterns: []string{
				"taxon l_rank+ single",
				"taxon l_rank+ single auth+ _?",
			},
		},
	}
}

func (s *Set) buildExtend(m *matcher.Match) (traits.Trait, bool) {
	t, rest := baseTaxon(m)
	if t == nil {
		return reject()
	}
	words := []string{t.Taxon}
	var auth []string
	epithet := false
	for _, u := range rest {
		switch {
		case unitLabel(u, lowerRanks...):
			words = append(words, s.gaz.RankAbbrev(u.Lower))
			t.Rank = s.gaz.RankReplace(u.Lower)
		case unitLabel(u, "single") && !epithet:
			words = append(words, u.Lower)
			epithet = true
		case isNameShape(u.Shape):
			auth = append(auth, authText(u.Text))
		}
	}
	t.Taxon = strings.Join(words, " ")
	t.Level = s.gaz.Level(t.Rank)
	t.AddAuthority(strings.Join(auth, " "))
	cacheTaxon(m, t)
	return t, true
}

// RenameRules give the final "taxon" label to every taxon-like span,
// applying a rank word that precedes it.
func (s *Set) RenameRules() []*matcher.Rule {
	dec := matcher.Decoder{
		"rank":  ent(allRanks...),
		"taxon": ent("taxon", "single", "linnaeus", "not_linnaeus"),
	}
	return []*matcher.Rule{
		{
			Label:    "taxon",
			Decoder:  dec,
			Build:    s.buildRename,
			Patterns: []string{"taxon", "rank taxon"},
		},
	}
}

func (s *Set) buildRename(m *matcher.Match) (traits.Trait, bool) {
	t, _ := baseTaxon(m)
	if t == nil {
		return reject()
	}
	for _, u := range m.Units {
		if u.Span != nil && u.Span.Term && unitLabel(u, allRanks...) {
			t.Rank = s.gaz.RankReplace(u.Lower)
			t.Level = s.gaz.Level(t.Rank)
		}
	}
	cacheTaxon(m, t)
	return t, true
}

// AssocLabelRules mark the words that introduce associated taxa. The
// marker spans carry no trait.
func (s *Set) AssocLabelRules() []*matcher.Rule {
	dec := matcher.Decoder{
		"assoc": ent("assoc"),
		"label": ent("assoc_label"),
		"with":  lower("with"),
	}
	return []*matcher.Rule{
		{
			Label:   "assoc_taxon_label",
			Decoder: dec,
			Build:   func(*matcher.Match) (traits.Trait, bool) { return nil, true },
			Patterns: []string{
				"assoc+ label",
				"assoc+ with",
				"assoc+",
			},
		},
	}
}

// TaxonLikeRules recognize comparisons with another taxon.
func (s *Set) TaxonLikeRules() []*matcher.Rule {
	dec := matcher.Decoder{
		"any":     {},
		"prep":    pos("ADP"),
		"similar": ent("similar"),
		"taxon":   ent("taxon", "multi_taxon"),
	}
	return []*matcher.Rule{
		{
			Label:   "taxon_like",
			Decoder: dec,
			Build:   s.buildTaxonLike,
			Patterns: []string{
				"similar+ taxon+",
				"similar+ any? prep taxon+",
			},
		},
	}
}

func (s *Set) buildTaxonLike(m *matcher.Match) (traits.Trait, bool) {
	var relation []string
	var t *traits.Taxon
	for _, u := range m.Units {
		if unitLabel(u, "similar") {
			relation = append(relation, u.Lower)
			continue
		}
		if tt, ok := spanTrait(u).(*traits.Taxon); ok && t == nil {
			t = tt.Copy()
		}
	}
	if t == nil {
		return reject()
	}
	t.TaxonLike = strings.Join(relation, " ")
	t.Associated = false
	return t, true
}

// notAuthor are term labels whose capitalized words never start an author.
var notAuthor = []string{
	"part", "subpart", "sex", "habitat", "loc", "loc_label", "month", "job_label",
	"id_label", "country", "prov_label", "state_label", "county_label", "other_label",
	"similar", "assoc", "assoc_label", "monomial", "binomial", "linnaeus",
}

func authPred(shapes []string) *matcher.Pred {
	return &matcher.Pred{Shape: shapes, NotEnt: notAuthor}
}

// baseTaxon copies the taxon the match starts with and returns the units
// after it.
func baseTaxon(m *matcher.Match) (*traits.Taxon, []*matcher.Unit) {
	for i, u := range m.Units {
		if t, ok := spanTrait(u).(*traits.Taxon); ok && u.Span != nil {
			return t.Copy(), m.Units[i+1:]
		}
	}
	return nil, nil
}

func cacheTaxon(m *matcher.Match, t *traits.Taxon) {
	toks := m.Tokens()
	for _, tok := range toks {
		tok.Flag = FlagTaxon
	}
	toks[0].Flag = FlagTaxonData
	toks[0].Trait = t
}

func capitalize(s string) string {
	rs := []rune(s)
	if len(rs) == 0 {
		return s
	}
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}

// isTitleOrUpper reports a shape starting with an upper case letter.
func isTitleOrUpper(shape string) bool {
	return strings.HasPrefix(shape, "X")
}
