// Package gazetteer loads the term vocabularies the pipeline tags documents
// with, and answers the per-term lookups builders need: replacement text,
// unit factors, postal codes, rank levels and so on.
package gazetteer

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/FloraTraits/internal/intelligence/annotation"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

//go:embed terms/*.yaml
var embedded embed.FS

// DefaultFiles lists the embedded vocabularies in load order. When two files
// declare the same phrase, the earlier label wins.
var DefaultFiles = []string{
	"terms/parts.yaml",
	"terms/descriptors.yaml",
	"terms/numeric.yaml",
	"terms/taxon.yaml",
	"terms/admin.yaml",
	"terms/people.yaml",
	"terms/locality.yaml",
}

// Term is one vocabulary row. Only Pattern is required; the other columns
// are read by the builders that care about them.
type Term struct {
	Pattern    string  `yaml:"pattern"`
	Label      string  `yaml:"-"`
	Replace    string  `yaml:"replace"`
	Type       string  `yaml:"type"`
	FactorCM   float64 `yaml:"factor_cm"`
	Inside     string  `yaml:"inside"`
	Postal     string  `yaml:"postal"`
	Abbrev     string  `yaml:"abbrev"`
	Level      string  `yaml:"level"`
	Ranks      string  `yaml:"ranks"`
	SuffixTerm string  `yaml:"suffix_term"`
}

type termGroup struct {
	Label string  `yaml:"label"`
	Terms []*Term `yaml:"terms"`
}

type termFile struct {
	Groups []termGroup `yaml:"groups"`
}

// Gazetteer is an immutable phrase table. It is safe for concurrent use.
type Gazetteer struct {
	terms          map[string]*Term
	labels         map[string]bool
	levels         map[string]string
	binomialAbbrev map[string]string
	maxLen         int
}

var (
	defaultOnce sync.Once
	defaultGaz  *Gazetteer
	defaultErr  error
)

// Default returns the gazetteer built from the embedded vocabularies. It is
// loaded once per process.
func Default() (*Gazetteer, error) {
	defaultOnce.Do(func() {
		defaultGaz, defaultErr = Load(embedded, DefaultFiles...)
	})
	return defaultGaz, defaultErr
}

// Load reads the named YAML vocabularies from fsys.
func Load(fsys fs.FS, files ...string) (*Gazetteer, error) {
	g := &Gazetteer{
		terms:          map[string]*Term{},
		labels:         map[string]bool{},
		levels:         map[string]string{},
		binomialAbbrev: map[string]string{},
	}
	for _, name := range files {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeGazetteerMissing, "vocabulary not found").
				WithDetail(name)
		}
		if err := g.add(name, raw); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Gazetteer) add(name string, raw []byte) error {
	var file termFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return errors.Wrap(err, errors.ErrCodeGazetteerMalformed, "cannot parse vocabulary").WithDetail(name)
	}

	for _, group := range file.Groups {
		if group.Label == "" {
			return errors.New(errors.ErrCodeGazetteerMalformed, "term group without a label").WithDetail(name)
		}
		g.labels[group.Label] = true

		seen := map[string]bool{}
		for _, t := range group.Terms {
			if t == nil || strings.TrimSpace(t.Pattern) == "" {
				return errors.Newf(errors.ErrCodeGazetteerMalformed, "empty pattern in group %q", group.Label).
					WithDetail(name)
			}
			key := Normalize(t.Pattern)
			if seen[key] {
				return errors.Newf(errors.ErrCodeGazetteerDuplicate, "pattern %q repeated in group %q", t.Pattern, group.Label).
					WithDetail(name)
			}
			seen[key] = true

			t.Label = group.Label
			if t.Level != "" {
				g.levels[key] = t.Level
				if t.Replace != "" {
					g.levels[Normalize(t.Replace)] = t.Level
				}
			}
			if _, taken := g.terms[key]; taken {
				continue
			}
			g.terms[key] = t
			if n := len(strings.Fields(key)); n > g.maxLen {
				g.maxLen = n
			}
			if group.Label == "binomial" {
				g.addBinomialAbbrev(key)
			}
		}
	}
	return nil
}

// addBinomialAbbrev registers "m. sensitiva" for "mimosa sensitiva".
func (g *Gazetteer) addBinomialAbbrev(key string) {
	words := strings.Fields(key)
	if len(words) < 2 {
		return
	}
	abbrev := string([]rune(words[0])[0]) + ". " + strings.Join(words[1:], " ")
	if _, ok := g.binomialAbbrev[abbrev]; !ok {
		g.binomialAbbrev[abbrev] = words[0]
	}
}

// Normalize turns free text into the key form used by every lookup: the
// lower-cased token texts joined by single spaces.
func Normalize(s string) string {
	doc := annotation.Tokenize(strings.ToLower(s))
	words := make([]string, len(doc.Tokens))
	for i, t := range doc.Tokens {
		words[i] = t.Lower
	}
	return strings.Join(words, " ")
}

// Lookup returns the term for a normalized phrase.
func (g *Gazetteer) Lookup(key string) (*Term, bool) {
	t, ok := g.terms[key]
	return t, ok
}

// Labels lists every declared term label.
func (g *Gazetteer) Labels() []string {
	out := make([]string, 0, len(g.labels))
	for l := range g.labels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// HasLabel reports whether label was declared by any vocabulary.
func (g *Gazetteer) HasLabel(label string) bool { return g.labels[label] }

// Replace returns the replacement for key, or key itself.
func (g *Gazetteer) Replace(key string) string {
	if t, ok := g.terms[key]; ok && t.Replace != "" {
		return t.Replace
	}
	return key
}

// Type returns the term's type column.
func (g *Gazetteer) Type(key string) string {
	if t, ok := g.terms[key]; ok {
		return t.Type
	}
	return ""
}

// FactorCM returns the centimeter conversion factor for a unit.
func (g *Gazetteer) FactorCM(key string) (float64, bool) {
	t, ok := g.terms[key]
	if !ok || t.FactorCM == 0 {
		return 0, false
	}
	return t.FactorCM, true
}

// Postal returns a state's postal code.
func (g *Gazetteer) Postal(key string) string {
	if t, ok := g.terms[key]; ok {
		return t.Postal
	}
	return ""
}

// Inside returns the postal codes of the states a county lies in.
func (g *Gazetteer) Inside(key string) []string {
	if t, ok := g.terms[key]; ok {
		return strings.Fields(t.Inside)
	}
	return nil
}

// Level returns "higher", "species" or "lower" for a rank term or rank name.
func (g *Gazetteer) Level(key string) string {
	return g.levels[key]
}

// RankAbbrev returns the canonical abbreviation of a rank term.
func (g *Gazetteer) RankAbbrev(key string) string {
	if t, ok := g.terms[key]; ok && t.Abbrev != "" {
		return t.Abbrev
	}
	return key
}

// RankReplace returns the rank name a rank term stands for.
func (g *Gazetteer) RankReplace(key string) string {
	return g.Replace(key)
}

// MonomialRanks returns the ranks a monomial may take, most likely first.
func (g *Gazetteer) MonomialRanks(key string) []string {
	if t, ok := g.terms[key]; ok {
		return strings.Fields(t.Ranks)
	}
	return nil
}

// SuffixTerm returns the field a count suffix fills: part, subpart or
// count_group.
func (g *Gazetteer) SuffixTerm(key string) string {
	if t, ok := g.terms[key]; ok {
		return t.SuffixTerm
	}
	return ""
}

// BinomialAbbrev resolves an abbreviated binomial such as "m. sensitiva" to
// its genus.
func (g *Gazetteer) BinomialAbbrev(key string) (string, bool) {
	genus, ok := g.binomialAbbrev[key]
	return genus, ok
}

// String summarizes the table for logs.
func (g *Gazetteer) String() string {
	return fmt.Sprintf("gazetteer{terms=%d labels=%d}", len(g.terms), len(g.labels))
}
