// Package traits defines the closed set of trait variants the pipeline
// produces, how each one derives its output key from its structural context,
// and how a list of finalized traits becomes an output record.
package traits

import (
	"strings"
	"unicode"
)

// Unset marks a link distance the linker has not written yet.
const Unset = -1

// Trait is implemented only by the variants in this package.
type Trait interface {
	// Name is the trait's label, e.g. "count" or "taxon".
	Name() string
	// Key is the camelCase stem used for the trait's output fields.
	Key() string
	// Links returns the structural context the linker writes, or nil when
	// the variant is never linked.
	Links() *Link

	dwc(r *Record)
}

// Link is the structural context a trait inherits from the part, subpart,
// sex and location spans it is attached to.
type Link struct {
	Part         []string `json:"part,omitempty"`
	Subpart      string   `json:"subpart,omitempty"`
	Sex          string   `json:"sex,omitempty"`
	PartLocation string   `json:"part_location,omitempty"`
	Missing      bool     `json:"missing,omitempty"`

	PartDist    int `json:"-"`
	SubpartDist int `json:"-"`
}

// NewLink returns a Link with both distances unset.
func NewLink() Link {
	return Link{PartDist: Unset, SubpartDist: Unset}
}

// Links returns the receiver; variants embedding Link satisfy Trait with it.
func (l *Link) Links() *Link { return l }

// HasPart reports whether any part is set.
func (l *Link) HasPart() bool { return len(l.Part) > 0 }

// Inherit copies the parent's context into every empty field of l.
func (l *Link) Inherit(p *Link) {
	if !l.HasPart() && p.HasPart() {
		l.Part = append([]string(nil), p.Part...)
	}
	if l.Subpart == "" {
		l.Subpart = p.Subpart
	}
	if l.Sex == "" {
		l.Sex = p.Sex
	}
	if l.PartLocation == "" {
		l.PartLocation = p.PartLocation
	}
}

// keyBuilder synthesizes a camelCase key from an optional "missing" prefix,
// the sex/part/subpart context words when withContext is set, then suffix.
func keyBuilder(l *Link, withContext bool, suffix ...string) string {
	var words []string
	if l != nil {
		if l.Missing {
			words = append(words, "missing")
		}
		if withContext {
			words = append(words, l.Sex)
			words = append(words, l.Part...)
			words = append(words, l.Subpart)
		}
	}
	words = append(words, suffix...)
	return camel(words)
}

func camel(phrases []string) string {
	joined := strings.NewReplacer("-", " ", "_", " ").Replace(strings.Join(phrases, " "))

	seen := map[string]bool{}
	var b strings.Builder
	for _, w := range strings.Fields(strings.ToLower(joined)) {
		if seen[w] {
			continue
		}
		seen[w] = true
		if b.Len() == 0 {
			b.WriteString(w)
			continue
		}
		rs := []rune(w)
		rs[0] = unicode.ToUpper(rs[0])
		b.WriteString(string(rs))
	}
	return b.String()
}

// DifferValue returns the value of a linker arity field for t: "sex" or
// "dimensions". Unknown fields and variants yield "".
func DifferValue(t Trait, field string) string {
	switch field {
	case "sex":
		if l := t.Links(); l != nil {
			return l.Sex
		}
	case "dimensions":
		if s, ok := t.(*Size); ok {
			return strings.Join(s.DimNames(), " ")
		}
	}
	return ""
}
