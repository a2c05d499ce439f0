package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/FloraTraits/internal/intelligence/matcher"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

// Job names.
const (
	JobCollector      = "collector"
	JobOtherCollector = "other_collector"
)

// DefaultIDType is the type of an identifier whose label does not name one.
const DefaultIDType = "record_number"

func (s *Set) dateDecoder() matcher.Decoder {
	return matcher.Decoder{
		",":     text(","),
		"/":     text(join(slash, dash, []string{"."})...),
		"day":   textRE(`^(0?[1-9]|[12]\d|3[01])$`),
		"mm":    textRE(`^(0?[1-9]|1[0-2])$`),
		"month": ent("month"),
		"yr":    textRE(`^(1[789]\d\d|20\d\d)$`),
	}
}

// DateRules recognize calendar dates with a year.
func (s *Set) DateRules() []*matcher.Rule {
	return []*matcher.Rule{
		{
			Label:   "date",
			Decoder: s.dateDecoder(),
			Build:   s.buildDate,
			Patterns: []string{
				"day month ,? yr",
				"day / month / yr",
				"month day ,? yr",
				"month ,? yr",
				"mm / day / yr",
				"yr / mm / day",
			},
		},
	}
}

func (s *Set) buildDate(m *matcher.Match) (traits.Trait, bool) {
	var year, month int
	var nums []int
	for _, u := range m.Units {
		switch {
		case unitLabel(u, "month"):
			month, _ = strconv.Atoi(s.gaz.Replace(u.Lower))
		case len(u.Text) == 4 && floatRE.MatchString(u.Text):
			year, _ = strconv.Atoi(u.Text)
		case floatRE.MatchString(u.Text):
			n, err := strconv.Atoi(u.Text)
			if err != nil {
				return reject()
			}
			nums = append(nums, n)
		}
	}

	day := 0
	switch {
	case month > 0 && len(nums) > 0:
		day = nums[0]
	case month == 0 && len(nums) == 2:
		month, day = nums[0], nums[1]
	}
	if year == 0 || month < 1 || month > 12 {
		return reject()
	}

	if day == 0 {
		return &traits.Date{Date: fmt.Sprintf("%04d-%02d", year, month)}, true
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day {
		return reject()
	}
	return &traits.Date{Date: d.Format("2006-01-02")}, true
}

// nameWordShapes are name shapes of at least two letters.
var nameWordShapes = func() []string {
	var out []string
	for _, s := range nameShapes {
		if s != "X" && s != "X." {
			out = append(out, s)
		}
	}
	return out
}()

func (s *Set) nameDecoder() matcher.Decoder {
	return matcher.Decoder{
		"-":           text(dash...),
		"A":           textRE(`^[A-Z]\.?$`),
		"dr":          ent("name_prefix"),
		"jr":          ent("name_suffix"),
		"last_prefix": ent("last_prefix"),
		"name":        {Shape: nameWordShapes, POS: []string{"PROPN"}, Bare: true},
	}
}

// NameRules recognize person names: initials or given names followed by a
// family name.
func (s *Set) NameRules() []*matcher.Rule {
	return []*matcher.Rule{
		{
			Label:   "name",
			Decoder: s.nameDecoder(),
			Build:   s.buildName,
			Patterns: []string{
				"dr? A A? A? name jr?",
				"dr? A A? A? last_prefix name jr?",
				"dr? name A? A? name jr?",
				"dr? name A? last_prefix name jr?",
				"dr? name name - name jr?",
			},
		},
	}
}

func (s *Set) buildName(m *matcher.Match) (traits.Trait, bool) {
	return &traits.PersonName{Person: strings.Join(strings.Fields(m.Text()), " ")}, true
}

func (s *Set) jobDecoder() matcher.Decoder {
	return matcher.Decoder{
		":":         text(":", "."),
		"job":       ent("job"),
		"job_label": ent("job_label"),
		"name":      ent("name"),
		"other":     ent("other_label"),
		"sep":       lower(",", "&", "and", ";"),
	}
}

// JobRules attach people to their roles.
func (s *Set) JobRules() []*matcher.Rule {
	return []*matcher.Rule{
		{
			Label:   "job",
			Decoder: s.jobDecoder(),
			Build:   s.buildJob,
			Patterns: []string{
				"job_label+ :* name",
				"job_label+ :* name sep name",
				"job_label+ :* name sep name sep name",
				"name sep name",
				"name",
			},
		},
	}
}

// OtherCollectorRules recognize the people accompanying the collector.
func (s *Set) OtherCollectorRules() []*matcher.Rule {
	return []*matcher.Rule{
		{
			Label:   "job",
			Decoder: s.jobDecoder(),
			Build:   s.buildOtherCollector,
			Patterns: []string{
				"other+ :* job",
				"other+ :* job sep job",
			},
		},
	}
}

func (s *Set) buildJob(m *matcher.Match) (traits.Trait, bool) {
	t := &traits.Job{Job: JobCollector}
	var people []string
	for _, u := range m.Units {
		switch {
		case unitLabel(u, "job_label"):
			if !t.HasLabel {
				t.Job = s.gaz.Replace(u.Lower)
			}
			t.HasLabel = true
		case unitLabel(u, "name"):
			if n, ok := spanTrait(u).(*traits.PersonName); ok {
				people = append(people, n.Person)
			}
		}
	}
	if len(people) == 0 {
		return reject()
	}
	t.Person = strings.Join(people, traits.Separator)
	return t, true
}

func (s *Set) buildOtherCollector(m *matcher.Match) (traits.Trait, bool) {
	var people []string
	for _, u := range m.Units {
		if j, ok := spanTrait(u).(*traits.Job); ok {
			people = append(people, j.Person)
		}
	}
	if len(people) == 0 {
		return reject()
	}
	return &traits.Job{
		Job:      JobOtherCollector,
		Person:   strings.Join(people, traits.Separator),
		HasLabel: true,
	}, true
}

func (s *Set) idDecoder() matcher.Decoder {
	return matcher.Decoder{
		"-":     text(dash...),
		":":     text(":", "."),
		"id":    textRE(`^[A-Za-z]*\d+[A-Za-z\d]*$`),
		"label": ent("id_label"),
	}
}

// IDNumberRules recognize record and accession numbers. An unlabeled
// number is an identifier only right after a person.
func (s *Set) IDNumberRules() []*matcher.Rule {
	return []*matcher.Rule{
		{
			Label:   "id_number",
			Decoder: s.idDecoder(),
			Build:   s.buildIDNumber,
			Patterns: []string{
				"label+ :* id",
				"label+ :* id - id",
				"id",
				"id - id",
			},
		},
	}
}

func (s *Set) buildIDNumber(m *matcher.Match) (traits.Trait, bool) {
	t := &traits.IDNumber{Type: DefaultIDType}
	var b strings.Builder
	for _, u := range m.Units {
		switch {
		case unitLabel(u, "id_label"):
			if !t.HasLabel {
				if typ := s.gaz.Type(u.Lower); typ != "" {
					t.Type = typ
				}
			}
			t.HasLabel = true
		case b.Len() > 0 || !contains([]string{":", "."}, u.Text):
			b.WriteString(u.Text)
		}
	}
	if b.Len() == 0 {
		return reject()
	}
	if !t.HasLabel && !afterJob(m) {
		return reject()
	}
	t.Number = b.String()
	return t, true
}

// afterJob reports whether the nearest non-punctuation token before the
// match belongs to a job span.
func afterJob(m *matcher.Match) bool {
	for i := m.Start - 1; i >= 0; i-- {
		if m.Doc.Tokens[i].IsPunct() {
			continue
		}
		sp := m.Doc.SpanAt(i)
		return sp != nil && sp.Label == "job"
	}
	return false
}
