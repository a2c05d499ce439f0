package matcher

import (
	"regexp"
	"unicode"
)

// Pred tests a single unit. Every set field must hold; the zero Pred
// matches anything.
type Pred struct {
	Text    []string
	Lower   []string
	NotText []string
	TextRE  *regexp.Regexp
	LowerRE *regexp.Regexp
	Shape   []string
	POS     []string
	// Ent matches the unit's span label, span group or term label.
	Ent []string
	// NotEnt rejects units carrying any of these labels.
	NotEnt []string

	Digit        bool
	LikeNum      bool
	Alpha        bool
	SentStart    bool
	NotSentStart bool
	// Bare requires a plain token outside every span.
	Bare bool

	// Op is the default repetition operator: "", "?", "*" or "+".
	Op string
}

// Decoder maps pattern words to predicates.
type Decoder map[string]*Pred

// Open and close brackets understood by the default "(" and ")" entries.
var (
	Open  = []string{"(", "["}
	Close = []string{")", "]"}
)

// Match reports whether u satisfies p.
func (p *Pred) Match(u *Unit) bool {
	if len(p.Text) > 0 && !contains(p.Text, u.Text) {
		return false
	}
	if len(p.Lower) > 0 && !contains(p.Lower, u.Lower) {
		return false
	}
	if len(p.NotText) > 0 && contains(p.NotText, u.Text) {
		return false
	}
	if p.TextRE != nil && !p.TextRE.MatchString(u.Text) {
		return false
	}
	if p.LowerRE != nil && !p.LowerRE.MatchString(u.Lower) {
		return false
	}
	if len(p.Shape) > 0 && !contains(p.Shape, u.Shape) {
		return false
	}
	if len(p.POS) > 0 && !contains(p.POS, u.POS) {
		return false
	}
	if len(p.Ent) > 0 && !entMatch(p.Ent, u) {
		return false
	}
	if len(p.NotEnt) > 0 && entMatch(p.NotEnt, u) {
		return false
	}
	if p.Digit && !allRunes(u.Text, func(r rune) bool { return r >= '0' && r <= '9' }) {
		return false
	}
	if p.LikeNum && u.POS != "NUM" {
		return false
	}
	if p.Alpha && !allRunes(u.Text, unicode.IsLetter) {
		return false
	}
	if p.SentStart && !u.SentStart {
		return false
	}
	if p.NotSentStart && u.SentStart {
		return false
	}
	if p.Bare && !u.Bare() {
		return false
	}
	return true
}

func entMatch(names []string, u *Unit) bool {
	for _, n := range names {
		if n == "" {
			continue
		}
		if n == u.Label || n == u.Group || n == u.Term {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func allRunes(s string, ok func(rune) bool) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !ok(r) {
			return false
		}
	}
	return true
}
