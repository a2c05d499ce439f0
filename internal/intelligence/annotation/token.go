// Package annotation holds the shared document model every pass reads and
// mutates: tokens, labeled spans, and the per-token scratch attributes the
// builders use to hand results to later passes.
package annotation

import (
	"strings"
	"unicode"

	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

// Part-of-speech tags assigned by the tokenizer.
const (
	POSPunct = "PUNCT"
	POSNum   = "NUM"
	POSCConj = "CCONJ"
	POSAdp   = "ADP"
	POSDet   = "DET"
	POSPropn = "PROPN"
	POSNoun  = "NOUN"
)

// Token is one lexical unit of a document. Flag, Term and Trait are scratch
// attributes: builders stash intermediate results there so later rules can
// read them back through the matcher.
type Token struct {
	Index int
	Text  string
	Lower string
	Shape string
	POS   string

	// Whitespace reports whether a space followed the token in the source.
	Whitespace bool
	SentStart  bool
	Sent       int

	// Term is the gazetteer label covering the token, if any.
	Term  string
	Flag  string
	Trait traits.Trait

	Deleted bool
}

// IsPunct reports whether the token consists only of punctuation or symbols.
func (t *Token) IsPunct() bool {
	for _, r := range t.Text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return t.Text != ""
}

// IsDigit reports whether the token is a run of ASCII digits.
func (t *Token) IsDigit() bool {
	if t.Text == "" {
		return false
	}
	for _, r := range t.Text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsAlpha reports whether every rune of the token is a letter.
func (t *Token) IsAlpha() bool {
	if t.Text == "" {
		return false
	}
	for _, r := range t.Text {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// LikeNum reports whether the token looks like a number.
func (t *Token) LikeNum() bool {
	return t.POS == POSNum
}

// ClearScratch drops every per-pass attribute.
func (t *Token) ClearScratch() {
	t.Flag = ""
	t.Term = ""
	t.Trait = nil
}

// Shape maps a word onto its orthographic shape: X for upper case letters, x
// for lower case, d for digits, other runes kept as-is. Runs of the same
// class are capped at four characters.
func Shape(text string) string {
	var b strings.Builder
	var last rune
	run := 0
	for _, r := range text {
		var c rune
		switch {
		case unicode.IsUpper(r):
			c = 'X'
		case unicode.IsLower(r):
			c = 'x'
		case unicode.IsDigit(r):
			c = 'd'
		default:
			c = r
		}
		if c == last {
			run++
		} else {
			last, run = c, 1
		}
		if run <= 4 {
			b.WriteRune(c)
		}
	}
	return b.String()
}

var (
	conjunctions = map[string]bool{"and": true, "or": true, "&": true, "but": true, "nor": true}
	adpositions  = map[string]bool{
		"of": true, "with": true, "in": true, "on": true, "at": true, "by": true,
		"from": true, "to": true, "for": true, "near": true, "per": true, "into": true,
		"along": true, "above": true, "below": true, "between": true, "within": true,
		"among": true, "under": true, "over": true, "about": true, "across": true,
	}
	determiners = map[string]bool{"the": true, "a": true, "an": true}
)

// partOfSpeech is a closed-class lookup. Open-class words fall back to
// PROPN for title case and NOUN otherwise.
func partOfSpeech(text, lower string) string {
	switch {
	case conjunctions[lower]:
		return POSCConj
	case adpositions[lower]:
		return POSAdp
	case determiners[lower]:
		return POSDet
	}
	first := []rune(text)[0]
	switch {
	case unicode.IsDigit(first):
		return POSNum
	case unicode.IsUpper(first):
		return POSPropn
	case unicode.IsLetter(first):
		return POSNoun
	}
	return POSPunct
}
