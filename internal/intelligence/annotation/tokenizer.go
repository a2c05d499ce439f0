package annotation

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tokenize splits text into a Doc.
//
// Word runs are letters followed by letters or digits ("K123"); a lone letter
// followed by a period keeps the period ("L."). Number runs are digits with an
// optional decimal part and stop at the first letter, so "2cm" is two tokens.
// Every other non-space rune is a token of its own.
func Tokenize(text string) *Doc {
	text = norm.NFC.String(text)
	runes := []rune(text)
	doc := &Doc{Text: text}

	add := func(s string) {
		doc.Tokens = append(doc.Tokens, &Token{
			Index: len(doc.Tokens),
			Text:  s,
		})
	}

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			if n := len(doc.Tokens); n > 0 {
				doc.Tokens[n-1].Whitespace = true
			}
			i++

		case unicode.IsLetter(r):
			j := i + 1
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j])) {
				j++
			}
			if j == i+1 && j < len(runes) && runes[j] == '.' {
				j++
			}
			add(string(runes[i:j]))
			i = j

		case unicode.IsDigit(r):
			j := i + 1
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			if j+1 < len(runes) && runes[j] == '.' && unicode.IsDigit(runes[j+1]) {
				j += 2
				for j < len(runes) && unicode.IsDigit(runes[j]) {
					j++
				}
			}
			add(string(runes[i:j]))
			i = j

		default:
			add(string(r))
			i++
		}
	}

	annotateTokens(doc.Tokens)
	return doc
}

func annotateTokens(tokens []*Token) {
	sent := 0
	for i, t := range tokens {
		t.Lower = lower(t.Text)
		t.Shape = Shape(t.Text)
		t.POS = partOfSpeech(t.Text, t.Lower)

		if i == 0 {
			t.SentStart = true
		} else if prev := tokens[i-1]; isTerminal(prev.Text) {
			first := []rune(t.Text)[0]
			if unicode.IsUpper(first) || unicode.IsDigit(first) {
				t.SentStart = true
				sent++
			}
		}
		t.Sent = sent
	}
}

func isTerminal(s string) bool {
	return s == "." || s == "?" || s == "!"
}

func lower(s string) string {
	rs := []rune(s)
	for i, r := range rs {
		rs[i] = unicode.ToLower(r)
	}
	return string(rs)
}
