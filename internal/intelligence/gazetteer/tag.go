package gazetteer

import (
	"strings"

	"github.com/turtacn/FloraTraits/internal/intelligence/annotation"
)

// Tag adds a term span for every vocabulary phrase found in doc, preferring
// the longest phrase at each position. Tokens under a term get Token.Term.
func (g *Gazetteer) Tag(doc *annotation.Doc) {
	toks := doc.Tokens
	for i := 0; i < len(toks); {
		n := g.maxLen
		if rest := len(toks) - i; n > rest {
			n = rest
		}

		matched := 0
		for ; n > 0; n-- {
			words := make([]string, n)
			for j := 0; j < n; j++ {
				words[j] = toks[i+j].Lower
			}
			t, ok := g.terms[strings.Join(words, " ")]
			if !ok {
				continue
			}
			doc.Add(&annotation.Span{Start: i, End: i + n, Label: t.Label, Term: true})
			for _, tok := range toks[i : i+n] {
				tok.Term = t.Label
			}
			matched = n
			break
		}

		if matched == 0 {
			i++
			continue
		}
		i += matched
	}
}
