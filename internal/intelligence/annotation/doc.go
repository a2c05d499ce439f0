package annotation

import (
	"sort"
	"strings"
)

// Doc is a tokenized document plus its top-level spans. The span list is
// kept sorted by start and non-overlapping; passes are responsible for not
// adding a span over tokens another span already holds.
type Doc struct {
	Text   string
	Tokens []*Token
	spans  []*Span
}

// Spans returns the live top-level spans in document order. The slice is a
// copy; the spans are shared.
func (d *Doc) Spans() []*Span {
	out := make([]*Span, len(d.spans))
	copy(out, d.spans)
	return out
}

// Add inserts s into the top-level list.
func (d *Doc) Add(s *Span) {
	i := sort.Search(len(d.spans), func(i int) bool {
		o := d.spans[i]
		return o.Start > s.Start || (o.Start == s.Start && o.End > s.End)
	})
	d.spans = append(d.spans, nil)
	copy(d.spans[i+1:], d.spans[i:])
	d.spans[i] = s
}

// Remove drops s from the top-level list. Its tokens keep their scratch
// attributes so a parent span can still read them.
func (d *Doc) Remove(s *Span) {
	for i, o := range d.spans {
		if o == s {
			d.spans = append(d.spans[:i], d.spans[i+1:]...)
			return
		}
	}
}

// Tombstone removes s and clears the scratch attributes of its tokens.
func (d *Doc) Tombstone(s *Span) {
	d.Remove(s)
	s.Deleted = true
	for _, t := range d.Tokens[s.Start:s.End] {
		t.ClearScratch()
	}
}

// SpanAt returns the top-level span covering token i, or nil.
func (d *Doc) SpanAt(i int) *Span {
	for _, s := range d.spans {
		if s.Start > i {
			break
		}
		if s.Start <= i && i < s.End {
			return s
		}
	}
	return nil
}

// TextOf renders tokens [start, end) the way they appeared in the source.
func (d *Doc) TextOf(start, end int) string {
	var b strings.Builder
	for i := start; i < end && i < len(d.Tokens); i++ {
		t := d.Tokens[i]
		b.WriteString(t.Text)
		if t.Whitespace && i < end-1 {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// SpanText is TextOf over a span.
func (d *Doc) SpanText(s *Span) string {
	return d.TextOf(s.Start, s.End)
}

// Sentence returns the sentence number of token i.
func (d *Doc) Sentence(i int) int {
	if i < 0 || i >= len(d.Tokens) {
		return -1
	}
	return d.Tokens[i].Sent
}
