package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FloraTraits/internal/intelligence/annotation"
	"github.com/turtacn/FloraTraits/internal/intelligence/matcher"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

func colorOf(m *matcher.Match) (traits.Trait, bool) {
	return &traits.Descriptor{Link: traits.NewLink(), Kind: traits.KindColor, Value: m.Text()}, true
}

func rejectAll(*matcher.Match) (traits.Trait, bool) { return nil, false }

// threeUnits matches any three consecutive units, spans included.
func threeUnits() *matcher.Rule {
	return &matcher.Rule{
		Label:    "job",
		Decoder:  matcher.Decoder{"w": &matcher.Pred{}},
		Patterns: []string{"w w w"},
		Build:    colorOf,
	}
}

// bareToken matches a single token outside every span.
func bareToken(label, group string, build matcher.BuildFunc) *matcher.Rule {
	return &matcher.Rule{
		Label:    label,
		Group:    group,
		Decoder:  matcher.Decoder{"w": &matcher.Pred{Bare: true}},
		Patterns: []string{"w"},
		Build:    build,
	}
}

func oldSpan(doc *annotation.Doc, start, end int, label string) *annotation.Span {
	return addSpan(doc, start, end, label, &traits.Descriptor{Link: traits.NewLink(), Kind: traits.KindColor, Value: "old"})
}

func TestTraitPass_OverlapWithoutListsRejects(t *testing.T) {
	doc := annotation.Tokenize("one two three")
	old := oldSpan(doc, 1, 2, "name")

	p, err := NewTraitPass("job", []*matcher.Rule{threeUnits()}, nil, nil, nil)
	require.NoError(t, err)
	p.Run(doc)

	assert.Equal(t, []*annotation.Span{old}, doc.Spans())
	assert.False(t, old.Deleted)
}

func TestTraitPass_Overwrite(t *testing.T) {
	doc := annotation.Tokenize("one two three")
	old := oldSpan(doc, 1, 2, "name")

	p, err := NewTraitPass("job", []*matcher.Rule{threeUnits()}, []string{"name"}, nil, nil)
	require.NoError(t, err)
	p.Run(doc)

	spans := doc.Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, "job", spans[0].Label)
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, 3, spans[0].End)
	assert.NotContains(t, spans[0].Children, old)
	assert.True(t, old.Deleted)
}

func TestTraitPass_Keep(t *testing.T) {
	doc := annotation.Tokenize("one two three")
	old := oldSpan(doc, 1, 2, "name")

	p, err := NewTraitPass("job", []*matcher.Rule{threeUnits()}, nil, []string{"name"}, nil)
	require.NoError(t, err)
	p.Run(doc)

	spans := doc.Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, "job", spans[0].Label)
	assert.Equal(t, []*annotation.Span{old}, spans[0].Children)
	assert.False(t, old.Deleted)
}

func TestTraitPass_KeepWinsOverOverwriteInside(t *testing.T) {
	doc := annotation.Tokenize("one two three")
	old := oldSpan(doc, 1, 2, "name")

	p, err := NewTraitPass("job", []*matcher.Rule{threeUnits()}, []string{"name"}, []string{"name"}, nil)
	require.NoError(t, err)
	p.Run(doc)

	spans := doc.Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, []*annotation.Span{old}, spans[0].Children)
	assert.False(t, old.Deleted)
}

func TestTraitPass_MergeWithAdjacent(t *testing.T) {
	doc := annotation.Tokenize("one two")
	old := oldSpan(doc, 0, 1, "taxon")

	p, err := NewTraitPass("taxon_more", []*matcher.Rule{bareToken("taxon", "", colorOf)}, nil, nil, []string{"taxon"})
	require.NoError(t, err)
	p.Run(doc)

	spans := doc.Spans()
	require.Len(t, spans, 1)
	merged := spans[0]
	assert.NotSame(t, old, merged)
	assert.Equal(t, 0, merged.Start)
	assert.Equal(t, 2, merged.End)
	assert.Equal(t, "one two", merged.Trait.(*traits.Descriptor).Value)
}

func TestTraitPass_MergeRebuildRejectedLeavesSpansAlone(t *testing.T) {
	doc := annotation.Tokenize("one two")
	old := oldSpan(doc, 0, 1, "taxon")

	p, err := NewTraitPass("taxon_more", []*matcher.Rule{bareToken("taxon", "", rejectAll)}, nil, nil, []string{"taxon"})
	require.NoError(t, err)
	p.Run(doc)

	assert.Equal(t, []*annotation.Span{old}, doc.Spans())
	assert.Equal(t, 0, old.Start)
	assert.Equal(t, 1, old.End)
	assert.False(t, old.Deleted)
}

func TestTraitPass_MergeNeedsSameGroup(t *testing.T) {
	doc := annotation.Tokenize("one two")
	old := oldSpan(doc, 0, 1, "taxon")

	p, err := NewTraitPass("colors", []*matcher.Rule{bareToken("color", "hue", colorOf)}, nil, nil, []string{"taxon"})
	require.NoError(t, err)
	p.Run(doc)

	spans := doc.Spans()
	require.Len(t, spans, 2)
	assert.Same(t, old, spans[0])
	assert.Equal(t, "color", spans[1].Label)
	assert.Equal(t, 1, spans[1].Start)
}

func descendants(s *annotation.Span) []*annotation.Span {
	var out []*annotation.Span
	for _, c := range s.Children {
		out = append(out, c)
		out = append(out, descendants(c)...)
	}
	return out
}

func TestRun_TaxonKeepsBinomial(t *testing.T) {
	p := newTestPipeline(t)
	res := p.Run("Mimosa sensitiva (L.) Fox, Trans.")

	var top *annotation.Span
	for _, s := range res.Spans {
		if _, ok := s.Trait.(*traits.Taxon); ok {
			top = s
		}
	}
	require.NotNil(t, top)

	var found bool
	for _, c := range descendants(top) {
		if c.Term {
			continue
		}
		if _, ok := c.Trait.(*traits.Taxon); ok && res.Doc.SpanText(c) == "Mimosa sensitiva" {
			found = true
		}
	}
	assert.True(t, found, "binomial is not kept under the final taxon span")
}

func TestBuildPasses_KeepListsWired(t *testing.T) {
	p := newTestPipeline(t)

	keeps := map[string][]string{}
	for _, ps := range p.passes {
		if tp, ok := ps.(*TraitPass); ok && len(tp.Keep) > 0 {
			keeps[tp.Name()] = tp.Keep
		}
	}
	assert.Equal(t, []string{"taxon"}, keeps["taxon_auth"])
	assert.Equal(t, []string{"range"}, keeps["numeric"])
	assert.Contains(t, keeps, "taxon_rename")
}
