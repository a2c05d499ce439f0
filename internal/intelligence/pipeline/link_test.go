package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FloraTraits/internal/intelligence/annotation"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

func addSpan(doc *annotation.Doc, start, end int, label string, t traits.Trait) *annotation.Span {
	s := &annotation.Span{Start: start, End: end, Label: label, Trait: t}
	doc.Add(s)
	return s
}

func partTrait(names ...string) *traits.Part {
	p := &traits.Part{Link: traits.NewLink(), Type: "leaf_part", Label: "part"}
	p.Part = names
	return p
}

func sizeTrait(dims ...string) *traits.Size {
	s := &traits.Size{Link: traits.NewLink(), Units: "cm"}
	for _, d := range dims {
		s.Dims = append(s.Dims, traits.Dimension{Dim: d, Low: 1})
	}
	return s
}

func TestLinkPass_NearestParentWins(t *testing.T) {
	doc := annotation.Tokenize("leaf one two stem white")
	addSpan(doc, 0, 1, "part", partTrait("leaf"))
	addSpan(doc, 3, 4, "part", partTrait("stem"))
	color := &traits.Descriptor{Link: traits.NewLink(), Kind: traits.KindColor, Value: "white"}
	addSpan(doc, 4, 5, "color", color)

	p := &LinkPass{name: "link", Parents: []string{"part"}, Children: []string{"color"}, Weights: ForwardWeights}
	p.Run(doc)

	assert.Equal(t, []string{"stem"}, color.Part)
	assert.Equal(t, 0, color.PartDist)
}

func TestLinkPass_ReverseWeights(t *testing.T) {
	doc := annotation.Tokenize("white , leaf")
	color := &traits.Descriptor{Link: traits.NewLink(), Kind: traits.KindColor, Value: "white"}
	addSpan(doc, 0, 1, "color", color)
	addSpan(doc, 2, 3, "part", partTrait("leaf"))

	p := &LinkPass{
		name: "link", Parents: []string{"part"}, Children: []string{"color"},
		Weights: ForwardWeights, Reverse: ReverseWeights,
	}
	p.Run(doc)

	assert.Equal(t, []string{"leaf"}, color.Part)
	assert.Equal(t, ReverseWeights[","], color.PartDist)
}

func TestLinkPass_SentenceBoundary(t *testing.T) {
	doc := annotation.Tokenize("Leaf here. White there.")
	require.NotEqual(t, doc.Sentence(0), doc.Sentence(3))
	color := &traits.Descriptor{Link: traits.NewLink(), Kind: traits.KindColor, Value: "white"}
	addSpan(doc, 0, 1, "part", partTrait("leaf"))
	addSpan(doc, 3, 4, "color", color)

	p := &LinkPass{name: "link", Parents: []string{"part"}, Children: []string{"color"}, Weights: ForwardWeights}
	p.Run(doc)

	assert.Empty(t, color.Part)
	assert.Equal(t, traits.Unset, color.PartDist)
}

func TestLinkPass_DifferLimitsRepeatedDimensions(t *testing.T) {
	doc := annotation.Tokenize("leaf one two")
	addSpan(doc, 0, 1, "part", partTrait("leaf"))
	first := sizeTrait("length")
	second := sizeTrait("length")
	addSpan(doc, 1, 2, "size", first)
	addSpan(doc, 2, 3, "size", second)

	p := &LinkPass{
		name: "link_once", Parents: []string{"part"}, Children: []string{"size"},
		Weights: ForwardWeights, MaxLinks: 1, Differ: []string{"sex", "dimensions"},
	}
	p.Run(doc)

	assert.Equal(t, []string{"leaf"}, first.Part)
	assert.Empty(t, second.Part)
}

func TestLinkPass_DifferAllowsDistinctDimensions(t *testing.T) {
	doc := annotation.Tokenize("leaf one two")
	addSpan(doc, 0, 1, "part", partTrait("leaf"))
	first := sizeTrait("length")
	second := sizeTrait("width")
	addSpan(doc, 1, 2, "size", first)
	addSpan(doc, 2, 3, "size", second)

	p := &LinkPass{
		name: "link_once", Parents: []string{"part"}, Children: []string{"size"},
		Weights: ForwardWeights, MaxLinks: 1, Differ: []string{"sex", "dimensions"},
	}
	p.Run(doc)

	assert.Equal(t, []string{"leaf"}, first.Part)
	assert.Equal(t, []string{"leaf"}, second.Part)
}

func TestLinkPass_MaxLinks(t *testing.T) {
	doc := annotation.Tokenize("leaf one two")
	addSpan(doc, 0, 1, "part", partTrait("leaf"))
	first := &traits.Count{Link: traits.NewLink(), Low: 1}
	second := &traits.Count{Link: traits.NewLink(), Low: 2}
	addSpan(doc, 1, 2, "count", first)
	addSpan(doc, 2, 3, "count", second)

	p := &LinkPass{
		name: "link_once", Parents: []string{"part"}, Children: []string{"count"},
		Weights: ForwardWeights, MaxLinks: 1,
	}
	p.Run(doc)

	assert.Equal(t, []string{"leaf"}, first.Part)
	assert.Empty(t, second.Part)
}

func TestLinkPass_FullParentRefusesWithoutFallback(t *testing.T) {
	doc := annotation.Tokenize("leaf one two x y z stem")
	addSpan(doc, 0, 1, "part", partTrait("leaf"))
	addSpan(doc, 6, 7, "part", partTrait("stem"))
	first := &traits.Count{Link: traits.NewLink(), Low: 1}
	second := &traits.Count{Link: traits.NewLink(), Low: 2}
	addSpan(doc, 1, 2, "count", first)
	addSpan(doc, 2, 3, "count", second)

	p := &LinkPass{
		name: "link_once", Parents: []string{"part"}, Children: []string{"count"},
		Weights: ForwardWeights, MaxLinks: 1,
	}
	p.Run(doc)

	assert.Equal(t, []string{"leaf"}, first.Part)
	assert.Equal(t, 0, first.PartDist)
	assert.Empty(t, second.Part)
	assert.Equal(t, traits.Unset, second.PartDist)
}

func TestLinkPass_TieGoesToEarlierParent(t *testing.T) {
	doc := annotation.Tokenize("leaf white stem")
	addSpan(doc, 0, 1, "part", partTrait("leaf"))
	addSpan(doc, 2, 3, "part", partTrait("stem"))
	color := &traits.Descriptor{Link: traits.NewLink(), Kind: traits.KindColor, Value: "white"}
	addSpan(doc, 1, 2, "color", color)

	p := &LinkPass{name: "link", Parents: []string{"part"}, Children: []string{"color"}, Weights: ForwardWeights}
	p.Run(doc)

	assert.Equal(t, []string{"leaf"}, color.Part)
}

func TestLinkPass_Blockers(t *testing.T) {
	doc := annotation.Tokenize("leaf ; white")
	color := &traits.Descriptor{Link: traits.NewLink(), Kind: traits.KindColor, Value: "white"}
	addSpan(doc, 0, 1, "part", partTrait("leaf"))
	addSpan(doc, 2, 3, "color", color)

	p := &LinkPass{
		name: "link", Parents: []string{"part"}, Children: []string{"color"},
		Weights: ForwardWeights, Blockers: []string{";"},
	}
	p.Run(doc)

	assert.Empty(t, color.Part)
}

func TestLinkPass_KeepsExistingContext(t *testing.T) {
	doc := annotation.Tokenize("female leaf white")
	sex := &traits.Sex{Link: traits.NewLink()}
	sex.Sex = "female"
	addSpan(doc, 0, 1, "sex", sex)
	addSpan(doc, 1, 2, "part", partTrait("leaf"))
	color := &traits.Descriptor{Link: traits.NewLink(), Kind: traits.KindColor, Value: "white"}
	color.Sex = "male"
	addSpan(doc, 2, 3, "color", color)

	p := &LinkPass{name: "link_sex", Parents: []string{"sex"}, Children: []string{"color"}, Weights: ForwardWeights}
	p.Run(doc)

	assert.Equal(t, "male", color.Sex)
}
