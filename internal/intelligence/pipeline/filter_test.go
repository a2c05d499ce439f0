package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/FloraTraits/internal/intelligence/annotation"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

func labels(doc *annotation.Doc) []string {
	var out []string
	for _, s := range doc.Spans() {
		out = append(out, s.Label)
	}
	return out
}

func TestDeleteMissing(t *testing.T) {
	doc := annotation.Tokenize("white green blue")
	orphan := &traits.Descriptor{Link: traits.NewLink(), Kind: traits.KindColor, Value: "white"}
	linked := &traits.Descriptor{Link: traits.NewLink(), Kind: traits.KindColor, Value: "green"}
	linked.Part = []string{"leaf"}
	missing := &traits.Descriptor{Link: traits.NewLink(), Kind: traits.KindColor, Value: "blue"}
	missing.Missing = true
	addSpan(doc, 0, 1, "color", orphan)
	addSpan(doc, 1, 2, "color", linked)
	addSpan(doc, 2, 3, "color", missing)

	NewFilterPass("delete_missing", DeleteMissing("color"), "color").Run(doc)

	spans := doc.Spans()
	if assert.Len(t, spans, 2) {
		assert.Same(t, linked, spans[0].Trait)
		assert.Same(t, missing, spans[1].Trait)
	}
}

func TestDeleteTooFar(t *testing.T) {
	doc := annotation.Tokenize("one two three")
	near := &traits.Count{Link: traits.NewLink(), Low: 1}
	near.PartDist = 2
	far := &traits.Count{Link: traits.NewLink(), Low: 2}
	far.PartDist = 9
	unlinked := &traits.Count{Link: traits.NewLink(), Low: 3}
	addSpan(doc, 0, 1, "count", near)
	addSpan(doc, 1, 2, "count", far)
	addSpan(doc, 2, 3, "count", unlinked)

	NewFilterPass("delete_too_far", DeleteTooFar(5, "count"), "count").Run(doc)

	spans := doc.Spans()
	if assert.Len(t, spans, 2) {
		assert.Same(t, near, spans[0].Trait)
		assert.Same(t, unlinked, spans[1].Trait)
	}
}

func TestNearContext(t *testing.T) {
	doc := annotation.Tokenize("a b c d e f")
	addSpan(doc, 0, 1, "job", &traits.Job{Job: "collector", Person: "Smith"})
	addSpan(doc, 1, 2, "id_number", &traits.IDNumber{Number: "12", Type: "record_number"})
	addSpan(doc, 2, 3, "locality", &traits.Locality{Locality: "x"})
	addSpan(doc, 3, 4, "locality", &traits.Locality{Locality: "y"})
	addSpan(doc, 4, 5, "locality", &traits.Locality{Locality: "z"})
	addSpan(doc, 5, 6, "id_number", &traits.IDNumber{Number: "99", Type: "record_number"})

	keep := NearContext(2, []string{"job", "id_number"}, []string{"job", "id_number", "date"})
	NewFilterPass("job_id", keep, "job", "id_number", "date").Run(doc)

	assert.Equal(t, []string{"job", "id_number", "locality", "locality", "locality"}, labels(doc))
}

func TestNearContext_LabeledSurvivesAlone(t *testing.T) {
	doc := annotation.Tokenize("a")
	addSpan(doc, 0, 1, "id_number", &traits.IDNumber{Number: "12", Type: "record_number", HasLabel: true})

	keep := NearContext(2, []string{"id_number"}, []string{"job"})
	NewFilterPass("job_id", keep, "id_number", "job").Run(doc)

	assert.Len(t, doc.Spans(), 1)
}

func TestRecordNumber_KeepsLast(t *testing.T) {
	doc := annotation.Tokenize("a b c")
	addSpan(doc, 0, 1, "id_number", &traits.IDNumber{Number: "1", Type: "record_number"})
	addSpan(doc, 1, 2, "id_number", &traits.IDNumber{Number: "2", Type: "accession"})
	last := &traits.IDNumber{Number: "3", Type: "record_number"}
	addSpan(doc, 2, 3, "id_number", last)

	NewFilterPass("record_number", RecordNumber(), "id_number").Run(doc)

	spans := doc.Spans()
	if assert.Len(t, spans, 2) {
		assert.Equal(t, "accession", spans[0].Trait.(*traits.IDNumber).Type)
		assert.Same(t, last, spans[1].Trait)
	}
}

func TestPruneLocalities_ZoneOpensAtTaxon(t *testing.T) {
	doc := annotation.Tokenize("Ridge top Mimosa sensitiva near creek Labeled here")
	before := &traits.Locality{Locality: "Ridge top"}
	after := &traits.Locality{Locality: "near creek"}
	labeled := &traits.Locality{Locality: "here", Labeled: true}
	addSpan(doc, 0, 2, "locality", before)
	addSpan(doc, 2, 4, "taxon", &traits.Taxon{Taxon: "Mimosa sensitiva", Rank: "species"})
	addSpan(doc, 4, 6, "locality", after)
	addSpan(doc, 7, 8, "locality", labeled)

	PruneLocalities{}.Run(doc)

	var kept []traits.Trait
	for _, s := range doc.Spans() {
		kept = append(kept, s.Trait)
	}
	assert.NotContains(t, kept, traits.Trait(before))
	assert.Contains(t, kept, traits.Trait(after))
	assert.Contains(t, kept, traits.Trait(labeled))
}

func TestPruneLocalities_AssociatedTaxonOpensWhenAlone(t *testing.T) {
	doc := annotation.Tokenize("Mimosa sensitiva near creek")
	addSpan(doc, 0, 2, "taxon", &traits.Taxon{Taxon: "Mimosa sensitiva", Rank: "species", Associated: true})
	loc := &traits.Locality{Locality: "near creek"}
	addSpan(doc, 2, 4, "locality", loc)

	PruneLocalities{}.Run(doc)

	assert.Equal(t, []string{"taxon", "locality"}, labels(doc))
}

func TestPruneLocalities_StrayInitial(t *testing.T) {
	doc := annotation.Tokenize("Mimosa sensitiva A. creek")
	addSpan(doc, 0, 2, "taxon", &traits.Taxon{Taxon: "Mimosa sensitiva", Rank: "species"})
	addSpan(doc, 2, 4, "locality", &traits.Locality{Locality: "A. creek"})

	PruneLocalities{}.Run(doc)

	assert.Equal(t, []string{"taxon"}, labels(doc))
}

func TestPruneLocalities_EarlyJobKeepsZoneOpen(t *testing.T) {
	doc := annotation.Tokenize("Mimosa sensitiva Smith ridge top near creek")
	addSpan(doc, 0, 2, "taxon", &traits.Taxon{Taxon: "Mimosa sensitiva", Rank: "species"})
	addSpan(doc, 2, 3, "job", &traits.Job{Job: "collector", Person: "Smith"})
	addSpan(doc, 3, 5, "locality", &traits.Locality{Locality: "ridge top"})
	addSpan(doc, 5, 7, "locality", &traits.Locality{Locality: "near creek"})

	PruneLocalities{}.Run(doc)

	assert.Equal(t, []string{"taxon", "job", "locality", "locality"}, labels(doc))
}

func TestPruneLocalities_LateDateClosesZone(t *testing.T) {
	doc := annotation.Tokenize("Mimosa sensitiva ridge top near creek 1994 open flat")
	addSpan(doc, 0, 2, "taxon", &traits.Taxon{Taxon: "Mimosa sensitiva", Rank: "species"})
	addSpan(doc, 2, 4, "locality", &traits.Locality{Locality: "ridge top"})
	addSpan(doc, 4, 6, "locality", &traits.Locality{Locality: "near creek"})
	addSpan(doc, 6, 7, "date", &traits.Date{Date: "1994"})
	addSpan(doc, 7, 9, "locality", &traits.Locality{Locality: "open flat"})

	PruneLocalities{}.Run(doc)

	assert.Equal(t, []string{"taxon", "locality", "locality", "date"}, labels(doc))
}

func TestCleanupPass_DropsIntermediateLabels(t *testing.T) {
	doc := annotation.Tokenize("a b")
	addSpan(doc, 0, 1, "range", &traits.Range{Link: traits.NewLink(), Low: "1"})
	addSpan(doc, 1, 2, "count", &traits.Count{Link: traits.NewLink(), Low: 1})

	NewCleanupPass("numeric_cleanup", "range").Run(doc)

	assert.Equal(t, []string{"count"}, labels(doc))
}
