package pipeline

import (
	"strings"

	"github.com/turtacn/FloraTraits/internal/intelligence/annotation"
	"github.com/turtacn/FloraTraits/internal/intelligence/rules"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

// AssociatedTaxa decides which taxa describe the specimen itself. The
// first multi-word taxon of a primary rank is the specimen's; every later
// taxon, and every taxon after an "associated" marker, is associated.
type AssociatedTaxa struct{}

// Name implements Pass.
func (AssociatedTaxa) Name() string { return "associated_taxa" }

func (AssociatedTaxa) produces() []string { return nil }
func (AssociatedTaxa) references() []string {
	return []string{"taxon", "assoc_taxon_label"}
}

// Run implements Pass.
func (AssociatedTaxa) Run(doc *annotation.Doc) {
	primaryOpen := true
	for _, s := range doc.Spans() {
		if s.Label == "assoc_taxon_label" {
			primaryOpen = false
			continue
		}
		t, ok := s.Trait.(*traits.Taxon)
		if !ok || s.Label != "taxon" {
			continue
		}
		if primaryOpen && isPrimary(t) {
			primaryOpen = false
			continue
		}
		t.Associated = true
	}
}

func isPrimary(t *traits.Taxon) bool {
	if !strings.Contains(t.Taxon, " ") {
		return false
	}
	for _, r := range rules.PrimaryRanks {
		if t.Rank == r {
			return true
		}
	}
	return false
}
