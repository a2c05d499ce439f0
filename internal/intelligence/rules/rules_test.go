package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FloraTraits/internal/intelligence/annotation"
	"github.com/turtacn/FloraTraits/internal/intelligence/gazetteer"
	"github.com/turtacn/FloraTraits/internal/intelligence/matcher"
	"github.com/turtacn/FloraTraits/internal/intelligence/pipeline"
	"github.com/turtacn/FloraTraits/internal/intelligence/rules"
	"github.com/turtacn/FloraTraits/internal/intelligence/traits"
)

func run(t *testing.T, text string) *pipeline.Result {
	t.Helper()
	p, err := pipeline.New(pipeline.DefaultOptions(), nil)
	require.NoError(t, err)
	return p.Run(text)
}

func find[T traits.Trait](res *pipeline.Result) []T {
	var out []T
	for _, tr := range res.Traits {
		if v, ok := tr.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func TestDate_DayMonthYear(t *testing.T) {
	res := run(t, "On 12 May 1994.")
	dates := find[*traits.Date](res)
	require.Len(t, dates, 1)
	assert.Equal(t, "1994-05-12", dates[0].Date)
	assert.Equal(t, "1994-05-12", res.Record.Top["eventDate"])
}

func TestDate_MonthYear(t *testing.T) {
	res := run(t, "In May 1994.")
	dates := find[*traits.Date](res)
	require.Len(t, dates, 1)
	assert.Equal(t, "1994-05", dates[0].Date)
}

func TestJob_LabeledCollectorWithNumber(t *testing.T) {
	res := run(t, "Collector: John Smith 1234")

	jobs := find[*traits.Job](res)
	require.Len(t, jobs, 1)
	assert.Equal(t, "collector", jobs[0].Job)
	assert.Equal(t, "John Smith", jobs[0].Person)
	assert.True(t, jobs[0].HasLabel)

	ids := find[*traits.IDNumber](res)
	require.Len(t, ids, 1)
	assert.Equal(t, "1234", ids[0].Number)
	assert.Equal(t, "record_number", ids[0].Type)

	assert.Equal(t, "John Smith", res.Record.Top["recordedBy"])
	assert.Equal(t, "1234", res.Record.Top["recordNumber"])
}

func TestIDNumber_LabelType(t *testing.T) {
	res := run(t, "Acc. 5678")

	ids := find[*traits.IDNumber](res)
	require.Len(t, ids, 1)
	assert.Equal(t, "accession_number", ids[0].Type)
	assert.True(t, ids[0].HasLabel)
	assert.Equal(t, "5678", res.Record.Dynamic["accessionNumber"])
}

func TestAdminUnit_CountyLabelState(t *testing.T) {
	res := run(t, "Boulder County, Colorado")

	units := find[*traits.AdminUnit](res)
	require.Len(t, units, 1)
	assert.Equal(t, "Boulder", units[0].USCounty)
	assert.Equal(t, "Colorado", units[0].USState)
}

func TestAdminUnit_CountyOutsideState(t *testing.T) {
	res := run(t, "Jefferson NM")
	assert.Empty(t, find[*traits.AdminUnit](res))
}

func TestTaxon_Binomial(t *testing.T) {
	res := run(t, "Quercus gambelii")

	taxa := find[*traits.Taxon](res)
	require.Len(t, taxa, 1)
	assert.Equal(t, "Quercus gambelii", taxa[0].Taxon)
	assert.Equal(t, "species", taxa[0].Rank)
	assert.Equal(t, "Quercus gambelii", res.Record.Top["scientificName"])
}

// tagged tokenizes and term-tags text without running any trait pass.
func tagged(t *testing.T, text string) (*annotation.Doc, *rules.Set) {
	t.Helper()
	gaz, err := gazetteer.Default()
	require.NoError(t, err)
	doc := annotation.Tokenize(text)
	gaz.Tag(doc)
	return doc, rules.New(gaz)
}

func runPass(t *testing.T, doc *annotation.Doc, name string, rs []*matcher.Rule, merge []string) {
	t.Helper()
	p, err := pipeline.NewTraitPass(name, rs, nil, nil, merge)
	require.NoError(t, err)
	p.Run(doc)
}

func spansIn(doc *annotation.Doc, label string) []*annotation.Span {
	var out []*annotation.Span
	for _, s := range doc.Spans() {
		if !s.Term && s.In([]string{label}) {
			out = append(out, s)
		}
	}
	return out
}

func TestRange_LowHigh(t *testing.T) {
	doc, rs := tagged(t, "Petals 3–4.")
	runPass(t, doc, "range", rs.RangeRules(), nil)

	ranges := spansIn(doc, "range")
	require.Len(t, ranges, 1)
	r := ranges[0].Trait.(*traits.Range)
	assert.Equal(t, "3", r.Low)
	assert.Equal(t, "4", r.High)
}

func TestRange_Rejected(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"ratio", "Petals 3/4."},
		{"degrees", "Petals 5°."},
		{"month", "Flowering June 12."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, rs := tagged(t, tt.text)
			runPass(t, doc, "range", rs.RangeRules(), nil)
			assert.Empty(t, spansIn(doc, "range"))
		})
	}
}

func TestSize_UnitFactors(t *testing.T) {
	tests := []struct {
		unit string
		want float64
	}{
		{"mm", 0.2},
		{"cm", 2},
		{"dm", 20},
		{"m", 200},
		{"ft", 60.96},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			res := run(t, "Leaves 2 "+tt.unit+" long.")

			sizes := find[*traits.Size](res)
			require.Len(t, sizes, 1)
			require.Len(t, sizes[0].Dims, 1)
			assert.Equal(t, "length", sizes[0].Dims[0].Dim)
			assert.InDelta(t, tt.want, sizes[0].Dims[0].Low, 1e-9)
			assert.Equal(t, []string{"leaf"}, sizes[0].Part)
		})
	}
}

func TestSize_RoundsToThreeDecimals(t *testing.T) {
	res := run(t, "Leaves 1.234 mm long.")

	sizes := find[*traits.Size](res)
	require.Len(t, sizes, 1)
	assert.InDelta(t, 0.123, sizes[0].Dims[0].Low, 1e-9)
}

func TestSize_ImplausibleMetersRejected(t *testing.T) {
	res := run(t, "Leaves 150 m long.")

	assert.Empty(t, find[*traits.Size](res))
	assert.Empty(t, find[*traits.Count](res))
	assert.NotContains(t, res.Record.Dynamic, "leafCountLow")
}

func TestCount_SuffixFoldsIntoSubpart(t *testing.T) {
	res := run(t, "Leaves 3-foliolate.")

	counts := find[*traits.Count](res)
	require.Len(t, counts, 1)
	assert.Equal(t, 3, counts[0].Low)
	assert.Equal(t, "leaflet", counts[0].Subpart)
	assert.Equal(t, 3, res.Record.Dynamic["leafLeafletCountLow"])
}

func TestCount_PerCountBecomesGroup(t *testing.T) {
	res := run(t, "Leaves 3 pairs.")

	counts := find[*traits.Count](res)
	require.Len(t, counts, 1)
	assert.Equal(t, 3, counts[0].Low)
	assert.Equal(t, "pairs", counts[0].CountGroup)
	assert.Equal(t, "pairs", res.Record.Dynamic["leafCountGroup"])
}

func TestCount_NonIntegerRejected(t *testing.T) {
	res := run(t, "Petals 2.5.")
	assert.Empty(t, find[*traits.Count](res))
}

func TestTaxon_AbbreviatedGenus(t *testing.T) {
	res := run(t, "M. sensitiva")

	taxa := find[*traits.Taxon](res)
	require.Len(t, taxa, 1)
	assert.Equal(t, "Mimosa sensitiva", taxa[0].Taxon)
	assert.Equal(t, "species", taxa[0].Rank)
}

func TestTaxon_ExtendedByLowerRank(t *testing.T) {
	res := run(t, "Quercus gambelii L. var. glabra")

	taxa := find[*traits.Taxon](res)
	require.Len(t, taxa, 1)
	assert.Equal(t, "Quercus gambelii var. glabra", taxa[0].Taxon)
	assert.Equal(t, "variety", taxa[0].Rank)
	assert.Equal(t, "Linnaeus", taxa[0].Authority)
}

func TestTaxon_AuthorityJoinedWithAnd(t *testing.T) {
	res := run(t, "Quercus gambelii Smith and Jones")

	taxa := find[*traits.Taxon](res)
	require.Len(t, taxa, 1)
	assert.Equal(t, "Quercus gambelii", taxa[0].Taxon)
	assert.Equal(t, "Smith and Jones", taxa[0].Authority)
}

func TestLocality_ExtendMergesNeighbours(t *testing.T) {
	doc, rs := tagged(t, "road bend, creek")
	runPass(t, doc, "locality", rs.LocalityRules(), nil)
	require.Len(t, spansIn(doc, "locality"), 2)

	runPass(t, doc, "locality_extend", rs.LocalityExtendRules(), []string{"locality"})

	locs := spansIn(doc, "locality")
	require.Len(t, locs, 1)
	assert.Equal(t, 0, locs[0].Start)
	assert.Equal(t, len(doc.Tokens), locs[0].End)
	assert.Equal(t, "road bend, creek", locs[0].Trait.(*traits.Locality).Locality)
}

func TestDescriptor_Families(t *testing.T) {
	tests := []struct {
		text  string
		key   string
		value string
	}{
		{"Leaves deciduous.", "leafDuration", "deciduous"},
		{"Leaves (cucullate).", "leafFolding", "cucullate"},
		{"Flowers fragrant.", "flowerOdor", "fragrant"},
		{"Flowers epigynous.", "flowerLocation", "inferior"},
		{"Petals accrescent.", "petalFlowerMorphology", "accrescent"},
		{"Flowers gynodioecious.", "reproduction", "gynodioecious"},
		{"Perennial herbs.", "plantDuration", "perennial"},
		{"Spores homomorphic.", "morphology", "homomorphic"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			res := run(t, tt.text)
			assert.Equal(t, tt.value, res.Record.Dynamic[tt.key])
		})
	}
}

func TestDescriptor_WholePlantKindsStayUnlinked(t *testing.T) {
	res := run(t, "Flowers gynodioecious.")

	var found bool
	for _, d := range find[*traits.Descriptor](res) {
		if d.Kind == traits.KindReproduction {
			found = true
			assert.Empty(t, d.Part)
		}
	}
	assert.True(t, found)
}
