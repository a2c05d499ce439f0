package traits

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyBuilder(t *testing.T) {
	tests := []struct {
		name   string
		link   Link
		ctx    bool
		suffix []string
		want   string
	}{
		{"part only", Link{Part: []string{"seed"}}, true, []string{"count"}, "seedCount"},
		{"sex part subpart", Link{Sex: "female", Part: []string{"flower"}, Subpart: "lobe"}, true, []string{"count"}, "femaleFlowerLobeCount"},
		{"missing prefix", Link{Missing: true, Part: []string{"leaf"}}, true, []string{"surface"}, "missingLeafSurface"},
		{"hyphen and underscore", Link{Part: []string{"leaf-blade"}}, true, []string{"part_location"}, "leafBladePartLocation"},
		{"duplicates dropped", Link{Part: []string{"leaf"}, Subpart: "leaf apex"}, true, []string{"size"}, "leafApexSize"},
		{"multi part", Link{Part: []string{"leaf", "stem"}}, true, []string{"color"}, "leafStemColor"},
		{"no context", Link{Part: []string{"seed"}}, false, []string{"fruit_part"}, "fruitPart"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := tt.link
			assert.Equal(t, tt.want, keyBuilder(&l, tt.ctx, tt.suffix...))
		})
	}
}

func TestLink_Inherit(t *testing.T) {
	child := NewLink()
	child.Sex = "male"
	parent := Link{Part: []string{"flower"}, Sex: "female", Subpart: "petal"}
	child.Inherit(&parent)

	assert.Equal(t, []string{"flower"}, child.Part)
	assert.Equal(t, "petal", child.Subpart)
	assert.Equal(t, "male", child.Sex, "set fields are not overwritten")
	assert.Equal(t, Unset, child.PartDist)
}

func TestRange_Ordered(t *testing.T) {
	assert.True(t, (&Range{Min: "1", Low: "3", High: "12", Max: "30"}).Ordered())
	assert.True(t, (&Range{Low: "3"}).Ordered())
	assert.False(t, (&Range{Low: "12", High: "3"}).Ordered())
	assert.False(t, (&Range{Low: "x"}).Ordered())
}

func TestSerialize_SeedCount(t *testing.T) {
	part := &Part{Link: NewLink(), Type: "fruit_part"}
	part.Part = []string{"seed"}
	count := &Count{Link: NewLink(), Min: 1, Low: 3, High: 12, Max: 30}
	count.Part = []string{"seed"}

	rec := Serialize([]Trait{part, count})
	assert.Equal(t, map[string]any{
		"fruitPart":        "seed",
		"seedCountMinimum": 1,
		"seedCountLow":     3,
		"seedCountHigh":    12,
		"seedCountMaximum": 30,
	}, rec.Dynamic)
	assert.Empty(t, rec.Top)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"dynamicProperties":{"fruitPart":"seed","seedCountMinimum":1,"seedCountLow":3,"seedCountHigh":12,"seedCountMaximum":30}}`, string(raw))
}

func TestSerialize_IsPure(t *testing.T) {
	size := &Size{Link: NewLink(), Units: "cm", Dims: []Dimension{
		{Dim: "length", Low: 2, High: 4},
		{Dim: "width", Low: 0.2, High: 1},
	}}
	size.Part = []string{"leaf"}
	ts := []Trait{size, &Taxon{Taxon: "Mimosa sensitiva", Rank: "species", Authority: "Linnaeus, Fox"}}

	first := Serialize(ts)
	second := Serialize(ts)
	assert.Equal(t, first, second)
	assert.Equal(t, 0.2, first.Dynamic["leafWidthLowInCentimeters"])
	assert.Equal(t, 4.0, first.Dynamic["leafLengthHighInCentimeters"])
	assert.Equal(t, "Mimosa sensitiva", first.Top["scientificName"])
	assert.Equal(t, "Linnaeus, Fox", first.Top["scientificNameAuthorship"])
}

func TestSerialize_RepeatedKeysJoin(t *testing.T) {
	a := &Descriptor{Link: NewLink(), Kind: KindColor, Value: "red"}
	b := &Descriptor{Link: NewLink(), Kind: KindColor, Value: "green"}
	c := &Descriptor{Link: NewLink(), Kind: KindColor, Value: "red"}
	rec := Serialize([]Trait{a, b, c})
	assert.Equal(t, "red | green", rec.Dynamic["color"])
}

func TestSerialize_LabelTraits(t *testing.T) {
	rec := Serialize([]Trait{
		&AdminUnit{USState: "Colorado", USCounty: "Archuleta"},
		&Taxon{Taxon: "Mimosa", Rank: "genus", Level: LevelHigher},
		&Taxon{Taxon: "Quercus alba", Rank: "species", Associated: true},
		&Job{Job: "collector", Person: "A. Smith"},
		&Job{Job: "determiner", Person: "B. Jones", HasLabel: true},
		&IDNumber{Number: "1234", Type: "record_number"},
		&IDNumber{Number: "K55", Type: "accession_number", HasLabel: true},
		&Date{Date: "2001-03-12"},
		&Locality{Locality: "Pagosa Springs"},
		&Sex{Link: Link{Sex: "female"}},
		&PersonName{Person: "ignored"},
	})
	assert.Equal(t, map[string]any{
		"stateProvince":    "Colorado",
		"county":           "Archuleta",
		"genus":            "Mimosa",
		"associatedTaxa":   "Quercus alba",
		"recordedBy":       "A. Smith",
		"identifiedBy":     "B. Jones",
		"recordNumber":     "1234",
		"eventDate":        "2001-03-12",
		"verbatimLocality": "Pagosa Springs",
		"sex":              "female",
	}, rec.Top)
	assert.Equal(t, map[string]any{"accessionNumber": "K55"}, rec.Dynamic)
}

func TestRecord_JSONRoundTrip(t *testing.T) {
	rec := NewRecord()
	rec.Add("scientificName", "Mimosa")
	rec.AddDynamic("leafColor", "green")
	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var back Record
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "Mimosa", back.Top["scientificName"])
	assert.Equal(t, "green", back.Dynamic["leafColor"])
}

func TestDifferValue(t *testing.T) {
	s := &Size{Link: Link{Sex: "male"}, Dims: []Dimension{{Dim: "length"}, {Dim: "width"}}}
	assert.Equal(t, "male", DifferValue(s, "sex"))
	assert.Equal(t, "length width", DifferValue(s, "dimensions"))
	assert.Equal(t, "", DifferValue(&Taxon{}, "sex"))
	assert.Equal(t, "", DifferValue(&Count{}, "dimensions"))
}
