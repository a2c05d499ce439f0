package traits

import "strings"

// Part names one or more plant parts. The names live in Link.Part; Type is
// the part's category, e.g. "fruit_part", and drives the output key.
type Part struct {
	Link
	Label string `json:"-"`
	Type  string `json:"type"`
}

func (t *Part) Name() string {
	if t.Label != "" {
		return t.Label
	}
	return "part"
}
func (t *Part) Key() string { return keyBuilder(&t.Link, false, t.Type) }

func (t *Part) dwc(r *Record) {
	r.AddDynamic(t.Key(), strings.Join(t.Part, " | "))
}

// Subpart names a sub-structure such as "apex" or "lobe", optionally with
// the part it belongs to.
type Subpart struct {
	Link
}

func (t *Subpart) Name() string { return "subpart" }
func (t *Subpart) Key() string {
	l := t.Link
	l.Subpart = ""
	return keyBuilder(&l, true, "subpart")
}

func (t *Subpart) dwc(r *Record) {
	r.AddDynamic(t.Key(), t.Subpart)
}

// Sex is a sexual-form marker; the value lives in Link.Sex.
type Sex struct {
	Link
}

func (t *Sex) Name() string { return "sex" }
func (t *Sex) Key() string  { return "sex" }

func (t *Sex) dwc(r *Record) {
	r.Add("sex", t.Sex)
}

// PartLocation places a trait relative to a part ("along the midrib",
// "2 cm above the base"). The value lives in Link.PartLocation.
type PartLocation struct {
	Link
	Type string `json:"type"`
}

func (t *PartLocation) Name() string { return "part_location" }
func (t *PartLocation) Key() string  { return keyBuilder(nil, false, t.Type) }

func (t *PartLocation) dwc(r *Record) {
	r.AddDynamic(t.Key(), t.PartLocation)
}

// Descriptor kinds.
const (
	KindColor     = "color"
	KindSurface   = "surface"
	KindShape     = "shape"
	KindMargin    = "margin"
	KindVenation  = "venation"
	KindWoodiness = "woodiness"
	KindDuration  = "duration"
	KindHabit     = "habit"

	KindOdor             = "odor"
	KindLeafFolding      = "leaf_folding"
	KindLeafDuration     = "leaf_duration"
	KindFlowerMorphology = "flower_morphology"
	KindFlowerLocation   = "flower_location"

	// Whole-plant kinds. The linker never attaches these to a part.
	KindPlantDuration = "plant_duration"
	KindMorphology    = "morphology"
	KindReproduction  = "reproduction"
)

// Descriptor is a single-valued descriptor such as a color, a leaf folding
// or a plant duration. Kind is the trait label and the key suffix.
type Descriptor struct {
	Link
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func (t *Descriptor) Name() string { return t.Kind }
func (t *Descriptor) Key() string  { return keyBuilder(&t.Link, true, t.Kind) }

func (t *Descriptor) dwc(r *Record) {
	r.AddDynamic(t.Key(), t.Value)
}
