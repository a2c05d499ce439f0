package traits

import "strings"

// Taxon levels.
const (
	LevelHigher  = "higher"
	LevelSpecies = "species"
	LevelLower   = "lower"
)

// Taxon is a scientific name with its rank and authority. Authority holds
// every authority group seen, comma separated.
type Taxon struct {
	Taxon      string `json:"taxon"`
	Rank       string `json:"rank"`
	Level      string `json:"level,omitempty"`
	Authority  string `json:"authority,omitempty"`
	TaxonLike  string `json:"taxon_like,omitempty"`
	Associated bool   `json:"associated,omitempty"`
}

func (t *Taxon) Name() string { return "taxon" }
func (t *Taxon) Key() string  { return "scientificName" }
func (t *Taxon) Links() *Link { return nil }

// Copy returns a shallow copy so a later pass can extend it without
// touching the cached original.
func (t *Taxon) Copy() *Taxon {
	c := *t
	return &c
}

// AddAuthority appends auth to the authority list.
func (t *Taxon) AddAuthority(auth string) {
	if auth == "" {
		return
	}
	if t.Authority == "" {
		t.Authority = auth
		return
	}
	t.Authority += ", " + auth
}

func (t *Taxon) dwc(r *Record) {
	switch {
	case t.Associated:
		r.Add("associatedTaxa", t.Taxon)
	case t.Level == LevelHigher && t.TaxonLike == "":
		r.Add(strings.ToLower(t.Rank), t.Taxon)
	case t.TaxonLike != "":
		r.AddDynamic("taxonLike", strings.TrimSpace(t.TaxonLike+" "+t.Taxon))
	default:
		r.Add("scientificName", t.Taxon)
		r.Add("taxonRank", t.Rank)
		if t.Authority != "" {
			r.Add("scientificNameAuthorship", t.Authority)
		}
	}
}

// AdminUnit is a political unit: country, province or US state and county.
type AdminUnit struct {
	Country  string `json:"country,omitempty"`
	Province string `json:"province,omitempty"`
	USState  string `json:"us_state,omitempty"`
	USCounty string `json:"us_county,omitempty"`
}

func (t *AdminUnit) Name() string { return "admin_unit" }
func (t *AdminUnit) Key() string  { return "stateProvince" }
func (t *AdminUnit) Links() *Link { return nil }

func (t *AdminUnit) dwc(r *Record) {
	if t.Country != "" {
		r.Add("country", t.Country)
	}
	if t.USState != "" {
		r.Add("stateProvince", t.USState)
	}
	if t.Province != "" {
		r.Add("stateProvince", t.Province)
	}
	if t.USCounty != "" {
		r.Add("county", t.USCounty)
	}
}

// Job is a person acting in a role: collector, determiner and so on.
type Job struct {
	Job      string `json:"job"`
	Person   string `json:"name"`
	HasLabel bool   `json:"has_label,omitempty"`
}

func (t *Job) Name() string { return "job" }

func (t *Job) Key() string {
	switch t.Job {
	case "collector", "other_collector":
		return "recordedBy"
	case "determiner":
		return "identifiedBy"
	}
	return camel([]string{t.Job})
}
func (t *Job) Links() *Link { return nil }

func (t *Job) dwc(r *Record) {
	r.Add(t.Key(), t.Person)
}

// IDNumber is a record, accession or collector identifier.
type IDNumber struct {
	Number   string `json:"number"`
	Type     string `json:"type"`
	HasLabel bool   `json:"has_label,omitempty"`
}

func (t *IDNumber) Name() string { return "id_number" }

func (t *IDNumber) Key() string {
	switch t.Type {
	case "record_number":
		return "recordNumber"
	case "collector_id":
		return "recordedByID"
	}
	return camel([]string{t.Type})
}
func (t *IDNumber) Links() *Link { return nil }

func (t *IDNumber) dwc(r *Record) {
	if t.Type == "record_number" || t.Type == "collector_id" {
		r.Add(t.Key(), t.Number)
		return
	}
	r.AddDynamic(t.Key(), t.Number)
}

// Date is an event date normalized to ISO 8601 when the source allows it.
type Date struct {
	Date string `json:"date"`
}

func (t *Date) Name() string  { return "date" }
func (t *Date) Key() string   { return "eventDate" }
func (t *Date) Links() *Link  { return nil }
func (t *Date) dwc(r *Record) { r.Add(t.Key(), t.Date) }

// Locality is a verbatim place description.
type Locality struct {
	Locality string `json:"locality"`
	Labeled  bool   `json:"labeled,omitempty"`
}

func (t *Locality) Name() string  { return "locality" }
func (t *Locality) Key() string   { return "verbatimLocality" }
func (t *Locality) Links() *Link  { return nil }
func (t *Locality) dwc(r *Record) { r.Add(t.Key(), t.Locality) }

// PersonName is an intermediate person name; jobs consume it.
type PersonName struct {
	Person string `json:"name"`
}

func (t *PersonName) Name() string  { return "name" }
func (t *PersonName) Key() string   { return "name" }
func (t *PersonName) Links() *Link  { return nil }
func (t *PersonName) dwc(_ *Record) {}
