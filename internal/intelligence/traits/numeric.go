package traits

import (
	"math"
	"strconv"
)

// Range is a raw numeric range as written: up to four bounds kept as source
// text so later builders decide how to read them. "" means unset.
type Range struct {
	Link
	Min  string `json:"min,omitempty"`
	Low  string `json:"low,omitempty"`
	High string `json:"high,omitempty"`
	Max  string `json:"max,omitempty"`
}

func (t *Range) Name() string { return "range" }
func (t *Range) Key() string  { return keyBuilder(&t.Link, true, "range") }

// Bounds returns the set bounds in min, low, high, max order.
func (t *Range) Bounds() []string {
	var out []string
	for _, v := range []string{t.Min, t.Low, t.High, t.Max} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Ordered reports whether the set bounds are non-decreasing.
func (t *Range) Ordered() bool {
	prev := math.Inf(-1)
	for _, v := range t.Bounds() {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < prev {
			return false
		}
		prev = f
	}
	return true
}

func (t *Range) dwc(r *Record) {
	key := t.Key()
	for _, f := range []struct{ suffix, v string }{
		{"Minimum", t.Min}, {"Low", t.Low}, {"High", t.High}, {"Maximum", t.Max},
	} {
		if f.v != "" {
			r.AddDynamic(key+f.suffix, f.v)
		}
	}
}

// Count is an integer count range. Zero means unset; counts are always
// positive.
type Count struct {
	Link
	Min        int    `json:"min,omitempty"`
	Low        int    `json:"low,omitempty"`
	High       int    `json:"high,omitempty"`
	Max        int    `json:"max,omitempty"`
	CountGroup string `json:"count_group,omitempty"`
	PerPart    string `json:"per_part,omitempty"`
}

func (t *Count) Name() string { return "count" }
func (t *Count) Key() string  { return keyBuilder(&t.Link, true, "count") }

func (t *Count) dwc(r *Record) {
	key := t.Key()
	for _, f := range []struct {
		suffix string
		v      int
	}{{"Minimum", t.Min}, {"Low", t.Low}, {"High", t.High}, {"Maximum", t.Max}} {
		if f.v != 0 {
			r.AddDynamic(key+f.suffix, f.v)
		}
	}
	if t.CountGroup != "" {
		r.AddDynamic(key+"Group", t.CountGroup)
	}
	if t.PerPart != "" {
		r.AddDynamic(key+"PerPart", t.PerPart)
	}
}

// Dimension is one measured axis of a Size, in centimeters. Zero means unset.
type Dimension struct {
	Dim  string  `json:"dim"`
	Min  float64 `json:"min,omitempty"`
	Low  float64 `json:"low,omitempty"`
	High float64 `json:"high,omitempty"`
	Max  float64 `json:"max,omitempty"`
}

// Size is a one- to three-dimensional measurement converted to centimeters.
type Size struct {
	Link
	Dims      []Dimension `json:"dims"`
	Units     string      `json:"units"`
	Uncertain bool        `json:"uncertain,omitempty"`
}

func (t *Size) Name() string { return "size" }
func (t *Size) Key() string  { return keyBuilder(&t.Link, true, "size") }

// DimNames lists the dimension names in order.
func (t *Size) DimNames() []string {
	out := make([]string, len(t.Dims))
	for i, d := range t.Dims {
		out[i] = d.Dim
	}
	return out
}

func (t *Size) dwc(r *Record) {
	for _, d := range t.Dims {
		key := keyBuilder(&t.Link, true, d.Dim)
		for _, f := range []struct {
			suffix string
			v      float64
		}{{"Minimum", d.Min}, {"Low", d.Low}, {"High", d.High}, {"Maximum", d.Max}} {
			if f.v != 0 {
				r.AddDynamic(key+f.suffix+"InCentimeters", f.v)
			}
		}
	}
	if t.Uncertain {
		r.AddDynamic(keyBuilder(&t.Link, true, "size uncertain"), true)
	}
}
