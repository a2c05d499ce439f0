package traits

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Separator joins repeated values written under the same key.
const Separator = " | "

// Record is the serialized form of one document: a few Darwin Core terms at
// the top level and everything else under dynamicProperties.
type Record struct {
	Top     map[string]any
	Dynamic map[string]any
}

// NewRecord returns an empty Record.
func NewRecord() *Record {
	return &Record{Top: map[string]any{}, Dynamic: map[string]any{}}
}

// Add writes a top-level value.
func (r *Record) Add(key string, v any) { put(r.Top, key, v) }

// AddDynamic writes a value under dynamicProperties.
func (r *Record) AddDynamic(key string, v any) { put(r.Dynamic, key, v) }

func put(m map[string]any, key string, v any) {
	if key == "" {
		return
	}
	if s, ok := v.(string); ok && s == "" {
		return
	}
	old, ok := m[key]
	if !ok {
		m[key] = v
		return
	}
	next := fmt.Sprint(v)
	for _, seen := range strings.Split(fmt.Sprint(old), Separator) {
		if seen == next {
			return
		}
	}
	m[key] = fmt.Sprintf("%v%s%s", old, Separator, next)
}

// Empty reports whether nothing was written.
func (r *Record) Empty() bool {
	return len(r.Top) == 0 && len(r.Dynamic) == 0
}

// Flat merges both levels into one map, nesting dynamic values.
func (r *Record) Flat() map[string]any {
	out := make(map[string]any, len(r.Top)+1)
	for k, v := range r.Top {
		out[k] = v
	}
	if len(r.Dynamic) > 0 {
		out["dynamicProperties"] = r.Dynamic
	}
	return out
}

// MarshalJSON renders the record with dynamic values nested under
// "dynamicProperties".
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Flat())
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	r.Top = map[string]any{}
	r.Dynamic = map[string]any{}
	for k, v := range flat {
		if k == "dynamicProperties" {
			if m, ok := v.(map[string]any); ok {
				r.Dynamic = m
			}
			continue
		}
		r.Top[k] = v
	}
	return nil
}

// Serialize turns finalized traits into a Record. It reads the traits and
// never changes them, so repeated calls give equal records.
func Serialize(ts []Trait) *Record {
	r := NewRecord()
	for _, t := range ts {
		if t != nil {
			t.dwc(r)
		}
	}
	return r
}
