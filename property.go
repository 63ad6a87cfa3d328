package boschhttp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"dario.cat/mergo"
)

// Property is the cached value bag of one gateway resource. Zero fields are
// treated as unknown, so merging a partial response never clears them.
type Property struct {
	Value         json.RawMessage  `json:"value,omitempty"`
	Min           json.Number      `json:"minValue,omitempty"`
	Max           json.Number      `json:"maxValue,omitempty"`
	AllowedValues []any            `json:"allowedValues,omitempty"`
	Unit          string           `json:"unitOfMeasure,omitempty"`
	State         []map[string]any `json:"state,omitempty"`
}

// Merge copies the fields present in in and reports whether anything changed
func (p *Property) Merge(in Property) (bool, error) {
	if len(bytes.TrimSpace(in.Value)) == 0 || string(bytes.TrimSpace(in.Value)) == "null" {
		in.Value = nil
	}

	before := p.clone()
	if err := mergo.Merge(p, in, mergo.WithOverride); err != nil {
		return false, fmt.Errorf("merge property: %w", err)
	}

	return !reflect.DeepEqual(before, *p), nil
}

func (p Property) clone() Property {
	res := p
	res.Value = append(json.RawMessage(nil), p.Value...)
	res.AllowedValues = append([]any(nil), p.AllowedValues...)
	res.State = append([]map[string]any(nil), p.State...)
	return res
}

func (p Property) HasValue() bool {
	return len(p.Value) > 0
}

func (p Property) decoded() (any, bool) {
	if !p.HasValue() {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(p.Value, &v); err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// Valid reports whether the property carries a value that is not one of the
// invalid-value sentinels listed in its state.
func (p Property) Valid() bool {
	v, ok := p.decoded()
	if !ok {
		return false
	}

	for _, state := range p.State {
		for _, sentinel := range state {
			if sameValue(v, sentinel) {
				return false
			}
		}
	}

	return true
}

func sameValue(a, b any) bool {
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		return fa == fb
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Float returns the numeric value if it is valid
func (p Property) Float() (float64, bool) {
	if !p.Valid() {
		return 0, false
	}
	v, _ := p.decoded()
	return toFloat(v)
}

// String returns the value as text, json strings are unquoted
func (p Property) String() string {
	v, ok := p.decoded()
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return string(p.Value)
}

func (p Property) MinValue(def float64) float64 {
	if f, err := p.Min.Float64(); err == nil {
		return f
	}
	return def
}

func (p Property) MaxValue(def float64) float64 {
	if f, err := p.Max.Float64(); err == nil {
		return f
	}
	return def
}

func (p Property) HasBounds() bool {
	return p.Min != "" && p.Max != ""
}

func (p Property) AllowedStrings() []string {
	res := make([]string, 0, len(p.AllowedValues))
	for _, v := range p.AllowedValues {
		if s, ok := v.(string); ok {
			res = append(res, s)
		} else {
			res = append(res, fmt.Sprint(v))
		}
	}
	return res
}

// SetValue replaces the cached value without a device read
func (p *Property) SetValue(v any) {
	switch t := v.(type) {
	case float64:
		p.Value = json.RawMessage(strconv.FormatFloat(t, 'f', -1, 64))
	default:
		p.Value = rawValue(v)
	}
}
