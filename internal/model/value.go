package model

import (
	"encoding/json"
	"strconv"
)

// Value is a float64 that may be undefined: warm-up rows, zero denominators
// and missing contract fields all produce the zero Value. NaN is never used
// as a marker, so any finite float stays representable.
type Value struct {
	Float float64
	Valid bool
}

// Some wraps a defined value.
func Some(v float64) Value { return Value{Float: v, Valid: true} }

// None is the undefined value.
func None() Value { return Value{} }

// Ratio returns num/den, or None when den is zero.
func Ratio(num, den float64) Value {
	if den == 0 {
		return None()
	}
	return Some(num / den)
}

// Get returns the float and whether it is defined.
func (v Value) Get() (float64, bool) { return v.Float, v.Valid }

// Or returns the float, or fallback when undefined.
func (v Value) Or(fallback float64) float64 {
	if !v.Valid {
		return fallback
	}
	return v.Float
}

func (v Value) String() string {
	if !v.Valid {
		return "undefined"
	}
	return strconv.FormatFloat(v.Float, 'f', -1, 64)
}

// MarshalJSON encodes undefined values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Float)
}

// UnmarshalJSON decodes null as undefined.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

// Column is one named series aligned index-for-index with a BarSequence.
type Column []Value

// NewColumn returns an all-undefined column of length n.
func NewColumn(n int) Column { return make(Column, n) }

// FirstValid returns the index of the first defined value, or -1.
func (c Column) FirstValid() int {
	for i, v := range c {
		if v.Valid {
			return i
		}
	}
	return -1
}

// Floats returns the raw floats with undefined cells replaced by fallback.
func (c Column) Floats(fallback float64) []float64 {
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = v.Or(fallback)
	}
	return out
}
