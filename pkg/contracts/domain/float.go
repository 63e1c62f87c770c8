package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

// Float is an optional float64. The zero value is undefined.
//
// Every estimate that may fail to exist (a fit parameter, a MIC, a growth
// rate, a delta) is carried as a Float instead of a NaN sentinel so that
// undefined values cannot silently leak into arithmetic.
type Float struct {
	Value float64
	Valid bool
}

// Some wraps a defined value. Non-finite inputs yield an undefined Float.
func Some(v float64) Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Float{}
	}
	return Float{Value: v, Valid: true}
}

// None returns an undefined Float.
func None() Float {
	return Float{}
}

// Get returns the value and whether it is defined.
func (f Float) Get() (float64, bool) {
	return f.Value, f.Valid
}

// OrNaN returns the value, or NaN when undefined. Use only at output boundaries.
func (f Float) OrNaN() float64 {
	if !f.Valid {
		return math.NaN()
	}
	return f.Value
}

// Or returns the value, or def when undefined.
func (f Float) Or(def float64) float64 {
	if !f.Valid {
		return def
	}
	return f.Value
}

// String renders the value for tabular output; undefined renders as "NaN".
func (f Float) String() string {
	if !f.Valid {
		return "NaN"
	}
	return strconv.FormatFloat(f.Value, 'g', -1, 64)
}

// MarshalJSON renders undefined values as null.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// UnmarshalJSON accepts a number or null.
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Some(v)
	return nil
}

// ParseFloat parses a tabular cell. Empty, "NaN" and "nan" cells are undefined.
func ParseFloat(s string) (Float, error) {
	switch s {
	case "", "NaN", "nan", "NA", "null":
		return Float{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Float{}, err
	}
	return Some(v), nil
}
