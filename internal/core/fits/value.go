// Package fits implements the subset of the FITS format the assembler relies on:
// 80-column header cards, ordered headers, 2880-byte block padding, the
// 1's-complement HDU checksum, and big-endian image data
package fits

import (
	"fmt"
	"math"
)

// Kind tags the variant held by a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is a header card value: exactly one of string, int64, float64, bool or null
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

// Null returns the undefined value
func Null() Value { return Value{} }

// String wraps a string value
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int wraps an integer value
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a floating point value; NaN and Inf become null since FITS cannot carry them
func Float(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: KindFloat, f: f}
}

// Bool wraps a logical value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports which variant v holds
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the undefined value
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string variant
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsInt returns the integer variant
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float variant, promoting integers
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// AsBool returns the logical variant
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// Equal compares variant and payload exactly
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	}
	return true
}

// Any returns the payload as a plain Go value, nil for null
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	}
	return nil
}

func (v Value) GoString() string { return fmt.Sprintf("fits.Value{%s %v}", v.kind, v.Any()) }
