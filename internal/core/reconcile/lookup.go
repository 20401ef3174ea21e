// Package reconcile extracts optional facts from raw headers and resolves them
// across the image and primary header sources in a fixed preference order
package reconcile

import (
	"math"

	"ffiassembler/internal/core/fits"

	perr "ffiassembler/internal/platform/errors"
)

// State classifies one keyword lookup
type State uint8

const (
	// Absent means the keyword is missing or undefined; callers fall back
	Absent State = iota
	// Found means the keyword carried a usable value
	Found
	// Malformed means the keyword is present with a value of the wrong type
	Malformed
)

func (s State) String() string {
	switch s {
	case Found:
		return "found"
	case Malformed:
		return "malformed"
	default:
		return "absent"
	}
}

// Lookup is the typed result of reading one keyword
type Lookup[T any] struct {
	Value T
	State State
	Key   string
	Kind  fits.Kind
}

func find(h fits.Header, key string) (fits.Value, bool) {
	r, ok := h.Lookup(key)
	if !ok || r.Value.IsNull() {
		return fits.Value{}, false
	}
	return r.Value, true
}

// Bool reads a logical keyword
func Bool(h fits.Header, key string) Lookup[bool] {
	v, ok := find(h, key)
	if !ok {
		return Lookup[bool]{Key: key}
	}
	b, ok := v.AsBool()
	if !ok {
		return Lookup[bool]{Key: key, State: Malformed, Kind: v.Kind()}
	}
	return Lookup[bool]{Value: b, State: Found, Key: key, Kind: v.Kind()}
}

// Float reads a real keyword; integer cards are promoted
func Float(h fits.Header, key string) Lookup[float64] {
	v, ok := find(h, key)
	if !ok {
		return Lookup[float64]{Key: key}
	}
	f, ok := v.AsFloat()
	if !ok {
		return Lookup[float64]{Key: key, State: Malformed, Kind: v.Kind()}
	}
	return Lookup[float64]{Value: f, State: Found, Key: key, Kind: v.Kind()}
}

// Int32 reads an integer keyword; real cards are truncated toward zero
func Int32(h fits.Header, key string) Lookup[int32] {
	v, ok := find(h, key)
	if !ok {
		return Lookup[int32]{Key: key}
	}
	var x float64
	switch v.Kind() {
	case fits.KindInt:
		i, _ := v.AsInt()
		x = float64(i)
	case fits.KindFloat:
		f, _ := v.AsFloat()
		x = math.Trunc(f)
	default:
		return Lookup[int32]{Key: key, State: Malformed, Kind: v.Kind()}
	}
	if x > math.MaxInt32 || x < math.MinInt32 {
		return Lookup[int32]{Key: key, State: Malformed, Kind: v.Kind()}
	}
	return Lookup[int32]{Value: int32(x), State: Found, Key: key, Kind: v.Kind()}
}

// String reads a string keyword
func String(h fits.Header, key string) Lookup[string] {
	v, ok := find(h, key)
	if !ok {
		return Lookup[string]{Key: key}
	}
	s, ok := v.AsString()
	if !ok {
		return Lookup[string]{Key: key, State: Malformed, Kind: v.Kind()}
	}
	return Lookup[string]{Value: s, State: Found, Key: key, Kind: v.Kind()}
}

func (l Lookup[T]) err(source string) error {
	return perr.WithField(
		perr.Malformedf("%s header keyword %s holds a %s value", source, l.Key, l.Kind),
		l.Key,
	)
}
