// Package opt provides an explicit optional value
// Absent and present-but-zero are distinct states
package opt

import "fmt"

// Value holds a T or nothing
type Value[T any] struct {
	v  T
	ok bool
}

// Of returns a present value
func Of[T any](v T) Value[T] { return Value[T]{v: v, ok: true} }

// None returns an absent value
func None[T any]() Value[T] { return Value[T]{} }

// Get returns the value and whether it is present
func (o Value[T]) Get() (T, bool) { return o.v, o.ok }

// Present reports whether a value is held
func (o Value[T]) Present() bool { return o.ok }

// Or returns the value or def when absent
func (o Value[T]) Or(def T) T {
	if o.ok {
		return o.v
	}
	return def
}

// OrElse returns o when present, otherwise alt
func (o Value[T]) OrElse(alt Value[T]) Value[T] {
	if o.ok {
		return o
	}
	return alt
}

// Map transforms a present value
func Map[T, U any](o Value[T], f func(T) U) Value[U] {
	if !o.ok {
		return None[U]()
	}
	return Of(f(o.v))
}

func (o Value[T]) String() string {
	if !o.ok {
		return "none"
	}
	return fmt.Sprint(o.v)
}
