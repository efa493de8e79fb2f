package object

import (
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	NoneKind Kind = iota
	IntKind
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case IntKind:
		return "int"
	default:
		return "none"
	}
}

// Value is a runtime scalar: a 64-bit signed integer or None. Values are
// plain data and are copied by assignment. The zero Value is None.
type Value struct {
	kind Kind
	i    int64
}

// None is the value produced by a function that returns without a value.
var None = Value{}

// NewInt returns an integer Value.
func NewInt(i int64) Value {
	return Value{kind: IntKind, i: i}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNone returns true if v is None.
func (v Value) IsNone() bool {
	return v.kind == NoneKind
}

// Int returns the integer held by v. The second result is false for None.
func (v Value) Int() (int64, bool) {
	return v.i, v.kind == IntKind
}

// Equals returns true if both values are the same variant with the same
// contents.
func (v Value) Equals(other Value) bool {
	return v == other
}

// String returns the decimal form of an integer. None renders as the empty
// string.
func (v Value) String() string {
	if v.kind == NoneKind {
		return ""
	}
	return strconv.FormatInt(v.i, 10)
}

// Inspect returns a debugging representation that distinguishes None.
func (v Value) Inspect() string {
	if v.kind == NoneKind {
		return "None"
	}
	return v.String()
}
