// Package expr implements the restricted expression language shared by the
// PILOT, BASIC and Logo dialects: a lexer, a Pratt parser producing a small
// typed AST, and a tree-walking evaluator over a closed function table.
package expr

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the runtime type tag of a Value.
type Kind uint8

const (
	NumberKind Kind = iota
	StringKind
)

func (k Kind) String() string {
	if k == StringKind {
		return "string"
	}
	return "number"
}

// Value is a tagged Number|String value.
// The zero value is the number 0.
type Value struct {
	kind Kind
	num  float64
	str  string
}

// Num returns a Number value.
func Num(f float64) Value { return Value{kind: NumberKind, num: f} }

// Str returns a String value.
func Str(s string) Value { return Value{kind: StringKind, str: s} }

// Bool returns 1 for true and 0 for false.
func Bool(b bool) Value {
	if b {
		return Num(1)
	}
	return Num(0)
}

// Kind returns the type tag.
func (v Value) Kind() Kind { return v.kind }

// IsNumber reports whether v holds a Number.
func (v Value) IsNumber() bool { return v.kind == NumberKind }

// IsString reports whether v holds a String.
func (v Value) IsString() bool { return v.kind == StringKind }

// Number returns the numeric payload and whether v is a Number.
func (v Value) Number() (float64, bool) {
	return v.num, v.kind == NumberKind
}

// Text returns the string payload and whether v is a String.
func (v Value) Text() (string, bool) {
	return v.str, v.kind == StringKind
}

// AsNumber coerces v to a number. Strings that parse as a number convert;
// anything else reports false.
func (v Value) AsNumber() (float64, bool) {
	if v.kind == NumberKind {
		return v.num, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Truthy reports the boolean interpretation: non-zero numbers and
// non-empty strings are true.
func (v Value) Truthy() bool {
	if v.kind == StringKind {
		return v.str != ""
	}
	return v.num != 0 && !math.IsNaN(v.num)
}

// String formats v for output. Integral numbers print without a fraction.
func (v Value) String() string {
	if v.kind == StringKind {
		return v.str
	}
	return FormatNumber(v.num)
}

// Equal reports whether two values are equal. Values of different kinds
// are never equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == StringKind {
		return v.str == o.str
	}
	return v.num == o.num
}

// Interface returns the payload as float64 or string, for serialisation.
func (v Value) Interface() any {
	if v.kind == StringKind {
		return v.str
	}
	return v.num
}

// FromInterface converts a decoded document value back into a Value.
// Integers, floats, strings and booleans are accepted.
func FromInterface(x any) (Value, bool) {
	switch t := x.(type) {
	case Value:
		return t, true
	case float64:
		return Num(t), true
	case float32:
		return Num(float64(t)), true
	case int:
		return Num(float64(t)), true
	case int64:
		return Num(float64(t)), true
	case uint64:
		return Num(float64(t)), true
	case string:
		return Str(t), true
	case bool:
		return Bool(t), true
	}
	return Value{}, false
}

// FormatNumber renders f the way program output expects it.
func FormatNumber(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if math.IsNaN(f) {
		return "nan"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ParseLiteral interprets raw input text: numeric text becomes a Number,
// everything else a String.
func ParseLiteral(s string) Value {
	t := strings.TrimSpace(s)
	if t == "" {
		return Str(s)
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && !strings.ContainsAny(t, "xXpP_") && !isNamedFloat(t) {
		return Num(f)
	}
	return Str(s)
}

func isNamedFloat(t string) bool {
	l := strings.ToLower(strings.TrimLeft(t, "+-"))
	return l == "inf" || l == "infinity" || l == "nan"
}
