package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueKind enumerates the scalar types a variable can hold.
type ValueKind uint8

const (
	KindString ValueKind = iota + 1
	KindNumber
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "undefined"
	}
}

// Value is an immutable scalar: a string, a number or a boolean.
// The zero Value is undefined and never stored.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
}

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports the scalar type of v.
func (v Value) Kind() ValueKind { return v.kind }

// IsDefined reports whether v holds a value.
func (v Value) IsDefined() bool { return v.kind != 0 }

// IsValid reports whether v can be stored: it is defined and, when numeric,
// finite.
func (v Value) IsValid() bool {
	if v.kind == KindNumber {
		return !math.IsInf(v.num, 0) && !math.IsNaN(v.num)
	}
	return v.IsDefined()
}

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric payload and whether v is a number.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Boolean returns the boolean payload and whether v is a boolean.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Truthy applies the document truthiness rules: booleans as is,
// numbers nonzero, strings non-empty. Undefined is false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0
	case KindString:
		return v.str != ""
	default:
		return false
	}
}

// Render returns the canonical text form used by interpolation.
func (v Value) Render() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return FormatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (v Value) String() string {
	if v.kind == KindString {
		return strconv.Quote(v.str)
	}
	if v.kind == 0 {
		return "<undefined>"
	}
	return v.Render()
}

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	}
	return true
}

// Size is the number of bytes the value counts against the state ceiling.
func (v Value) Size() int {
	switch v.kind {
	case KindString:
		return len(v.str)
	case KindNumber:
		return 8
	case KindBool:
		return 1
	default:
		return 0
	}
}

// Interface returns the value as a plain Go scalar (string, float64 or bool).
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// FormatNumber renders a number in its shortest canonical decimal form.
func FormatNumber(n float64) string {
	if math.Abs(n) < 1e21 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// ValueOf converts a decoded Go scalar into a Value.
// Arrays, objects and nil are rejected.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		if !t.IsDefined() {
			return Value{}, fmt.Errorf("%w: undefined", ErrInvalidValue)
		}
		if !t.IsValid() {
			return Value{}, fmt.Errorf("%w: not a finite number", ErrInvalidValue)
		}
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: number %q: %v", ErrInvalidValue, t.String(), err)
		}
		return finite(f)
	case nil:
		return Value{}, fmt.Errorf("%w: null is not a scalar", ErrInvalidValue)
	default:
		return Value{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidValue, x)
	}
}

func finite(n float64) (Value, error) {
	if math.IsInf(n, 0) || math.IsNaN(n) {
		return Value{}, fmt.Errorf("%w: %v is not a finite number", ErrInvalidValue, n)
	}
	return Number(n), nil
}

// MarshalJSON encodes the value as a native JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a JSON string, number or boolean. null leaves v undefined.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*v = Value{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Values converts a map of Go scalars into Values.
func Values(m map[string]any) (map[string]Value, error) {
	out := make(map[string]Value, len(m))
	for k, raw := range m {
		v, err := ValueOf(raw)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
