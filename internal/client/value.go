package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Value is a loosely typed JSON field. It remembers whether the field was
// present at all, so renderers can tell "missing" apart from null.
type Value struct {
	raw     json.RawMessage
	present bool
}

// UnmarshalJSON is also called for null, which marks the field present
func (v *Value) UnmarshalJSON(data []byte) error {
	v.raw = append(v.raw[:0], data...)
	v.present = true
	return nil
}

// MarshalJSON writes the stored raw value, or null when absent
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.present {
		return []byte("null"), nil
	}
	return v.raw, nil
}

// ValueOf wraps a Go value, mainly for tests and the one-shot CLI
func ValueOf(x any) Value {
	data, err := json.Marshal(x)
	if err != nil {
		return Value{}
	}
	return Value{raw: data, present: true}
}

// ErrMissing is returned when decoding a field that was not in the payload
var ErrMissing = errors.New("field missing")

// Decode unmarshals the raw value into target
func (v Value) Decode(target any) error {
	if !v.present {
		return ErrMissing
	}
	return json.Unmarshal(v.raw, target)
}

// Present reports whether the field appeared in the payload
func (v Value) Present() bool { return v.present }

// IsNull reports a present JSON null
func (v Value) IsNull() bool {
	return v.present && bytes.Equal(bytes.TrimSpace(v.raw), []byte("null"))
}

func (v Value) decode() any {
	if !v.present {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(v.raw))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return nil
	}
	return x
}

// Truthy applies JavaScript truthiness: false, 0, "", null and missing are
// falsy; everything else, including empty arrays and objects, is truthy
func (v Value) Truthy() bool {
	if !v.present {
		return false
	}
	return truthy(v.decode())
}

func truthy(x any) bool {
	switch t := x.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}

// Array returns the elements when the value is a JSON array
func (v Value) Array() ([]Value, bool) {
	if !v.present {
		return nil, false
	}
	var items []json.RawMessage
	trimmed := bytes.TrimSpace(v.raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, false
	}
	out := make([]Value, len(items))
	for i, item := range items {
		out[i] = Value{raw: item, present: true}
	}
	return out, true
}

// String renders the value the way a JavaScript template literal would:
// missing is "undefined", null is "null", numbers use their shortest form,
// arrays join their elements with commas and objects are "[object Object]"
func (v Value) String() string {
	if !v.present {
		return "undefined"
	}
	return stringify(v.decode(), false)
}

// JoinElement renders an array element for Array.prototype.join, where
// null and undefined become the empty string
func (v Value) JoinElement() string {
	if !v.present || v.IsNull() {
		return ""
	}
	return v.String()
}

func stringify(x any, nested bool) string {
	switch t := x.(type) {
	case nil:
		if nested {
			return ""
		}
		return "null"
	case bool:
		return strconv.FormatBool(t)
	case string:
		return t
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return formatNumber(f)
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = stringify(item, true)
		}
		return strings.Join(parts, ",")
	default:
		return "[object Object]"
	}
}

// formatNumber follows Number.prototype.toString: plain decimals from
// 1e-6 up to 1e21, exponent form outside, and no negative zero
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
