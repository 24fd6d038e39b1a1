// Package dynamo implements the tagged attribute-value wire format used by the
// report backend. Every scalar on the wire is wrapped in a single-key object
// ({"S": ...}, {"N": ...}, {"L": [...]}, {"M": {...}}); this package converts
// between that shape and native Go values.
package dynamo

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

var (
	// ErrMalformedNumber indicates a Number payload that is not a valid
	// numeral. This is wire-format corruption and is always propagated.
	ErrMalformedNumber = errors.New("malformed number payload")

	// ErrMalformedValue indicates a wire node with zero or multiple tags.
	ErrMalformedValue = errors.New("malformed tagged value")

	// ErrUnsupportedType indicates a native value Encode cannot represent.
	ErrUnsupportedType = errors.New("unsupported native type")
)

// Kind identifies which tag of a Value is populated.
type Kind int

const (
	KindInvalid Kind = iota // zero Value; means "field not present"
	KindString
	KindNumber
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "S"
	case KindNumber:
		return "N"
	case KindList:
		return "L"
	case KindMap:
		return "M"
	default:
		return "invalid"
	}
}

// Value is one node of the tagged wire format. Exactly one tag is populated
// per well-formed node; the zero Value represents an absent field, which is
// distinct from a present-but-empty value.
type Value struct {
	kind Kind
	str  string // payload for KindString, numeral for KindNumber
	list []Value
	m    map[string]Value
}

// String returns an S-tagged Value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number returns an N-tagged Value from a float, formatted as a plain decimal
// string (never scientific notation, no trailing ".0" for integral values).
func Number(f float64) Value {
	return Value{kind: KindNumber, str: FormatNumber(f)}
}

// NumberString returns an N-tagged Value carrying the exact numeral string.
// The payload is validated at decode time, not here, so a raw wire numeral
// round-trips byte for byte.
func NumberString(s string) Value {
	return Value{kind: KindNumber, str: s}
}

// List returns an L-tagged Value.
func List(items ...Value) Value {
	return Value{kind: KindList, list: items}
}

// Map returns an M-tagged Value.
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

// FormatNumber renders a float as a decimal string without scientific
// notation or floating-point artifacts beyond what the source carried.
func FormatNumber(f float64) string {
	return decimal.NewFromFloat(f).String()
}

// Kind reports which tag is populated. KindInvalid means absent.
func (v Value) Kind() Kind { return v.kind }

// IsPresent reports whether the node carries any tag at all.
func (v Value) IsPresent() bool { return v.kind != KindInvalid }

// Str returns the string payload of an S-tagged node, or "" otherwise.
func (v Value) Str() string {
	if v.kind != KindString {
		return ""
	}
	return v.str
}

// Numeral returns the raw numeric string of an N-tagged node, or "" otherwise.
func (v Value) Numeral() string {
	if v.kind != KindNumber {
		return ""
	}
	return v.str
}

// Float parses an N-tagged node's payload.
func (v Value) Float() (float64, error) {
	if v.kind != KindNumber {
		return 0, fmt.Errorf("%w: expected N tag, have %s", ErrMalformedValue, v.kind)
	}
	f, err := strconv.ParseFloat(v.str, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedNumber, v.str)
	}
	return f, nil
}

// Int parses an N-tagged node's payload as an integer, truncating any
// fractional part.
func (v Value) Int() (int, error) {
	f, err := v.Float()
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// Items returns the elements of an L-tagged node, or nil otherwise.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Fields returns the entries of an M-tagged node, or nil otherwise.
func (v Value) Fields() map[string]Value {
	if v.kind != KindMap {
		return nil
	}
	return v.m
}

// Field looks up a key in an M-tagged node. The zero Value is returned for
// missing keys and non-map nodes.
func (v Value) Field(key string) Value {
	if v.kind != KindMap {
		return Value{}
	}
	return v.m[key]
}

// Decode converts a tagged node into native Go values: S to string, N to
// float64, L to []any, M to map[string]any. Malformed numerals fail with
// ErrMalformedNumber anywhere in the tree.
func (v Value) Decode() (any, error) {
	switch v.kind {
	case KindString:
		return v.str, nil
	case KindNumber:
		return v.Float()
	case KindList:
		out := make([]any, 0, len(v.list))
		for i, item := range v.list {
			dec, err := item.Decode()
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			out = append(out, dec)
		}
		return out, nil
	case KindMap:
		out := make(map[string]any, len(v.m))
		for key, item := range v.m {
			dec, err := item.Decode()
			if err != nil {
				return nil, fmt.Errorf("map key %q: %w", key, err)
			}
			out[key] = dec
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: no tag populated", ErrMalformedValue)
	}
}

// Encode converts a native value into its tagged form. Strings become S,
// numbers become N, slices become L and maps become M, recursively. A
// json.Number keeps its exact textual representation.
func Encode(native any) (Value, error) {
	switch x := native.(type) {
	case string:
		return String(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return NumberString(strconv.Itoa(x)), nil
	case int64:
		return NumberString(strconv.FormatInt(x, 10)), nil
	case json.Number:
		return NumberString(x.String()), nil
	case []any:
		items := make([]Value, 0, len(x))
		for i, item := range x {
			enc, err := Encode(item)
			if err != nil {
				return Value{}, fmt.Errorf("list index %d: %w", i, err)
			}
			items = append(items, enc)
		}
		return List(items...), nil
	case map[string]any:
		fields := make(map[string]Value, len(x))
		for key, item := range x {
			enc, err := Encode(item)
			if err != nil {
				return Value{}, fmt.Errorf("map key %q: %w", key, err)
			}
			fields[key] = enc
		}
		return Map(fields), nil
	case Value:
		return x, nil
	case nil:
		return Value{}, nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, native)
	}
}

// wireValue is the raw JSON shape of one node. Pointers distinguish an
// absent tag from a present-but-empty one.
type wireValue struct {
	S *string               `json:"S,omitempty"`
	N *string               `json:"N,omitempty"`
	L []json.RawMessage     `json:"L,omitempty"`
	M map[string]wireRawMsg `json:"M,omitempty"`
}

type wireRawMsg = json.RawMessage

// UnmarshalJSON decodes the {S|N|L|M} wire shape, rejecting nodes with zero
// or multiple tags populated.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedValue, err)
	}

	tags := 0
	if w.S != nil {
		tags++
	}
	if w.N != nil {
		tags++
	}
	if w.L != nil {
		tags++
	}
	if w.M != nil {
		tags++
	}
	if tags != 1 {
		return fmt.Errorf("%w: %d tags populated", ErrMalformedValue, tags)
	}

	switch {
	case w.S != nil:
		*v = String(*w.S)
	case w.N != nil:
		*v = NumberString(*w.N)
	case w.L != nil:
		items := make([]Value, 0, len(w.L))
		for i, raw := range w.L {
			var item Value
			if err := json.Unmarshal(raw, &item); err != nil {
				return fmt.Errorf("list index %d: %w", i, err)
			}
			items = append(items, item)
		}
		*v = List(items...)
	case w.M != nil:
		fields := make(map[string]Value, len(w.M))
		for key, raw := range w.M {
			var item Value
			if err := json.Unmarshal(raw, &item); err != nil {
				return fmt.Errorf("map key %q: %w", key, err)
			}
			fields[key] = item
		}
		*v = Map(fields)
	}
	return nil
}

// MarshalJSON emits the {S|N|L|M} wire shape. Map keys are sorted so output
// is deterministic.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(map[string]string{"S": v.str})
	case KindNumber:
		return json.Marshal(map[string]string{"N": v.str})
	case KindList:
		var buf []byte
		buf = append(buf, `{"L":[`...)
		for i, item := range v.list {
			if i > 0 {
				buf = append(buf, ',')
			}
			enc, err := json.Marshal(item)
			if err != nil {
				return nil, err
			}
			buf = append(buf, enc...)
		}
		buf = append(buf, `]}`...)
		return buf, nil
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for key := range v.m {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var buf []byte
		buf = append(buf, `{"M":{`...)
		for i, key := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			encKey, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			buf = append(buf, encKey...)
			buf = append(buf, ':')
			encVal, err := json.Marshal(v.m[key])
			if err != nil {
				return nil, err
			}
			buf = append(buf, encVal...)
		}
		buf = append(buf, `}}`...)
		return buf, nil
	default:
		return nil, fmt.Errorf("%w: cannot marshal absent value", ErrMalformedValue)
	}
}
