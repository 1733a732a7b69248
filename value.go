package codegen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies which alternative of Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the JSON-like shapes a schema can hold:
// null, boolean, integer, float, string, an ordered sequence of Value, or
// a keyed mapping of string to Value. It is immutable once parsed.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	seq  []Value
	m    map[string]Value
	keys []string // source order of mapping keys, for deterministic iteration
}

func Null() Value                { return Value{kind: KindNull} }
func BoolValue(b bool) Value     { return Value{kind: KindBool, b: b} }
func IntValue(i int64) Value     { return Value{kind: KindInt, i: i} }
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

func SequenceValue(items []Value) Value {
	return Value{kind: KindSequence, seq: items}
}

func MappingValue(m map[string]Value, keys []string) Value {
	return Value{kind: KindMapping, m: m, keys: keys}
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsNull() bool  { return v.kind == KindNull }

func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) Sequence() ([]Value, bool) {
	if v.kind != KindSequence {
		return nil, false
	}
	return v.seq, true
}

// Mapping returns the backing map plus the keys in source document order.
func (v Value) Mapping() (map[string]Value, []string, bool) {
	if v.kind != KindMapping {
		return nil, nil, false
	}
	return v.m, v.keys, true
}

// Equal reports whether v and other represent the same Value tree.
// Mapping key order is ignored (two mappings with the same entries in a
// different source order are still Equal); sequence order matters.
// Satisfies the shape go-cmp looks for so tests can diff Value trees
// with cmp.Diff instead of reflect.DeepEqual, which would otherwise
// choke on (or silently mis-compare) the unexported fields backing the
// tagged union.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindSequence:
		if len(v.seq) != len(other.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(other.seq[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(v.m) != len(other.m) {
			return false
		}
		for key, child := range v.m {
			otherChild, ok := other.m[key]
			if !ok || !child.Equal(otherChild) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Get looks up a single Segment against v, returning the child Value and
// whether the lookup succeeded. It never panics; shape mismatches and
// out-of-bounds indices simply report absent.
func (v Value) Get(seg Segment) (Value, bool) {
	if seg.IsIndex {
		if v.kind != KindSequence {
			return Value{}, false
		}
		if seg.Index < 0 || seg.Index >= len(v.seq) {
			return Value{}, false
		}
		return v.seq[seg.Index], true
	}
	if v.kind != KindMapping {
		return Value{}, false
	}
	child, ok := v.m[seg.Key]
	return child, ok
}

// CanonicalString renders v the way a value-expansion with no expansion
// body does: booleans lower-case, numbers in standard decimal, strings
// verbatim, null as the empty string. It is a logic error to call this
// on a sequence or mapping; callers (the evaluator) guard for that shape
// case before ever reaching this branch.
func (v Value) CanonicalString() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	default:
		panic(fmt.Sprintf("codegen: CanonicalString called on non-scalar Value (%s)", v.kind))
	}
}

// ParseJSONValue parses raw JSON bytes into a Value tree, preserving
// object key order as written in the source document (encoding/json's
// map[string]any decoding does not, which would make schema dumps and
// debug output nondeterministic across runs).
func ParseJSONValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return IntValue(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return FloatValue(f), nil
	case string:
		return StringValue(t), nil
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return SequenceValue(items), nil
		case '{':
			m := make(map[string]Value)
			var keys []string
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("codegen: expected object key, got %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				if _, exists := m[key]; !exists {
					keys = append(keys, key)
				}
				m[key] = val
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, err
			}
			return MappingValue(m, keys), nil
		}
	}
	return Value{}, fmt.Errorf("codegen: unexpected JSON token %v", tok)
}
