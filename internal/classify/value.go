// Package classify implements the pure classifier (spec.md §4.3): given an
// inscription's decoded metadata, decide whether it is a DID document, a
// verifiable credential, or a non-identity resource. It performs no I/O.
package classify

// Value is a tagged-value tree representing metadata of unknown shape,
// decoded once from the provider's raw bytes (CBOR or JSON). The classifier
// and the resource-ID deriver inspect metadata only through this type's
// accessors, never via duck-typed map access, per the design note on
// dynamic-shape metadata.
type Value struct {
	kind Kind
	m    map[string]Value
	l    []Value
	s    string
	i    int64
	b    []byte
}

// Kind identifies which accessor on Value is valid.
type Kind int

const (
	KindNull Kind = iota
	KindMap
	KindList
	KindString
	KindInt
	KindBytes
)

func (v Value) Kind() Kind { return v.kind }

// NewMap builds a mapping-shaped Value.
func NewMap(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

// NewList builds a list-shaped Value.
func NewList(l []Value) Value { return Value{kind: KindList, l: l} }

// NewString builds a string-shaped Value.
func NewString(s string) Value { return Value{kind: KindString, s: s} }

// NewInt builds an integer-shaped Value.
func NewInt(i int64) Value { return Value{kind: KindInt, i: i} }

// NewBytes builds a bytes-shaped Value.
func NewBytes(b []byte) Value { return Value{kind: KindBytes, b: b} }

// Null is the zero Value, used for absent fields.
var Null = Value{kind: KindNull}

// Field returns the value of key in a mapping-shaped Value and whether it
// was present. Calling Field on a non-map Value always reports false.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindMap {
		return Null, false
	}
	f, ok := v.m[key]
	return f, ok
}

// AsString returns the string content of a string-shaped Value.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsList returns the elements of a list-shaped Value.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.l, true
}

// AsBytes returns the content of a bytes-shaped Value.
func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.b, true
}

// AsInt returns the content of an integer-shaped Value.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// IsNonEmpty reports whether v carries any content: a non-empty string,
// a non-empty list, a non-empty map, or non-zero bytes. Used by the DID
// document rule ("verificationMethod is present and non-empty").
func (v Value) IsNonEmpty() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindString:
		return v.s != ""
	case KindList:
		return len(v.l) > 0
	case KindMap:
		return len(v.m) > 0
	case KindBytes:
		return len(v.b) > 0
	case KindInt:
		return true
	default:
		return false
	}
}

// ToGo converts a Value back into plain Go values (map[string]interface{},
// []interface{}, string, int64, []byte) for the fields persisted verbatim
// into the identity resource's metadata hash.
func (v Value) ToGo() interface{} {
	switch v.kind {
	case KindMap:
		out := make(map[string]interface{}, len(v.m))
		for k, vv := range v.m {
			out[k] = vv.ToGo()
		}
		return out
	case KindList:
		out := make([]interface{}, len(v.l))
		for i, vv := range v.l {
			out[i] = vv.ToGo()
		}
		return out
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindBytes:
		return v.b
	default:
		return nil
	}
}
