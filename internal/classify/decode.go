package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Decode interprets raw according to contentType and returns its tagged-value
// tree representation. Bitcoin Ordinals inscription metadata is CBOR by
// convention but some providers or inscriptions carry plain JSON; contentType
// is the value the provider reported for the inscription itself (its content
// type, not the metadata's — the metadata endpoint does not set its own), so
// any type containing "cbor" is decoded as CBOR and everything else falls
// back to JSON.
func Decode(contentType string, raw []byte) (Value, error) {
	if strings.Contains(strings.ToLower(contentType), "cbor") {
		return DecodeCBOR(raw)
	}
	return DecodeJSON(raw)
}

// DecodeJSON interprets raw as a JSON document and returns its tagged-value
// tree representation.
func DecodeJSON(raw []byte) (Value, error) {
	if len(raw) == 0 {
		return Null, nil
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return Null, err
	}
	return fromGo(generic), nil
}

// DecodeCBOR interprets raw as a CBOR document and returns its tagged-value
// tree representation.
func DecodeCBOR(raw []byte) (Value, error) {
	if len(raw) == 0 {
		return Null, nil
	}
	var generic interface{}
	if err := cbor.Unmarshal(raw, &generic); err != nil {
		return Null, err
	}
	return fromGo(generic), nil
}

func fromGo(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, vv := range t {
			m[k] = fromGo(vv)
		}
		return NewMap(m)
	case map[interface{}]interface{}:
		// cbor.Unmarshal into interface{} produces map keys typed as
		// interface{}; Ordinals metadata maps use string keys in practice,
		// so non-string keys are stringified rather than dropped.
		m := make(map[string]Value, len(t))
		for k, vv := range t {
			m[fmt.Sprint(k)] = fromGo(vv)
		}
		return NewMap(m)
	case []interface{}:
		l := make([]Value, len(t))
		for i, vv := range t {
			l[i] = fromGo(vv)
		}
		return NewList(l)
	case string:
		return NewString(t)
	case []byte:
		return NewBytes(t)
	case float64:
		return NewInt(int64(t))
	case uint64:
		return NewInt(int64(t))
	case int64:
		return NewInt(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return NewInt(n)
		}
		return NewString(t.String())
	case bool:
		if t {
			return NewInt(1)
		}
		return NewInt(0)
	default:
		return Null
	}
}
