// Package codec provides the Serializer implementations used to turn
// composite (array/object shaped) cache values into opaque bytes on store
// and back on fetch (§4.2's "Serializer (external)" collaborator).
//
// There is no teacher equivalent of a pluggable serializer — arena-cache's
// Cache[K,V] is generic over a single concrete V and never needs one — so
// the package shape here is grounded on the teacher's pkg/loaderfunc.go
// convention of a single-purpose type living in its own small file,
// generalized from one function type to a two-method interface. The
// concrete encoders (encoding/gob, encoding/json) are real standard
// library choices used the way several other retrieved example manifests
// (godkv, tempuscache) use them for the same codec duty.
//
// © 2025 shmcache authors. MIT License.
package codec

import (
	"bytes"
	"encoding/gob"
	"encoding/json"

	"github.com/Voskan/shmcache/internal/valuecopy"
)

// wireValue is the flat, serializer-friendly mirror of valuecopy.Value: the
// tagged union rendered as a plain struct so gob/json can round-trip it
// without reaching into the internal package's unexported invariants.
type wireValue struct {
	Kind      valuecopy.Kind
	Bool      bool
	Int       int64
	Float     float64
	Bytes     []byte
	Array     []wireValue
	Object    map[string]wireValue
	Ref       *wireValue
	OpaqueTag valuecopy.Kind
}

func toWire(v *valuecopy.Value) wireValue {
	if v == nil {
		return wireValue{Kind: valuecopy.KindNull}
	}
	w := wireValue{
		Kind:      v.Kind,
		Bool:      v.Bool,
		Int:       v.Int,
		Float:     v.Float,
		Bytes:     v.Bytes,
		OpaqueTag: v.OpaqueTag,
	}
	if len(v.Array) > 0 {
		w.Array = make([]wireValue, len(v.Array))
		for i, el := range v.Array {
			w.Array[i] = toWire(el)
		}
	}
	if len(v.Object) > 0 {
		w.Object = make(map[string]wireValue, len(v.Object))
		for k, el := range v.Object {
			w.Object[k] = toWire(el)
		}
	}
	if v.Kind == valuecopy.KindRef && v.Ref != nil {
		inner := toWire(v.Ref)
		w.Ref = &inner
	}
	return w
}

func fromWire(w wireValue) *valuecopy.Value {
	v := &valuecopy.Value{
		Kind:      w.Kind,
		Bool:      w.Bool,
		Int:       w.Int,
		Float:     w.Float,
		Bytes:     w.Bytes,
		OpaqueTag: w.OpaqueTag,
	}
	if len(w.Array) > 0 {
		v.Array = make([]*valuecopy.Value, len(w.Array))
		for i, el := range w.Array {
			v.Array[i] = fromWire(el)
		}
	}
	if len(w.Object) > 0 {
		v.Object = make(map[string]*valuecopy.Value, len(w.Object))
		for k, el := range w.Object {
			v.Object[k] = fromWire(el)
		}
	}
	if w.Ref != nil {
		v.Ref = fromWire(*w.Ref)
	}
	return v
}

// Gob is a valuecopy.Serializer backed by encoding/gob. No codec is
// installed by default: a cache uses one only when it is passed to
// WithSerializer.
type Gob struct{}

// Encode gob-encodes v's wire representation.
func (Gob) Encode(v *valuecopy.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(toWire(v)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode gob-decodes b back into a Value graph.
func (Gob) Decode(b []byte) (*valuecopy.Value, error) {
	var w wireValue
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&w); err != nil {
		return nil, err
	}
	return fromWire(w), nil
}

// JSON is a valuecopy.Serializer backed by encoding/json; useful when
// stored values must remain human-readable on disk (e.g. inspected outside
// the process, or sourced via Preload from hand-authored fixtures).
type JSON struct{}

// Encode JSON-encodes v's wire representation.
func (JSON) Encode(v *valuecopy.Value) ([]byte, error) {
	return json.Marshal(toWire(v))
}

// Decode JSON-decodes b back into a Value graph.
func (JSON) Decode(b []byte) (*valuecopy.Value, error) {
	var w wireValue
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	return fromWire(w), nil
}
