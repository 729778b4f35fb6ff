package shmcache

// native.go is the conversion boundary between the caller-facing Go values
// Store/Fetch traffic in (any/interface{}) and the internal tagged-union
// valuecopy.Value graph the copier (§4.2) operates on. There is no teacher
// equivalent — arena-cache never needed this because its Cache[K,V] is
// already strongly typed per instantiation — so this is grounded directly
// on SPEC_FULL.md's "Value = Scalar | Bytes | Array | Object | Ref |
// Opaque" formulation and built with the standard library's reflect
// package, which is the idiomatic Go tool for exactly this kind of generic
// graph walk (and is how encoding/json and encoding/gob, already part of
// the ambient stack, solve the same problem internally).
//
// Ref is the explicit aliasing node callers use to mark two branches of a
// value graph as sharing one underlying object, and to build cyclic
// structures deliberately (§8 scenario 4, "store a cyclic graph a = [a]").
import (
	"reflect"

	"github.com/Voskan/shmcache/internal/valuecopy"
)

// Ref wraps a value to mark it as an explicit aliasing/reference cell:
// copying a Ref preserves sharing and supports cycles (e.g. var a Ref;
// a.Value = []any{&a} builds a self-referential array).
type Ref struct {
	Value any
}

// nativeToValue converts a caller-owned Go value into a valuecopy.Value
// graph. Slices/maps/*Ref values are tracked in an identity map keyed by
// their runtime identity so that shared references and cycles in the
// input are preserved rather than expanded into a (possibly infinite)
// tree.
func nativeToValue(x any) (*valuecopy.Value, error) {
	seen := make(map[any]*valuecopy.Value)
	return nativeToValueRec(x, seen)
}

// identityOf returns a comparable key uniquely identifying the backing
// storage of x when x is a reference-ish kind (slice, map, pointer), so
// cycles/sharing can be detected without relying on value equality.
func identityOf(rv reflect.Value) (any, bool) {
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return nil, false
		}
		return rv.Pointer(), true
	case reflect.Map, reflect.Ptr:
		if rv.IsNil() {
			return nil, false
		}
		return rv.Pointer(), true
	default:
		return nil, false
	}
}

func nativeToValueRec(x any, seen map[any]*valuecopy.Value) (*valuecopy.Value, error) {
	if x == nil {
		return &valuecopy.Value{Kind: valuecopy.KindNull}, nil
	}

	if ref, ok := x.(*Ref); ok {
		if ref == nil {
			return &valuecopy.Value{Kind: valuecopy.KindNull}, nil
		}
		id := reflect.ValueOf(ref).Pointer()
		if d, ok := seen[id]; ok {
			return d, nil
		}
		d := &valuecopy.Value{Kind: valuecopy.KindRef}
		seen[id] = d // inserted before recursing: a Ref is the one stable
		// pointer identity this boundary can use to build real cycles —
		// unlike a Go slice/map header, a *Ref's address never changes.
		inner, err := nativeToValueRec(ref.Value, seen)
		if err != nil {
			return nil, err
		}
		d.Ref = inner
		return d, nil
	}

	switch v := x.(type) {
	case bool:
		return &valuecopy.Value{Kind: valuecopy.KindBool, Bool: v}, nil
	case string:
		return &valuecopy.Value{Kind: valuecopy.KindBytes, Bytes: []byte(v)}, nil
	case []byte:
		return &valuecopy.Value{Kind: valuecopy.KindBytes, Bytes: v}, nil
	case int:
		return &valuecopy.Value{Kind: valuecopy.KindInt, Int: int64(v)}, nil
	case int64:
		return &valuecopy.Value{Kind: valuecopy.KindInt, Int: v}, nil
	case int32:
		return &valuecopy.Value{Kind: valuecopy.KindInt, Int: int64(v)}, nil
	case float64:
		return &valuecopy.Value{Kind: valuecopy.KindFloat, Float: v}, nil
	case float32:
		return &valuecopy.Value{Kind: valuecopy.KindFloat, Float: float64(v)}, nil
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		id, hasID := identityOf(rv)
		if hasID {
			if d, ok := seen[id]; ok {
				return d, nil
			}
		}
		d := &valuecopy.Value{Kind: valuecopy.KindArray}
		if hasID {
			seen[id] = d // inserted before recursing: supports cycles
		}
		n := rv.Len()
		if n > 0 {
			d.Array = make([]*valuecopy.Value, 0, n)
			for i := 0; i < n; i++ {
				el, err := nativeToValueRec(rv.Index(i).Interface(), seen)
				if err != nil {
					return nil, err
				}
				d.Array = append(d.Array, el)
			}
		}
		return d, nil

	case reflect.Map:
		id, hasID := identityOf(rv)
		if hasID {
			if d, ok := seen[id]; ok {
				return d, nil
			}
		}
		d := &valuecopy.Value{Kind: valuecopy.KindObject}
		if hasID {
			seen[id] = d
		}
		if rv.Len() > 0 {
			d.Object = make(map[string]*valuecopy.Value, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				k, ok := mapKeyToString(iter.Key())
				if !ok {
					continue
				}
				el, err := nativeToValueRec(iter.Value().Interface(), seen)
				if err != nil {
					return nil, err
				}
				d.Object[k] = el
			}
		}
		return d, nil

	case reflect.Ptr:
		if rv.IsNil() {
			return &valuecopy.Value{Kind: valuecopy.KindNull}, nil
		}
		return nativeToValueRec(rv.Elem().Interface(), seen)

	default:
		return &valuecopy.Value{Kind: valuecopy.KindBytes, Bytes: []byte(toBytesFallback(x))}, nil
	}
}

func mapKeyToString(k reflect.Value) (string, bool) {
	if k.Kind() == reflect.String {
		return k.String(), true
	}
	return "", false
}

func toBytesFallback(x any) string {
	if s, ok := x.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}

// valueToNative converts a valuecopy.Value graph back into caller-facing Go
// values, the inverse of nativeToValue. Shared/cyclic structure in the
// input is preserved via an identity map from source Value node to the
// produced native value.
func valueToNative(v *valuecopy.Value) (any, error) {
	if v == nil {
		return nil, nil
	}
	seen := make(map[*valuecopy.Value]any)
	return valueToNativeRec(v, seen)
}

func valueToNativeRec(v *valuecopy.Value, seen map[*valuecopy.Value]any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if d, ok := seen[v]; ok {
		return d, nil
	}

	switch v.Kind {
	case valuecopy.KindNull:
		return nil, nil
	case valuecopy.KindBool:
		return v.Bool, nil
	case valuecopy.KindInt:
		return v.Int, nil
	case valuecopy.KindFloat:
		return v.Float, nil
	case valuecopy.KindBytes:
		s := string(v.Bytes)
		return s, nil
	case valuecopy.KindOpaque:
		return nil, ErrCodec
	case valuecopy.KindRef:
		ref := &Ref{}
		seen[v] = ref
		inner, err := valueToNativeRec(v.Ref, seen)
		if err != nil {
			return ref, err
		}
		ref.Value = inner
		return ref, nil
	case valuecopy.KindArray:
		out := make([]any, 0, len(v.Array))
		seen[v] = out
		for _, el := range v.Array {
			c, err := valueToNativeRec(el, seen)
			if err != nil {
				return out, err
			}
			out = append(out, c)
		}
		seen[v] = out // later shared occurrences get the finished slice header
		return out, nil
	case valuecopy.KindObject:
		out := make(map[string]any, len(v.Object))
		seen[v] = out
		for k, el := range v.Object {
			c, err := valueToNativeRec(el, seen)
			if err != nil {
				return out, err
			}
			out[k] = c
		}
		return out, nil
	default:
		return nil, valuecopy.ErrUnknownKind
	}
}
