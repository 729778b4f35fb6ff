// Package valuecopy implements the Value Copier: a deep copy of a caller's
// value graph into pool-backed memory on store (CopyIn) and back out to
// caller-owned memory on fetch (CopyOut), preserving shared subobjects,
// explicit aliasing (Ref) nodes, and cycles.
//
// There is no equivalent package in the teacher: arena-cache only ever
// stores a single comparable-typed V per entry and never needs a
// general-purpose value graph. The tagged-union shape below follows
// SPEC_FULL.md's "Value = Scalar | Bytes | Array | Object | Ref | Opaque"
// formulation (itself a language-neutral rendering of the Design Notes),
// and the identity-map copy algorithm is grounded on
// original_source/apc_cache.c's my_copy_zval, which builds the destination
// before recursing into children for exactly this reason.
//
// © 2025 shmcache authors. MIT License.
package valuecopy

import "errors"

// Kind tags the variant a Value currently holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindBytes  // immutable byte string scalar; memcpy'd, never refcounted
	KindArray  // index-addressed sequence
	KindObject // key-addressed map
	KindRef    // explicit aliasing/reference cell
	KindOpaque // serialized bytes, tagged with the kind it replaces
)

// Value is the tagged-union node the copier operates on. Only the fields
// relevant to Kind are meaningful; the rest are zero.
type Value struct {
	Kind Kind

	Bool  bool
	Int   int64
	Float float64
	Bytes []byte // KindBytes payload, or KindOpaque's encoded bytes

	Array []*Value
	Object map[string]*Value
	Ref    *Value

	// OpaqueTag records which composite kind KindOpaque replaces
	// (KindArray or KindObject). CopyOut does not consult it: the
	// serializer's Decode alone determines the decoded shape. Update uses
	// it to recognise a serialized composite.
	OpaqueTag Kind
}

// ErrAlloc is returned when the backing pool/SMA cannot satisfy a copy
// request; callers must treat this exactly like any other allocation
// failure (§7 Error Handling: roll back, return false).
var ErrAlloc = errors.New("valuecopy: pool allocation failed")

// ErrUnknownKind is a programmer error: a Value with an out-of-range Kind
// reached the copier. The design assumes this cannot occur in practice.
var ErrUnknownKind = errors.New("valuecopy: unknown value kind")

// isLeaf reports whether v's kind can never participate in a cycle, making
// it safe to transparently unwrap a top-level Ref pointing at it (§4.2,
// "a top-level element that is itself a single-owner reference cell
// pointing to a non-recursive payload is transparently unwrapped").
func isLeaf(v *Value) bool {
	if v == nil {
		return true
	}
	switch v.Kind {
	case KindNull, KindBool, KindInt, KindFloat, KindBytes, KindOpaque:
		return true
	default:
		return false
	}
}

// Equal performs a structural, cycle-safe comparison of two value graphs.
// It is used by tests to check copy-equivalence without relying on pointer
// identity; Store does not call it.
func Equal(a, b *Value) bool {
	return equalRec(a, b, map[*Value]*Value{})
}

func equalRec(a, b *Value, seen map[*Value]*Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if prev, ok := seen[a]; ok {
		return prev == b
	}
	seen[a] = b

	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindBytes:
		return string(a.Bytes) == string(b.Bytes)
	case KindOpaque:
		return a.OpaqueTag == b.OpaqueTag && string(a.Bytes) == string(b.Bytes)
	case KindRef:
		return equalRec(a.Ref, b.Ref, seen)
	case KindArray:
		if len(a.Array) != len(b.Array) {
			return false
		}
		for i := range a.Array {
			if !equalRec(a.Array[i], b.Array[i], seen) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.Object) != len(b.Object) {
			return false
		}
		for k, av := range a.Object {
			bv, ok := b.Object[k]
			if !ok || !equalRec(av, bv, seen) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
