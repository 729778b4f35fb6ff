package valuecopy

import (
	"errors"

	"github.com/Voskan/shmcache/internal/arena"
)

// structuralOverhead is the fixed number of bytes charged against the pool
// for each composite container's metadata (capacity class, table mask,
// next-free index, internal cursor — §4.2) when it is deep-copied rather
// than serialized. It does not correspond to a real struct layout; it is an
// accounting fiction that keeps entry.mem_size reflecting real structural
// cost, matching invariant I6.
const structuralOverhead = 32

// CopyIn deep-copies src into pool-backed memory, per §4.2. A nil src
// copies to nil. Shared subobjects and cycles are preserved via an
// identity map from source to destination node; the mapping is inserted
// before recursing into a node's children so that a path back to an
// ancestor resolves to the ancestor's (possibly still-under-construction)
// destination instead of infinitely recursing.
func CopyIn(pool *arena.Pool, src *Value, ser Serializer) (*Value, error) {
	if src == nil {
		return nil, nil
	}
	idmap := make(map[*Value]*Value)
	top, err := copyInRec(pool, src, ser, idmap)
	if err != nil {
		return nil, err
	}
	// Top-level unwrap: a single-owner ref to a non-recursive payload is
	// transparently collapsed to its payload.
	if top.Kind == KindRef && top.Ref != nil && isLeaf(top.Ref) {
		return top.Ref, nil
	}
	return top, nil
}

func copyInRec(pool *arena.Pool, v *Value, ser Serializer, idmap map[*Value]*Value) (*Value, error) {
	if v == nil {
		return nil, nil
	}
	if dst, ok := idmap[v]; ok {
		return dst, nil
	}

	switch v.Kind {
	case KindNull:
		d := &Value{Kind: KindNull}
		idmap[v] = d
		return d, nil

	case KindBool, KindInt, KindFloat:
		d := &Value{Kind: v.Kind, Bool: v.Bool, Int: v.Int, Float: v.Float}
		idmap[v] = d
		return d, nil

	case KindBytes:
		b, ok := pool.DupBytes(v.Bytes)
		if !ok {
			return nil, ErrAlloc
		}
		d := &Value{Kind: KindBytes, Bytes: b}
		idmap[v] = d
		return d, nil

	case KindOpaque:
		b, ok := pool.DupBytes(v.Bytes)
		if !ok {
			return nil, ErrAlloc
		}
		d := &Value{Kind: KindOpaque, Bytes: b, OpaqueTag: v.OpaqueTag}
		idmap[v] = d
		return d, nil

	case KindArray, KindObject:
		if ser != nil {
			enc, err := ser.Encode(v)
			if err != nil {
				return nil, err
			}
			b, ok := pool.DupBytes(enc)
			if !ok {
				return nil, ErrAlloc
			}
			d := &Value{Kind: KindOpaque, Bytes: b, OpaqueTag: v.Kind}
			idmap[v] = d
			return d, nil
		}

		d := &Value{Kind: v.Kind}
		idmap[v] = d // inserted before recursing: required for cycle support

		if _, ok := pool.Alloc(structuralOverhead); !ok {
			return nil, ErrAlloc
		}

		if v.Kind == KindArray {
			if len(v.Array) > 0 {
				d.Array = make([]*Value, 0, len(v.Array))
				for _, el := range v.Array {
					if el == nil {
						continue // tombstone: missing element skipped
					}
					c, err := copyInRec(pool, el, ser, idmap)
					if err != nil {
						return nil, err
					}
					d.Array = append(d.Array, c)
				}
			}
		} else {
			if len(v.Object) > 0 {
				d.Object = make(map[string]*Value, len(v.Object))
				for k, el := range v.Object {
					if el == nil {
						continue
					}
					c, err := copyInRec(pool, el, ser, idmap)
					if err != nil {
						return nil, err
					}
					d.Object[k] = c
				}
			}
		}
		return d, nil

	case KindRef:
		d := &Value{Kind: KindRef}
		idmap[v] = d
		if v.Ref != nil {
			c, err := copyInRec(pool, v.Ref, ser, idmap)
			if err != nil {
				return nil, err
			}
			d.Ref = c
		}
		return d, nil

	default:
		return nil, ErrUnknownKind
	}
}

// CopyOut deep-copies src (pool-backed or already caller-owned) into fresh,
// caller-owned Go memory, per §4.2. On a serializer Decode failure, the
// affected node is replaced with a null-typed Value and ErrCodec is
// returned so the caller (Fetch) can report failure without panicking
// partway through an otherwise-successful copy.
func CopyOut(src *Value, ser Serializer) (*Value, error) {
	if src == nil {
		return nil, nil
	}
	idmap := make(map[*Value]*Value)
	top, err := copyOutRec(src, ser, idmap)
	if top != nil && top.Kind == KindRef && top.Ref != nil && isLeaf(top.Ref) {
		return top.Ref, err
	}
	return top, err
}

// ErrCodec signals a serializer Decode failure encountered during CopyOut.
var ErrCodec = errors.New("valuecopy: decode failed")

func copyOutRec(v *Value, ser Serializer, idmap map[*Value]*Value) (*Value, error) {
	if v == nil {
		return nil, nil
	}
	if dst, ok := idmap[v]; ok {
		return dst, nil
	}

	switch v.Kind {
	case KindNull:
		d := &Value{Kind: KindNull}
		idmap[v] = d
		return d, nil

	case KindBool, KindInt, KindFloat:
		d := &Value{Kind: v.Kind, Bool: v.Bool, Int: v.Int, Float: v.Float}
		idmap[v] = d
		return d, nil

	case KindBytes:
		b := append([]byte(nil), v.Bytes...)
		d := &Value{Kind: KindBytes, Bytes: b}
		idmap[v] = d
		return d, nil

	case KindOpaque:
		if ser == nil {
			// No serializer configured to decode with: surface the bytes
			// verbatim, tagged, so the caller at least sees what's there.
			b := append([]byte(nil), v.Bytes...)
			d := &Value{Kind: KindOpaque, Bytes: b, OpaqueTag: v.OpaqueTag}
			idmap[v] = d
			return d, nil
		}
		decoded, err := ser.Decode(v.Bytes)
		if err != nil {
			d := &Value{Kind: KindNull}
			idmap[v] = d
			return d, ErrCodec
		}
		idmap[v] = decoded
		return decoded, nil

	case KindArray, KindObject:
		d := &Value{Kind: v.Kind}
		idmap[v] = d
		if v.Kind == KindArray && len(v.Array) > 0 {
			d.Array = make([]*Value, 0, len(v.Array))
			for _, el := range v.Array {
				if el == nil {
					continue
				}
				c, err := copyOutRec(el, ser, idmap)
				if err != nil {
					return d, err
				}
				d.Array = append(d.Array, c)
			}
		} else if v.Kind == KindObject && len(v.Object) > 0 {
			d.Object = make(map[string]*Value, len(v.Object))
			for k, el := range v.Object {
				if el == nil {
					continue
				}
				c, err := copyOutRec(el, ser, idmap)
				if err != nil {
					return d, err
				}
				d.Object[k] = c
			}
		}
		return d, nil

	case KindRef:
		d := &Value{Kind: KindRef}
		idmap[v] = d
		if v.Ref != nil {
			c, err := copyOutRec(v.Ref, ser, idmap)
			if err != nil {
				return d, err
			}
			d.Ref = c
		}
		return d, nil

	default:
		return nil, ErrUnknownKind
	}
}
