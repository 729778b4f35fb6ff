package valuecopy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Voskan/shmcache/internal/arena"
)

func newPool() *arena.Pool {
	return arena.NewPool(arena.NewSMA(0))
}

func TestCopyInOutScalarRoundTrip(t *testing.T) {
	pool := newPool()
	src := &Value{Kind: KindInt, Int: 42}

	copied, err := CopyIn(pool, src, nil)
	require.NoError(t, err)
	require.True(t, Equal(src, copied))

	out, err := CopyOut(copied, nil)
	require.NoError(t, err)
	require.True(t, Equal(src, out))
}

func TestCopyInPreservesSharedSubobject(t *testing.T) {
	pool := newPool()
	shared := &Value{Kind: KindInt, Int: 7}
	src := &Value{Kind: KindArray, Array: []*Value{shared, shared}}

	copied, err := CopyIn(pool, src, nil)
	require.NoError(t, err)
	require.Same(t, copied.Array[0], copied.Array[1], "a value referenced twice in the source must be one object in the destination")
}

func TestCopyInOutCyclicGraph(t *testing.T) {
	pool := newPool()

	// a = [a]
	a := &Value{Kind: KindArray}
	a.Array = []*Value{a}

	copied, err := CopyIn(pool, a, nil)
	require.NoError(t, err)
	require.Same(t, copied, copied.Array[0], "self-referential array must copy to a self-referential array")

	out, err := CopyOut(copied, nil)
	require.NoError(t, err)
	require.Same(t, out, out.Array[0])
}

func TestCopyInAllocFailureRollsBack(t *testing.T) {
	sma := arena.NewSMA(4)
	pool := arena.NewPool(sma)

	src := &Value{Kind: KindBytes, Bytes: []byte("too long for four bytes")}
	_, err := CopyIn(pool, src, nil)
	require.ErrorIs(t, err, ErrAlloc)
}

type stubSerializer struct{}

func (stubSerializer) Encode(v *Value) ([]byte, error) {
	return []byte("encoded"), nil
}

func (stubSerializer) Decode(b []byte) (*Value, error) {
	return &Value{Kind: KindObject, Object: map[string]*Value{
		"x": {Kind: KindInt, Int: 1},
	}}, nil
}

func TestCopyInWithSerializerEncodesComposites(t *testing.T) {
	pool := newPool()
	src := &Value{Kind: KindObject, Object: map[string]*Value{"x": {Kind: KindInt, Int: 1}}}

	copied, err := CopyIn(pool, src, stubSerializer{})
	require.NoError(t, err)
	require.Equal(t, KindOpaque, copied.Kind)
	require.Equal(t, KindObject, copied.OpaqueTag)

	out, err := CopyOut(copied, stubSerializer{})
	require.NoError(t, err)
	require.Equal(t, KindObject, out.Kind)
	require.Equal(t, int64(1), out.Object["x"].Int)
}

type failingSerializer struct{}

func (failingSerializer) Encode(v *Value) ([]byte, error) { return []byte("x"), nil }
func (failingSerializer) Decode(b []byte) (*Value, error) { return nil, ErrUnknownKind }

func TestCopyOutCodecFailureReturnsNullValue(t *testing.T) {
	pool := newPool()
	src := &Value{Kind: KindObject, Object: map[string]*Value{}}

	copied, err := CopyIn(pool, src, failingSerializer{})
	require.NoError(t, err)

	out, err := CopyOut(copied, failingSerializer{})
	require.ErrorIs(t, err, ErrCodec)
	require.Equal(t, KindNull, out.Kind)
}

func TestTopLevelRefToLeafUnwraps(t *testing.T) {
	pool := newPool()
	src := &Value{Kind: KindRef, Ref: &Value{Kind: KindInt, Int: 9}}

	copied, err := CopyIn(pool, src, nil)
	require.NoError(t, err)
	require.Equal(t, KindInt, copied.Kind, "a single-owner ref to a leaf is transparently unwrapped")
	require.Equal(t, int64(9), copied.Int)
}
