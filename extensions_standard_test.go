package bsdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplexExtension_RoundTrip(t *testing.T) {
	ext := complexExtension()
	c := complex(3.5, -2.25)

	base, err := ext.ToBase(c)
	require.NoError(t, err)

	list, ok := base.([]Value)
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Equal(t, 3.5, list[0])
	assert.Equal(t, -2.25, list[1])

	back, err := ext.FromBase(base)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}

func TestComplexExtension_Matches(t *testing.T) {
	ext := complexExtension()
	assert.True(t, ext.Matches(complex128(1+2i)))
	assert.True(t, ext.Matches(complex64(1+2i)))
	assert.False(t, ext.Matches("not complex"))
}

func TestComplexExtension_FromBase_RejectsWrongShape(t *testing.T) {
	ext := complexExtension()
	_, err := ext.FromBase([]Value{1.0})
	assert.Error(t, err)
}

func TestNDArrayExtension_RoundTrip(t *testing.T) {
	ext := ndarrayExtension()
	arr := NDArray{Shape: []int64{2, 3}, Dtype: "<f8", Data: []byte{1, 2, 3, 4}}

	base, err := ext.ToBase(arr)
	require.NoError(t, err)

	m, ok := base.(Map)
	require.True(t, ok)
	shape, _ := m.Get("shape")
	assert.Equal(t, []Value{int64(2), int64(3)}, shape)
	dtype, _ := m.Get("dtype")
	assert.Equal(t, "<f8", dtype)

	back, err := ext.FromBase(base)
	require.NoError(t, err)
	assert.Equal(t, arr, back)
}

func TestNDArrayExtension_FromBase_MissingField(t *testing.T) {
	ext := ndarrayExtension()
	m := NewMap()
	m.Set("shape", []Value{int64(1)})
	_, err := ext.FromBase(m)
	assert.Error(t, err)
}

func TestAsBytes_AcceptsBlobLazyBlobAndRaw(t *testing.T) {
	b, err := asBytes(Blob{Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), b)

	b, err = asBytes([]byte("y"))
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), b)

	lb, _ := newTestLazyBlob(t, []byte("z"), false)
	b, err = asBytes(lb)
	require.NoError(t, err)
	assert.Equal(t, []byte("z"), b)

	_, err = asBytes(42)
	assert.Error(t, err)
}
