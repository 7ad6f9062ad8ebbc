package bitvector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetClearTest(t *testing.T) {
	bv := New()
	assert.False(t, bv.Test(3))

	bv.Set(3)
	assert.True(t, bv.Test(3))
	assert.EqualValues(t, 1, bv.PopCount())

	bv.Clear(3)
	assert.False(t, bv.Test(3))
	assert.True(t, bv.IsEmpty())
}

func TestRoundTrip(t *testing.T) {
	bv := New()
	bv.Set(0)
	bv.Set(5)
	bv.Set(100)

	data, err := bv.Bytes()
	require.NoError(t, err)

	decoded, err := FromBytes(data)
	require.NoError(t, err)
	assert.EqualValues(t, bv.PopCount(), decoded.PopCount())
	assert.True(t, decoded.Test(0))
	assert.True(t, decoded.Test(5))
	assert.True(t, decoded.Test(100))
	assert.False(t, decoded.Test(1))
}

func TestEmptyAndAbsentReadBackTheSame(t *testing.T) {
	empty := New()
	emptyBytes, err := empty.Bytes()
	require.NoError(t, err)

	fromNil, err := FromBytes(nil)
	require.NoError(t, err)
	fromEmpty, err := FromBytes(emptyBytes)
	require.NoError(t, err)

	assert.True(t, fromNil.IsEmpty())
	assert.True(t, fromEmpty.IsEmpty())
}

func TestAndOrBiggerAccumulator(t *testing.T) {
	a := New()
	a.Set(1)
	a.Set(2)
	a.Set(500)

	b := New()
	b.Set(2)
	b.Set(3)

	and := And(a, b)
	assert.EqualValues(t, 1, and.PopCount())
	assert.True(t, and.Test(2))

	or := Or(a, b)
	assert.EqualValues(t, 4, or.PopCount())
}

func TestNotIsComplementWithinUniverse(t *testing.T) {
	universe := New()
	universe.Set(0)
	universe.Set(1)
	universe.Set(2)

	x := New()
	x.Set(1)

	notX := Not(x, universe)
	assert.True(t, notX.Test(0))
	assert.False(t, notX.Test(1))
	assert.True(t, notX.Test(2))
	assert.EqualValues(t, 2, notX.PopCount())
}

func TestNotEmptyIsUniverse(t *testing.T) {
	universe := New()
	universe.Set(0)
	universe.Set(7)

	empty := New()
	notEmpty := Not(empty, universe)
	assert.EqualValues(t, universe.PopCount(), notEmpty.PopCount())
}
