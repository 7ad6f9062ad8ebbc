package bitvectree

import (
	"testing"

	"github.com/menmos/menmosd/pkg/bitvector"
	"github.com/menmos/menmosd/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	db, err := kv.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	tr, err := db.Tree("bv")
	require.NoError(t, err)
	return New(tr)
}

func TestInsertAndLoad(t *testing.T) {
	tree := newTestTree(t)

	require.NoError(t, tree.Insert([]byte("beach"), 0))
	require.NoError(t, tree.Insert([]byte("beach"), 3))

	bv, err := tree.Load([]byte("beach"))
	require.NoError(t, err)
	assert.True(t, bv.Test(0))
	assert.True(t, bv.Test(3))
	assert.EqualValues(t, 2, bv.PopCount())
}

func TestLoadAbsentIsEmpty(t *testing.T) {
	tree := newTestTree(t)
	bv, err := tree.Load([]byte("nope"))
	require.NoError(t, err)
	assert.True(t, bv.IsEmpty())
}

func TestPurgeKeyDeletesWhenEmpty(t *testing.T) {
	tree := newTestTree(t)
	require.NoError(t, tree.Insert([]byte("a"), 1))
	require.NoError(t, tree.PurgeKey([]byte("a"), 1))

	var seen bool
	require.NoError(t, tree.Iter(func(key []byte, bv *bitvector.Bitvector) error {
		seen = true
		return nil
	}))
	assert.False(t, seen)
}

func TestPurgeAcrossAllKeys(t *testing.T) {
	tree := newTestTree(t)
	require.NoError(t, tree.Insert([]byte("a"), 5))
	require.NoError(t, tree.Insert([]byte("b"), 5))
	require.NoError(t, tree.Insert([]byte("b"), 6))

	require.NoError(t, tree.Purge(5))

	bvA, err := tree.Load([]byte("a"))
	require.NoError(t, err)
	assert.True(t, bvA.IsEmpty())

	bvB, err := tree.Load([]byte("b"))
	require.NoError(t, err)
	assert.False(t, bvB.Test(5))
	assert.True(t, bvB.Test(6))
}

func TestScanPrefix(t *testing.T) {
	tree := newTestTree(t)
	require.NoError(t, tree.Insert([]byte("field.a"), 1))
	require.NoError(t, tree.Insert([]byte("field.b"), 2))
	require.NoError(t, tree.Insert([]byte("other"), 3))

	var keys []string
	require.NoError(t, tree.ScanPrefix([]byte("field."), func(key []byte, bv *bitvector.Bitvector) error {
		keys = append(keys, string(key))
		return nil
	}))
	assert.ElementsMatch(t, []string{"field.a", "field.b"}, keys)
}

func TestConcurrentInsertsDoNotLoseBits(t *testing.T) {
	tree := newTestTree(t)

	const n = 50
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			done <- tree.Insert([]byte("shared"), uint32(i))
		}(i)
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-done)
	}

	bv, err := tree.Load([]byte("shared"))
	require.NoError(t, err)
	assert.EqualValues(t, n, bv.PopCount())
}
