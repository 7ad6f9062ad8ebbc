package kv

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestTreePutGetDelete(t *testing.T) {
	db := openTestDB(t)
	tree, err := db.Tree("things")
	require.NoError(t, err)

	v, err := tree.Get([]byte("a"))
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, tree.Put([]byte("a"), []byte("1")))
	v, err = tree.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, tree.Delete([]byte("a")))
	v, err = tree.Get([]byte("a"))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestTreeScanPrefix(t *testing.T) {
	db := openTestDB(t)
	tree, err := db.Tree("things")
	require.NoError(t, err)

	require.NoError(t, tree.Put([]byte("field.a.1"), []byte("x")))
	require.NoError(t, tree.Put([]byte("field.a.2"), []byte("y")))
	require.NoError(t, tree.Put([]byte("field.b.1"), []byte("z")))

	var keys []string
	err = tree.ScanPrefix([]byte("field.a."), func(k, v []byte) error {
		keys = append(keys, string(k))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"field.a.1", "field.a.2"}, keys)
}

func TestTreeMergeIsAtomicPerKey(t *testing.T) {
	db := openTestDB(t)
	tree, err := db.Tree("counters")
	require.NoError(t, err)

	merge := func(old []byte) ([]byte, error) {
		if old == nil {
			return []byte{1}, nil
		}
		return []byte{old[0] + 1}, nil
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, tree.Merge([]byte("c"), merge))
	}

	v, err := tree.Get([]byte("c"))
	require.NoError(t, err)
	assert.Equal(t, byte(5), v[0])
}

func TestTreeMergeDeletesOnNilResult(t *testing.T) {
	db := openTestDB(t)
	tree, err := db.Tree("things")
	require.NoError(t, err)

	require.NoError(t, tree.Put([]byte("a"), []byte("1")))
	require.NoError(t, tree.Merge([]byte("a"), func(old []byte) ([]byte, error) {
		return nil, nil
	}))

	v, err := tree.Get([]byte("a"))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestTreeMergePropagatesError(t *testing.T) {
	db := openTestDB(t)
	tree, err := db.Tree("things")
	require.NoError(t, err)

	sentinel := errors.New("boom")
	err = tree.Merge([]byte("a"), func(old []byte) ([]byte, error) {
		return nil, sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestTreeClear(t *testing.T) {
	db := openTestDB(t)
	tree, err := db.Tree("things")
	require.NoError(t, err)

	require.NoError(t, tree.Put([]byte("a"), []byte("1")))
	require.NoError(t, tree.Clear())

	var count int
	err = tree.ForEach(func(k, v []byte) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, count)
}
