package idmap

import (
	"testing"

	"github.com/menmos/menmosd/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMap(t *testing.T) *Map {
	t.Helper()
	db, err := kv.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fwd, err := db.Tree("fwd")
	require.NoError(t, err)
	rev, err := db.Tree("rev")
	require.NoError(t, err)
	recycling, err := db.Tree("recycling")
	require.NoError(t, err)

	m, err := Open(fwd, rev, recycling)
	require.NoError(t, err)
	return m
}

func TestBijection(t *testing.T) {
	m := newTestMap(t)

	id, err := m.GetOrAssign([]byte("b1"))
	require.NoError(t, err)

	key, ok, err := m.Lookup(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("b1"), key)

	gotID, ok, err := m.Get([]byte("b1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, gotID)
}

func TestGetOrAssignIsIdempotent(t *testing.T) {
	m := newTestMap(t)

	id1, err := m.GetOrAssign([]byte("b1"))
	require.NoError(t, err)
	id2, err := m.GetOrAssign([]byte("b1"))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestIdsAreMonotonicUntilRecycled(t *testing.T) {
	m := newTestMap(t)

	id0, err := m.GetOrAssign([]byte("a"))
	require.NoError(t, err)
	id1, err := m.GetOrAssign([]byte("b"))
	require.NoError(t, err)
	assert.Less(t, id0, id1)
}

func TestRecyclingMinimality(t *testing.T) {
	m := newTestMap(t)

	idA, err := m.GetOrAssign([]byte("a"))
	require.NoError(t, err)
	_, err = m.GetOrAssign([]byte("b"))
	require.NoError(t, err)

	_, ok, err := m.Delete([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)

	idC, err := m.GetOrAssign([]byte("c"))
	require.NoError(t, err)
	assert.LessOrEqual(t, idC, idA)
}

func TestDeleteRemovesBothDirections(t *testing.T) {
	m := newTestMap(t)

	id, err := m.GetOrAssign([]byte("a"))
	require.NoError(t, err)

	_, ok, err := m.Delete([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = m.Get([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = m.Lookup(id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIDCountTracksIssuedIds(t *testing.T) {
	m := newTestMap(t)
	assert.EqualValues(t, 0, m.IDCount())

	_, err := m.GetOrAssign([]byte("a"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, m.IDCount())

	_, err = m.GetOrAssign([]byte("b"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, m.IDCount())
}
