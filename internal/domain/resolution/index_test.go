package resolution

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_Add(t *testing.T) {
	idA := uuid.New()
	idB := uuid.New()
	ix := NewIndex(DefaultConfig())

	assert.True(t, ix.Add(idA, "Mamoun's Falafel"))
	assert.Equal(t, 1, ix.Len())

	t.Run("same normalized form for same entity is a no-op", func(t *testing.T) {
		assert.False(t, ix.Add(idA, "Mamouns Falafel Inc"))
		assert.Equal(t, 1, ix.Len())
	})

	t.Run("same normalized form for another entity is kept", func(t *testing.T) {
		// Two legitimate businesses can share a trade name. The index
		// keeps both; resolving that name reports ambiguity.
		assert.True(t, ix.Add(idB, "Mamouns Falafel LLC"))
		assert.Equal(t, 2, ix.Len())

		_, err := ix.Resolve("Mamoun's Falafel")
		assert.ErrorIs(t, err, ErrAmbiguous)
	})

	t.Run("unmatchable value is rejected", func(t *testing.T) {
		assert.False(t, ix.Add(idA, "---"))
	})
}

func TestIndex_AliasGain(t *testing.T) {
	idMet := uuid.New()
	ix := NewIndex(DefaultConfig())
	require.True(t, ix.Add(idMet, "Met Market Sand Point"))

	// First sighting of the abbreviation only clears the fuzzy bar.
	match, err := ix.Resolve("Met Mkt Sand Point")
	require.NoError(t, err)
	assert.Equal(t, idMet, match.EntityID)
	assert.Less(t, match.Score, 1.0)

	// Recording it as an alias upgrades the next sighting to exact.
	require.True(t, ix.Add(idMet, "Met Mkt Sand Point"))

	match, err = ix.Resolve("MET MKT SAND POINT")
	require.NoError(t, err)
	assert.Equal(t, idMet, match.EntityID)
	assert.Equal(t, 1.0, match.Score)
}

func TestIndex_CloneIsolation(t *testing.T) {
	idMamoun := uuid.New()
	idNew := uuid.New()

	base := NewIndex(DefaultConfig())
	require.True(t, base.Add(idMamoun, "Mamoun's Falafel"))

	clone := base.Clone()
	require.True(t, clone.Add(idNew, "Pacific Coast Seafood"))

	t.Run("clone sees the staged entry", func(t *testing.T) {
		match, err := clone.Resolve("Pacific Coast Seafood")
		require.NoError(t, err)
		assert.Equal(t, idNew, match.EntityID)
		assert.Equal(t, 2, clone.Len())
	})

	t.Run("base does not", func(t *testing.T) {
		_, err := base.Resolve("Pacific Coast Seafood")
		assert.ErrorIs(t, err, ErrUnresolved)
		assert.Equal(t, 1, base.Len())
	})

	t.Run("base still resolves its own entries", func(t *testing.T) {
		match, err := base.Resolve("Mamouns Falafel Inc")
		require.NoError(t, err)
		assert.Equal(t, idMamoun, match.EntityID)
	})
}

func TestIndex_EntriesReturnsCopy(t *testing.T) {
	idA := uuid.New()
	ix := NewIndex(DefaultConfig())
	require.True(t, ix.Add(idA, "Leschi Market"))

	entries := ix.Entries()
	require.Len(t, entries, 1)
	entries[0] = Entry{}

	match, err := ix.Resolve("Leschi Market")
	require.NoError(t, err)
	assert.Equal(t, idA, match.EntityID)
}
