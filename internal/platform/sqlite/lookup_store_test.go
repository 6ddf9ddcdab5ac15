package sqlite_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/platform/sqlite"
	"github.com/wordvault/wordvault/internal/store"
)

func TestSQLiteLookupStore_PutAndGet(t *testing.T) {
	t.Parallel() // Enable parallel testing

	db := newTestDB(t)
	lookupStore := sqlite.NewSQLiteLookupStore(db, nil)
	ctx := testCtx(t)

	t.Run("Round trip preserves all fields", func(t *testing.T) {
		now := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
		record, err := domain.NewLookupRecord("Serendipity", "a serendipity of timing", now)
		require.NoError(t, err)
		record.RecordLookup("another chance encounter", now.Add(2*time.Hour), 0)

		require.NoError(t, lookupStore.Put(ctx, record))

		got, err := lookupStore.Get(ctx, "serendipity")
		require.NoError(t, err)

		assert.Equal(t, "serendipity", got.Word, "word should be stored normalized")
		assert.Equal(t, int64(2), got.Count)
		require.Len(t, got.Lookups, 2)
		assert.True(t, got.Lookups[0].Equal(now))
		assert.True(t, got.Lookups[1].Equal(now.Add(2*time.Hour)))
		assert.Equal(t, []string{"a serendipity of timing", "another chance encounter"}, got.Contexts)
		assert.True(t, got.UpdatedAt.Equal(now.Add(2*time.Hour)))
	})

	t.Run("Get normalizes the key", func(t *testing.T) {
		got, err := lookupStore.Get(ctx, "  SERENDIPITY  ")
		require.NoError(t, err)
		assert.Equal(t, "serendipity", got.Word)
	})

	t.Run("Put replaces the whole record", func(t *testing.T) {
		now := time.Date(2024, 3, 11, 9, 30, 0, 0, time.UTC)
		record, err := domain.NewLookupRecord("serendipity", "", now)
		require.NoError(t, err)

		require.NoError(t, lookupStore.Put(ctx, record))

		got, err := lookupStore.Get(ctx, "serendipity")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Count, "last write should win in full")
		assert.Empty(t, got.Contexts)
	})

	t.Run("Missing word returns ErrLookupNotFound", func(t *testing.T) {
		_, err := lookupStore.Get(ctx, "nonexistent")
		assert.ErrorIs(t, err, store.ErrLookupNotFound)
	})

	t.Run("Invalid record is rejected", func(t *testing.T) {
		err := lookupStore.Put(ctx, &domain.LookupRecord{Word: ""})
		assert.ErrorIs(t, err, domain.ErrEmptyWord)
	})
}

func TestSQLiteLookupStore_GetAll(t *testing.T) {
	t.Parallel() // Enable parallel testing

	db := newTestDB(t)
	lookupStore := sqlite.NewSQLiteLookupStore(db, nil)
	ctx := testCtx(t)

	all, err := lookupStore.GetAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all, "empty collection should yield an empty slice, not nil")
	assert.Empty(t, all)

	now := time.Now().UTC()
	for _, word := range []string{"alpha", "beta", "gamma"} {
		record, err := domain.NewLookupRecord(word, "", now)
		require.NoError(t, err)
		require.NoError(t, lookupStore.Put(ctx, record))
	}

	all, err = lookupStore.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteLookupStore_DeleteAndClear(t *testing.T) {
	t.Parallel() // Enable parallel testing

	db := newTestDB(t)
	lookupStore := sqlite.NewSQLiteLookupStore(db, nil)
	ctx := testCtx(t)

	now := time.Now().UTC()
	for _, word := range []string{"alpha", "beta"} {
		record, err := domain.NewLookupRecord(word, "", now)
		require.NoError(t, err)
		require.NoError(t, lookupStore.Put(ctx, record))
	}

	require.NoError(t, lookupStore.Delete(ctx, "alpha"))
	_, err := lookupStore.Get(ctx, "alpha")
	assert.ErrorIs(t, err, store.ErrLookupNotFound)

	// Deleting an absent word is not an error
	require.NoError(t, lookupStore.Delete(ctx, "alpha"))

	require.NoError(t, lookupStore.Clear(ctx))
	all, err := lookupStore.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
