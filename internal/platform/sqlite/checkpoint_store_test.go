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

func TestSQLiteCheckpointStore(t *testing.T) {
	t.Parallel() // Enable parallel testing

	db := newTestDB(t)
	checkpointStore := sqlite.NewSQLiteCheckpointStore(db, nil)
	ctx := testCtx(t)

	now := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	watermark := now.Add(-time.Hour)

	t.Run("Never-synced collection returns ErrCheckpointNotFound", func(t *testing.T) {
		_, err := checkpointStore.Get(ctx, store.CollectionWords)
		assert.ErrorIs(t, err, store.ErrCheckpointNotFound)
	})

	t.Run("Put then Get round trips", func(t *testing.T) {
		cp := domain.NewSyncCheckpoint(store.CollectionWords, watermark, now)
		require.NoError(t, checkpointStore.Put(ctx, cp))

		got, err := checkpointStore.Get(ctx, store.CollectionWords)
		require.NoError(t, err)
		assert.Equal(t, store.CollectionWords, got.Collection)
		assert.True(t, got.Watermark.Equal(watermark))
		assert.True(t, got.UpdatedAt.Equal(now))
	})

	t.Run("Put overwrites the watermark", func(t *testing.T) {
		later := watermark.Add(30 * time.Minute)
		cp := domain.NewSyncCheckpoint(store.CollectionWords, later, now)
		require.NoError(t, checkpointStore.Put(ctx, cp))

		got, err := checkpointStore.Get(ctx, store.CollectionWords)
		require.NoError(t, err)
		assert.True(t, got.Watermark.Equal(later))
	})

	t.Run("Collections are independent", func(t *testing.T) {
		cp := domain.NewSyncCheckpoint(store.CollectionFlashcard, watermark, now)
		require.NoError(t, checkpointStore.Put(ctx, cp))

		_, err := checkpointStore.Get(ctx, store.CollectionReview)
		assert.ErrorIs(t, err, store.ErrCheckpointNotFound)
	})

	t.Run("Delete forces a future full sync", func(t *testing.T) {
		require.NoError(t, checkpointStore.Delete(ctx, store.CollectionWords))
		_, err := checkpointStore.Get(ctx, store.CollectionWords)
		assert.ErrorIs(t, err, store.ErrCheckpointNotFound)

		// Deleting an absent checkpoint is not an error
		require.NoError(t, checkpointStore.Delete(ctx, store.CollectionWords))
	})

	t.Run("Clear removes every checkpoint", func(t *testing.T) {
		require.NoError(t, checkpointStore.Clear(ctx))
		for _, collection := range store.SyncedCollections() {
			_, err := checkpointStore.Get(ctx, collection)
			assert.ErrorIs(t, err, store.ErrCheckpointNotFound)
		}
	})
}
