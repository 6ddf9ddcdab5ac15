package engine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordvault/wordvault/internal/coalescer"
	"github.com/wordvault/wordvault/internal/config"
	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/remote"
	"github.com/wordvault/wordvault/internal/store"
	cloudsync "github.com/wordvault/wordvault/internal/sync"
)

// fakeGateway is an in-memory stand-in for the sync server. Upserts
// stamp server time the way the real server does.
type fakeGateway struct {
	mu      sync.Mutex
	records map[string]map[string]remote.Record
}

var _ remote.Gateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{records: make(map[string]map[string]remote.Record)}
}

func (g *fakeGateway) seed(collection, word, payload string, updatedAt time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.records[collection] == nil {
		g.records[collection] = make(map[string]remote.Record)
	}
	g.records[collection][word] = remote.Record{
		Word:      word,
		Payload:   json.RawMessage(payload),
		UpdatedAt: updatedAt,
	}
}

func (g *fakeGateway) record(collection, word string) (remote.Record, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.records[collection][word]
	return rec, ok
}

func (g *fakeGateway) size(collection string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records[collection])
}

func (g *fakeGateway) FetchAll(_ context.Context, collection string) ([]remote.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []remote.Record
	for _, rec := range g.records[collection] {
		out = append(out, rec)
	}
	return out, nil
}

func (g *fakeGateway) FetchSince(_ context.Context, collection string, since time.Time) ([]remote.Record, time.Time, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []remote.Record
	var latest time.Time
	for _, rec := range g.records[collection] {
		if !rec.UpdatedAt.After(since) {
			continue
		}
		out = append(out, rec)
		if rec.UpdatedAt.After(latest) {
			latest = rec.UpdatedAt
		}
	}
	return out, latest, nil
}

func (g *fakeGateway) UpsertBatch(_ context.Context, collection string, records []remote.Record) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.records[collection] == nil {
		g.records[collection] = make(map[string]remote.Record)
	}
	now := time.Now().UTC()
	for _, rec := range records {
		rec.UpdatedAt = now
		g.records[collection][rec.Word] = rec
	}
	return nil
}

func (g *fakeGateway) Delete(_ context.Context, collection, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.records[collection], key)
	return nil
}

func (g *fakeGateway) Count(_ context.Context, collection string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return int64(len(g.records[collection])), nil
}

// newSyncedEngine wires an engine to a fake gateway with a signed-in
// session. The session is planted directly so no background cycle is
// requested; tests drive every cycle through SyncNow.
func newSyncedEngine(t *testing.T) (*engineEnv, *fakeGateway) {
	t.Helper()

	gw := newFakeGateway()
	env := newTestEngine(t, func(_ *config.EngineConfig, _ *config.SyncConfig, opts *Options) {
		opts.Gateway = gw
	})
	signIn(t, env)
	return env, gw
}

func signIn(t *testing.T, env *engineEnv) {
	t.Helper()

	sess := &domain.Session{
		Email:        "dev@example.com",
		Token:        "opaque-access-token",
		DeviceID:     "device-under-test",
		UpdatedAt:    env.clock.Now(),
		RefreshToken: "refresh-1",
	}
	require.NoError(t, env.engine.stores.sessions.Put(context.Background(), sess))
	env.engine.session.Set(sess)
}

// persist writes one key's in-memory state straight to the local store,
// standing in for an expired debounce window without waking the cloud
// trigger.
func (env *engineEnv) persist(t *testing.T, collection, word string) {
	t.Helper()
	err := env.engine.flushLocal(context.Background(), coalescer.Key{Collection: collection, Word: word})
	require.NoError(t, err, "persist must succeed")
}

func syncOnce(t *testing.T, env *engineEnv) cloudsync.Summary {
	t.Helper()

	results, err := env.engine.SyncNow(context.Background())
	require.NoError(t, err, "sync must start")
	summary := <-results
	require.NoError(t, summary.Err(), "sync cycle must succeed")
	return summary
}

func collectionResult(t *testing.T, summary cloudsync.Summary, name string) cloudsync.CollectionResult {
	t.Helper()
	for _, result := range summary.Collections {
		if result.Collection == name {
			return result
		}
	}
	t.Fatalf("no result for collection %q", name)
	return cloudsync.CollectionResult{}
}

func lookupPayload(t *testing.T, word string, count int64, at time.Time) string {
	t.Helper()
	raw, err := json.Marshal(&domain.LookupRecord{
		Word:      word,
		Count:     count,
		Lookups:   []time.Time{at},
		UpdatedAt: at,
	})
	require.NoError(t, err)
	return string(raw)
}

func TestEngine_SyncDisabledWithoutServer(t *testing.T) {
	t.Parallel() // Enable parallel testing

	env := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := env.engine.SyncNow(ctx)
	assert.ErrorIs(t, err, ErrSyncDisabled)
	assert.ErrorIs(t, env.engine.EnableSync(), ErrSyncDisabled)
	assert.NoError(t, env.engine.DisableSync(ctx), "disabling a disabled engine is harmless")
	assert.Empty(t, env.engine.SyncStates())
}

func TestEngine_SyncNowRequiresSession(t *testing.T) {
	t.Parallel() // Enable parallel testing

	env := newTestEngine(t, func(_ *config.EngineConfig, _ *config.SyncConfig, opts *Options) {
		opts.Gateway = newFakeGateway()
	})

	_, err := env.engine.SyncNow(context.Background())
	assert.ErrorIs(t, err, remote.ErrNotAuthenticated)
}

func TestEngine_SessionLifecycle(t *testing.T) {
	t.Parallel() // Enable parallel testing

	env := newTestEngine(t, func(_ *config.EngineConfig, _ *config.SyncConfig, opts *Options) {
		opts.Gateway = newFakeGateway()
	})
	ctx := context.Background()

	session, err := env.engine.SetSession(ctx, "dev@example.com", "opaque-access-token", "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", session.Email)
	assert.Equal(t, "refresh-1", session.RefreshToken)
	require.NotEmpty(t, session.DeviceID)

	// A token refresh keeps the device identity.
	refreshed, err := env.engine.SetSession(ctx, "dev@example.com", "opaque-access-token-2", "refresh-2")
	require.NoError(t, err)
	assert.Equal(t, session.DeviceID, refreshed.DeviceID, "device identity survives token refreshes")

	stored, err := env.engine.stores.sessions.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque-access-token-2", stored.Token, "session is persisted immediately")

	require.NoError(t, env.engine.ClearSession(ctx))
	assert.Nil(t, env.engine.Session())
	_, err = env.engine.stores.sessions.Get(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = env.engine.SyncNow(ctx)
	assert.ErrorIs(t, err, remote.ErrNotAuthenticated, "signed-out engines cannot sync")
}

func TestEngine_SetSessionValidatesInput(t *testing.T) {
	t.Parallel() // Enable parallel testing

	env := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := env.engine.SetSession(ctx, "", "token", "")
	assert.Error(t, err, "email is required")
	_, err = env.engine.SetSession(ctx, "dev@example.com", "", "")
	assert.Error(t, err, "access token is required")
}

func TestEngine_FirstSyncUploadsLocalState(t *testing.T) {
	t.Parallel() // Enable parallel testing

	env, gw := newSyncedEngine(t)
	ctx := context.Background()

	_, err := env.engine.RecordLookup(ctx, "ember", "first")
	require.NoError(t, err)
	_, err = env.engine.RecordLookup(ctx, "ember", "second")
	require.NoError(t, err)
	_, err = env.engine.SubmitReview(ctx, "ember", true)
	require.NoError(t, err)
	require.NoError(t, env.engine.EnqueuePending("tide"))
	env.persist(t, store.CollectionWords, "ember")
	env.persist(t, store.CollectionFlashcard, "ember")
	env.persist(t, store.CollectionReview, "tide")

	summary := syncOnce(t, env)
	assert.True(t, summary.Full, "first pass is a full download")
	assert.Equal(t, 1, collectionResult(t, summary, store.CollectionWords).Pushed)
	assert.Equal(t, 1, collectionResult(t, summary, store.CollectionFlashcard).Pushed)
	assert.Equal(t, 1, collectionResult(t, summary, store.CollectionReview).Pushed)

	rec, ok := gw.record(store.CollectionWords, "ember")
	require.True(t, ok, "the lookup history must reach the server")
	var pushed domain.LookupRecord
	require.NoError(t, json.Unmarshal(rec.Payload, &pushed))
	assert.Equal(t, int64(2), pushed.Count)

	// Nothing changed: the next cycle is incremental and pushes nothing.
	summary = syncOnce(t, env)
	assert.False(t, summary.Full)
	for _, result := range summary.Collections {
		assert.Zero(t, result.Pushed, "collection %s should be settled", result.Collection)
	}

	// A further lookup makes the history newer than the server copy.
	_, err = env.engine.RecordLookup(ctx, "ember", "third")
	require.NoError(t, err)
	env.persist(t, store.CollectionWords, "ember")

	summary = syncOnce(t, env)
	assert.Equal(t, 1, collectionResult(t, summary, store.CollectionWords).Pushed)
	rec, _ = gw.record(store.CollectionWords, "ember")
	require.NoError(t, json.Unmarshal(rec.Payload, &pushed))
	assert.Equal(t, int64(3), pushed.Count)
	assert.Equal(t, 1, gw.size(store.CollectionWords))
}

func TestEngine_FirstSyncAdoptsServerState(t *testing.T) {
	t.Parallel() // Enable parallel testing

	var fired []string
	gw := newFakeGateway()
	gw.seed(store.CollectionWords, "breeze",
		lookupPayload(t, "breeze", 5, time.Now().UTC().Add(-time.Hour)), time.Now().UTC())

	env := newTestEngine(t, func(_ *config.EngineConfig, _ *config.SyncConfig, opts *Options) {
		opts.Gateway = gw
		opts.Callbacks.OnSecondLookup = func(word string) {
			fired = append(fired, word)
		}
	})
	ctx := context.Background()
	signIn(t, env)

	summary := syncOnce(t, env)
	assert.True(t, summary.Full)
	words := collectionResult(t, summary, store.CollectionWords)
	assert.Equal(t, 1, words.Pulled)
	assert.Equal(t, 1, words.Applied)

	record, err := env.engine.GetWord("breeze")
	require.NoError(t, err, "downloaded history must be queryable at once")
	assert.Equal(t, int64(5), record.Count)

	stored, err := env.engine.stores.lookups.Get(ctx, "breeze")
	require.NoError(t, err)
	assert.Equal(t, int64(5), stored.Count)

	assert.Empty(t, fired, "sync merges never fire lookup callbacks")
}

func TestEngine_IncrementalPullMergesIntoMemory(t *testing.T) {
	t.Parallel() // Enable parallel testing

	env, gw := newSyncedEngine(t)
	ctx := context.Background()

	_, err := env.engine.RecordLookup(ctx, "ember", "local history")
	require.NoError(t, err)
	env.persist(t, store.CollectionWords, "ember")
	syncOnce(t, env)

	// The server learns a new word from another device. A lookup that
	// has not flushed yet must survive the merge untouched.
	gw.seed(store.CollectionWords, "storm",
		lookupPayload(t, "storm", 2, time.Now().UTC()), time.Now().UTC().Add(time.Minute))
	_, err = env.engine.RecordLookup(ctx, "ripple", "not yet flushed")
	require.NoError(t, err)

	// The pull may also echo the record pushed last cycle; only the new
	// word changes anything.
	summary := syncOnce(t, env)
	assert.False(t, summary.Full)
	words := collectionResult(t, summary, store.CollectionWords)
	assert.GreaterOrEqual(t, words.Pulled, 1)
	assert.Equal(t, 1, words.Applied)

	storm, err := env.engine.GetWord("storm")
	require.NoError(t, err)
	assert.Equal(t, int64(2), storm.Count)

	ripple, err := env.engine.GetWord("ripple")
	require.NoError(t, err, "unflushed local work survives the merge")
	assert.Equal(t, int64(1), ripple.Count)

	ember, err := env.engine.GetWord("ember")
	require.NoError(t, err)
	assert.Equal(t, int64(1), ember.Count)
}

func TestEngine_DisableSyncForcesFullResync(t *testing.T) {
	t.Parallel() // Enable parallel testing

	env, _ := newSyncedEngine(t)
	ctx := context.Background()

	_, err := env.engine.RecordLookup(ctx, "ember", "")
	require.NoError(t, err)
	env.persist(t, store.CollectionWords, "ember")

	assert.True(t, syncOnce(t, env).Full)
	assert.False(t, syncOnce(t, env).Full, "second pass is incremental")

	require.NoError(t, env.engine.DisableSync(ctx))
	_, err = env.engine.SyncNow(ctx)
	assert.ErrorIs(t, err, ErrSyncDisabled)

	// Dropped checkpoints mean the next pass starts over as a full
	// download.
	for _, name := range store.SyncedCollections() {
		_, err := env.engine.stores.checkpoints.Get(ctx, name)
		assert.ErrorIs(t, err, store.ErrCheckpointNotFound, "checkpoint for %s should be gone", name)
	}

	// Re-enabling also queues a background cycle, so the explicit one
	// may find collections busy; only the end state is asserted.
	require.NoError(t, env.engine.EnableSync())
	results, err := env.engine.SyncNow(ctx)
	require.NoError(t, err)
	require.NoError(t, (<-results).Err())

	assert.Eventually(t, func() bool {
		for _, name := range store.SyncedCollections() {
			if _, err := env.engine.stores.checkpoints.Get(ctx, name); err != nil {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond, "a cycle after re-enable rebuilds the checkpoints")
}

func TestEngine_SyncStatesTrackCollections(t *testing.T) {
	t.Parallel() // Enable parallel testing

	env, _ := newSyncedEngine(t)

	states := env.engine.SyncStates()
	require.Len(t, states, len(store.SyncedCollections()))
	for _, name := range store.SyncedCollections() {
		assert.Equal(t, cloudsync.StateUninitialized, states[name],
			"collection %s has not synced yet", name)
	}

	syncOnce(t, env)
	states = env.engine.SyncStates()
	for _, name := range store.SyncedCollections() {
		assert.Equal(t, cloudsync.StateIdle, states[name],
			"collection %s should settle after a cycle", name)
	}
}
