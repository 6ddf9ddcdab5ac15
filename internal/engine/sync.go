package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/remote"
	"github.com/wordvault/wordvault/internal/store"
	cloudsync "github.com/wordvault/wordvault/internal/sync"
)

// ErrSyncDisabled is returned by sync operations when cloud sync is
// not configured or has been disabled.
var ErrSyncDisabled = errors.New("cloud sync is disabled")

// SetSession signs the device in with a freshly issued token pair and
// persists the session, so the login survives restarts. The device ID
// is minted once per installation and reused across logins. A sync is
// scheduled right away.
func (e *Engine) SetSession(ctx context.Context, email, accessToken, refreshToken string) (*domain.Session, error) {
	if email == "" || accessToken == "" {
		return nil, fmt.Errorf("email and access token are required")
	}
	now := e.clock()

	deviceID := ""
	if existing, err := e.stores.sessions.Get(ctx); err == nil {
		deviceID = existing.DeviceID
	}
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	session := remote.SessionFromToken(email, accessToken, deviceID, now)
	session.RefreshToken = refreshToken

	if err := e.stores.sessions.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	e.session.Set(session)
	e.requestSync()

	copied := *session
	return &copied, nil
}

// ClearSession signs the device out. The in-flight sync cycle, if any,
// is cancelled and outbound sync stops until the next login. Local
// learning data stays put.
func (e *Engine) ClearSession(ctx context.Context) error {
	e.resetSyncGeneration()
	e.session.Clear()
	if err := e.stores.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	e.logger.Info("Signed out")
	return nil
}

// Session returns a copy of the current session, or nil when signed
// out.
func (e *Engine) Session() *domain.Session {
	return e.session.Current()
}

// EnableSync re-enables cloud sync after a DisableSync. Returns
// ErrSyncDisabled when no sync server is configured at all.
func (e *Engine) EnableSync() error {
	if e.coordinator == nil {
		return ErrSyncDisabled
	}
	e.syncMu.Lock()
	e.syncOn = true
	e.syncMu.Unlock()

	e.requestSync()
	e.logger.Info("Cloud sync enabled")
	return nil
}

// DisableSync turns cloud sync off and clears the checkpoints, so the
// next enabled sync runs as a first sync. The in-flight cycle, if any,
// is cancelled.
func (e *Engine) DisableSync(ctx context.Context) error {
	if e.coordinator == nil {
		return nil
	}
	e.syncMu.Lock()
	e.syncOn = false
	e.syncMu.Unlock()
	e.resetSyncGeneration()

	e.coordinator.Reset()
	if err := e.stores.checkpoints.Clear(ctx); err != nil {
		return fmt.Errorf("clear checkpoints: %w", err)
	}
	e.logger.Info("Cloud sync disabled")
	return nil
}

// SyncNow triggers a sync cycle and returns a channel that delivers
// the summary when the cycle completes. The cycle stops early if ctx
// is cancelled, the device signs out, or the engine closes. Fails fast
// with ErrSyncDisabled or remote.ErrNotAuthenticated when no cycle can
// run.
func (e *Engine) SyncNow(ctx context.Context) (<-chan cloudsync.Summary, error) {
	if !e.syncEnabled() {
		return nil, ErrSyncDisabled
	}
	if !e.session.Authenticated(e.clock()) {
		return nil, remote.ErrNotAuthenticated
	}

	results := make(chan cloudsync.Summary, 1)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		results <- e.runSync(ctx)
		close(results)
	}()
	return results, nil
}

// SyncStates reports the per-collection sync states. Empty when sync
// is not configured.
func (e *Engine) SyncStates() map[string]cloudsync.State {
	if e.coordinator == nil {
		return map[string]cloudsync.State{}
	}
	return e.coordinator.States()
}

// runSync executes one coordinator pass and folds whatever it changed
// in the local store back into the in-memory state.
func (e *Engine) runSync(ctx context.Context) cloudsync.Summary {
	cycleCtx, cancel := e.cycleContext(ctx)
	summary := e.coordinator.Sync(cycleCtx)
	cancel()

	e.absorbSyncChanges(ctx, summary)
	return summary
}

// syncLoop serializes debounced, scheduled and login-triggered sync
// requests behind one goroutine.
func (e *Engine) syncLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.runCtx.Done():
			return
		case <-e.syncRequests:
			if !e.syncEnabled() || !e.session.Authenticated(e.clock()) {
				continue
			}
			summary := e.runSync(context.Background())
			if err := summary.Err(); err != nil {
				e.logger.Debug("Background sync completed with errors", "error", err)
			}
		}
	}
}

// requestSync schedules a background sync without blocking. Requests
// collapse while one is already pending and are dropped entirely when
// the engine is signed out or sync is off.
func (e *Engine) requestSync() {
	if !e.syncEnabled() || !e.session.Authenticated(e.clock()) {
		return
	}
	select {
	case e.syncRequests <- struct{}{}:
	default:
	}
}

func (e *Engine) syncEnabled() bool {
	e.syncMu.Lock()
	defer e.syncMu.Unlock()
	return e.syncOn && e.coordinator != nil
}

// cycleContext derives the context one sync cycle runs on: cancelled
// by the caller, by sign-out, and by engine shutdown.
func (e *Engine) cycleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	e.syncMu.Lock()
	gen := e.syncGen
	e.syncMu.Unlock()

	cycleCtx, cancel := context.WithCancel(gen)
	stop := context.AfterFunc(ctx, cancel)
	return cycleCtx, func() {
		stop()
		cancel()
	}
}

// resetSyncGeneration cancels every cycle started under the current
// generation and arms the next one.
func (e *Engine) resetSyncGeneration() {
	e.syncMu.Lock()
	defer e.syncMu.Unlock()
	e.syncCancel()
	e.syncGen, e.syncCancel = context.WithCancel(e.runCtx)
}

// absorbSyncChanges reloads the collections a sync pass touched. A
// full download replaced the store wholesale, so memory follows suit.
// Incremental merges fold store records in under the same
// non-regression rules the coordinator applied, so local mutations
// that raced the cycle survive.
func (e *Engine) absorbSyncChanges(ctx context.Context, summary cloudsync.Summary) {
	for _, result := range summary.Collections {
		if result.Skipped || result.Err != nil {
			continue
		}
		switch {
		case summary.Full && result.Pulled > 0:
			if err := e.replaceCollection(ctx, result.Collection); err != nil {
				e.logger.Warn("Failed to reload collection after sync",
					"collection", result.Collection, "error", err)
			}
		case result.Applied > 0:
			if err := e.mergeCollection(ctx, result.Collection); err != nil {
				e.logger.Warn("Failed to merge collection after sync",
					"collection", result.Collection, "error", err)
			}
		}
	}
}

func (e *Engine) replaceCollection(ctx context.Context, collection string) error {
	switch collection {
	case store.CollectionWords:
		records, err := e.stores.lookups.GetAll(ctx)
		if err != nil {
			return err
		}
		e.mu.Lock()
		e.words = make(map[string]*domain.LookupRecord, len(records))
		for _, r := range records {
			e.words[r.Word] = r
		}
		e.mu.Unlock()

	case store.CollectionFlashcard:
		records, err := e.stores.cards.GetAll(ctx)
		if err != nil {
			return err
		}
		e.mu.Lock()
		e.cards = make(map[string]*domain.CardProgress, len(records))
		for _, c := range records {
			e.cards[c.Word] = c
		}
		e.mu.Unlock()

	case store.CollectionReview:
		records, err := e.stores.reviews.GetAll(ctx)
		if err != nil {
			return err
		}
		e.mu.Lock()
		e.queue = make(map[string]*domain.ReviewEntry, len(records))
		for _, entry := range records {
			e.queue[entry.Word] = entry
		}
		e.mu.Unlock()
	}
	return nil
}

func (e *Engine) mergeCollection(ctx context.Context, collection string) error {
	switch collection {
	case store.CollectionWords:
		records, err := e.stores.lookups.GetAll(ctx)
		if err != nil {
			return err
		}
		e.mu.Lock()
		for _, stored := range records {
			if merged, changed := cloudsync.MergeLookupRecords(e.words[stored.Word], stored, e.cfg.ContextCapacity); changed {
				e.words[stored.Word] = merged
			}
		}
		e.mu.Unlock()

	case store.CollectionFlashcard:
		records, err := e.stores.cards.GetAll(ctx)
		if err != nil {
			return err
		}
		e.mu.Lock()
		for _, stored := range records {
			if cloudsync.ShouldAdoptCard(e.cards[stored.Word], stored) {
				e.cards[stored.Word] = stored
			}
		}
		e.mu.Unlock()

	case store.CollectionReview:
		records, err := e.stores.reviews.GetAll(ctx)
		if err != nil {
			return err
		}
		e.mu.Lock()
		for _, stored := range records {
			if cloudsync.ShouldAdoptReview(e.queue[stored.Word], stored) {
				e.queue[stored.Word] = stored
			}
		}
		e.mu.Unlock()
	}
	return nil
}
