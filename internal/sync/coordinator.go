package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/platform/logger"
	"github.com/wordvault/wordvault/internal/remote"
	"github.com/wordvault/wordvault/internal/store"
)

// defaultUploadBatchSize caps how many records one upload request
// carries when the config does not say otherwise.
const defaultUploadBatchSize = 100

// ProgressFunc receives sync progress updates: current out of total
// records for the step described by message.
type ProgressFunc func(current, total int, message string)

// Config tunes a Coordinator. Zero values select the defaults.
type Config struct {
	// UploadBatchSize is the maximum number of records per upload
	// request. Defaults to 100.
	UploadBatchSize int

	// OnProgress, when set, is called during full downloads and batched
	// uploads. It runs on the syncing goroutine and must not block.
	OnProgress ProgressFunc

	// ContextCapacity bounds the example sentences kept per word when
	// pulled lookup records are merged. Zero applies the domain default.
	ContextCapacity int
}

// Coordinator reconciles the local stores with the sync server, one
// cycle per collection. It remembers the last remote state observed
// per key (populated by pulls) so uploads can push only records the
// server does not already have.
type Coordinator struct {
	gateway     remote.Gateway
	checkpoints store.CheckpointStore
	collections []collectionSync
	states      *stateTracker
	batchSize   int
	progress    ProgressFunc
	logger      *slog.Logger

	mu         sync.Mutex
	inFlight   map[string]bool
	lastRemote map[string]map[string]recordVersion
}

// NewCoordinator creates a Coordinator over the given gateway and
// stores. If logger is nil, slog.Default() is used.
func NewCoordinator(
	gateway remote.Gateway,
	lookups store.LookupStore,
	cards store.CardStore,
	reviews store.ReviewStore,
	checkpoints store.CheckpointStore,
	cfg Config,
	log *slog.Logger,
) *Coordinator {
	if gateway == nil {
		panic("gateway cannot be nil")
	}
	if lookups == nil {
		panic("lookups cannot be nil")
	}
	if cards == nil {
		panic("cards cannot be nil")
	}
	if reviews == nil {
		panic("reviews cannot be nil")
	}
	if checkpoints == nil {
		panic("checkpoints cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "sync_coordinator"))

	if cfg.UploadBatchSize <= 0 {
		cfg.UploadBatchSize = defaultUploadBatchSize
	}

	return &Coordinator{
		gateway:     gateway,
		checkpoints: checkpoints,
		collections: []collectionSync{
			&wordsSync{lookups: lookups, contextCap: cfg.ContextCapacity},
			&cardsSync{cards: cards},
			&reviewSync{reviews: reviews},
		},
		states:     newStateTracker(log),
		batchSize:  cfg.UploadBatchSize,
		progress:   cfg.OnProgress,
		logger:     log,
		inFlight:   make(map[string]bool),
		lastRemote: make(map[string]map[string]recordVersion),
	}
}

// Summary aggregates the results of one sync pass.
type Summary struct {
	// Full reports whether the pass ran as a full download.
	Full        bool
	Collections []CollectionResult
}

// CollectionResult reports one collection's cycle outcome.
type CollectionResult struct {
	Collection string
	// Skipped means another cycle for the collection was already in
	// flight and this one did nothing.
	Skipped bool
	// Pulled counts remote records fetched, Applied the subset that
	// changed local state, Pushed the local records uploaded.
	Pulled  int
	Applied int
	Pushed  int
	Err     error
}

// Err returns the combined error of all failed collections, or nil
// when the pass fully succeeded.
func (s Summary) Err() error {
	var errs []error
	for _, c := range s.Collections {
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Collection, c.Err))
		}
	}
	return errors.Join(errs...)
}

// Sync runs one cycle for every synced collection in order. The first
// pass on a device, recognized by the absence of all checkpoints, runs
// as a full download; later passes pull incrementally past each
// collection's checkpoint and then upload what the server lacks.
// Cancelling ctx stops the pass between records; checkpoints already
// advanced stay advanced, so the next trigger resumes where this one
// stopped.
func (c *Coordinator) Sync(ctx context.Context) Summary {
	full, err := c.needsFullSync(ctx)
	if err != nil {
		c.logger.Error("Failed to read sync checkpoints",
			slog.String("error", err.Error()))
		summary := Summary{}
		for _, cs := range c.collections {
			summary.Collections = append(summary.Collections,
				CollectionResult{Collection: cs.name(), Err: err})
		}
		return summary
	}

	summary := Summary{Full: full}
	for _, cs := range c.collections {
		summary.Collections = append(summary.Collections, c.syncCollection(ctx, cs, full))
	}
	return summary
}

// State returns the sync state of one collection.
func (c *Coordinator) State(collection string) State {
	return c.states.get(collection)
}

// States returns a snapshot of every collection's sync state,
// including collections that have never synced.
func (c *Coordinator) States() map[string]State {
	states := c.states.snapshot()
	for _, cs := range c.collections {
		if _, ok := states[cs.name()]; !ok {
			states[cs.name()] = StateUninitialized
		}
	}
	return states
}

// Reset drops the in-memory remote state and marks every collection
// uninitialized. Called when sync is disabled or the user signs out;
// the caller clears the checkpoints separately.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	c.lastRemote = make(map[string]map[string]recordVersion)
	c.mu.Unlock()

	for _, cs := range c.collections {
		c.states.set(cs.name(), StateUninitialized)
	}
}

// needsFullSync reports whether no collection has a checkpoint yet, in
// which case the next pass runs as a full download.
func (c *Coordinator) needsFullSync(ctx context.Context) (bool, error) {
	for _, name := range store.SyncedCollections() {
		_, err := c.checkpoints.Get(ctx, name)
		switch {
		case errors.Is(err, store.ErrCheckpointNotFound):
			continue
		case err != nil:
			return false, err
		default:
			return false, nil
		}
	}
	return true, nil
}

func (c *Coordinator) syncCollection(ctx context.Context, cs collectionSync, full bool) CollectionResult {
	name := cs.name()
	res := CollectionResult{Collection: name}

	if !c.tryAcquire(name) {
		c.logger.Debug("Sync cycle already in flight, skipping",
			slog.String("collection", name))
		res.Skipped = true
		return res
	}
	defer c.release(name)

	log := logger.FromContextOrDefault(ctx, c.logger)
	c.states.set(name, StateSyncing)

	var err error
	if full {
		res.Pulled, res.Applied, err = c.fullDownload(ctx, cs)
	} else {
		res.Pulled, res.Applied, err = c.incrementalPull(ctx, cs)
	}
	if err == nil {
		res.Pushed, err = c.upload(ctx, cs)
	}

	if err != nil {
		res.Err = err
		c.states.set(name, StateError)
		log.Error("Sync cycle failed",
			slog.String("collection", name),
			slog.String("error", err.Error()))
		return res
	}

	c.states.set(name, StateIdle)
	log.Debug("Sync cycle completed",
		slog.String("collection", name),
		slog.Int("pulled", res.Pulled),
		slog.Int("applied", res.Applied),
		slog.Int("pushed", res.Pushed))
	return res
}

// fullDownload replaces local state with the server's when the server
// has any records, and keeps local state when it has none. Either way
// the checkpoint is set to now, so the next cycle pulls incrementally.
func (c *Coordinator) fullDownload(ctx context.Context, cs collectionSync) (pulled, applied int, err error) {
	name := cs.name()

	records, err := c.gateway.FetchAll(ctx, name)
	if err != nil {
		return 0, 0, err
	}
	pulled = len(records)

	versions := make(map[string]recordVersion, len(records))
	if len(records) > 0 {
		if err := cs.clearLocal(ctx); err != nil {
			return pulled, 0, err
		}
		applied, err = c.applyRecords(ctx, cs, records, versions, "downloading "+name)
		if err != nil {
			return pulled, applied, err
		}
	}
	c.setVersions(name, versions)

	now := time.Now().UTC()
	if err := c.checkpoints.Put(ctx, domain.NewSyncCheckpoint(name, now, now)); err != nil {
		return pulled, applied, err
	}
	return pulled, applied, nil
}

// incrementalPull fetches records updated after the collection's
// checkpoint, merges them, and advances the checkpoint just past the
// newest remote update so the next pull skips everything seen here.
func (c *Coordinator) incrementalPull(ctx context.Context, cs collectionSync) (pulled, applied int, err error) {
	name := cs.name()

	var since time.Time
	cp, err := c.checkpoints.Get(ctx, name)
	switch {
	case errors.Is(err, store.ErrCheckpointNotFound):
		cp = nil
	case err != nil:
		return 0, 0, err
	default:
		since = cp.Watermark
	}

	records, latest, err := c.gateway.FetchSince(ctx, name, since)
	if err != nil {
		return 0, 0, err
	}
	pulled = len(records)

	applied, err = c.applyRecords(ctx, cs, records, c.versionsFor(name), "downloading "+name)
	if err != nil {
		return pulled, applied, err
	}

	if !latest.IsZero() {
		next := latest.Add(time.Millisecond)
		now := time.Now().UTC()
		if cp == nil {
			cp = domain.NewSyncCheckpoint(name, next, now)
		} else if !cp.Advance(next, now) {
			return pulled, applied, nil
		}
		if err := c.checkpoints.Put(ctx, cp); err != nil {
			return pulled, applied, err
		}
	}
	return pulled, applied, nil
}

// applyRecords merges a remote batch into local state, recording each
// record's version in versions. Malformed records are logged and
// skipped; they do not fail the cycle.
func (c *Coordinator) applyRecords(ctx context.Context, cs collectionSync, records []remote.Record, versions map[string]recordVersion, message string) (int, error) {
	applied := 0
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return applied, err
		}

		v, err := cs.versionOf(rec)
		if err != nil {
			if errors.Is(err, errMalformedPayload) {
				c.logger.Warn("Skipping malformed remote record",
					slog.String("collection", cs.name()),
					slog.String("word", rec.Word),
					slog.String("error", err.Error()))
				c.report(i+1, len(records), message)
				continue
			}
			return applied, err
		}

		changed, err := cs.mergeRemote(ctx, rec)
		if err != nil {
			return applied, err
		}
		if changed {
			applied++
		}
		versions[rec.Word] = v
		c.report(i+1, len(records), message)
	}
	return applied, nil
}

// upload pushes local records the server has not seen or that are
// strictly ahead of its last known state, in batches. A failed batch
// is logged and the remaining batches still go out.
func (c *Coordinator) upload(ctx context.Context, cs collectionSync) (int, error) {
	name := cs.name()

	locals, err := cs.snapshotLocal(ctx)
	if err != nil {
		return 0, err
	}

	versions := c.versionsFor(name)
	pending := make([]localRecord, 0, len(locals))
	for _, lr := range locals {
		last, known := versions[lr.record.Word]
		if !known || cs.ahead(lr.version, last) {
			pending = append(pending, lr)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	pushed := 0
	total := len(pending)
	var batchErrs []error
	for start := 0; start < total; start += c.batchSize {
		if err := ctx.Err(); err != nil {
			batchErrs = append(batchErrs, err)
			break
		}

		end := min(start+c.batchSize, total)
		batch := make([]remote.Record, 0, end-start)
		for _, lr := range pending[start:end] {
			batch = append(batch, lr.record)
		}

		if err := c.gateway.UpsertBatch(ctx, name, batch); err != nil {
			c.logger.Warn("Batch upload failed",
				slog.String("collection", name),
				slog.Int("batch_start", start),
				slog.Int("batch_size", len(batch)),
				slog.String("error", err.Error()))
			batchErrs = append(batchErrs, err)
			c.report(end, total, "uploading "+name)
			continue
		}

		for _, lr := range pending[start:end] {
			versions[lr.record.Word] = lr.version
		}
		pushed += len(batch)
		c.report(end, total, "uploading "+name)
	}
	return pushed, errors.Join(batchErrs...)
}

func (c *Coordinator) report(current, total int, message string) {
	if c.progress != nil {
		c.progress(current, total, message)
	}
}

func (c *Coordinator) tryAcquire(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight[name] {
		return false
	}
	c.inFlight[name] = true
	return true
}

func (c *Coordinator) release(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, name)
}

// versionsFor returns the last-known-remote map for a collection,
// creating it on first use. The returned map is only mutated by the
// cycle holding the collection's in-flight slot.
func (c *Coordinator) versionsFor(name string) map[string]recordVersion {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastRemote[name] == nil {
		c.lastRemote[name] = make(map[string]recordVersion)
	}
	return c.lastRemote[name]
}

func (c *Coordinator) setVersions(name string, versions map[string]recordVersion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRemote[name] = versions
}
