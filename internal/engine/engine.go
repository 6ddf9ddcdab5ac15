package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jmoiron/sqlx"

	"github.com/wordvault/wordvault/internal/backup"
	"github.com/wordvault/wordvault/internal/coalescer"
	"github.com/wordvault/wordvault/internal/config"
	"github.com/wordvault/wordvault/internal/deck"
	"github.com/wordvault/wordvault/internal/domain"
	"github.com/wordvault/wordvault/internal/domain/srs"
	"github.com/wordvault/wordvault/internal/events"
	"github.com/wordvault/wordvault/internal/platform/sqlite"
	"github.com/wordvault/wordvault/internal/remote"
	"github.com/wordvault/wordvault/internal/store"
	cloudsync "github.com/wordvault/wordvault/internal/sync"
)

const (
	databaseFile = "wordvault.db"
	backupFile   = "backup.json"

	// collectionBlacklist keys blacklist marks in the coalescer. The
	// blacklist persists locally but never syncs, so it has no entry in
	// store's synced collection names.
	collectionBlacklist = "blacklist"
)

// Callbacks are the engine's outbound notifications, registered at
// construction. Both are optional. They run synchronously on the
// goroutine that produced the event and must return quickly.
type Callbacks struct {
	// OnSecondLookup fires when a word's lookup count crosses from one
	// to two on this device.
	OnSecondLookup func(word string)

	// OnSyncProgress reports full-download and batched-upload progress.
	OnSyncProgress func(current, total int, message string)
}

// Options tune construction beyond what the configuration file covers.
// The zero value selects production behavior; tests inject clocks,
// random sources and gateways through it.
type Options struct {
	Logger    *slog.Logger
	Callbacks Callbacks

	// Clock overrides time.Now for everything the engine stamps.
	Clock func() time.Time

	// Rand seeds deck shuffling deterministically.
	Rand *rand.Rand

	// Gateway replaces the HTTP sync gateway. When set, sync counts as
	// configured even without a base URL.
	Gateway remote.Gateway
}

// storeSet bundles the per-collection store contracts backed by the
// one local database.
type storeSet struct {
	lookups     store.LookupStore
	cards       store.CardStore
	reviews     store.ReviewStore
	blacklist   store.BlacklistStore
	decks       store.DeckSessionStore
	sessions    store.SessionStore
	checkpoints store.CheckpointStore
}

// Engine owns all learner state for one wordvault installation. Every
// mutation lands in the in-memory maps first and reaches the local
// store through the write coalescer; cloud sync follows on its own
// debounce. Construct with New, call Start before use and Close on the
// way out.
type Engine struct {
	cfg     config.EngineConfig
	syncCfg config.SyncConfig
	logger  *slog.Logger
	clock   func() time.Time

	db     *sqlx.DB
	stores storeSet

	flusher   *coalescer.Coalescer
	scheduler srs.Service
	builder   *deck.Builder
	backups   *backup.Manager
	emitter   *events.InMemoryEmitter

	session     *remote.SessionHolder
	gateway     remote.Gateway
	coordinator *cloudsync.Coordinator
	autosync    *gocron.Scheduler

	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup

	syncRequests chan struct{}

	syncMu     sync.Mutex
	syncOn     bool
	syncGen    context.Context
	syncCancel context.CancelFunc

	mu      sync.RWMutex
	words   map[string]*domain.LookupRecord
	cards   map[string]*domain.CardProgress
	queue   map[string]*domain.ReviewEntry
	blocked map[string]*domain.BlacklistEntry

	lifeMu  sync.Mutex
	started bool
	closed  bool
}

// New constructs an Engine over the local database in cfg.DataDir,
// creating the file and applying migrations as needed. The engine
// holds no learner state until Start loads it.
func New(cfg config.EngineConfig, syncCfg config.SyncConfig, opts Options) (*Engine, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data dir cannot be empty")
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "engine"))

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	db, err := sqlite.Open(filepath.Join(cfg.DataDir, databaseFile))
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	e := &Engine{
		cfg:     cfg,
		syncCfg: syncCfg,
		logger:  log,
		clock:   clock,
		db:      db,
		stores: storeSet{
			lookups:     sqlite.NewSQLiteLookupStore(db, log),
			cards:       sqlite.NewSQLiteCardStore(db, log),
			reviews:     sqlite.NewSQLiteReviewStore(db, log),
			blacklist:   sqlite.NewSQLiteBlacklistStore(db, log),
			decks:       sqlite.NewSQLiteDeckSessionStore(db, log),
			sessions:    sqlite.NewSQLiteSessionStore(db, log),
			checkpoints: sqlite.NewSQLiteCheckpointStore(db, log),
		},
		scheduler:    srs.NewDefaultService(),
		builder:      deck.NewBuilder(opts.Rand),
		backups:      backup.NewManager(filepath.Join(cfg.DataDir, backupFile), log),
		emitter:      events.NewInMemoryEmitter(log),
		session:      remote.NewSessionHolder(),
		syncRequests: make(chan struct{}, 1),
		words:        make(map[string]*domain.LookupRecord),
		cards:        make(map[string]*domain.CardProgress),
		queue:        make(map[string]*domain.ReviewEntry),
		blocked:      make(map[string]*domain.BlacklistEntry),
	}
	e.runCtx, e.runCancel = context.WithCancel(context.Background())
	e.syncGen, e.syncCancel = context.WithCancel(e.runCtx)

	e.flusher = coalescer.New(coalescer.Config{
		LocalWindow: cfg.PersistDebounce,
		CloudWindow: cfg.SyncDebounce,
	}, e.flushLocal, e.flushCloud, log)

	e.registerCallbacks(opts.Callbacks)

	gateway := opts.Gateway
	if gateway == nil && syncCfg.BaseURL != "" {
		gateway = remote.NewHTTPGateway(syncCfg.BaseURL, syncCfg.Timeout, e.session, log)
	}
	if gateway != nil {
		e.gateway = gateway
		e.coordinator = cloudsync.NewCoordinator(
			gateway,
			e.stores.lookups,
			e.stores.cards,
			e.stores.reviews,
			e.stores.checkpoints,
			cloudsync.Config{
				UploadBatchSize: syncCfg.UploadBatchSize,
				OnProgress:      e.emitSyncProgress,
				ContextCapacity: cfg.ContextCapacity,
			},
			log,
		)
		e.syncOn = true

		if syncCfg.AutoInterval > 0 {
			e.autosync = gocron.NewScheduler(time.UTC)
			if _, err := e.autosync.Every(syncCfg.AutoInterval).Do(e.requestSync); err != nil {
				log.Warn("Failed to schedule automatic sync", "error", err)
				e.autosync = nil
			}
		}
	}

	return e, nil
}

// Start loads learner state from the local store, restoring from the
// JSON backup when the word history is empty, and launches the
// background machinery. Call it once, before any other operation.
func (e *Engine) Start(ctx context.Context) error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.started {
		return fmt.Errorf("engine already started")
	}
	if e.closed {
		return fmt.Errorf("engine closed")
	}

	if err := e.loadState(ctx); err != nil {
		return err
	}

	if sess, err := e.stores.sessions.Get(ctx); err == nil {
		e.session.Set(sess)
	} else if !errors.Is(err, store.ErrNotFound) {
		e.logger.Warn("Failed to load session", "error", err)
	}

	e.flusher.Start()
	e.wg.Add(1)
	go e.syncLoop()
	if e.autosync != nil {
		e.autosync.StartAsync()
	}

	e.started = true

	e.mu.RLock()
	e.logger.Info("Engine started",
		"words", len(e.words),
		"cards", len(e.cards),
		"queued", len(e.queue),
		"signed_in", e.session.Current() != nil)
	e.mu.RUnlock()
	return nil
}

// loadState fills the in-memory maps from the local store. An empty
// word history triggers a restore from the JSON backup; after a
// successful load a fresh backup is written.
func (e *Engine) loadState(ctx context.Context) error {
	if err := e.loadCollections(ctx); err != nil {
		// Degraded start: operate from memory and let the coalescer
		// retry persistence key by key.
		e.logger.Error("Local store unavailable, starting with in-memory state", "error", err)
		return nil
	}

	e.mu.RLock()
	empty := len(e.words) == 0
	e.mu.RUnlock()

	if empty {
		restored, err := e.backups.Restore(ctx, e.backupStores())
		if err != nil {
			e.logger.Warn("Backup restore failed", "error", err)
		} else if restored {
			if err := e.loadCollections(ctx); err != nil {
				return fmt.Errorf("reload after restore: %w", err)
			}
		}
	}

	if err := e.backups.Backup(ctx, e.backupStores()); err != nil {
		e.logger.Warn("Backup write failed", "error", err)
	}
	return nil
}

// loadCollections replaces the in-memory maps with the store contents.
func (e *Engine) loadCollections(ctx context.Context) error {
	words, err := e.stores.lookups.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load word history: %w", err)
	}
	cards, err := e.stores.cards.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load flashcards: %w", err)
	}
	entries, err := e.stores.reviews.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load review queue: %w", err)
	}
	blocked, err := e.stores.blacklist.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load blacklist: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.words = make(map[string]*domain.LookupRecord, len(words))
	for _, r := range words {
		e.words[r.Word] = r
	}
	e.cards = make(map[string]*domain.CardProgress, len(cards))
	for _, c := range cards {
		e.cards[c.Word] = c
	}
	e.queue = make(map[string]*domain.ReviewEntry, len(entries))
	for _, entry := range entries {
		e.queue[entry.Word] = entry
	}
	e.blocked = make(map[string]*domain.BlacklistEntry, len(blocked))
	for _, b := range blocked {
		e.blocked[b.Word] = b
	}
	return nil
}

func (e *Engine) backupStores() backup.Stores {
	return backup.Stores{
		Lookups:   e.stores.lookups,
		Cards:     e.stores.cards,
		Reviews:   e.stores.reviews,
		Blacklist: e.stores.blacklist,
	}
}

// Close flushes pending writes, stops the background machinery and
// closes the database. The engine must not be used afterwards.
func (e *Engine) Close(ctx context.Context) error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	if e.autosync != nil {
		e.autosync.Stop()
	}

	var errs []error
	if e.started {
		if err := e.flusher.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush pending writes: %w", err))
		}
	}
	e.flusher.Stop()
	e.runCancel()
	e.wg.Wait()

	if err := e.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close local store: %w", err))
	}

	e.logger.Info("Engine closed")
	return errors.Join(errs...)
}

// Stats is a point-in-time census of the learner's data.
type Stats struct {
	Words       int
	Cards       int
	DueCards    int
	Pending     int
	Reviewing   int
	Mastered    int
	Blacklisted int
}

// Stats counts the engine's current state.
func (e *Engine) Stats() Stats {
	now := e.clock()

	e.mu.RLock()
	defer e.mu.RUnlock()

	s := Stats{
		Words:       len(e.words),
		Cards:       len(e.cards),
		Blacklisted: len(e.blocked),
	}
	for _, card := range e.cards {
		if card.Due(now) {
			s.DueCards++
		}
	}
	for _, entry := range e.queue {
		switch entry.State {
		case domain.ReviewStatePending:
			s.Pending++
		case domain.ReviewStateReviewing:
			s.Reviewing++
		case domain.ReviewStateMastered:
			s.Mastered++
		}
	}
	return s
}

// flushLocal writes one key's current in-memory state to the local
// store, or deletes the row when the record is gone from memory. An
// error keeps the key dirty so the coalescer retries.
func (e *Engine) flushLocal(ctx context.Context, key coalescer.Key) error {
	switch key.Collection {
	case store.CollectionWords:
		e.mu.RLock()
		record := cloneLookup(e.words[key.Word])
		e.mu.RUnlock()
		if record == nil {
			return e.stores.lookups.Delete(ctx, key.Word)
		}
		return e.stores.lookups.Put(ctx, record)

	case store.CollectionFlashcard:
		e.mu.RLock()
		card := cloneCard(e.cards[key.Word])
		e.mu.RUnlock()
		if card == nil {
			return e.stores.cards.Delete(ctx, key.Word)
		}
		return e.stores.cards.Put(ctx, card)

	case store.CollectionReview:
		e.mu.RLock()
		entry := cloneReview(e.queue[key.Word])
		e.mu.RUnlock()
		if entry == nil {
			return e.stores.reviews.Delete(ctx, key.Word)
		}
		return e.stores.reviews.Put(ctx, entry)

	case collectionBlacklist:
		e.mu.RLock()
		entry := cloneBlacklist(e.blocked[key.Word])
		e.mu.RUnlock()
		if entry == nil {
			return e.stores.blacklist.Delete(ctx, key.Word)
		}
		return e.stores.blacklist.Put(ctx, entry)

	default:
		e.logger.Warn("Unknown collection in flush", "collection", key.Collection)
		return nil
	}
}

// flushCloud runs when a key's cloud window elapses. Uploads are
// collection-wide, so the key only serves as a debounced trigger.
func (e *Engine) flushCloud(context.Context, coalescer.Key) error {
	e.requestSync()
	return nil
}

// registerCallbacks bridges the construction-time callbacks onto the
// event emitter.
func (e *Engine) registerCallbacks(cb Callbacks) {
	if cb.OnSecondLookup != nil {
		fn := cb.OnSecondLookup
		e.emitter.RegisterHandler(events.HandlerFunc(func(_ context.Context, event *events.Event) error {
			if event.Type != events.TypeSecondLookup {
				return nil
			}
			var payload events.SecondLookupPayload
			if err := event.UnmarshalPayload(&payload); err != nil {
				return err
			}
			fn(payload.Word)
			return nil
		}))
	}
	if cb.OnSyncProgress != nil {
		fn := cb.OnSyncProgress
		e.emitter.RegisterHandler(events.HandlerFunc(func(_ context.Context, event *events.Event) error {
			if event.Type != events.TypeSyncProgress {
				return nil
			}
			var payload events.SyncProgressPayload
			if err := event.UnmarshalPayload(&payload); err != nil {
				return err
			}
			fn(payload.Current, payload.Total, payload.Message)
			return nil
		}))
	}
}

func (e *Engine) emitSecondLookup(ctx context.Context, word string) {
	event, err := events.NewEvent(events.TypeSecondLookup, events.SecondLookupPayload{Word: word})
	if err != nil {
		e.logger.Warn("Failed to build second-lookup event", "error", err)
		return
	}
	if err := e.emitter.EmitEvent(ctx, event); err != nil {
		e.logger.Warn("Second-lookup handler failed", "word", word, "error", err)
	}
}

func (e *Engine) emitSyncProgress(current, total int, message string) {
	event, err := events.NewEvent(events.TypeSyncProgress, events.SyncProgressPayload{
		Current: current,
		Total:   total,
		Message: message,
	})
	if err != nil {
		return
	}
	if err := e.emitter.EmitEvent(e.runCtx, event); err != nil {
		e.logger.Debug("Sync progress handler failed", "error", err)
	}
}

func cloneLookup(r *domain.LookupRecord) *domain.LookupRecord {
	if r == nil {
		return nil
	}
	copied := *r
	copied.Lookups = append([]time.Time(nil), r.Lookups...)
	copied.Contexts = append([]string(nil), r.Contexts...)
	return &copied
}

func cloneCard(p *domain.CardProgress) *domain.CardProgress {
	if p == nil {
		return nil
	}
	copied := *p
	return &copied
}

func cloneReview(entry *domain.ReviewEntry) *domain.ReviewEntry {
	if entry == nil {
		return nil
	}
	copied := *entry
	return &copied
}

func cloneBlacklist(entry *domain.BlacklistEntry) *domain.BlacklistEntry {
	if entry == nil {
		return nil
	}
	copied := *entry
	return &copied
}
