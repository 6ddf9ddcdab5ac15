package coalescer

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"
)

// Key identifies a dirty record: the collection it belongs to and its
// word key within that collection.
type Key struct {
	Collection string
	Word       string
}

// shard maps the key to one of n workers. The same key always lands on
// the same worker, so its flushes never run concurrently.
func (k Key) shard(n int) int {
	h := fnv.New32a()
	h.Write([]byte(k.Collection))
	h.Write([]byte{0})
	h.Write([]byte(k.Word))
	return int(h.Sum32() % uint32(n))
}

// FlushFunc handles one key whose window has elapsed. It should read
// the record's current state at call time. A non-nil error keeps the
// key dirty, so it is retried on a later tick.
type FlushFunc func(ctx context.Context, key Key) error

// Config holds configuration for the coalescer.
type Config struct {
	// LocalWindow is the debounce window for durable store writes.
	// If zero, defaults to 1 second.
	LocalWindow time.Duration

	// CloudWindow is the debounce window for outbound sync marks.
	// If zero, defaults to 2 seconds.
	CloudWindow time.Duration

	// WorkerCount determines how many flush workers each window runs.
	// If zero or negative, defaults to 2.
	WorkerCount int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		LocalWindow: time.Second,
		CloudWindow: 2 * time.Second,
		WorkerCount: 2,
	}
}

// Coalescer owns the two debounce windows. Construct with New, call
// Start to launch the tickers and workers, Flush to force everything
// out synchronously, and Stop to shut down. Flush before Stop; keys
// marked after Stop stay dirty forever.
type Coalescer struct {
	local *window
	cloud *window

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	logger     *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a Coalescer. onLocal runs when a key's local window
// elapses, onCloud when its cloud window elapses. If logger is nil, a
// default logger will be used.
func New(config Config, onLocal, onCloud FlushFunc, logger *slog.Logger) *Coalescer {
	if config.LocalWindow <= 0 {
		config.LocalWindow = time.Second
	}
	if config.CloudWindow <= 0 {
		config.CloudWindow = 2 * time.Second
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "coalescer"))

	ctx, cancel := context.WithCancel(context.Background())

	return &Coalescer{
		local:      newWindow("local", config.LocalWindow, config.WorkerCount, onLocal, logger),
		cloud:      newWindow("cloud", config.CloudWindow, config.WorkerCount, onCloud, logger),
		ctx:        ctx,
		cancelFunc: cancel,
		logger:     logger,
	}
}

// Start launches the tickers and flush workers for both windows.
func (c *Coalescer) Start() {
	c.startOnce.Do(func() {
		c.local.start(c.ctx, &c.wg)
		c.cloud.start(c.ctx, &c.wg)
		c.logger.Debug("coalescer started",
			"local_window", c.local.interval.String(),
			"cloud_window", c.cloud.interval.String())
	})
}

// Mark flags a key dirty in both windows, re-arming its deadlines.
func (c *Coalescer) Mark(key Key) {
	now := time.Now()
	c.local.mark(key, now)
	c.cloud.mark(key, now)
}

// MarkLocal flags a key dirty in the local window only. Used for
// collections that persist durably but never leave the device.
func (c *Coalescer) MarkLocal(key Key) {
	c.local.mark(key, time.Now())
}

// Flush forces every dirty key in both windows through its handler and
// waits for the flushes to finish or the context to expire. Handler
// failures are joined into the returned error; the failed keys stay
// dirty.
func (c *Coalescer) Flush(ctx context.Context) error {
	return errors.Join(
		c.local.flushAll(ctx),
		c.cloud.flushAll(ctx),
	)
}

// Stop shuts down the tickers and workers. Keys still dirty are left
// behind; call Flush first on the shutdown path.
func (c *Coalescer) Stop() {
	c.stopOnce.Do(func() {
		c.cancelFunc()
		c.wg.Wait()
	})
}

// Pending reports how many keys are currently dirty in the local and
// cloud windows.
func (c *Coalescer) Pending() (local, cloud int) {
	return c.local.pending(), c.cloud.pending()
}

// flushItem is one key on its way to a worker. done is non-nil only
// for synchronous flushes.
type flushItem struct {
	key  Key
	done func(error)
}

// window is one debounce window: a dirty map of key deadlines, a
// ticker that collects expired keys, and a set of sharded workers that
// run the flush handler.
type window struct {
	name     string
	interval time.Duration
	flush    FlushFunc
	logger   *slog.Logger

	mu    sync.Mutex
	dirty map[Key]time.Time

	workers []chan flushItem
}

func newWindow(name string, interval time.Duration, workerCount int, flush FlushFunc, logger *slog.Logger) *window {
	workers := make([]chan flushItem, workerCount)
	for i := range workers {
		workers[i] = make(chan flushItem, 64)
	}
	return &window{
		name:     name,
		interval: interval,
		flush:    flush,
		logger:   logger.With(slog.String("window", name)),
		dirty:    make(map[Key]time.Time),
		workers:  workers,
	}
}

func (w *window) start(ctx context.Context, wg *sync.WaitGroup) {
	for i := range w.workers {
		wg.Add(1)
		go w.worker(ctx, wg, i)
	}

	wg.Add(1)
	go w.tickLoop(ctx, wg)
}

func (w *window) mark(key Key, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirty[key] = now.Add(w.interval)
}

func (w *window) pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirty)
}

// tickLoop wakes at the window interval and dispatches every key whose
// deadline has passed.
func (w *window) tickLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			for _, key := range w.takeExpired(time.Now()) {
				w.dispatch(ctx, flushItem{key: key})
			}
		}
	}
}

// takeExpired removes and returns the keys whose deadline passed. Keys
// marked again before their deadline stay put; the mark re-armed them.
func (w *window) takeExpired(now time.Time) []Key {
	w.mu.Lock()
	defer w.mu.Unlock()

	var expired []Key
	for key, deadline := range w.dirty {
		if deadline.After(now) {
			continue
		}
		expired = append(expired, key)
		delete(w.dirty, key)
	}
	return expired
}

// takeAll removes and returns every dirty key regardless of deadline.
func (w *window) takeAll() []Key {
	w.mu.Lock()
	defer w.mu.Unlock()

	keys := make([]Key, 0, len(w.dirty))
	for key := range w.dirty {
		keys = append(keys, key)
	}
	w.dirty = make(map[Key]time.Time)
	return keys
}

func (w *window) dispatch(ctx context.Context, item flushItem) {
	select {
	case w.workers[item.key.shard(len(w.workers))] <- item:
	case <-ctx.Done():
		// Shutting down; the key goes back to the dirty set so a
		// final Flush can still pick it up.
		w.mark(item.key, time.Now().Add(-w.interval))
		if item.done != nil {
			item.done(ctx.Err())
		}
	}
}

func (w *window) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()

	ch := w.workers[id]
	for {
		select {
		case <-ctx.Done():
			return

		case item := <-ch:
			w.runFlush(ctx, item)
		}
	}
}

func (w *window) runFlush(ctx context.Context, item flushItem) {
	err := w.flush(ctx, item.key)
	if err != nil {
		w.logger.Warn("flush failed, keeping key dirty",
			"collection", item.key.Collection,
			"word", item.key.Word,
			"error", err)
		// Re-arm so a later tick retries instead of spinning
		w.mark(item.key, time.Now())
	}
	if item.done != nil {
		item.done(err)
	}
}

// flushAll pushes every dirty key through the workers and waits for
// the results. Used by Coalescer.Flush.
func (w *window) flushAll(ctx context.Context) error {
	keys := w.takeAll()
	if len(keys) == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		errs    []error
		pending sync.WaitGroup
	)

	for _, key := range keys {
		pending.Add(1)
		item := flushItem{
			key: key,
			done: func(err error) {
				if err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
				pending.Done()
			},
		}
		w.dispatch(ctx, item)
	}

	done := make(chan struct{})
	go func() {
		pending.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	return errors.Join(errs...)
}
