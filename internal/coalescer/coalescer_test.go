package coalescer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// nopFlush ignores every key.
func nopFlush(ctx context.Context, key Key) error {
	return nil
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{}, nopFlush, nopFlush, setupTestLogger())

	assert.Equal(t, time.Second, c.local.interval)
	assert.Equal(t, 2*time.Second, c.cloud.interval)
	assert.Len(t, c.local.workers, 2)
	assert.Len(t, c.cloud.workers, 2)
}

func TestCoalescer_CoalescesMarksIntoOneFlush(t *testing.T) {
	// Shared record state the handler reads at flush time
	var mu sync.Mutex
	value := 0

	flushed := make(chan int, 16)
	onLocal := func(ctx context.Context, key Key) error {
		mu.Lock()
		defer mu.Unlock()
		flushed <- value
		return nil
	}

	c := New(Config{
		LocalWindow: 40 * time.Millisecond,
		CloudWindow: time.Minute, // keep the cloud window out of the way
	}, onLocal, nopFlush, setupTestLogger())
	c.Start()
	defer c.Stop()

	key := Key{Collection: "words", Word: "apple"}

	// Five rapid mutations of the same record
	for i := 1; i <= 5; i++ {
		mu.Lock()
		value = i
		mu.Unlock()
		c.MarkLocal(key)
	}

	// Exactly one flush arrives, carrying the final state
	select {
	case got := <-flushed:
		assert.Equal(t, 5, got, "flush should read the state left by the last mark")
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for flush")
	}

	// No second flush for the same burst
	select {
	case got := <-flushed:
		t.Fatalf("unexpected second flush carrying %d", got)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCoalescer_WindowsFireIndependently(t *testing.T) {
	localFlushed := make(chan Key, 4)
	cloudFlushed := make(chan Key, 4)

	c := New(Config{
		LocalWindow: 30 * time.Millisecond,
		CloudWindow: 60 * time.Millisecond,
	}, func(ctx context.Context, key Key) error {
		localFlushed <- key
		return nil
	}, func(ctx context.Context, key Key) error {
		cloudFlushed <- key
		return nil
	}, setupTestLogger())
	c.Start()
	defer c.Stop()

	t.Run("Mark reaches both windows", func(t *testing.T) {
		c.Mark(Key{Collection: "words", Word: "both"})

		select {
		case key := <-localFlushed:
			assert.Equal(t, "both", key.Word)
		case <-time.After(2 * time.Second):
			t.Fatal("Timed out waiting for local flush")
		}

		select {
		case key := <-cloudFlushed:
			assert.Equal(t, "both", key.Word)
		case <-time.After(2 * time.Second):
			t.Fatal("Timed out waiting for cloud flush")
		}
	})

	t.Run("MarkLocal never reaches the cloud window", func(t *testing.T) {
		c.MarkLocal(Key{Collection: "blacklist", Word: "localonly"})

		select {
		case key := <-localFlushed:
			assert.Equal(t, "localonly", key.Word)
		case <-time.After(2 * time.Second):
			t.Fatal("Timed out waiting for local flush")
		}

		select {
		case key := <-cloudFlushed:
			t.Fatalf("cloud window flushed %q for a local-only mark", key.Word)
		case <-time.After(250 * time.Millisecond):
		}
	})
}

func TestCoalescer_FailedFlushKeepsKeyDirty(t *testing.T) {
	var calls atomic.Int32
	succeeded := make(chan struct{})

	onLocal := func(ctx context.Context, key Key) error {
		if calls.Add(1) < 3 {
			return errors.New("store unavailable")
		}
		close(succeeded)
		return nil
	}

	c := New(Config{
		LocalWindow: 30 * time.Millisecond,
		CloudWindow: time.Minute,
	}, onLocal, nopFlush, setupTestLogger())
	c.Start()
	defer c.Stop()

	c.MarkLocal(Key{Collection: "words", Word: "retry"})

	select {
	case <-succeeded:
		assert.GreaterOrEqual(t, calls.Load(), int32(3), "failed flushes should be retried")
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for flush to eventually succeed")
	}
}

func TestCoalescer_FlushForcesBothWindows(t *testing.T) {
	var localCount, cloudCount atomic.Int32

	c := New(Config{
		// Windows far longer than the test; only Flush can drain them
		LocalWindow: time.Minute,
		CloudWindow: time.Minute,
	}, func(ctx context.Context, key Key) error {
		localCount.Add(1)
		return nil
	}, func(ctx context.Context, key Key) error {
		cloudCount.Add(1)
		return nil
	}, setupTestLogger())
	c.Start()
	defer c.Stop()

	c.Mark(Key{Collection: "words", Word: "alpha"})
	c.Mark(Key{Collection: "words", Word: "beta"})
	c.MarkLocal(Key{Collection: "blacklist", Word: "gamma"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Flush(ctx))

	assert.Equal(t, int32(3), localCount.Load())
	assert.Equal(t, int32(2), cloudCount.Load())

	local, cloud := c.Pending()
	assert.Zero(t, local)
	assert.Zero(t, cloud)
}

func TestCoalescer_FlushReportsHandlerErrors(t *testing.T) {
	flushErr := errors.New("disk full")

	c := New(Config{
		LocalWindow: time.Minute,
		CloudWindow: time.Minute,
	}, func(ctx context.Context, key Key) error {
		return flushErr
	}, nopFlush, setupTestLogger())
	c.Start()
	defer c.Stop()

	c.MarkLocal(Key{Collection: "words", Word: "doomed"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.Flush(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, flushErr)

	local, _ := c.Pending()
	assert.Equal(t, 1, local, "failed key should stay dirty for retry")
}

func TestCoalescer_SameKeyFlushesNeverOverlap(t *testing.T) {
	// "ember" and "tide" land on different shards with two workers, so
	// their flushes may interleave while repeats of one key serialize.
	ember := Key{Collection: "words", Word: "ember"}
	tide := Key{Collection: "words", Word: "tide"}
	require.NotEqual(t, ember.shard(2), tide.shard(2))

	var (
		mu        sync.Mutex
		active    = make(map[Key]int)
		peak      = make(map[Key]int)
		count     = make(map[Key]int)
		totalPeak int
	)
	entered := make(chan Key, 8)
	release := make(chan struct{})

	onLocal := func(ctx context.Context, key Key) error {
		mu.Lock()
		active[key]++
		if active[key] > peak[key] {
			peak[key] = active[key]
		}
		count[key]++
		inFlight := 0
		for _, n := range active {
			inFlight += n
		}
		if inFlight > totalPeak {
			totalPeak = inFlight
		}
		mu.Unlock()

		entered <- key
		<-release

		mu.Lock()
		active[key]--
		mu.Unlock()
		return nil
	}

	c := New(Config{
		LocalWindow: 30 * time.Millisecond,
		CloudWindow: time.Minute,
		WorkerCount: 2,
	}, onLocal, nopFlush, setupTestLogger())
	c.Start()
	defer c.Stop()

	waitEntered := func(want Key) {
		t.Helper()
		select {
		case got := <-entered:
			require.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %v to start flushing", want)
		}
	}

	// First flush of ember blocks inside the handler; a re-mark then
	// queues a second flush behind it on the same worker.
	c.MarkLocal(ember)
	waitEntered(ember)
	c.MarkLocal(ember)

	c.MarkLocal(tide)
	waitEntered(tide)

	mu.Lock()
	bothInFlight := totalPeak
	mu.Unlock()
	assert.Equal(t, 2, bothInFlight, "distinct keys should flush concurrently")

	close(release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count[ember] == 2
	}, 2*time.Second, 10*time.Millisecond, "the queued ember flush should run after the first finishes")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, peak[ember], "the same key must never flush concurrently")
	assert.Equal(t, 1, peak[tide])
}

func TestCoalescer_ConcurrentMarks(t *testing.T) {
	var mu sync.Mutex
	flushCounts := make(map[Key]int)

	onLocal := func(ctx context.Context, key Key) error {
		mu.Lock()
		defer mu.Unlock()
		flushCounts[key]++
		return nil
	}

	c := New(Config{
		LocalWindow: time.Minute,
		CloudWindow: time.Minute,
		WorkerCount: 4,
	}, onLocal, nopFlush, setupTestLogger())
	c.Start()
	defer c.Stop()

	words := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}

	var marks sync.WaitGroup
	for g := 0; g < 20; g++ {
		marks.Add(1)
		go func() {
			defer marks.Done()
			for _, word := range words {
				c.MarkLocal(Key{Collection: "words", Word: word})
			}
		}()
	}
	marks.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Flush(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, flushCounts, len(words))
	for key, count := range flushCounts {
		assert.Equal(t, 1, count, "key %v should flush exactly once", key)
	}
}
